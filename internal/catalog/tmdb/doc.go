// Package tmdb talks to The Movie Database API.
//
// Client wraps the raw endpoints (search, details, external ids, images)
// behind a shared request helper that rate limits, maps HTTP failures onto
// the services error markers, and decodes JSON. Catalog adapts a client to a
// single media kind so the resolver can search and hydrate candidates, and
// Posters turns hydrated candidates into w500 poster URLs.
package tmdb
