// Package omdb fetches IMDb, Metacritic and Rotten Tomatoes ratings from the
// OMDb API and converts them to the 0-100 scale used for scoring.
package omdb
