// Package config loads, normalizes, and validates marquee configuration.
//
// Configuration lives in a TOML file (default ~/.config/marquee/config.toml,
// falling back to ./marquee.toml) and may be supplemented by a .env file and
// the TMDB_API_KEY, OMDB_API_KEY and MARQUEE_S3_BUCKET environment variables.
// Load applies defaults first, decodes the file over them, expands paths,
// and validates the result, so callers always receive a usable Config.
//
// Use CreateSample to bootstrap a commented config for new installs.
package config
