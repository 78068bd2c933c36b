// Package feed assembles one ranked feed from scraped source items.
//
// A Generator resolves items against the catalog with bounded parallelism,
// drops duplicates and stale titles, fetches external ids and ratings,
// scores the surviving batch, and keeps the highest scoring entries whose
// posters resolve. Every excluded item is recorded in the Report with a
// DropReason and logged as a warning; a single item failing never aborts the
// run. Encode writes the records in the list format Radarr and Sonarr import.
package feed
