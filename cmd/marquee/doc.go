// Command marquee scrapes popularity guides, resolves each title against
// TMDB, scores the matches and writes ranked JSON feeds.
//
// Subcommands:
//
//	generate   build one or more feeds and publish them
//	resolve    debug the catalog match for a single title
//	history    inspect recorded generation runs
//	schedule   regenerate feeds on a cron schedule
//	config     create, validate and print configuration
package main
