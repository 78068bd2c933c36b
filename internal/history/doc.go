// Package history records every feed generation in a SQLite database so
// operators can see what was emitted, what was dropped, and why.
//
// Each run stores its scored batch (selected or not) and its drops. Schema
// changes bump schemaVersion; an old database must be deleted rather than
// migrated.
package history
