// Package services defines shared utilities consumed by the feed pipeline
// and its external provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, feed names, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so callers can tell a
//     missing record from a flaky provider or a broken source page.
//   - A bounded retry helper with fixed base delay and random jitter shared by
//     catalog search, rating lookup, and poster resolution.
//
// Use these helpers when wiring new providers so operational behaviour (error
// handling, observability, retries) stays uniform across the pipeline.
package services
