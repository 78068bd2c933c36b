// Package scoring turns resolved candidates into a ranked batch: it fetches
// ratings with neutral fallbacks, blends log-scaled popularity with those
// ratings into batch-relative scores, and selects the top entries.
package scoring
