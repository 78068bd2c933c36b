// Package publish delivers rendered feeds to the local output directory and,
// when configured, to an S3 bucket.
package publish
