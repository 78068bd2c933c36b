// Package scheduler regenerates feeds on a cron schedule. Only one scheduler
// may run per state directory; the second one fails fast on the lock.
package scheduler
