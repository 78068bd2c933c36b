// Package metrics exposes generation counters through Prometheus. Runs are
// short-lived, so metrics are exported to a node_exporter textfile instead of
// being served.
package metrics
