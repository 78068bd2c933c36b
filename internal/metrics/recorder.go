package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"marquee/internal/feed"
)

const namespace = "marquee"

// Recorder collects generation metrics in a private registry.
type Recorder struct {
	registry    *prometheus.Registry
	scraped     *prometheus.CounterVec
	dropped     *prometheus.CounterVec
	retries     *prometheus.CounterVec
	runs        *prometheus.CounterVec
	emitted     *prometheus.GaugeVec
	duration    *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

// New registers every marquee collector on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		scraped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_items_total",
			Help:      "Source items scraped from popularity guides.",
		}, []string{"feed"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_items_total",
			Help:      "Source items excluded from a feed, by reason.",
		}, []string{"feed", "reason"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_retries_total",
			Help:      "Provider calls retried after a transient failure.",
		}, []string{"feed", "stage"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Feed generation runs, by outcome.",
		}, []string{"feed", "status"}),
		emitted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "feed_records",
			Help:      "Records written by the last successful run.",
		}, []string{"feed"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last successful run.",
		}, []string{"feed"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time the last successful run finished.",
		}, []string{"feed"}),
	}
	r.registry.MustRegister(r.scraped, r.dropped, r.retries, r.runs, r.emitted, r.duration, r.lastSuccess)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveDrop counts one dropped item.
func (r *Recorder) ObserveDrop(feedName string, reason feed.DropReason) {
	r.dropped.WithLabelValues(feedName, string(reason)).Inc()
}

// ObserveRetry counts one retried provider call.
func (r *Recorder) ObserveRetry(feedName, stage string) {
	r.retries.WithLabelValues(feedName, stage).Inc()
}

// ObserveScraped counts scraped source items.
func (r *Recorder) ObserveScraped(feedName string, n int) {
	r.scraped.WithLabelValues(feedName).Add(float64(n))
}

// ObserveRun records a successful generation.
func (r *Recorder) ObserveRun(report *feed.Report) {
	r.runs.WithLabelValues(report.Feed, "succeeded").Inc()
	r.emitted.WithLabelValues(report.Feed).Set(float64(len(report.Records)))
	r.duration.WithLabelValues(report.Feed).Set(report.Duration().Seconds())
	if !report.FinishedAt.IsZero() {
		r.lastSuccess.WithLabelValues(report.Feed).Set(float64(report.FinishedAt.Unix()))
	}
}

// ObserveFailure records an aborted generation.
func (r *Recorder) ObserveFailure(feedName string) {
	r.runs.WithLabelValues(feedName, "failed").Inc()
}

// WriteTextfile exports the registry in the node_exporter textfile format.
// An empty path is a no-op.
func (r *Recorder) WriteTextfile(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
