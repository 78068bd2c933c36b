package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"marquee/internal/catalog/tmdb"
	"marquee/internal/config"
	"marquee/internal/feed"
	"marquee/internal/history"
	"marquee/internal/logging"
	"marquee/internal/media"
	"marquee/internal/metrics"
	"marquee/internal/publish"
	"marquee/internal/ratings/omdb"
	"marquee/internal/services"
	"marquee/internal/source"
)

type pipelineOptions struct {
	outputDir string
	noPublish bool
	noHistory bool
}

// pipeline owns the long-lived clients shared by every feed generation of
// one command invocation.
type pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	scraper  *source.Scraper
	tmdb     *tmdb.Client
	omdb     *omdb.Client
	recorder *metrics.Recorder
	history  *history.Store
	sinks    publish.Fanout
}

type runResult struct {
	RunID     string
	Report    *feed.Report
	Data      []byte
	Locations []string
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts pipelineOptions) (*pipeline, error) {
	policy := retryPolicy(cfg)

	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
		tmdb.WithRateLimit(cfg.TMDB.RequestsPerSecond, max(1, int(cfg.TMDB.RequestsPerSecond))),
	)
	if err != nil {
		return nil, fmt.Errorf("tmdb client: %w", err)
	}

	p := &pipeline{
		cfg:    cfg,
		logger: logger,
		scraper: source.NewScraper(
			source.WithTimeout(cfg.SourceTimeout()),
			source.WithUserAgent(cfg.Sources.UserAgent),
			source.WithRetryPolicy(policy),
			source.WithLogger(logger),
		),
		tmdb:     client,
		recorder: metrics.New(),
	}

	if strings.TrimSpace(cfg.Ratings.OMDbAPIKey) != "" {
		ratings, err := omdb.New(cfg.Ratings.OMDbAPIKey, cfg.Ratings.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("omdb client: %w", err)
		}
		p.omdb = ratings
	} else {
		logging.WarnWithContext(logger, "ratings provider disabled", "ratings_disabled",
			logging.String(logging.FieldErrorHint, "set ratings.omdb_api_key or OMDB_API_KEY"),
			logging.String(logging.FieldImpact, "every title is scored with the neutral rating"),
		)
	}

	outputDir := strings.TrimSpace(opts.outputDir)
	if outputDir == "" {
		outputDir = cfg.Paths.OutputDir
	}
	if outputDir == "" {
		outputDir = "."
	}
	p.sinks = publish.Fanout{publish.NewFileSink(outputDir)}
	if cfg.PublishEnabled() && !opts.noPublish {
		sink, err := publish.NewS3Sink(ctx, cfg.Publish)
		if err != nil {
			return nil, fmt.Errorf("s3 publisher: %w", err)
		}
		p.sinks = append(p.sinks, sink)
	}

	if !opts.noHistory {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			return nil, err
		}
		p.history = store
	}
	return p, nil
}

func (p *pipeline) Close() error {
	if p.history == nil {
		return nil
	}
	return p.history.Close()
}

func retryPolicy(cfg *config.Config) services.RetryPolicy {
	return services.RetryPolicy{
		MaxAttempts: cfg.Ratings.MaxAttempts,
		BaseDelay:   cfg.RetryBaseDelay(),
		Jitter:      cfg.RetryJitter(),
	}
}

func (p *pipeline) catalog(kind media.Kind) *tmdb.Catalog {
	return tmdb.NewCatalog(p.tmdb, kind)
}

func (p *pipeline) generator(profile feed.Profile) (*feed.Generator, error) {
	deps := feed.Dependencies{
		Catalog: p.catalog(profile.Kind),
		Posters: tmdb.NewPosters(p.tmdb, p.cfg.TMDB.ImageBaseURL, retryPolicy(p.cfg)),
	}
	if p.omdb != nil {
		deps.Ratings = p.omdb
	}
	return feed.NewGenerator(profile, deps,
		feed.WithRecencyDays(p.cfg.Feeds.RecencyDays),
		feed.WithWorkers(p.cfg.Feeds.Workers),
		feed.WithRetryPolicy(retryPolicy(p.cfg)),
		feed.WithRecorder(p.recorder),
		feed.WithNeutralRating(p.cfg.Ratings.Neutral),
		feed.WithMaxPages(p.cfg.TMDB.MaxPages),
		feed.WithCredits(p.cfg.TMDB.FetchCredits),
		feed.WithLogger(p.logger),
	)
}

// run scrapes, generates, publishes and records one feed.
func (p *pipeline) run(ctx context.Context, profile feed.Profile) (*runResult, error) {
	runID := uuid.NewString()
	ctx = services.WithFeed(services.WithRunID(ctx, runID), profile.Name)
	result := &runResult{RunID: runID}

	guide, err := source.GuideFor(profile.Name, p.cfg.SourceURL(profile.Name))
	if err != nil {
		return result, err
	}
	items, err := p.scraper.Items(ctx, guide)
	if err != nil {
		return result, p.fail(ctx, runID, profile.Name, nil, err)
	}
	p.recorder.ObserveScraped(profile.Name, len(items))

	gen, err := p.generator(profile)
	if err != nil {
		return result, err
	}
	report, err := gen.Generate(ctx, items)
	if err != nil {
		return result, p.fail(ctx, runID, profile.Name, report, err)
	}
	result.Report = report

	var buf bytes.Buffer
	if err := feed.Encode(&buf, report.Records); err != nil {
		return result, p.fail(ctx, runID, profile.Name, report, err)
	}
	result.Data = buf.Bytes()

	locations, err := p.sinks.Publish(ctx, profile.Name, result.Data)
	result.Locations = locations
	if err != nil {
		return result, p.fail(ctx, runID, profile.Name, report, fmt.Errorf("publish %s: %w", profile.Name, err))
	}

	p.recorder.ObserveRun(report)
	var outputPath string
	if len(locations) > 0 {
		outputPath = locations[0]
	}
	p.record(ctx, history.FromReport(runID, report, outputPath))
	p.exportMetrics(ctx)

	logging.WithContext(ctx, p.logger).Info("feed published",
		logging.Int("records", len(report.Records)),
		logging.String("locations", strings.Join(locations, ", ")),
	)
	return result, nil
}

func (p *pipeline) fail(ctx context.Context, runID, feedName string, report *feed.Report, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	p.recorder.ObserveFailure(feedName)
	p.record(ctx, history.Failed(runID, feedName, report, err))
	p.exportMetrics(ctx)
	logging.ErrorWithContext(logging.WithContext(ctx, p.logger), "feed generation failed", "feed_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.ErrorHint(err)),
	)
	return fmt.Errorf("generate %s: %w", feedName, err)
}

func (p *pipeline) record(ctx context.Context, run history.Run) {
	if p.history == nil {
		return
	}
	if err := p.history.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "failed to record run history", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on "+p.history.Path()),
			logging.String(logging.FieldImpact, "run is missing from marquee history"),
		)
	}
}

func (p *pipeline) exportMetrics(ctx context.Context) {
	if err := p.recorder.WriteTextfile(p.cfg.Metrics.Textfile); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "failed to write metrics textfile", "metrics_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check metrics.textfile"),
			logging.String(logging.FieldImpact, "node exporter shows stale values"),
		)
	}
}
