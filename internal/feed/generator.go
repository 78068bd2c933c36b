package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"marquee/internal/logging"
	"marquee/internal/media"
	"marquee/internal/resolve"
	"marquee/internal/scoring"
	"marquee/internal/services"
)

// PosterResolver turns a selected candidate into a poster URL.
type PosterResolver interface {
	PosterURL(ctx context.Context, c media.Candidate) (string, error)
}

// Recorder observes pipeline events for metrics.
type Recorder interface {
	ObserveDrop(feed string, reason DropReason)
	ObserveRetry(feed, stage string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDrop(string, DropReason) {}
func (nopRecorder) ObserveRetry(string, string)    {}

// Dependencies are the external collaborators of a generator.
type Dependencies struct {
	Catalog resolve.CatalogProvider
	Ratings scoring.RatingProvider
	Posters PosterResolver
}

// Option configures a Generator.
type Option func(*Generator)

// WithRecencyDays sets the freshness window. Zero disables the filter.
func WithRecencyDays(days int) Option {
	return func(g *Generator) { g.recencyDays = max(days, 0) }
}

// WithWorkers bounds how many items resolve and enrich concurrently.
func WithWorkers(workers int) Option {
	return func(g *Generator) {
		if workers > 0 {
			g.workers = workers
		}
	}
}

// WithRetryPolicy sets the policy for every provider call.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(g *Generator) { g.policy = policy }
}

// WithClock overrides the time source used by the recency filter.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		if now != nil {
			g.now = now
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder Recorder) Option {
	return func(g *Generator) {
		if recorder != nil {
			g.recorder = recorder
		}
	}
}

// WithNeutralRating sets the rating substituted when none is available.
func WithNeutralRating(value float64) Option {
	return func(g *Generator) { g.neutral = value }
}

// WithMaxPages caps search pagination per query.
func WithMaxPages(pages int) Option {
	return func(g *Generator) { g.maxPages = pages }
}

// WithCredits toggles credit hydration for disambiguation.
func WithCredits(enabled bool) Option {
	return func(g *Generator) { g.credits = enabled }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// Generator runs the resolve, filter, score and select pipeline for one feed.
type Generator struct {
	profile     Profile
	deps        Dependencies
	policy      services.RetryPolicy
	recencyDays int
	workers     int
	neutral     float64
	maxPages    int
	credits     bool
	now         func() time.Time
	recorder    Recorder
	logger      *slog.Logger
}

// NewGenerator validates deps and applies options.
func NewGenerator(profile Profile, deps Dependencies, opts ...Option) (*Generator, error) {
	if deps.Catalog == nil {
		return nil, errors.New("feed generator requires a catalog provider")
	}
	if deps.Posters == nil {
		return nil, errors.New("feed generator requires a poster resolver")
	}
	if profile.Limit <= 0 {
		return nil, fmt.Errorf("feed %q limit must be positive", profile.Name)
	}
	g := &Generator{
		profile:     profile,
		deps:        deps,
		policy:      services.DefaultRetryPolicy(),
		recencyDays: 90,
		workers:     4,
		neutral:     scoring.Midpoint,
		credits:     true,
		now:         time.Now,
		recorder:    nopRecorder{},
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	g.logger = logging.NewComponentLogger(g.logger, "feed")
	return g, nil
}

// Profile returns the feed profile.
func (g *Generator) Profile() Profile { return g.profile }

type resolution struct {
	candidate media.Candidate
	err       error
}

type enriched struct {
	item      media.SourceItem
	candidate media.Candidate
	rating    media.Rating
	drop      *Drop
}

// Generate turns scraped items into the feed. Individual item failures become
// drops; only cancellation aborts the run.
func (g *Generator) Generate(ctx context.Context, items []media.SourceItem) (*Report, error) {
	ctx = services.WithFeed(ctx, g.profile.Name)
	logger := logging.WithContext(ctx, g.logger)
	report := &Report{Feed: g.profile.Name, Scraped: len(items), StartedAt: g.now()}

	searcher := resolve.NewSearcher(g.deps.Catalog,
		resolve.WithMaxPages(g.maxPages),
		resolve.WithCredits(g.credits),
		resolve.WithYearFilter(g.profile.Kind != media.KindTV),
		resolve.WithRetryPolicy(g.retryPolicy("search")),
		resolve.WithLogger(g.logger),
	)
	resolver := resolve.NewResolver(searcher, g.profile.Kind, g.logger)

	resolved, err := g.resolveAll(services.WithStage(ctx, "resolve"), resolver, items)
	if err != nil {
		return nil, err
	}

	today := startOfDay(g.now())
	seen := make(map[int64]bool)
	var survivors []enriched
	for i, res := range resolved {
		item := items[i]
		switch {
		case res.err != nil:
			reason := DropProviderFailed
			if errors.Is(res.err, services.ErrNotFound) {
				reason = DropUnresolved
			}
			g.drop(ctx, report, Drop{Item: item, Reason: reason, Err: res.err})
		case seen[res.candidate.ID]:
			g.drop(ctx, report, Drop{Item: item, Reason: DropDuplicate, CandidateID: res.candidate.ID})
		case !g.fresh(res.candidate, today):
			seen[res.candidate.ID] = true
			g.drop(ctx, report, Drop{Item: item, Reason: DropStale, CandidateID: res.candidate.ID})
		default:
			seen[res.candidate.ID] = true
			survivors = append(survivors, enriched{item: item, candidate: res.candidate})
		}
	}

	if err := g.enrichAll(services.WithStage(ctx, "enrich"), survivors); err != nil {
		return nil, err
	}

	batch := make([]media.Scored, 0, len(survivors))
	for _, entry := range survivors {
		if entry.drop != nil {
			g.drop(ctx, report, *entry.drop)
			continue
		}
		batch = append(batch, media.Scored{Candidate: entry.candidate, Rating: entry.rating})
	}
	report.Scored = scoring.RankByScore(scoring.Normalize(batch))

	selected, err := g.selectWithPosters(services.WithStage(ctx, "posters"), report, survivors)
	if err != nil {
		return nil, err
	}
	report.Selected = scoring.SortByTitle(selected.entries)
	for _, entry := range report.Selected {
		report.Records = append(report.Records, OutputRecord{
			Title:     entry.Candidate.Title,
			ID:        g.profile.externalID(entry.Candidate.External),
			PosterURL: selected.posters[entry.Candidate.ID],
			IDKey:     g.profile.IDKey,
		})
	}
	report.FinishedAt = g.now()

	logger.Info("feed generated",
		logging.Int("scraped", report.Scraped),
		logging.Int("scored", len(report.Scored)),
		logging.Int("records", len(report.Records)),
		logging.Int("dropped", len(report.Drops)),
		logging.Duration("duration", report.Duration()),
	)
	return report, nil
}

func (g *Generator) resolveAll(ctx context.Context, resolver *resolve.Resolver, items []media.SourceItem) ([]resolution, error) {
	results := make([]resolution, len(items))
	var group errgroup.Group
	group.SetLimit(g.workers)
	for i, item := range items {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = resolution{err: err}
				return nil
			}
			candidate, err := resolver.Resolve(ctx, item)
			results[i] = resolution{candidate: candidate, err: err}
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (g *Generator) enrichAll(ctx context.Context, entries []enriched) error {
	aggregator := scoring.NewAggregator(g.deps.Ratings, g.retryPolicy("rating"), g.neutral, g.logger)
	idPolicy := g.retryPolicy("external_ids")
	var group errgroup.Group
	group.SetLimit(g.workers)
	for i := range entries {
		entry := &entries[i]
		group.Go(func() error {
			ids, err := services.WithRetry(ctx, idPolicy, func(ctx context.Context) (media.ExternalIDs, error) {
				return g.deps.Catalog.ExternalIDs(ctx, entry.candidate.ID)
			})
			if err != nil {
				reason := DropProviderFailed
				if errors.Is(err, services.ErrNotFound) {
					reason = DropMissingID
				}
				entry.drop = &Drop{Item: entry.item, Reason: reason, CandidateID: entry.candidate.ID, Err: err}
				return nil
			}
			entry.candidate.External = ids
			if g.profile.externalID(ids) == "" {
				entry.drop = &Drop{Item: entry.item, Reason: DropMissingID, CandidateID: entry.candidate.ID}
				return nil
			}
			rating, err := aggregator.Rating(ctx, ids.IMDbID)
			if err != nil {
				entry.drop = &Drop{Item: entry.item, Reason: DropRatingFailed, CandidateID: entry.candidate.ID, Err: err}
				return nil
			}
			entry.rating = rating
			return nil
		})
	}
	_ = group.Wait()
	return ctx.Err()
}

type selection struct {
	entries []media.Scored
	posters map[int64]string
}

// selectWithPosters walks the ranked batch and keeps the first entries whose
// poster resolves, up to the feed limit.
func (g *Generator) selectWithPosters(ctx context.Context, report *Report, survivors []enriched) (selection, error) {
	items := make(map[int64]media.SourceItem, len(survivors))
	for _, entry := range survivors {
		items[entry.candidate.ID] = entry.item
	}
	out := selection{posters: make(map[int64]string)}
	for _, entry := range report.Scored {
		if len(out.entries) >= g.profile.Limit {
			break
		}
		url, err := g.deps.Posters.PosterURL(ctx, entry.Candidate)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return selection{}, ctxErr
			}
			g.drop(ctx, report, Drop{Item: items[entry.Candidate.ID], Reason: DropPosterFailed, CandidateID: entry.Candidate.ID, Err: err})
			continue
		}
		out.posters[entry.Candidate.ID] = url
		out.entries = append(out.entries, entry)
	}
	return out, nil
}

func (g *Generator) fresh(c media.Candidate, today time.Time) bool {
	if g.recencyDays <= 0 {
		return true
	}
	cutoff := today.AddDate(0, 0, -g.recencyDays)
	dates := []string{c.ReleaseDate}
	if g.profile.Kind == media.KindTV {
		dates = []string{c.LastAirDate, c.NextAirDate}
	}
	for _, value := range dates {
		if date, ok := media.ParseDate(value); ok && !date.Before(cutoff) {
			return true
		}
	}
	return false
}

func (g *Generator) drop(ctx context.Context, report *Report, drop Drop) {
	report.Drops = append(report.Drops, drop)
	g.recorder.ObserveDrop(g.profile.Name, drop.Reason)

	attrs := []logging.Attr{
		logging.String("title", drop.Item.Title),
		logging.Int("year", drop.Item.Year),
		logging.String("reason", string(drop.Reason)),
		logging.String(logging.FieldImpact, "item excluded from feed"),
	}
	if drop.CandidateID > 0 {
		attrs = append(attrs, logging.Int64("tmdb_id", drop.CandidateID))
	}
	if drop.Item.Season != nil && drop.Item.Season.Name != "" {
		attrs = append(attrs, logging.String("season", drop.Item.Season.Name))
	}
	if drop.Err != nil {
		attrs = append(attrs,
			logging.Error(drop.Err),
			logging.String(logging.FieldErrorHint, services.ErrorHint(drop.Err)),
		)
	}
	logging.WarnWithContext(logging.WithContext(ctx, g.logger), "source item dropped", "item_dropped", attrs...)
}

func (g *Generator) retryPolicy(stage string) services.RetryPolicy {
	policy := g.policy
	feed := g.profile.Name
	recorder := g.recorder
	previous := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		recorder.ObserveRetry(feed, stage)
		if previous != nil {
			previous(attempt, err)
		}
	}
	return policy
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
