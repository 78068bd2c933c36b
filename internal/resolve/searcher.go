package resolve

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"sync"

	"marquee/internal/logging"
	"marquee/internal/media"
	"marquee/internal/services"
)

// CatalogProvider is the metadata catalog candidates are drawn from.
type CatalogProvider interface {
	SearchTitles(ctx context.Context, query string, year int, page int) (media.SearchPage, error)
	FetchDetails(ctx context.Context, id int64, withCredits bool) (media.Candidate, error)
	ExternalIDs(ctx context.Context, id int64) (media.ExternalIDs, error)
}

// Query is one (title variant, year variant) search. Year zero disables the
// catalog year filter.
type Query struct {
	Title string
	Year  int
}

// Probe groups the queries issued for one year variant. Year is the target
// year handed to the ranker.
type Probe struct {
	Year    int
	Queries []Query
}

// Hit is a hydrated candidate together with the query that surfaced it.
type Hit struct {
	Query     Query
	Candidate media.Candidate
}

// Option configures a Searcher.
type Option func(*Searcher)

// WithMaxPages caps how many result pages a single query may walk. Zero means
// no cap.
func WithMaxPages(pages int) Option {
	return func(s *Searcher) {
		if pages >= 0 {
			s.maxPages = pages
		}
	}
}

// WithCredits controls whether hydration asks the catalog for credits.
func WithCredits(enabled bool) Option {
	return func(s *Searcher) { s.credits = enabled }
}

// WithYearFilter controls whether year variants are passed to the catalog
// search. Series searches run unfiltered because a show's first-air year
// rarely matches the season a guide lists.
func WithYearFilter(enabled bool) Option {
	return func(s *Searcher) { s.yearFilter = enabled }
}

// WithRetryPolicy sets the retry policy for search and detail calls.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(s *Searcher) { s.policy = policy }
}

// WithLogger sets the searcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) { s.logger = logging.NewComponentLogger(logger, "searcher") }
}

// Searcher enumerates catalog candidates for source items. It is safe for
// concurrent use; detail hydration is memoized per catalog id for the
// lifetime of the Searcher, which is one generation run.
type Searcher struct {
	catalog    CatalogProvider
	policy     services.RetryPolicy
	maxPages   int
	credits    bool
	yearFilter bool
	logger     *slog.Logger

	mu      sync.Mutex
	details map[int64]*detailEntry
}

type detailEntry struct {
	mu        sync.Mutex
	done      bool
	candidate media.Candidate
}

// NewSearcher wraps catalog.
func NewSearcher(catalog CatalogProvider, opts ...Option) *Searcher {
	s := &Searcher{
		catalog:    catalog,
		policy:     services.DefaultRetryPolicy(),
		credits:    true,
		yearFilter: true,
		logger:     logging.NewNop(),
		details:    make(map[int64]*detailEntry),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Probes returns the year-major search plan for item.
func (s *Searcher) Probes(item media.SourceItem) []Probe {
	titles := TitleVariants(item.Title)
	years := []int{item.Year}
	if s.yearFilter {
		years = YearVariants(item.Year)
	}
	probes := make([]Probe, 0, len(years))
	for _, year := range years {
		queryYear := 0
		if s.yearFilter {
			queryYear = year
		}
		probe := Probe{Year: year, Queries: make([]Query, 0, len(titles))}
		for _, title := range titles {
			probe.Queries = append(probe.Queries, Query{Title: title, Year: queryYear})
		}
		probes = append(probes, probe)
	}
	return probes
}

// Queries flattens Probes into the ordered list of catalog searches.
func (s *Searcher) Queries(item media.SourceItem) []Query {
	var queries []Query
	for _, probe := range s.Probes(item) {
		queries = append(queries, probe.Queries...)
	}
	return queries
}

// Candidates walks every result page for q, yielding hydrated candidates.
// Each range over the returned sequence re-issues the page walk; hydration
// stays single through the detail memo. A yielded error ends the sequence.
func (s *Searcher) Candidates(ctx context.Context, q Query) iter.Seq2[media.Candidate, error] {
	return func(yield func(media.Candidate, error) bool) {
		for page := 1; ; page++ {
			if s.maxPages > 0 && page > s.maxPages {
				s.logger.Debug("search page cap reached",
					logging.String("query", q.Title),
					logging.Int("year", q.Year),
					logging.Int("max_pages", s.maxPages),
				)
				return
			}
			result, err := services.WithRetry(ctx, s.policy, func(ctx context.Context) (media.SearchPage, error) {
				return s.catalog.SearchTitles(ctx, q.Title, q.Year, page)
			})
			if err != nil {
				yield(media.Candidate{}, err)
				return
			}
			for _, hit := range result.Results {
				candidate, err := s.hydrate(ctx, hit)
				if errors.Is(err, services.ErrNotFound) {
					s.logger.Debug("search hit vanished before hydration",
						logging.Int64("tmdb_id", hit.ID),
						logging.String("title", hit.Title),
					)
					continue
				}
				if err != nil {
					yield(media.Candidate{}, err)
					return
				}
				if !yield(candidate, nil) {
					return
				}
			}
			if page >= result.TotalPages {
				return
			}
		}
	}
}

// Search chains Candidates over every query for item in year-major order.
func (s *Searcher) Search(ctx context.Context, item media.SourceItem) iter.Seq2[Hit, error] {
	return func(yield func(Hit, error) bool) {
		for _, q := range s.Queries(item) {
			for candidate, err := range s.Candidates(ctx, q) {
				if err != nil {
					yield(Hit{Query: q}, err)
					return
				}
				if !yield(Hit{Query: q, Candidate: candidate}, nil) {
					return
				}
			}
		}
	}
}

// Collect materializes a candidate sequence, stopping at the first error.
func Collect(seq iter.Seq2[media.Candidate, error]) ([]media.Candidate, error) {
	var out []media.Candidate
	for candidate, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, candidate)
	}
	return out, nil
}

func (s *Searcher) hydrate(ctx context.Context, hit media.Candidate) (media.Candidate, error) {
	s.mu.Lock()
	entry, ok := s.details[hit.ID]
	if !ok {
		entry = &detailEntry{}
		s.details[hit.ID] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.done {
		return entry.candidate, nil
	}
	detailed, err := services.WithRetry(ctx, s.policy, func(ctx context.Context) (media.Candidate, error) {
		return s.catalog.FetchDetails(ctx, hit.ID, s.credits)
	})
	if err != nil {
		return media.Candidate{}, err
	}
	entry.candidate = mergeHit(hit, detailed)
	entry.done = true
	return entry.candidate, nil
}

// mergeHit fills fields the details response left blank from the search hit.
func mergeHit(hit, detailed media.Candidate) media.Candidate {
	if detailed.ID == 0 {
		detailed.ID = hit.ID
	}
	if detailed.Kind == "" {
		detailed.Kind = hit.Kind
	}
	if detailed.Title == "" {
		detailed.Title = hit.Title
	}
	if detailed.ReleaseDate == "" {
		detailed.ReleaseDate = hit.ReleaseDate
	}
	if detailed.Popularity == 0 {
		detailed.Popularity = hit.Popularity
	}
	if detailed.PosterPath == "" {
		detailed.PosterPath = hit.PosterPath
	}
	return detailed
}
