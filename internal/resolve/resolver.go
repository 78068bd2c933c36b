package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"marquee/internal/logging"
	"marquee/internal/media"
	"marquee/internal/services"
)

// ErrUnresolved reports that no catalog candidate matched a source item.
var ErrUnresolved = fmt.Errorf("%w: no catalog match", services.ErrNotFound)

// Resolver maps source items to their best catalog candidate.
type Resolver struct {
	searcher *Searcher
	kind     media.Kind
	logger   *slog.Logger
}

// NewResolver builds a resolver for one catalog kind.
func NewResolver(searcher *Searcher, kind media.Kind, logger *slog.Logger) *Resolver {
	return &Resolver{
		searcher: searcher,
		kind:     kind,
		logger:   logging.NewComponentLogger(logger, "resolver"),
	}
}

// Resolve probes year variants in order. Within a probe every title variant
// is searched and folded into one winner; the first probe that produces a
// winner settles the item.
func (r *Resolver) Resolve(ctx context.Context, item media.SourceItem) (media.Candidate, error) {
	logger := logging.WithContext(ctx, r.logger)
	for _, probe := range r.searcher.Probes(item) {
		target := NewTarget(item, r.kind, probe.Year)
		var (
			best       *media.Candidate
			reason     string
			considered int
		)
		for _, q := range probe.Queries {
			candidates, err := Collect(r.searcher.Candidates(ctx, q))
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return media.Candidate{}, err
				}
				return media.Candidate{}, services.Wrap(services.ErrExternalTool, "resolve", "search",
					fmt.Sprintf("query %q year %d", q.Title, q.Year), err)
			}
			considered += len(candidates)
			for i := range candidates {
				winner, why := Decide(&candidates[i], best, target)
				if winner != best {
					reason = why
				}
				best = winner
			}
		}
		if best != nil {
			attrs := []logging.Attr{
				logging.String("title", item.Title),
				logging.Int("year", item.Year),
				logging.Int("probe_year", probe.Year),
				logging.Int64("tmdb_id", best.ID),
				logging.String("matched_title", best.Title),
				logging.Int("candidates", considered),
			}
			attrs = append(attrs, logging.DecisionAttrs("catalog_match", "matched", reason)...)
			logger.Info("source item resolved", logging.Args(attrs...)...)
			return *best, nil
		}
		logger.Debug("no candidates for year variant",
			logging.String("title", item.Title),
			logging.Int("probe_year", probe.Year),
		)
	}
	return media.Candidate{}, fmt.Errorf("%w: %s", ErrUnresolved, item.Label())
}
