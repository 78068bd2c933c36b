package feed

import (
	"time"

	"marquee/internal/media"
)

// DropReason explains why a source item left the pipeline.
type DropReason string

const (
	DropUnresolved     DropReason = "unresolved"
	DropDuplicate      DropReason = "duplicate"
	DropStale          DropReason = "stale"
	DropMissingID      DropReason = "missing_id"
	DropRatingFailed   DropReason = "rating_failed"
	DropPosterFailed   DropReason = "poster_failed"
	DropProviderFailed DropReason = "provider_failed"
)

// Drop records one excluded item.
type Drop struct {
	Item        media.SourceItem
	Reason      DropReason
	CandidateID int64
	Err         error
}

// Report is the outcome of one generation run for a feed. Selected lines up
// index for index with Records; Scored is the whole rated batch by score.
type Report struct {
	Feed       string
	Scraped    int
	Records    []OutputRecord
	Selected   []media.Scored
	Scored     []media.Scored
	Drops      []Drop
	StartedAt  time.Time
	FinishedAt time.Time
}

// DropCounts tallies drops by reason.
func (r *Report) DropCounts() map[DropReason]int {
	counts := make(map[DropReason]int)
	for _, drop := range r.Drops {
		counts[drop.Reason]++
	}
	return counts
}

// Duration reports how long the run took.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
