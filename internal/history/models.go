package history

import "time"

// Status is the outcome of a recorded run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one feed generation.
type Run struct {
	ID           string
	Feed         string
	Status       Status
	StartedAt    time.Time
	FinishedAt   time.Time
	Scraped      int
	Emitted      int
	Dropped      int
	OutputPath   string
	ErrorMessage string

	// Entries and Drops are only populated by GetRun.
	Entries []Entry
	Drops   []Drop
}

// Entry is one scored candidate of a run.
type Entry struct {
	Position        int
	TMDBID          int64
	Title           string
	ExternalID      string
	Popularity      float64
	RatingPrimary   float64
	RatingSecondary *float64
	Score           float64
	Selected        bool
	PosterURL       string
}

// Drop is one source item excluded from a run.
type Drop struct {
	Position     int
	Title        string
	Year         int
	Reason       string
	TMDBID       int64
	ErrorMessage string
}
