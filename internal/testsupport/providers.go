package testsupport

import (
	"context"
	"fmt"
	"sync"

	"marquee/internal/media"
	"marquee/internal/services"
)

// FakeRatings is an in-memory rating provider keyed by external id.
type FakeRatings struct {
	// Errors are returned, in order, by the next Lookup calls.
	Errors []error

	mu      sync.Mutex
	ratings map[string]media.Rating
	calls   int
}

// NewFakeRatings returns a provider with no ratings.
func NewFakeRatings() *FakeRatings {
	return &FakeRatings{ratings: make(map[string]media.Rating)}
}

// Set registers a rating for id.
func (f *FakeRatings) Set(id string, primary float64, secondary ...float64) *FakeRatings {
	f.mu.Lock()
	defer f.mu.Unlock()
	rating := media.Rating{Primary: primary}
	if len(secondary) > 0 {
		value := secondary[0]
		rating.Secondary = &value
	}
	f.ratings[id] = rating
	return f
}

// Lookup implements the rating provider contract.
func (f *FakeRatings) Lookup(ctx context.Context, id string) (media.Rating, error) {
	if err := ctx.Err(); err != nil {
		return media.Rating{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.Errors) > 0 {
		err := f.Errors[0]
		f.Errors = f.Errors[1:]
		return media.Rating{}, err
	}
	rating, ok := f.ratings[id]
	if !ok {
		return media.Rating{}, services.Wrap(services.ErrNotFound, "fake ratings", "lookup", id, nil)
	}
	return rating, nil
}

// Calls reports how many lookups ran.
func (f *FakeRatings) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// FakePosters resolves posters from the candidate's poster path, failing for
// ids listed in Missing.
type FakePosters struct {
	BaseURL string
	Missing map[int64]bool
}

// PosterURL implements the poster resolver contract.
func (f FakePosters) PosterURL(_ context.Context, c media.Candidate) (string, error) {
	if f.Missing[c.ID] || c.PosterPath == "" {
		return "", services.Wrap(services.ErrNotFound, "fake posters", "resolve", fmt.Sprintf("id %d", c.ID), nil)
	}
	base := f.BaseURL
	if base == "" {
		base = "https://image.tmdb.org/t/p/w500"
	}
	return base + c.PosterPath, nil
}
