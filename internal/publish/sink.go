package publish

import (
	"context"
	"errors"
)

// Sink stores a rendered feed and reports where it went.
type Sink interface {
	Publish(ctx context.Context, feed string, data []byte) (string, error)
}

// Fanout publishes to every sink in order. Every sink is attempted; the
// locations that succeeded are returned alongside the joined errors.
type Fanout []Sink

// Publish implements Sink for each member.
func (f Fanout) Publish(ctx context.Context, feed string, data []byte) ([]string, error) {
	var (
		locations []string
		errs      []error
	)
	for _, sink := range f {
		location, err := sink.Publish(ctx, feed, data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		locations = append(locations, location)
	}
	return locations, errors.Join(errs...)
}
