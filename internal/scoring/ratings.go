package scoring

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"marquee/internal/logging"
	"marquee/internal/media"
	"marquee/internal/services"
)

// Midpoint is the neutral rating used when no real rating is obtainable.
const Midpoint = 50.0

// RatingProvider looks up an external rating by external id.
type RatingProvider interface {
	Lookup(ctx context.Context, externalID string) (media.Rating, error)
}

// NeutralRating returns a rating with both signals at value.
func NeutralRating(value float64) media.Rating {
	secondary := value
	return media.Rating{Primary: value, Secondary: &secondary}
}

// Aggregator fetches ratings with retries and substitutes the neutral rating
// when the provider has nothing for a title.
type Aggregator struct {
	provider RatingProvider
	policy   services.RetryPolicy
	neutral  float64
	logger   *slog.Logger
}

// NewAggregator wraps provider. A nil provider makes every lookup neutral.
func NewAggregator(provider RatingProvider, policy services.RetryPolicy, neutral float64, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		provider: provider,
		policy:   policy,
		neutral:  neutral,
		logger:   logging.NewComponentLogger(logger, "ratings"),
	}
}

// Rating returns the rating for externalID. Not-found and missing ids map to
// the neutral rating; other failures are returned once retries run out.
func (a *Aggregator) Rating(ctx context.Context, externalID string) (media.Rating, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" || a.provider == nil {
		return NeutralRating(a.neutral), nil
	}
	policy := a.policy
	observe := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		a.logger.Debug("rating lookup retry",
			logging.String("external_id", externalID),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
		if observe != nil {
			observe(attempt, err)
		}
	}
	rating, err := services.WithRetry(ctx, policy, func(ctx context.Context) (media.Rating, error) {
		return a.provider.Lookup(ctx, externalID)
	})
	if errors.Is(err, services.ErrNotFound) {
		logging.WithContext(ctx, a.logger).Info("rating unavailable, using neutral rating",
			logging.String("external_id", externalID),
			logging.Float64("neutral", a.neutral),
		)
		return NeutralRating(a.neutral), nil
	}
	if err != nil {
		return media.Rating{}, err
	}
	return rating, nil
}
