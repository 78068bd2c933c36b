package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"marquee/internal/logging"
	"marquee/internal/media"
	"marquee/internal/services"
)

const (
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) marquee"
	maxBodyBytes     = 8 << 20
)

// Scraper downloads guide pages and hands them to Parse.
type Scraper struct {
	client    *http.Client
	userAgent string
	policy    services.RetryPolicy
	logger    *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scraper) {
		if timeout > 0 {
			s.client = &http.Client{Timeout: timeout}
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(agent string) Option {
	return func(s *Scraper) {
		if agent = strings.TrimSpace(agent); agent != "" {
			s.userAgent = agent
		}
	}
}

// WithRetryPolicy sets the policy applied to transient fetch failures.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(s *Scraper) { s.policy = policy }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewScraper returns a scraper with a 30 second client timeout.
func NewScraper(opts ...Option) *Scraper {
	s := &Scraper{
		client:    &http.Client{Timeout: 30 * time.Second},
		userAgent: defaultUserAgent,
		policy:    services.DefaultRetryPolicy(),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "source")
	return s
}

// Items fetches and parses a guide.
func (s *Scraper) Items(ctx context.Context, guide Guide) ([]media.SourceItem, error) {
	body, err := s.Fetch(ctx, guide)
	if err != nil {
		return nil, err
	}
	items, err := Parse(guide, body)
	if err != nil {
		return nil, err
	}
	s.logger.Info("guide scraped",
		logging.String("guide", guide.Name),
		logging.Int("items", len(items)),
	)
	return items, nil
}

// Fetch downloads a guide page and returns it transcoded to UTF-8.
func (s *Scraper) Fetch(ctx context.Context, guide Guide) ([]byte, error) {
	if strings.TrimSpace(guide.URL) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "source", "fetch", guide.Name+" url not configured", nil)
	}
	policy := s.policy
	observe := policy.OnRetry
	policy.OnRetry = func(attempt int, err error) {
		s.logger.Debug("guide fetch retry",
			logging.String("guide", guide.Name),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
		if observe != nil {
			observe(attempt, err)
		}
	}
	return services.WithRetry(ctx, policy, func(ctx context.Context) ([]byte, error) {
		return s.fetchOnce(ctx, guide)
	})
}

func (s *Scraper) fetchOnce(ctx context.Context, guide Guide) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, guide.URL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "source", "fetch", "build request", err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "source", "fetch", guide.URL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "source", "fetch", fmt.Sprintf("%s returned %d", guide.URL, resp.StatusCode), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrExternalTool, "source", "fetch", fmt.Sprintf("%s returned %d", guide.URL, resp.StatusCode), nil)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "source", "fetch", "detect charset", err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "source", "fetch", "read body", err)
	}
	return body, nil
}
