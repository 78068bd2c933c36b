package omdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"marquee/internal/media"
	"marquee/internal/services"
)

const notAvailable = "N/A"

// Source is one entry of the OMDb Ratings list.
type Source struct {
	Source string `json:"Source"`
	Value  string `json:"Value"`
}

// Response is the subset of the OMDb title payload marquee reads.
type Response struct {
	Title      string   `json:"Title"`
	Year       string   `json:"Year"`
	IMDbID     string   `json:"imdbID"`
	IMDbRating string   `json:"imdbRating"`
	Metascore  string   `json:"Metascore"`
	Ratings    []Source `json:"Ratings"`
	Response   string   `json:"Response"`
	Error      string   `json:"Error"`
}

// Client looks up ratings by IMDb id.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates an OMDb client.
func New(apiKey, baseURL string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("omdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("omdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Title fetches the raw OMDb payload for an IMDb id.
func (c *Client) Title(ctx context.Context, imdbID string) (*Response, error) {
	imdbID = strings.TrimSpace(imdbID)
	if imdbID == "" {
		return nil, services.Wrap(services.ErrValidation, "omdb", "lookup", "imdb id must not be empty", nil)
	}
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse omdb url: %w", err)
	}
	params := endpoint.Query()
	params.Set("apikey", c.apiKey)
	params.Set("i", imdbID)
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "omdb", "lookup", fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, services.Wrap(services.ErrConfiguration, "omdb", "lookup", "api key rejected; check ratings.omdb_api_key", nil)
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, services.Wrap(services.ErrTransient, "omdb", "lookup", fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	case resp.StatusCode != http.StatusOK:
		return nil, services.Wrap(services.ErrExternalTool, "omdb", "lookup", fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	var payload Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "omdb", "lookup", "decode response", err)
	}
	if !strings.EqualFold(payload.Response, "True") {
		return nil, services.Wrap(falseResponseMarker(payload.Error), "omdb", "lookup", fmt.Sprintf("%s: %s", imdbID, payload.Error), nil)
	}
	return &payload, nil
}

// Lookup returns the rating for an IMDb id. The primary signal is the IMDb
// user rating scaled to 0-100; the secondary is Metascore, else the Rotten
// Tomatoes critic score.
func (c *Client) Lookup(ctx context.Context, imdbID string) (media.Rating, error) {
	payload, err := c.Title(ctx, imdbID)
	if err != nil {
		return media.Rating{}, err
	}
	return payload.Rating(imdbID)
}

// Rating converts the payload to a 0-100 rating.
func (r *Response) Rating(imdbID string) (media.Rating, error) {
	primary, ok := parseScore(r.IMDbRating, "/10")
	if !ok {
		return media.Rating{}, services.Wrap(services.ErrNotFound, "omdb", "lookup", imdbID+": no imdb rating", nil)
	}
	rating := media.Rating{Primary: clamp(primary * 10)}
	if value, ok := parseScore(r.Metascore, "/100"); ok {
		v := clamp(value)
		rating.Secondary = &v
		return rating, nil
	}
	for _, source := range r.Ratings {
		if !strings.EqualFold(source.Source, "Rotten Tomatoes") {
			continue
		}
		if value, ok := parseScore(source.Value, "%"); ok {
			v := clamp(value)
			rating.Secondary = &v
		}
		break
	}
	return rating, nil
}

func falseResponseMarker(message string) error {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "not found"), strings.Contains(lower, "incorrect imdb id"):
		return services.ErrNotFound
	case strings.Contains(lower, "api key"):
		return services.ErrConfiguration
	default:
		return services.ErrTransient
	}
}

func parseScore(value, suffix string) (float64, bool) {
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(value), suffix))
	if value == "" || value == notAvailable {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

func clamp(v float64) float64 {
	return min(max(v, 0), 100)
}
