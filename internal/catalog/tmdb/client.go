package tmdb

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

	"golang.org/x/time/rate"

	"marquee/internal/services"
)

// Result represents a single TMDB search match.
type Result struct {
	ID           int64   `json:"id"`
	Title        string  `json:"title"`
	Name         string  `json:"name"`
	ReleaseDate  string  `json:"release_date"`
	FirstAirDate string  `json:"first_air_date"`
	Popularity   float64 `json:"popularity"`
	PosterPath   string  `json:"poster_path"`
	VoteAverage  float64 `json:"vote_average"`
}

// Response models the TMDB paginated search response.
type Response struct {
	Page         int      `json:"page"`
	Results      []Result `json:"results"`
	TotalPages   int      `json:"total_pages"`
	TotalResults int      `json:"total_results"`
}

// Season is a season summary embedded in TV details.
type Season struct {
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	AirDate      string `json:"air_date"`
}

// EpisodeRef is the last/next episode stub embedded in TV details.
type EpisodeRef struct {
	AirDate       string `json:"air_date"`
	SeasonNumber  int    `json:"season_number"`
	EpisodeNumber int    `json:"episode_number"`
}

// Person is a credited individual.
type Person struct {
	Name       string `json:"name"`
	Job        string `json:"job"`
	Department string `json:"department"`
	Character  string `json:"character"`
	Order      int    `json:"order"`
}

// Credits is the append_to_response=credits payload.
type Credits struct {
	Cast []Person `json:"cast"`
	Crew []Person `json:"crew"`
}

// Details is the movie or TV details payload.
type Details struct {
	ID               int64       `json:"id"`
	Title            string      `json:"title"`
	Name             string      `json:"name"`
	ReleaseDate      string      `json:"release_date"`
	FirstAirDate     string      `json:"first_air_date"`
	Popularity       float64     `json:"popularity"`
	PosterPath       string      `json:"poster_path"`
	Seasons          []Season    `json:"seasons"`
	LastEpisodeToAir *EpisodeRef `json:"last_episode_to_air"`
	NextEpisodeToAir *EpisodeRef `json:"next_episode_to_air"`
	CreatedBy        []Person    `json:"created_by"`
	Credits          *Credits    `json:"credits"`
}

// ExternalIDs is the /external_ids payload.
type ExternalIDs struct {
	IMDbID string `json:"imdb_id"`
	TVDBID int64  `json:"tvdb_id"`
}

// Image is one entry of the /images payload.
type Image struct {
	FilePath    string  `json:"file_path"`
	Language    string  `json:"iso_639_1"`
	VoteAverage float64 `json:"vote_average"`
}

// Images is the /images payload.
type Images struct {
	ID      int64   `json:"id"`
	Posters []Image `json:"posters"`
}

// BestPoster returns the highest voted poster path, or "" when none exist.
func (i Images) BestPoster() string {
	best := -1
	for idx, img := range i.Posters {
		if strings.TrimSpace(img.FilePath) == "" {
			continue
		}
		if best < 0 || img.VoteAverage > i.Posters[best].VoteAverage {
			best = idx
		}
	}
	if best < 0 {
		return ""
	}
	return i.Posters[best].FilePath
}

// SearchOptions contains optional parameters for TMDB searches.
type SearchOptions struct {
	Year int
	Page int
}

// Client provides access to the TMDB API.
type Client struct {
	apiKey     string
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
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

// WithRateLimit throttles requests to rps per second with the given burst.
// A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// New creates a TMDB client.
func New(apiKey, baseURL, language string, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tmdb api key required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("tmdb base url required")
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		language:   strings.TrimSpace(language),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchMovie performs a TMDB movie search.
func (c *Client) SearchMovie(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	return c.search(ctx, "/search/movie", "primary_release_year", query, opts)
}

// SearchTV performs a TMDB TV search.
func (c *Client) SearchTV(ctx context.Context, query string, opts SearchOptions) (*Response, error) {
	return c.search(ctx, "/search/tv", "first_air_date_year", query, opts)
}

func (c *Client) search(ctx context.Context, path, yearParam, query string, opts SearchOptions) (*Response, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "search", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("query", query)
	if opts.Year > 0 {
		params.Set(yearParam, strconv.Itoa(opts.Year))
	}
	if opts.Page > 1 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	var payload Response
	if err := c.get(ctx, "search", path, params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// MovieDetails fetches movie details, optionally with credits appended.
func (c *Client) MovieDetails(ctx context.Context, id int64, withCredits bool) (*Details, error) {
	return c.details(ctx, "movie", id, withCredits)
}

// TVDetails fetches TV show details, optionally with credits appended.
func (c *Client) TVDetails(ctx context.Context, id int64, withCredits bool) (*Details, error) {
	return c.details(ctx, "tv", id, withCredits)
}

func (c *Client) details(ctx context.Context, kind string, id int64, withCredits bool) (*Details, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", kind+" details", "id must be positive", nil)
	}
	params := url.Values{}
	if withCredits {
		params.Set("append_to_response", "credits")
	}
	var payload Details
	if err := c.get(ctx, kind+" details", fmt.Sprintf("/%s/%d", kind, id), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// ExternalIDs fetches IMDb and TVDB identifiers for a movie or show.
func (c *Client) ExternalIDs(ctx context.Context, kind string, id int64) (*ExternalIDs, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "external ids", "id must be positive", nil)
	}
	var payload ExternalIDs
	if err := c.get(ctx, "external ids", fmt.Sprintf("/%s/%d/external_ids", kind, id), url.Values{}, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Images fetches the poster list for a movie or show, including posters
// without a language tag.
func (c *Client) Images(ctx context.Context, kind string, id int64) (*Images, error) {
	if id <= 0 {
		return nil, services.Wrap(services.ErrValidation, "tmdb", "images", "id must be positive", nil)
	}
	params := url.Values{}
	lang := "null"
	if c.language != "" {
		lang = strings.SplitN(c.language, "-", 2)[0] + ",null"
	}
	params.Set("include_image_language", lang)
	var payload Images
	if err := c.get(ctx, "images", fmt.Sprintf("/%s/%d/images", kind, id), params, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

func (c *Client) get(ctx context.Context, operation, path string, params url.Values, dst any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse tmdb url: %w", err)
	}
	params.Set("api_key", c.apiKey)
	if c.language != "" {
		params.Set("language", c.language)
	}
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrTransient, "tmdb", operation, fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail := fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency)
		return services.Wrap(statusMarker(resp.StatusCode), "tmdb", operation, detail, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return services.Wrap(services.ErrExternalTool, "tmdb", operation, "decode response", err)
	}
	return nil
}

func statusMarker(status int) error {
	switch {
	case status == http.StatusNotFound:
		return services.ErrNotFound
	case status == http.StatusUnauthorized:
		return services.ErrConfiguration
	case status == http.StatusTooManyRequests, status >= 500:
		return services.ErrTransient
	default:
		return services.ErrExternalTool
	}
}
