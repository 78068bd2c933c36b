package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	StateDir  string `toml:"state_dir"`
	LogDir    string `toml:"log_dir"`
	OutputDir string `toml:"output_dir"`
}

// TMDB contains configuration for The Movie Database API.
type TMDB struct {
	APIKey            string  `toml:"api_key"`
	BaseURL           string  `toml:"base_url"`
	ImageBaseURL      string  `toml:"image_base_url"`
	Language          string  `toml:"language"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	MaxPages          int     `toml:"max_pages"`
	FetchCredits      bool    `toml:"fetch_credits"`
}

// Ratings contains configuration for the external ratings provider and the
// retry policy shared by every provider call.
type Ratings struct {
	OMDbAPIKey  string  `toml:"omdb_api_key"`
	BaseURL     string  `toml:"base_url"`
	MaxAttempts int     `toml:"max_attempts"`
	BaseDelayMS int     `toml:"base_delay_ms"`
	JitterMS    int     `toml:"jitter_ms"`
	Neutral     float64 `toml:"neutral"`
}

// Sources contains configuration for the popularity guide scraper.
type Sources struct {
	MoviesURL      string `toml:"movies_url"`
	SeriesURL      string `toml:"series_url"`
	UserAgent      string `toml:"user_agent"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Feeds contains per-feed output sizes and pipeline tuning.
type Feeds struct {
	MoviesLimit int `toml:"movies_limit"`
	SeriesLimit int `toml:"series_limit"`
	RecencyDays int `toml:"recency_days"`
	Workers     int `toml:"workers"`
}

// Publish contains optional S3 upload settings.
type Publish struct {
	S3Bucket    string `toml:"s3_bucket"`
	S3Prefix    string `toml:"s3_prefix"`
	S3Region    string `toml:"s3_region"`
	S3Endpoint  string `toml:"s3_endpoint"`
	S3PathStyle bool   `toml:"s3_path_style"`
}

// Metrics contains the optional Prometheus textfile export location.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Schedule contains the cron expression used by `marquee schedule`.
type Schedule struct {
	Cron     string `toml:"cron"`
	Timezone string `toml:"timezone"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for marquee.
//
// Configuration sections by subsystem:
//   - Paths: state, log and feed output directories
//   - TMDB: catalog search and details
//   - Ratings: OMDb ratings plus the shared retry policy
//   - Sources: popularity guide URLs and scraper HTTP settings
//   - Feeds: output sizes, recency window, resolution workers
//   - Publish: optional S3 upload of generated feeds
//   - Metrics: Prometheus textfile export
//   - Schedule: cron expression for periodic regeneration
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	TMDB     TMDB     `toml:"tmdb"`
	Ratings  Ratings  `toml:"ratings"`
	Sources  Sources  `toml:"sources"`
	Feeds    Feeds    `toml:"feeds"`
	Publish  Publish  `toml:"publish"`
	Metrics  Metrics  `toml:"metrics"`
	Schedule Schedule `toml:"schedule"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// loaded first so API keys can live outside the TOML file.
func Load(path string) (*Config, string, bool, error) {
	_ = godotenv.Load()

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("marquee.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories, plus the output
// directory when one is configured.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir, c.Paths.OutputDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the run history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the scheduler's single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "marquee.lock")
}

// FeedLimit returns the configured output size for the named feed.
func (c *Config) FeedLimit(feed string) int {
	switch feed {
	case "series":
		return c.Feeds.SeriesLimit
	default:
		return c.Feeds.MoviesLimit
	}
}

// SourceURL returns the popularity guide URL for the named feed.
func (c *Config) SourceURL(feed string) string {
	switch feed {
	case "series":
		return c.Sources.SeriesURL
	default:
		return c.Sources.MoviesURL
	}
}

// RetryBaseDelay returns the fixed pause between provider attempts.
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Ratings.BaseDelayMS) * time.Millisecond
}

// RetryJitter returns the upper bound of the random pause added to RetryBaseDelay.
func (c *Config) RetryJitter() time.Duration {
	return time.Duration(c.Ratings.JitterMS) * time.Millisecond
}

// SourceTimeout returns the scraper HTTP timeout.
func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Sources.TimeoutSeconds) * time.Second
}

// PublishEnabled reports whether generated feeds should be uploaded to S3.
func (c *Config) PublishEnabled() bool {
	return strings.TrimSpace(c.Publish.S3Bucket) != ""
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
