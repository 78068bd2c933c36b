package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeRatings()
	c.normalizeSources()
	c.normalizePublish()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTMDB() {
	c.TMDB.APIKey = envOverride("TMDB_API_KEY", c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
}

func (c *Config) normalizeRatings() {
	c.Ratings.OMDbAPIKey = envOverride("OMDB_API_KEY", c.Ratings.OMDbAPIKey)
	c.Ratings.BaseURL = strings.TrimSpace(c.Ratings.BaseURL)
	if c.Ratings.BaseURL == "" {
		c.Ratings.BaseURL = defaultOMDbBaseURL
	}
}

func (c *Config) normalizeSources() {
	c.Sources.MoviesURL = strings.TrimSpace(c.Sources.MoviesURL)
	if c.Sources.MoviesURL == "" {
		c.Sources.MoviesURL = defaultMoviesURL
	}
	c.Sources.SeriesURL = strings.TrimSpace(c.Sources.SeriesURL)
	if c.Sources.SeriesURL == "" {
		c.Sources.SeriesURL = defaultSeriesURL
	}
	c.Sources.UserAgent = strings.TrimSpace(c.Sources.UserAgent)
	if c.Sources.UserAgent == "" {
		c.Sources.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizePublish() {
	c.Publish.S3Bucket = envOverride("MARQUEE_S3_BUCKET", c.Publish.S3Bucket)
	c.Publish.S3Prefix = strings.Trim(strings.TrimSpace(c.Publish.S3Prefix), "/")
	c.Publish.S3Region = strings.TrimSpace(c.Publish.S3Region)
	if c.Publish.S3Region == "" {
		c.Publish.S3Region = defaultS3Region
	}
	c.Publish.S3Endpoint = strings.TrimSpace(c.Publish.S3Endpoint)
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.Textfile, err = expandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}

func (c *Config) normalizeSchedule() {
	c.Schedule.Cron = strings.TrimSpace(c.Schedule.Cron)
	if c.Schedule.Cron == "" {
		c.Schedule.Cron = defaultScheduleCron
	}
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = defaultScheduleTimezone
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// envOverride prefers a non-empty environment variable over the file value.
func envOverride(key, current string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(current)
}
