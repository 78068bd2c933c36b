package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateRatings(); err != nil {
		return err
	}
	if err := c.validateFeeds(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = defaultConfigPath
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'marquee config init')", defaultPath)
	}
	if c.TMDB.RequestsPerSecond < 0 {
		return errors.New("tmdb.requests_per_second must be zero (unlimited) or positive")
	}
	if c.TMDB.MaxPages < 0 {
		return errors.New("tmdb.max_pages must be zero (unlimited) or positive")
	}
	return nil
}

func (c *Config) validateRatings() error {
	if c.Ratings.MaxAttempts < 1 {
		return errors.New("ratings.max_attempts must be at least 1")
	}
	if c.Ratings.BaseDelayMS < 0 || c.Ratings.JitterMS < 0 {
		return errors.New("ratings.base_delay_ms and ratings.jitter_ms must not be negative")
	}
	if c.Ratings.Neutral < 0 || c.Ratings.Neutral > 100 {
		return errors.New("ratings.neutral must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateFeeds() error {
	if c.Feeds.RecencyDays < 0 {
		return errors.New("feeds.recency_days must be zero (disabled) or positive")
	}
	return ensurePositiveMap(map[string]int{
		"feeds.movies_limit": c.Feeds.MoviesLimit,
		"feeds.series_limit": c.Feeds.SeriesLimit,
		"feeds.workers":      c.Feeds.Workers,
	})
}

func (c *Config) validateSources() error {
	if c.Sources.TimeoutSeconds <= 0 {
		return errors.New("sources.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
		return fmt.Errorf("schedule.cron: %w", err)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
