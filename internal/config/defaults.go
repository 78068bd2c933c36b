package config

const (
	defaultConfigPath         = "~/.config/marquee/config.toml"
	defaultStateDir           = "~/.local/share/marquee"
	defaultLogDir             = "~/.local/share/marquee/logs"
	defaultTMDBLanguage       = "en-US"
	defaultTMDBBaseURL        = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL   = "https://image.tmdb.org/t/p"
	defaultTMDBRequestsPerSec = 20
	defaultOMDbBaseURL        = "https://www.omdbapi.com/"
	defaultRetryAttempts      = 3
	defaultRetryBaseDelayMS   = 1000
	defaultRetryJitterMS      = 1000
	defaultNeutralRating      = 50
	defaultMoviesURL          = "https://editorial.rottentomatoes.com/guide/popular-movies/"
	defaultSeriesURL          = "https://editorial.rottentomatoes.com/guide/popular-tv-shows/"
	defaultUserAgent          = "marquee/dev (+https://github.com/marquee-feeds/marquee)"
	defaultSourceTimeout      = 30
	defaultMoviesLimit        = 12
	defaultSeriesLimit        = 6
	defaultRecencyDays        = 90
	defaultWorkers            = 4
	defaultS3Prefix           = "feeds"
	defaultS3Region           = "us-east-1"
	defaultScheduleCron       = "0 */6 * * *"
	defaultScheduleTimezone   = "UTC"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		TMDB: TMDB{
			BaseURL:           defaultTMDBBaseURL,
			ImageBaseURL:      defaultTMDBImageBaseURL,
			Language:          defaultTMDBLanguage,
			RequestsPerSecond: defaultTMDBRequestsPerSec,
			FetchCredits:      true,
		},
		Ratings: Ratings{
			BaseURL:     defaultOMDbBaseURL,
			MaxAttempts: defaultRetryAttempts,
			BaseDelayMS: defaultRetryBaseDelayMS,
			JitterMS:    defaultRetryJitterMS,
			Neutral:     defaultNeutralRating,
		},
		Sources: Sources{
			MoviesURL:      defaultMoviesURL,
			SeriesURL:      defaultSeriesURL,
			UserAgent:      defaultUserAgent,
			TimeoutSeconds: defaultSourceTimeout,
		},
		Feeds: Feeds{
			MoviesLimit: defaultMoviesLimit,
			SeriesLimit: defaultSeriesLimit,
			RecencyDays: defaultRecencyDays,
			Workers:     defaultWorkers,
		},
		Publish: Publish{
			S3Prefix: defaultS3Prefix,
			S3Region: defaultS3Region,
		},
		Schedule: Schedule{
			Cron:     defaultScheduleCron,
			Timezone: defaultScheduleTimezone,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
