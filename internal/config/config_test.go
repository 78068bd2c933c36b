package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"marquee/internal/config"
)

func TestLoadDefaultConfigUsesEnvTMDBKeyAndExpandsPaths(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "test-key")
	t.Setenv("OMDB_API_KEY", "")
	t.Setenv("MARQUEE_S3_BUCKET", "")
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "marquee")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if cfg.Paths.OutputDir != "" {
		t.Fatalf("expected empty output dir by default, got %q", cfg.Paths.OutputDir)
	}
	if cfg.TMDB.APIKey != "test-key" {
		t.Fatalf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != config.Default().TMDB.BaseURL {
		t.Fatalf("unexpected TMDB base url: %q", cfg.TMDB.BaseURL)
	}
	if cfg.FeedLimit("movies") != 12 || cfg.FeedLimit("series") != 6 {
		t.Fatalf("unexpected feed limits: %d/%d", cfg.FeedLimit("movies"), cfg.FeedLimit("series"))
	}
	if cfg.Feeds.RecencyDays != 90 {
		t.Fatalf("unexpected recency window: %d", cfg.Feeds.RecencyDays)
	}
	if cfg.Ratings.MaxAttempts != 3 {
		t.Fatalf("unexpected retry attempts: %d", cfg.Ratings.MaxAttempts)
	}
	if cfg.RetryBaseDelay() != time.Second {
		t.Fatalf("unexpected base delay: %v", cfg.RetryBaseDelay())
	}
	if cfg.PublishEnabled() {
		t.Fatal("expected publishing disabled by default")
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.StateDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "marquee.toml")

	type payload struct {
		TMDB struct {
			APIKey  string `toml:"api_key"`
			BaseURL string `toml:"base_url"`
		} `toml:"tmdb"`
		Paths struct {
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Feeds struct {
			MoviesLimit int `toml:"movies_limit"`
		} `toml:"feeds"`
	}
	custom := payload{}
	custom.TMDB.APIKey = "abc123"
	custom.TMDB.BaseURL = "https://example.com/tmdb/"
	custom.Paths.OutputDir = filepath.Join(tempDir, "out")
	custom.Feeds.MoviesLimit = 20

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected custom config to exist")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	if cfg.TMDB.APIKey != "abc123" {
		t.Fatalf("unexpected api key: %q", cfg.TMDB.APIKey)
	}
	if cfg.TMDB.BaseURL != "https://example.com/tmdb" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.TMDB.BaseURL)
	}
	if cfg.Paths.OutputDir != custom.Paths.OutputDir {
		t.Fatalf("unexpected output dir: %q", cfg.Paths.OutputDir)
	}
	if cfg.FeedLimit("movies") != 20 {
		t.Fatalf("unexpected movies limit: %d", cfg.FeedLimit("movies"))
	}
	if cfg.FeedLimit("series") != 6 {
		t.Fatalf("expected default series limit, got %d", cfg.FeedLimit("series"))
	}
}

func TestEnvVarOverridesConfigFileForAPIKeys(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "marquee.toml")
	contents := `
[tmdb]
api_key = "file-tmdb"

[ratings]
omdb_api_key = "file-omdb"

[publish]
s3_bucket = "file-bucket"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TMDB_API_KEY", "env-tmdb")
	t.Setenv("OMDB_API_KEY", "env-omdb")
	t.Setenv("MARQUEE_S3_BUCKET", "env-bucket")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.TMDB.APIKey != "env-tmdb" {
		t.Errorf("expected TMDB key from env, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Ratings.OMDbAPIKey != "env-omdb" {
		t.Errorf("expected OMDb key from env, got %q", cfg.Ratings.OMDbAPIKey)
	}
	if cfg.Publish.S3Bucket != "env-bucket" {
		t.Errorf("expected bucket from env, got %q", cfg.Publish.S3Bucket)
	}
	if !cfg.PublishEnabled() {
		t.Error("expected publishing enabled when a bucket is set")
	}
}

func TestLoadRequiresTMDBKey(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "")
	t.Setenv("HOME", t.TempDir())
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error without a TMDB key")
	}
	if !strings.Contains(err.Error(), "tmdb.api_key") {
		t.Fatalf("expected tmdb.api_key in error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "TMDB_API_KEY") {
		t.Fatalf("sample config missing TMDB key hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.StateDir, "marquee") {
		t.Fatalf("expected state dir to contain marquee, got %q", cfg.Paths.StateDir)
	}
	if cfg.Feeds.MoviesLimit != 12 || cfg.Feeds.SeriesLimit != 6 {
		t.Fatalf("unexpected sample limits: %+v", cfg.Feeds)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("TMDB_API_KEY", "key")
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "marquee.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load: %v", err)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero movies limit", func(c *config.Config) { c.Feeds.MoviesLimit = 0 }},
		{"zero workers", func(c *config.Config) { c.Feeds.Workers = 0 }},
		{"negative recency", func(c *config.Config) { c.Feeds.RecencyDays = -1 }},
		{"zero attempts", func(c *config.Config) { c.Ratings.MaxAttempts = 0 }},
		{"neutral out of range", func(c *config.Config) { c.Ratings.Neutral = 120 }},
		{"bad cron", func(c *config.Config) { c.Schedule.Cron = "every tuesday" }},
		{"bad timezone", func(c *config.Config) { c.Schedule.Timezone = "Mars/Olympus" }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
		{"negative rate", func(c *config.Config) { c.TMDB.RequestsPerSecond = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.TMDB.APIKey = "key"
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	cfg.TMDB.APIKey = "key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
