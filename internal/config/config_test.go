package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartreview/pkg/models"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "smartreview.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8888, cfg.Server.Port)
	assert.Equal(t, "none", cfg.AI.Provider)
	assert.Equal(t, 4*time.Second, cfg.AI.AttemptTimeout)
	assert.Equal(t, 10*time.Second, cfg.AI.OverallDeadline)
	assert.Equal(t, 500*time.Millisecond, cfg.AI.BaseDelay)
	assert.True(t, cfg.AI.FallbackEnabled)
	assert.Equal(t, 4, cfg.Routing.PositiveThreshold)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 1024, cfg.Cache.Capacity)
	assert.Equal(t, 5, cfg.Prompt.MaxSEOKeywords)
	assert.Equal(t, 10, cfg.Feedback.MinLength)
	assert.Equal(t, "inline", cfg.Feedback.Queue)
	assert.Empty(t, cfg.Stores)
	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_FileAndEnvLayers(t *testing.T) {
	path := writeFile(t, `
[ai]
provider = "openai"
api_key = "from-file"
attempt_timeout = "2s"

[routing]
positive_threshold = 5

[[stores]]
id = "cafe"
name = "Cafe Lumen"
seo_keywords = ["espresso", "Kyoto"]

  [[stores.platforms]]
  name = "google"
  url = "https://g.page/r/cafe"
  active = true
`)
	t.Setenv("SMARTREVIEW_AI__API_KEY", "from-env")
	t.Setenv("SMARTREVIEW_CACHE__CAPACITY", "64")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
	assert.Equal(t, 2*time.Second, cfg.AI.AttemptTimeout)
	assert.Equal(t, 5, cfg.Routing.PositiveThreshold)
	assert.Equal(t, 64, cfg.Cache.Capacity)
	// Untouched defaults survive the file layer.
	assert.Equal(t, 10*time.Second, cfg.AI.OverallDeadline)

	require.Len(t, cfg.Stores, 1)
	assert.Equal(t, "Cafe Lumen", cfg.Stores[0].Name)
	assert.Equal(t, []string{"espresso", "Kyoto"}, cfg.Stores[0].SEOKeywords)
	require.Len(t, cfg.Stores[0].Platforms, 1)
	assert.True(t, cfg.Stores[0].Platforms[0].Active)
	assert.NoError(t, Validate(cfg))
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestInitConfig_SampleIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smartreview.toml")
	require.NoError(t, InitConfig(path))
	assert.ErrorContains(t, InitConfig(path), "already exists")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	require.Len(t, cfg.Stores, 1)
	assert.Equal(t, "menya-koji", cfg.Stores[0].ID)
	assert.Len(t, cfg.Stores[0].Platforms, 2)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"threshold", func(c *Config) { c.Routing.PositiveThreshold = 6 }, "positive_threshold"},
		{"api key", func(c *Config) { c.AI.Provider = "claude" }, "api_key"},
		{"provider", func(c *Config) { c.AI.Provider = "watson" }, "unsupported ai provider"},
		{"redis url", func(c *Config) { c.Cache.Backend = "redis" }, "redis_url"},
		{"backend", func(c *Config) { c.Cache.Backend = "disk" }, "cache backend"},
		{"postgres", func(c *Config) { c.Feedback.Store = "postgres" }, "database_url"},
		{"river", func(c *Config) { c.Feedback.Queue = "river" }, "database_url"},
		{"exporter", func(c *Config) { c.Telemetry.Exporter = "jaeger" }, "telemetry exporter"},
		{"ratio", func(c *Config) { c.Telemetry.SampleRatio = 2 }, "sample_ratio"},
		{"empty store id", func(c *Config) { c.Stores = []models.Store{{Name: "x"}} }, "id is required"},
		{"duplicate store", func(c *Config) { c.Stores = []models.Store{{ID: "a"}, {ID: "a"}} }, "duplicate id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadConfig("")
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.ErrorContains(t, Validate(cfg), tc.want)
		})
	}
}
