package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OUTREACH_API_BASE", "OUTREACH_USER_ID", "OUTREACH_API_TIMEOUT", "OUTREACH_DEBUG"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.GetAPITimeout())
	assert.Equal(t, 2*time.Second, cfg.GetTaskPollInterval())
	assert.Equal(t, 4*time.Second, cfg.GetEventsPollInterval())
	assert.Equal(t, []string{"youtube"}, cfg.Search.Platforms)
	assert.Equal(t, 20, cfg.Search.HistoryLimit)
	assert.Equal(t, 100, cfg.Influencers.ListLimit)
	assert.Equal(t, "professional", cfg.Drafts.Tone)
	assert.Equal(t, 60, cfg.Campaign.SendRateLimit)
	assert.False(t, cfg.Logging.DebugMode)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.API.UserID = "marketing-1"
	cfg.Search.Platforms = []string{"youtube", "tiktok"}
	cfg.Campaign.SendRateLimit = 15

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  base_url: https://outreach.example.com/api/v1\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://outreach.example.com/api/v1", cfg.API.BaseURL)
	assert.Equal(t, "30s", cfg.API.Timeout)
	assert.Equal(t, 60, cfg.Campaign.SendRateLimit)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unterminated"), 0644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "failed to parse config")
}

func TestDurationFallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.Timeout = "soon"
	cfg.Polling.TaskInterval = "-1s"
	cfg.Polling.EventsInterval = ""

	assert.Equal(t, 30*time.Second, cfg.GetAPITimeout())
	assert.Equal(t, 2*time.Second, cfg.GetTaskPollInterval())
	assert.Equal(t, 4*time.Second, cfg.GetEventsPollInterval())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"bad scheme", func(c *Config) { c.API.BaseURL = "ftp://host" }, "api.base_url"},
		{"no host", func(c *Config) { c.API.BaseURL = "http://" }, "api.base_url"},
		{"bad timeout", func(c *Config) { c.API.Timeout = "forever" }, "api.timeout"},
		{"zero interval", func(c *Config) { c.Polling.TaskInterval = "0s" }, "polling.task_interval"},
		{"history too large", func(c *Config) { c.Search.HistoryLimit = 101 }, "search.history_limit"},
		{"influencers too large", func(c *Config) { c.Influencers.ListLimit = 201 }, "influencers.list_limit"},
		{"tone", func(c *Config) { c.Drafts.Tone = "rude" }, "drafts.tone"},
		{"language", func(c *Config) { c.Drafts.Language = "fr" }, "drafts.language"},
		{"rate limit", func(c *Config) { c.Campaign.SendRateLimit = 0 }, "campaign.send_rate_limit"},
		{"theme", func(c *Config) { c.UI.Theme = "neon" }, "ui.theme"},
		{"log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	assert.False(t, c.IsCategoryEnabled("api"), "production mode disables everything")

	c.DebugMode = true
	assert.True(t, c.IsCategoryEnabled("api"))

	c.Categories = map[string]bool{"api": false}
	assert.False(t, c.IsCategoryEnabled("api"))
	assert.True(t, c.IsCategoryEnabled("search"), "unspecified categories stay on")
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, "config.yaml", filepath.Base(DefaultPath()))
}
