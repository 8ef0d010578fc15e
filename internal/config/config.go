package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all outreach configuration.
type Config struct {
	// API server
	API APIConfig `yaml:"api"`

	// Poll intervals for task status and campaign events
	Polling PollingConfig `yaml:"polling"`

	// Search task defaults
	Search SearchConfig `yaml:"search"`

	// Influencer directory
	Influencers InfluencersConfig `yaml:"influencers"`

	// Draft composer defaults
	Drafts DraftsConfig `yaml:"drafts"`

	// Campaign sending
	Campaign CampaignConfig `yaml:"campaign"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`
}

// APIConfig configures the HTTP client.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	UserID  string `yaml:"user_id"`
	Timeout string `yaml:"timeout"`
}

// PollingConfig configures the background pollers.
type PollingConfig struct {
	TaskInterval   string `yaml:"task_interval"`
	EventsInterval string `yaml:"events_interval"`
}

// SearchConfig configures new search tasks and the history page.
type SearchConfig struct {
	Platforms    []string `yaml:"platforms"`
	HistoryLimit int      `yaml:"history_limit"`
}

// InfluencersConfig configures the influencer directory page.
type InfluencersConfig struct {
	ListLimit int `yaml:"list_limit"`
}

// DraftsConfig seeds the draft composer.
type DraftsConfig struct {
	Goal     string `yaml:"goal"`
	Tone     string `yaml:"tone"`     // professional, friendly, casual
	Language string `yaml:"language"` // en, zh
}

// CampaignConfig configures campaign sending.
type CampaignConfig struct {
	SendRateLimit int `yaml:"send_rate_limit"` // emails per minute
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8000/api/v1",
			Timeout: "30s",
		},

		Polling: PollingConfig{
			TaskInterval:   "2s",
			EventsInterval: "4s",
		},

		Search: SearchConfig{
			Platforms:    []string{"youtube"},
			HistoryLimit: 20,
		},

		Influencers: InfluencersConfig{
			ListLimit: 100,
		},

		Drafts: DraftsConfig{
			Goal:     "Invite influencer for product collaboration",
			Tone:     "professional",
			Language: "en",
		},

		Campaign: CampaignConfig{
			SendRateLimit: 60,
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Dir:    "",
		},

		UI: UIConfig{
			Theme: ThemeAuto,
		},
	}
}

// DefaultPath returns ~/.config/outreach/config.yaml, falling back to the
// working directory when the user config directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "outreach.yaml"
	}
	return filepath.Join(dir, "outreach", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if base := os.Getenv("OUTREACH_API_BASE"); base != "" {
		c.API.BaseURL = base
	}
	if user := os.Getenv("OUTREACH_USER_ID"); user != "" {
		c.API.UserID = user
	}
	if timeout := os.Getenv("OUTREACH_API_TIMEOUT"); timeout != "" {
		c.API.Timeout = timeout
	}
	if debug := os.Getenv("OUTREACH_DEBUG"); debug != "" {
		if on, err := strconv.ParseBool(debug); err == nil {
			c.Logging.DebugMode = on
		}
	}
}

// GetAPITimeout returns the per-request timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	return parseDuration(c.API.Timeout, 30*time.Second)
}

// GetTaskPollInterval returns the search task poll interval.
func (c *Config) GetTaskPollInterval() time.Duration {
	return parseDuration(c.Polling.TaskInterval, 2*time.Second)
}

// GetEventsPollInterval returns the campaign event poll interval.
func (c *Config) GetEventsPollInterval() time.Duration {
	return parseDuration(c.Polling.EventsInterval, 4*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// ValidTones lists the tones the draft generator accepts.
var ValidTones = []string{"professional", "friendly", "casual"}

// ValidLanguages lists the draft languages the generator accepts.
var ValidLanguages = []string{"en", "zh"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q: must be an http(s) URL", c.API.BaseURL)
	}
	for name, v := range map[string]string{
		"api.timeout":             c.API.Timeout,
		"polling.task_interval":   c.Polling.TaskInterval,
		"polling.events_interval": c.Polling.EventsInterval,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("invalid %s %q: must be a positive duration", name, v)
		}
	}
	if c.Search.HistoryLimit < 0 || c.Search.HistoryLimit > 100 {
		return fmt.Errorf("invalid search.history_limit %d (valid: 1-100)", c.Search.HistoryLimit)
	}
	if c.Influencers.ListLimit < 0 || c.Influencers.ListLimit > 200 {
		return fmt.Errorf("invalid influencers.list_limit %d (valid: 1-200)", c.Influencers.ListLimit)
	}
	if c.Drafts.Tone != "" && !contains(ValidTones, c.Drafts.Tone) {
		return fmt.Errorf("invalid drafts.tone: %s (valid: %v)", c.Drafts.Tone, ValidTones)
	}
	if c.Drafts.Language != "" && !contains(ValidLanguages, c.Drafts.Language) {
		return fmt.Errorf("invalid drafts.language: %s (valid: %v)", c.Drafts.Language, ValidLanguages)
	}
	if c.Campaign.SendRateLimit < 1 {
		return fmt.Errorf("invalid campaign.send_rate_limit %d: must be at least 1", c.Campaign.SendRateLimit)
	}
	if c.UI.Theme != "" && !contains(ValidThemes, c.UI.Theme) {
		return fmt.Errorf("invalid ui.theme: %s (valid: %v)", c.UI.Theme, ValidThemes)
	}
	if c.Logging.Level != "" && !contains(ValidLogLevels, strings.ToLower(c.Logging.Level)) {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
