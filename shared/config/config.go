package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	YouTube    YouTubeConfig    `yaml:"youtube"`
	Quota      QuotaConfig      `yaml:"quota"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Batch      BatchConfig      `yaml:"batch"`
	Storage    StorageConfig    `yaml:"storage"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Schedule   string           `yaml:"schedule"`
}

type YouTubeConfig struct {
	// Simple API keys; additional keys can be supplied via
	// YOUTUBE_API_KEY, YOUTUBE_API_KEY_2 ... YOUTUBE_API_KEY_9.
	APIKeys []string `yaml:"api_keys"`

	// Optional OAuth-backed credential (quota billed to its project).
	OAuth OAuthConfig `yaml:"oauth"`
}

type OAuthConfig struct {
	ClientID     string `yaml:"client_id" env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	TokenFile    string `yaml:"token_file"`
}

// QuotaConfig holds per-credential ceilings. The daily limit defaults to a
// safety margin below YouTube's published 10,000 units/day.
type QuotaConfig struct {
	DailyRequestLimit  int `yaml:"daily_request_limit"`
	MinuteRequestLimit int `yaml:"minute_request_limit"`
	MinuteUnitLimit    int `yaml:"minute_unit_limit"`
}

type ExtractionConfig struct {
	DirectTimeoutMs  int     `yaml:"direct_timeout_ms"`
	APITimeoutMs     int     `yaml:"api_timeout_ms"`
	DirectRatePerSec float64 `yaml:"direct_rate_per_sec"`
	DirectRateBurst  int     `yaml:"direct_rate_burst"`
}

func (e ExtractionConfig) DirectTimeout() time.Duration {
	return time.Duration(e.DirectTimeoutMs) * time.Millisecond
}

func (e ExtractionConfig) APITimeout() time.Duration {
	return time.Duration(e.APITimeoutMs) * time.Millisecond
}

type BatchConfig struct {
	ChunkSize     int `yaml:"chunk_size"`
	TimeoutMs     int `yaml:"timeout_ms"`
	MaxAttempts   int `yaml:"max_attempts"`
	PerItemCost   int `yaml:"per_item_cost"`
	BatchCallCost int `yaml:"batch_call_cost"`
}

func (b BatchConfig) Timeout() time.Duration {
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type MonitoringConfig struct {
	HealthPort int `yaml:"health_port"`
}

// apiKeyPattern matches the provider's key format; keys that fail it are
// almost certainly typos, but they are kept (the provider is authoritative).
var apiKeyPattern = regexp.MustCompile(`^AIza[0-9A-Za-z_-]{35}$`)

func Load() (*Config, error) {
	_ = godotenv.Load()

	configFile := os.Getenv("CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}

	var cfg Config
	data, err := os.ReadFile(configFile)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configFile, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyEnv() {
	seen := make(map[string]bool, len(c.YouTube.APIKeys))
	for _, k := range c.YouTube.APIKeys {
		seen[k] = true
	}
	for _, name := range []string{
		"YOUTUBE_API_KEY",
		"YOUTUBE_API_KEY_2", "YOUTUBE_API_KEY_3", "YOUTUBE_API_KEY_4",
		"YOUTUBE_API_KEY_5", "YOUTUBE_API_KEY_6", "YOUTUBE_API_KEY_7",
		"YOUTUBE_API_KEY_8", "YOUTUBE_API_KEY_9",
	} {
		if v := os.Getenv(name); v != "" && !seen[v] {
			c.YouTube.APIKeys = append(c.YouTube.APIKeys, v)
			seen[v] = true
		}
	}

	if c.YouTube.OAuth.ClientID == "" {
		c.YouTube.OAuth.ClientID = os.Getenv("GOOGLE_CLIENT_ID")
	}
	if c.YouTube.OAuth.ClientSecret == "" {
		c.YouTube.OAuth.ClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	}
}

func (c *Config) applyDefaults() {
	if c.YouTube.OAuth.TokenFile == "" {
		c.YouTube.OAuth.TokenFile = "youtube_token.json"
	}
	if c.Quota.DailyRequestLimit == 0 {
		c.Quota.DailyRequestLimit = 8000
	}
	if c.Quota.MinuteRequestLimit == 0 {
		c.Quota.MinuteRequestLimit = 60
	}
	if c.Quota.MinuteUnitLimit == 0 {
		c.Quota.MinuteUnitLimit = 1500
	}
	if c.Extraction.DirectTimeoutMs == 0 {
		c.Extraction.DirectTimeoutMs = 10000
	}
	if c.Extraction.APITimeoutMs == 0 {
		c.Extraction.APITimeoutMs = 30000
	}
	if c.Extraction.DirectRatePerSec == 0 {
		c.Extraction.DirectRatePerSec = 2
	}
	if c.Extraction.DirectRateBurst == 0 {
		c.Extraction.DirectRateBurst = 4
	}
	if c.Batch.ChunkSize == 0 {
		c.Batch.ChunkSize = 50 // provider's max ids per batched call
	}
	if c.Batch.TimeoutMs == 0 {
		c.Batch.TimeoutMs = 60000
	}
	if c.Batch.MaxAttempts == 0 {
		c.Batch.MaxAttempts = 3
	}
	if c.Batch.PerItemCost == 0 {
		c.Batch.PerItemCost = 8
	}
	if c.Batch.BatchCallCost == 0 {
		c.Batch.BatchCallCost = 6
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data"
	}
	if c.Monitoring.HealthPort == 0 {
		c.Monitoring.HealthPort = 8080
	}
	if c.Schedule == "" {
		c.Schedule = "0 */5 * * * *" // maintenance run every 5 minutes
	}
}

func (c *Config) validate() error {
	hasOAuth := c.YouTube.OAuth.ClientID != "" && c.YouTube.OAuth.ClientSecret != ""
	if len(c.YouTube.APIKeys) == 0 && !hasOAuth {
		return fmt.Errorf("at least one YouTube credential is required (set YOUTUBE_API_KEY or youtube.api_keys, or configure youtube.oauth)")
	}
	if c.Batch.ChunkSize > 50 {
		return fmt.Errorf("batch chunk_size %d exceeds the provider's 50-id limit", c.Batch.ChunkSize)
	}
	return nil
}

// MalformedAPIKeys returns configured keys that do not look like provider
// keys. Callers log these as warnings at startup.
func (c *Config) MalformedAPIKeys() []string {
	var bad []string
	for _, k := range c.YouTube.APIKeys {
		if !apiKeyPattern.MatchString(k) {
			bad = append(bad, k)
		}
	}
	return bad
}
