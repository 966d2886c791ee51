package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/amishk599/jobsignal/internal/model"
)

// Config is the root configuration for jobsignal.
type Config struct {
	Source           SourceConfig
	RateLimit        RateLimitConfig
	Retry            RetryConfig
	VocabularyPath   string
	Store            StoreConfig
	SnapshotInterval time.Duration
	Workers          int
	Notification     NotificationConfig
	AI               AIConfig
	Serve            ServeConfig
}

// SourceConfig selects and parameterizes the JobSource.
type SourceConfig struct {
	Type       string // "api", "scrape" or "browser"
	BaseURL    string // listings API root, e.g. https://api.itjobs.pt
	ListingURL string // HTML listing page for scrape/browser sources
	APIKey     string
	Location   string // location name, resolved to an id via the API
	PageSize   int
	MaxPages   int
	Keywords   []string // title keywords kept by scrape/browser sources
	Exclude    []string // title keywords dropped by scrape/browser sources
	Timeout    time.Duration
}

// RateLimitConfig paces requests per host.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// RetryConfig controls transient-failure retries around the source.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// StoreConfig locates the snapshot database.
type StoreConfig struct {
	Path string
}

// NotificationConfig controls which digest notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	TopN       int    `yaml:"top_n"`
}

// AIConfig controls the optional LLM-backed extractor.
type AIConfig struct {
	Enabled bool
	BaseURL string // defaults to https://api.openai.com/v1
	Model   string
	APIKey  string // expanded from env var by Load
	Timeout time.Duration
}

// ServeConfig controls the HTTP surface.
type ServeConfig struct {
	Addr     string
	CacheTTL time.Duration // how long /api/report reuses one analysis run
}

const (
	SourceAPI     = "api"
	SourceScrape  = "scrape"
	SourceBrowser = "browser"

	defaultBaseURL       = "https://api.itjobs.pt"
	defaultListingURL    = "https://www.itjobs.pt/emprego?location=14&date=7d"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Source           rawSourceConfig    `yaml:"source"`
	RateLimit        rawRateLimitConfig `yaml:"rate_limit"`
	Retry            rawRetryConfig     `yaml:"retry"`
	Vocabulary       string             `yaml:"vocabulary"`
	Store            rawStoreConfig     `yaml:"store"`
	SnapshotInterval string             `yaml:"snapshot_interval"`
	Extraction       rawExtraction      `yaml:"extraction"`
	Notification     NotificationConfig `yaml:"notification"`
	AI               rawAIConfig        `yaml:"ai"`
	Serve            rawServeConfig     `yaml:"serve"`
}

type rawSourceConfig struct {
	Type       string   `yaml:"type"`
	BaseURL    string   `yaml:"base_url"`
	ListingURL string   `yaml:"listing_url"`
	APIKey     string   `yaml:"api_key"`
	Location   string   `yaml:"location"`
	PageSize   int      `yaml:"page_size"`
	MaxPages   int      `yaml:"max_pages"`
	Keywords   []string `yaml:"keywords"`
	Exclude    []string `yaml:"exclude_keywords"`
	Timeout    string   `yaml:"timeout"`
}

type rawRateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

type rawRetryConfig struct {
	MaxRetries *int   `yaml:"max_retries"`
	BaseDelay  string `yaml:"base_delay"`
}

type rawStoreConfig struct {
	Path string `yaml:"path"`
}

type rawExtraction struct {
	Workers int `yaml:"workers"`
}

type rawAIConfig struct {
	Enabled bool   `yaml:"enabled"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	Timeout string `yaml:"timeout"`
}

type rawServeConfig struct {
	Addr     string `yaml:"addr"`
	CacheTTL string `yaml:"cache_ttl"`
}

// Load reads and parses the YAML config file at path, validates it, and
// returns Config. Failures are reported as *model.ConfigError.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &model.ConfigError{Path: path, Err: fmt.Errorf("read config: %w", err)}
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, &model.ConfigError{Path: path, Err: fmt.Errorf("parse config: %w", err)}
	}

	cfg, err := fromRaw(raw)
	if err != nil {
		return nil, &model.ConfigError{Path: path, Err: err}
	}
	if err := validate(cfg); err != nil {
		return nil, &model.ConfigError{Path: path, Err: err}
	}
	return cfg, nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func fromRaw(raw rawConfig) (*Config, error) {
	sourceTimeout, err := parseDuration("source.timeout", raw.Source.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	baseDelay, err := parseDuration("retry.base_delay", raw.Retry.BaseDelay, 5*time.Second)
	if err != nil {
		return nil, err
	}
	interval, err := parseDuration("snapshot_interval", raw.SnapshotInterval, 24*time.Hour)
	if err != nil {
		return nil, err
	}
	aiTimeout, err := parseDuration("ai.timeout", raw.AI.Timeout, 30*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("serve.cache_ttl", raw.Serve.CacheTTL, 15*time.Minute)
	if err != nil {
		return nil, err
	}

	maxRetries := 2 // default
	if raw.Retry.MaxRetries != nil {
		maxRetries = *raw.Retry.MaxRetries
	}

	cfg := &Config{
		Source: SourceConfig{
			Type:       strings.ToLower(orDefault(raw.Source.Type, SourceAPI)),
			BaseURL:    strings.TrimRight(orDefault(raw.Source.BaseURL, defaultBaseURL), "/"),
			ListingURL: orDefault(raw.Source.ListingURL, defaultListingURL),
			APIKey:     raw.Source.APIKey,
			Location:   raw.Source.Location,
			PageSize:   orDefaultInt(raw.Source.PageSize, 100),
			MaxPages:   orDefaultInt(raw.Source.MaxPages, 50),
			Keywords:   raw.Source.Keywords,
			Exclude:    raw.Source.Exclude,
			Timeout:    sourceTimeout,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: raw.RateLimit.RequestsPerSecond,
			Burst:             orDefaultInt(raw.RateLimit.Burst, 1),
		},
		Retry: RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  baseDelay,
		},
		VocabularyPath:   orDefault(raw.Vocabulary, "keywords.yaml"),
		Store:            StoreConfig{Path: orDefault(raw.Store.Path, "itjobs_daily.db")},
		SnapshotInterval: interval,
		Workers:          orDefaultInt(raw.Extraction.Workers, 4),
		Notification:     raw.Notification,
		AI: AIConfig{
			Enabled: raw.AI.Enabled,
			BaseURL: orDefault(raw.AI.BaseURL, defaultOpenAIBaseURL),
			Model:   raw.AI.Model,
			APIKey:  raw.AI.APIKey,
			Timeout: aiTimeout,
		},
		Serve: ServeConfig{
			Addr:     orDefault(raw.Serve.Addr, ":8080"),
			CacheTTL: cacheTTL,
		},
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 2
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	if cfg.Notification.TopN == 0 {
		cfg.Notification.TopN = 5
	}
	return cfg, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func validate(cfg *Config) error {
	switch cfg.Source.Type {
	case SourceAPI:
		if cfg.Source.APIKey == "" {
			return fmt.Errorf("source.api_key is required when source.type is %q", SourceAPI)
		}
	case SourceScrape, SourceBrowser:
		if cfg.Source.ListingURL == "" {
			return fmt.Errorf("source.listing_url is required when source.type is %q", cfg.Source.Type)
		}
	default:
		return fmt.Errorf("source.type must be one of api, scrape, browser, got %q", cfg.Source.Type)
	}

	if cfg.Source.PageSize < 1 || cfg.Source.PageSize > 100 {
		return fmt.Errorf("source.page_size must be between 1 and 100, got %d", cfg.Source.PageSize)
	}
	if cfg.Source.MaxPages < 1 {
		return fmt.Errorf("source.max_pages must be positive, got %d", cfg.Source.MaxPages)
	}
	if cfg.RateLimit.RequestsPerSecond < 0 {
		return fmt.Errorf("rate_limit.requests_per_second must not be negative, got %v", cfg.RateLimit.RequestsPerSecond)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.SnapshotInterval < time.Minute {
		return fmt.Errorf("snapshot_interval must be at least 1m, got %v", cfg.SnapshotInterval)
	}
	if cfg.Workers < 1 {
		return fmt.Errorf("extraction.workers must be positive, got %d", cfg.Workers)
	}

	switch cfg.Notification.Type {
	case "log":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	default:
		return fmt.Errorf("notification.type must be \"log\" or \"slack\", got %q", cfg.Notification.Type)
	}

	if cfg.AI.Enabled {
		if cfg.AI.APIKey == "" {
			return fmt.Errorf("ai.api_key is required when ai.enabled is true")
		}
		if cfg.AI.Model == "" {
			return fmt.Errorf("ai.model is required when ai.enabled is true")
		}
	}

	return nil
}
