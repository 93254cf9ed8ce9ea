// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Cleaner   CleanerConfig   `mapstructure:"cleaner"`
	AI        AIConfig        `mapstructure:"ai"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	RequestTimeout int `mapstructure:"request_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlerConfig governs the dispatcher and crawl loop.
type CrawlerConfig struct {
	Concurrency     int    `mapstructure:"concurrency"`
	QueueDepth      int    `mapstructure:"queue_depth"`
	UserAgent       string `mapstructure:"user_agent"`
	DelayMs         int    `mapstructure:"delay_ms"`
	MaxPagesDefault int    `mapstructure:"max_pages_default"`
	MaxPagesLimit   int    `mapstructure:"max_pages_limit"`
	MaxRetries      int    `mapstructure:"max_retries"`
	RetryBackoffMs  int    `mapstructure:"retry_backoff_ms"`
	IgnoreRobots    bool   `mapstructure:"ignore_robots"`
}

// HTTPConfig configures the page fetcher.
type HTTPConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
	MaxBodyBytes   int `mapstructure:"max_body_bytes"`
}

// ExtractorConfig tunes the content extraction strategies.
type ExtractorConfig struct {
	MinWords         int     `mapstructure:"min_words"`
	MinDensity       float64 `mapstructure:"min_density"`
	ReadabilityTopN  int     `mapstructure:"readability_top_n"`
	DensityThreshold float64 `mapstructure:"density_threshold"`
	MaxPromptChars   int     `mapstructure:"max_prompt_chars"`
}

// CleanerConfig tunes the line filters of the cleaning pipeline.
type CleanerConfig struct {
	MinLineWords int `mapstructure:"min_line_words"`
	NavMaxWords  int `mapstructure:"nav_max_words"`
}

// AIConfig configures the optional text-generation capability.
type AIConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	APIKey          string  `mapstructure:"api_key"`
	Model           string  `mapstructure:"model"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	MaxConcurrency  int     `mapstructure:"max_concurrency"`
	Temperature     float32 `mapstructure:"temperature"`
	MaxContextChars int     `mapstructure:"max_context_chars"`
}

// StorageConfig selects where JSON exports are written.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	Bucket  string             `mapstructure:"bucket"`
	Prefix  string             `mapstructure:"prefix"`
	Local   LocalStorageConfig `mapstructure:"local"`
}

// LocalStorageConfig configures the filesystem backend.
type LocalStorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// DatabaseConfig controls the optional Postgres job archive.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	JobsTable       string        `mapstructure:"jobs_table"`
	PagesTable      string        `mapstructure:"pages_table"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// PubSubConfig holds the completion event topic. An empty project keeps
// events in memory.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// JobsConfig controls job record expiry.
type JobsConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Storage backends.
const (
	BackendMemory = "memory"
	BackendLocal  = "local"
	BackendGCS    = "gcs"
)

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WEBEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("ai.api_key", "WEBEXTRACT_AI_API_KEY", "GEMINI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.queue_depth", 64)
	v.SetDefault("crawler.user_agent", "")
	v.SetDefault("crawler.delay_ms", 2000)
	v.SetDefault("crawler.max_pages_default", 5)
	v.SetDefault("crawler.max_pages_limit", 20)
	v.SetDefault("crawler.max_retries", 1)
	v.SetDefault("crawler.retry_backoff_ms", 500)
	v.SetDefault("crawler.ignore_robots", true)
	v.SetDefault("http.timeout_seconds", 60)
	v.SetDefault("http.max_body_bytes", 10<<20)
	v.SetDefault("extractor.min_words", 50)
	v.SetDefault("extractor.min_density", 0.1)
	v.SetDefault("extractor.readability_top_n", 10)
	v.SetDefault("extractor.density_threshold", 0.25)
	v.SetDefault("extractor.max_prompt_chars", 12000)
	v.SetDefault("cleaner.min_line_words", 4)
	v.SetDefault("cleaner.nav_max_words", 3)
	v.SetDefault("ai.enabled", true)
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.max_concurrency", 4)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.max_context_chars", 24000)
	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "exports")
	v.SetDefault("storage.local.base_dir", "./data")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.jobs_table", "jobs")
	v.SetDefault("database.pages_table", "pages")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("jobs.ttl", 24*time.Hour)
	v.SetDefault("jobs.sweep_interval", 10*time.Minute)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.QueueDepth <= 0 {
		return fmt.Errorf("crawler.queue_depth must be > 0")
	}
	if c.Crawler.MaxPagesLimit <= 0 {
		return fmt.Errorf("crawler.max_pages_limit must be > 0")
	}
	if c.Crawler.MaxPagesDefault <= 0 || c.Crawler.MaxPagesDefault > c.Crawler.MaxPagesLimit {
		return fmt.Errorf("crawler.max_pages_default must be between 1 and crawler.max_pages_limit")
	}
	if c.Crawler.MaxRetries < 0 {
		return fmt.Errorf("crawler.max_retries must be >= 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendLocal:
		if c.Storage.Local.BaseDir == "" {
			return fmt.Errorf("storage.local.base_dir must be set for the local backend")
		}
	case BackendGCS:
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, local, gcs")
	}
	if c.PubSub.ProjectID != "" && c.PubSub.TopicName == "" {
		return fmt.Errorf("pubsub.topic_name must be set when pubsub.project_id is set")
	}
	if c.Jobs.TTL <= 0 {
		return fmt.Errorf("jobs.ttl must be > 0")
	}
	if c.Jobs.SweepInterval <= 0 {
		return fmt.Errorf("jobs.sweep_interval must be > 0")
	}
	return nil
}

// FetchTimeout is the hard per-page fetch bound.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// PageDelay is the gap enforced between fetches to one site.
func (c Config) PageDelay() time.Duration {
	return time.Duration(c.Crawler.DelayMs) * time.Millisecond
}

// AITimeout bounds a single text-generation call.
func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}
