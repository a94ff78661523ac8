// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/ragsearch-crawler/internal/rag"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Crawler CrawlerConfig `mapstructure:"crawler"`
	Vector  VectorConfig  `mapstructure:"vector"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Blob    BlobConfig    `mapstructure:"blob"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// CrawlerConfig governs crawl job behavior.
type CrawlerConfig struct {
	MaxPages             int    `mapstructure:"max_pages"`
	Concurrency          int    `mapstructure:"concurrency"`
	CrawlDelaySeconds    int    `mapstructure:"crawl_delay_seconds"`
	UserAgent            string `mapstructure:"user_agent"`
	RobotsOverride       bool   `mapstructure:"robots_override"`
	RenderTimeoutSeconds int    `mapstructure:"render_timeout_seconds"`
	Headless             bool   `mapstructure:"headless"`
	ChunkSize            int    `mapstructure:"chunk_size"`
	ChunkOverlap         int    `mapstructure:"chunk_overlap"`
	MinChunkChars        int    `mapstructure:"min_chunk_chars"`
}

// VectorConfig controls the vector store capability.
type VectorConfig struct {
	Provider         string `mapstructure:"provider"`
	DSN              string `mapstructure:"dsn"`
	Table            string `mapstructure:"table"`
	CollectionPrefix string `mapstructure:"collection_prefix"`
	Size             int    `mapstructure:"size"`
	DistanceMetric   string `mapstructure:"distance_metric"`
	TopK             int    `mapstructure:"top_k"`
}

// LLMConfig controls the embedding and generation capabilities.
type LLMConfig struct {
	Disabled   bool   `mapstructure:"disabled"`
	Model      string `mapstructure:"model"`
	EmbedModel string `mapstructure:"embed_model"`
	APIKey     string `mapstructure:"api_key"`
}

// BlobConfig sets the optional raw-HTML archive destination.
type BlobConfig struct {
	Provider string `mapstructure:"provider"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
	Prefix   string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for ingest notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("RAGCRAWLER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

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
	v.SetDefault("server.port", 8090)
	v.SetDefault("crawler.max_pages", 200)
	v.SetDefault("crawler.concurrency", 25)
	v.SetDefault("crawler.crawl_delay_seconds", 2)
	v.SetDefault("crawler.user_agent", "Mozilla/5.0 (compatible; RAGSearchBot/1.0;)")
	v.SetDefault("crawler.robots_override", false)
	v.SetDefault("crawler.render_timeout_seconds", 25)
	v.SetDefault("crawler.headless", false)
	v.SetDefault("crawler.chunk_size", 1000)
	v.SetDefault("crawler.chunk_overlap", 200)
	v.SetDefault("crawler.min_chunk_chars", 40)
	v.SetDefault("vector.provider", "memory")
	v.SetDefault("vector.table", "chunks")
	v.SetDefault("vector.collection_prefix", "kb_")
	v.SetDefault("vector.size", 768)
	v.SetDefault("vector.distance_metric", "cosine")
	v.SetDefault("vector.top_k", 5)
	v.SetDefault("llm.disabled", false)
	v.SetDefault("llm.model", "gemini-2.5-flash")
	v.SetDefault("llm.embed_model", "text-embedding-004")
	v.SetDefault("blob.provider", "none")
	v.SetDefault("blob.prefix", "pages")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Violations are
// configuration errors: fatal at startup, never tolerated per-request.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawler.MaxPages <= 0 {
		return fmt.Errorf("crawler.max_pages must be > 0")
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if c.Crawler.CrawlDelaySeconds < 0 {
		return fmt.Errorf("crawler.crawl_delay_seconds must be >= 0")
	}
	if c.Crawler.ChunkSize <= 0 {
		return fmt.Errorf("crawler.chunk_size must be > 0")
	}
	if c.Crawler.ChunkOverlap < 0 || c.Crawler.ChunkOverlap >= c.Crawler.ChunkSize {
		return fmt.Errorf("crawler.chunk_overlap must be in [0, chunk_size)")
	}
	switch c.Vector.Provider {
	case "memory":
	case "postgres":
		if c.Vector.DSN == "" {
			return fmt.Errorf("vector.dsn is required when vector.provider is postgres")
		}
	default:
		return fmt.Errorf("unknown vector.provider %q", c.Vector.Provider)
	}
	if c.Vector.Size <= 0 {
		return fmt.Errorf("vector.size must be > 0")
	}
	if !rag.DistanceMetric(c.Vector.DistanceMetric).Valid() {
		return fmt.Errorf("vector.distance_metric must be one of cosine, euclidean, dot")
	}
	if c.Vector.TopK <= 0 {
		return fmt.Errorf("vector.top_k must be > 0")
	}
	switch c.Blob.Provider {
	case "none", "local", "gcs":
	default:
		return fmt.Errorf("unknown blob.provider %q", c.Blob.Provider)
	}
	if c.Blob.Provider == "local" && c.Blob.BaseDir == "" {
		return fmt.Errorf("blob.base_dir is required when blob.provider is local")
	}
	if c.Blob.Provider == "gcs" && c.Blob.Bucket == "" {
		return fmt.Errorf("blob.bucket is required when blob.provider is gcs")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name are required when pubsub is enabled")
	}
	return nil
}

// CrawlDelay converts the configured delay into a duration.
func (c Config) CrawlDelay() time.Duration {
	return time.Duration(c.Crawler.CrawlDelaySeconds) * time.Second
}

// RenderTimeout converts the configured render timeout into a duration.
func (c Config) RenderTimeout() time.Duration {
	return time.Duration(c.Crawler.RenderTimeoutSeconds) * time.Second
}

// Metric returns the configured distance metric as a typed value.
func (c Config) Metric() rag.DistanceMetric {
	return rag.DistanceMetric(c.Vector.DistanceMetric)
}

// JobConfig snapshots the crawl-relevant settings for a new job.
func (c Config) JobConfig() rag.JobConfig {
	return rag.JobConfig{
		MaxPages:       c.Crawler.MaxPages,
		Concurrency:    c.Crawler.Concurrency,
		CrawlDelay:     c.CrawlDelay(),
		UserAgent:      c.Crawler.UserAgent,
		RobotsOverride: c.Crawler.RobotsOverride,
	}
}
