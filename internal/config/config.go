// Package config loads service configuration from an optional YAML file with
// environment-variable overrides. Env always wins over file, file over defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults
const (
	DefaultListenAddr       = ":8420"
	DefaultDBFile           = "reposcope.db"
	DefaultChunkSizeChars   = 2000
	DefaultMaxFileSizeBytes = 1 << 20 // 1 MiB of text
	DefaultEmbedDimension   = 384
	DefaultEmbedConcurrency = 4
	DefaultJobRetentionHrs  = 24
	DefaultCleanupIntervalM = 60
)

// Config is the full service configuration.
type Config struct {
	ListenAddr string          `yaml:"listen_addr"`
	DBPath     string          `yaml:"db_path"`
	LogMode    string          `yaml:"log_mode"` // "dev" or "prod"
	Embedding  EmbeddingConfig `yaml:"embedding"`
	Indexing   IndexingConfig  `yaml:"indexing"`
	Jobs       JobsConfig      `yaml:"jobs"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // "http" or "fallback"
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	Dimension int    `yaml:"dimension"`
}

// IndexingConfig bounds the change-detection and chunking engine.
type IndexingConfig struct {
	ChunkSizeChars   int   `yaml:"chunk_size_chars"`
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes"`
	EmbedConcurrency int   `yaml:"embed_concurrency"`
}

// JobsConfig controls job retention and garbage collection.
type JobsConfig struct {
	RetentionHours         int `yaml:"retention_hours"`
	CleanupIntervalMinutes int `yaml:"cleanup_interval_minutes"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	home, err := os.UserHomeDir()
	dbPath := DefaultDBFile
	if err == nil {
		dbPath = filepath.Join(home, ".reposcope", DefaultDBFile)
	}

	return &Config{
		ListenAddr: DefaultListenAddr,
		DBPath:     dbPath,
		LogMode:    "dev",
		Embedding: EmbeddingConfig{
			Provider:  "fallback",
			Model:     "text-embedding-3-small",
			Dimension: DefaultEmbedDimension,
		},
		Indexing: IndexingConfig{
			ChunkSizeChars:   DefaultChunkSizeChars,
			MaxFileSizeBytes: DefaultMaxFileSizeBytes,
			EmbedConcurrency: DefaultEmbedConcurrency,
		},
		Jobs: JobsConfig{
			RetentionHours:         DefaultJobRetentionHrs,
			CleanupIntervalMinutes: DefaultCleanupIntervalM,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, and the
// environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.ListenAddr, "REPOSCOPE_LISTEN_ADDR")
	setString(&c.DBPath, "REPOSCOPE_DB_PATH")
	setString(&c.LogMode, "REPOSCOPE_LOG_MODE")
	setString(&c.Embedding.Provider, "REPOSCOPE_EMBEDDING_PROVIDER")
	setString(&c.Embedding.BaseURL, "REPOSCOPE_EMBEDDING_BASE_URL")
	setString(&c.Embedding.APIKey, "REPOSCOPE_EMBEDDING_API_KEY")
	setString(&c.Embedding.Model, "REPOSCOPE_EMBEDDING_MODEL")
	setInt(&c.Embedding.Dimension, "REPOSCOPE_EMBEDDING_DIMENSION")
	setInt(&c.Indexing.ChunkSizeChars, "REPOSCOPE_CHUNK_SIZE_CHARS")
	setInt64(&c.Indexing.MaxFileSizeBytes, "REPOSCOPE_MAX_FILE_SIZE_BYTES")
	setInt(&c.Indexing.EmbedConcurrency, "REPOSCOPE_EMBED_CONCURRENCY")
	setInt(&c.Jobs.RetentionHours, "REPOSCOPE_JOB_RETENTION_HOURS")
	setInt(&c.Jobs.CleanupIntervalMinutes, "REPOSCOPE_JOB_CLEANUP_INTERVAL_MINUTES")
}

func (c *Config) validate() error {
	if c.Indexing.ChunkSizeChars <= 0 {
		return fmt.Errorf("chunk_size_chars must be positive, got %d", c.Indexing.ChunkSizeChars)
	}
	if c.Indexing.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("max_file_size_bytes must be positive, got %d", c.Indexing.MaxFileSizeBytes)
	}
	if c.Embedding.Dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive, got %d", c.Embedding.Dimension)
	}
	if c.Embedding.Provider == "http" && c.Embedding.BaseURL == "" {
		return fmt.Errorf("embedding provider %q requires base_url", c.Embedding.Provider)
	}
	if c.Jobs.RetentionHours <= 0 {
		return fmt.Errorf("job retention_hours must be positive, got %d", c.Jobs.RetentionHours)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}
