// Package config provides unified configuration for the Eventrail service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full service configuration.
type Config struct {
	// DataDir is the base directory for all data files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// HTTP configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Store configuration (table store backend)
	Store StoreConfig `json:"store" yaml:"store"`

	// Blob configuration (overflow content backend)
	Blob BlobConfig `json:"blob" yaml:"blob"`

	// Journal configuration
	Journal JournalConfig `json:"journal" yaml:"journal"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the HTTP listen address
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// StoreConfig holds table store configuration.
type StoreConfig struct {
	// Type is the store backend: memory, sqlite
	Type string `json:"type" yaml:"type"`

	// Path is the SQLite database path (for sqlite type)
	Path string `json:"path" yaml:"path"`

	// SegmentSize caps rows per scan segment
	SegmentSize int `json:"segment_size" yaml:"segment_size"`
}

// BlobConfig holds blob store configuration.
type BlobConfig struct {
	// Type is the blob backend: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local blob directory (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 blob storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// JournalConfig holds journal engine configuration.
type JournalConfig struct {
	// InlineThresholdBytes is the compressed-content size at or above which
	// payloads overflow to the blob store
	InlineThresholdBytes int `json:"inline_threshold_bytes" yaml:"inline_threshold_bytes"`

	// QueryConcurrency bounds parallel shard/bucket fetches per query
	QueryConcurrency int `json:"query_concurrency" yaml:"query_concurrency"`

	// Shards are created at startup if missing
	Shards []string `json:"shards" yaml:"shards"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/eventrail",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Store: StoreConfig{
			Type:        "sqlite",
			SegmentSize: 1000,
		},
		Blob: BlobConfig{
			Type: "local",
		},
		Journal: JournalConfig{
			InlineThresholdBytes: 32 * 1024,
			QueryConcurrency:     10,
			Shards:               []string{"events"},
		},
	}
}

// Resolve resolves relative paths and sets defaults based on DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/eventrail"
	}
	if c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.DataDir, "journal.db")
	}
	if c.Blob.Path == "" {
		c.Blob.Path = filepath.Join(c.DataDir, "blobs")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Store.Type != "memory" && c.Store.Type != "sqlite" {
		return fmt.Errorf("invalid store type: %s (must be memory or sqlite)", c.Store.Type)
	}

	if c.Blob.Type != "local" && c.Blob.Type != "s3" {
		return fmt.Errorf("invalid blob type: %s (must be local or s3)", c.Blob.Type)
	}

	if c.Blob.Type == "s3" && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when blob type is s3")
	}

	if c.Journal.InlineThresholdBytes < 0 {
		return fmt.Errorf("journal.inline_threshold_bytes must not be negative, got %d", c.Journal.InlineThresholdBytes)
	}

	if len(c.Journal.Shards) == 0 {
		return fmt.Errorf("journal.shards must name at least one shard")
	}

	return nil
}

// EnsureDirectories creates all required directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir}
	if c.Blob.Type == "local" {
		dirs = append(dirs, c.Blob.Path)
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the EVENTRAIL_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("EVENTRAIL_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("EVENTRAIL_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}

	// Store configuration
	if v := os.Getenv("EVENTRAIL_STORE_TYPE"); v != "" {
		cfg.Store.Type = v
	}
	if v := os.Getenv("EVENTRAIL_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("EVENTRAIL_STORE_SEGMENT_SIZE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Store.SegmentSize)
	}

	// Blob configuration
	if v := os.Getenv("EVENTRAIL_BLOB_TYPE"); v != "" {
		cfg.Blob.Type = v
	}
	if v := os.Getenv("EVENTRAIL_BLOB_PATH"); v != "" {
		cfg.Blob.Path = v
	}
	if v := os.Getenv("EVENTRAIL_S3_BUCKET"); v != "" {
		cfg.Blob.S3.Bucket = v
	}
	if v := os.Getenv("EVENTRAIL_S3_REGION"); v != "" {
		cfg.Blob.S3.Region = v
	}
	if v := os.Getenv("EVENTRAIL_S3_ENDPOINT"); v != "" {
		cfg.Blob.S3.Endpoint = v
	}

	// Journal configuration
	if v := os.Getenv("EVENTRAIL_INLINE_THRESHOLD_BYTES"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Journal.InlineThresholdBytes)
	}
	if v := os.Getenv("EVENTRAIL_QUERY_CONCURRENCY"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Journal.QueryConcurrency)
	}
	if v := os.Getenv("EVENTRAIL_SHARDS"); v != "" {
		var shards []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				shards = append(shards, s)
			}
		}
		if len(shards) > 0 {
			cfg.Journal.Shards = shards
		}
	}
}
