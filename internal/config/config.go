// Package config provides configuration loading and structs for the Annai
// server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	Index     IndexConfig     `yaml:"index"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Sources   SourcesConfig   `yaml:"sources"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the chat database and the local vector index
// snapshot.
type StorageConfig struct {
	DatabasePath    string `yaml:"database_path"`
	VectorIndexPath string `yaml:"vector_index_path"`
}

// EmbeddingConfig holds embedding provider settings. APIKey is normally left
// empty in the file and supplied via the OPENAI_API_KEY environment variable.
type EmbeddingConfig struct {
	Provider         string `yaml:"provider"`
	Model            string `yaml:"model"`
	Dimensions       int    `yaml:"dimensions"`
	MaxInputTokens   int    `yaml:"max_input_tokens"`
	CacheSize        int    `yaml:"cache_size"`
	MaxAttempts      int    `yaml:"max_attempts"`
	RetryBaseDelayMS int    `yaml:"retry_base_delay_ms"`
	APIKey           string `yaml:"api_key"`
}

// ChatConfig holds answer generation settings.
type ChatConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// IndexConfig selects the vector index backend. PostgresURL is normally
// supplied via the DATABASE_URL environment variable.
type IndexConfig struct {
	Type        string `yaml:"type"`
	PostgresURL string `yaml:"postgres_url"`
}

// IngestConfig holds fetching and chunking settings.
type IngestConfig struct {
	ChunkSize           int    `yaml:"chunk_size"`
	ChunkOverlap        int    `yaml:"chunk_overlap"`
	BoundaryLookback    int    `yaml:"boundary_lookback"`
	MinContentLength    int    `yaml:"min_content_length"`
	PreviewLength       int    `yaml:"preview_length"`
	SourceTag           string `yaml:"source_tag"`
	Workers             int    `yaml:"workers"`
	FetchTimeoutSeconds int    `yaml:"fetch_timeout_seconds"`
}

// RetrievalConfig holds query settings.
type RetrievalConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

// SourcesConfig holds the default ingestion sources. File optionally points
// to a YAML source list that is watched for changes.
type SourcesConfig struct {
	URLs []string `yaml:"urls"`
	File string   `yaml:"file"`
}

// Load reads and parses the config file at path, merges environment
// variables, expands paths, and applies defaults. A .env file next to the
// config is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	applyEnv(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	if cfg.Sources.File != "" {
		cfg.Sources.File = expandPath(cfg.Sources.File, configDir)
	}

	return &cfg, nil
}

// applyEnv overlays secrets from the environment. Environment values win
// over the file so keys never need to live on disk.
func applyEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Embedding.APIKey = key
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Index.PostgresURL = url
	}
}

// Validate reports configuration that cannot work at runtime.
func (c *Config) Validate() error {
	if c.Embedding.Provider == "openai" && c.Embedding.APIKey == "" {
		return fmt.Errorf("embedding provider is openai but no API key is set: set OPENAI_API_KEY")
	}
	if c.Index.Type == "pgvector" && c.Index.PostgresURL == "" {
		return fmt.Errorf("index type is pgvector but no connection string is set: set DATABASE_URL")
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	if c.Embedding.MaxAttempts < 0 {
		return fmt.Errorf("embedding max_attempts (%d) must not be negative", c.Embedding.MaxAttempts)
	}
	if c.Embedding.RetryBaseDelayMS < 0 {
		return fmt.Errorf("embedding retry_base_delay_ms (%d) must not be negative", c.Embedding.RetryBaseDelayMS)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
