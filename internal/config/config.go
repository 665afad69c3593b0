// Package config loads policyindex settings from defaults, an optional YAML
// file, a .env file and the process environment, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read from the working directory when no path is given
const DefaultConfigFile = "policyindex.yaml"

// Defaults
const (
	DefaultDatabaseURL  = "sqlite:///policy_vectors.db"
	DefaultSourceDir    = "policies"
	DefaultChunkSize    = 220
	DefaultChunkOverlap = 40
	DefaultBatchSize    = 64
	DefaultWorkers      = 4
	DefaultTopK         = 4
	DefaultCacheSize    = 10000
	MaxBatchSize        = 100
)

var (
	ErrConflictingDatabaseURL = errors.New("conflicting database URLs")
	ErrInvalidConfig          = errors.New("invalid configuration")
)

// OpenAIConfig configures the OpenAI embedding provider
type OpenAIConfig struct {
	APIKey       string `yaml:"-"`
	Organization string `yaml:"organization"`
	Project      string `yaml:"project"`
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
}

// OllamaConfig configures the Ollama embedding provider
type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
	Token string `yaml:"-"`
}

// EmbedderConfig selects and configures the embedding provider
type EmbedderConfig struct {
	Provider  string `yaml:"provider"` // openai, ollama, local; empty auto-detects
	CacheSize int    `yaml:"cache_size"`
	BatchSize int    `yaml:"batch_size"`
	Workers   int    `yaml:"workers"`

	// RequestsPerSecond throttles calls to remote providers; 0 is unlimited
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	OpenAI OpenAIConfig `yaml:"openai"`
	Ollama OllamaConfig `yaml:"ollama"`
}

// ChunkerConfig configures sentence-aware chunking. Sizes are word counts.
type ChunkerConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the root configuration
type Config struct {
	DatabaseURL string         `yaml:"database_url"`
	SourceDir   string         `yaml:"source_dir"`
	TopK        int            `yaml:"top_k"`
	Chunker     ChunkerConfig  `yaml:"chunker"`
	Embedder    EmbedderConfig `yaml:"embedder"`
	Log         LogConfig      `yaml:"log"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		DatabaseURL: DefaultDatabaseURL,
		SourceDir:   DefaultSourceDir,
		TopK:        DefaultTopK,
		Chunker: ChunkerConfig{
			ChunkSize: DefaultChunkSize,
			Overlap:   DefaultChunkOverlap,
		},
		Embedder: EmbedderConfig{
			CacheSize: DefaultCacheSize,
			BatchSize: DefaultBatchSize,
			Workers:   DefaultWorkers,
			OpenAI: OpenAIConfig{
				Model: "text-embedding-3-small",
			},
			Ollama: OllamaConfig{
				URL:   "http://localhost:11434",
				Model: "bge-m3",
			},
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration. A missing .env file or a missing default
// YAML file is not an error; an explicitly named YAML file must exist.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // silently ignore if .env doesn't exist

	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays values from a YAML file onto cfg
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables onto cfg
func (c *Config) applyEnv() error {
	dbURL, err := databaseURLFromEnv()
	if err != nil {
		return err
	}
	if dbURL != "" {
		c.DatabaseURL = dbURL
	}

	c.SourceDir = envOrDefault("POLICYINDEX_SOURCE_DIR", c.SourceDir)
	c.TopK = envOrDefaultInt("POLICYINDEX_TOP_K", c.TopK)
	c.Chunker.ChunkSize = envOrDefaultInt("CHUNK_SIZE", c.Chunker.ChunkSize)
	c.Chunker.Overlap = envOrDefaultInt("CHUNK_OVERLAP", c.Chunker.Overlap)

	c.Embedder.Provider = strings.ToLower(envOrDefault("POLICYINDEX_EMBEDDING_PROVIDER", c.Embedder.Provider))
	c.Embedder.CacheSize = envOrDefaultInt("EMBEDDING_CACHE_SIZE", c.Embedder.CacheSize)
	c.Embedder.BatchSize = envOrDefaultInt("EMBED_BATCH_SIZE", c.Embedder.BatchSize)
	c.Embedder.Workers = envOrDefaultInt("EMBED_WORKERS", c.Embedder.Workers)
	c.Embedder.RequestsPerSecond = envOrDefaultFloat("EMBED_REQUESTS_PER_SECOND", c.Embedder.RequestsPerSecond)

	c.Embedder.OpenAI.APIKey = envOrDefault("OPENAI_API_KEY", c.Embedder.OpenAI.APIKey)
	c.Embedder.OpenAI.Organization = envOrDefault("OPENAI_ORGANIZATION", c.Embedder.OpenAI.Organization)
	c.Embedder.OpenAI.Project = envOrDefault("OPENAI_PROJECT", c.Embedder.OpenAI.Project)
	c.Embedder.OpenAI.BaseURL = envOrDefault("OPENAI_BASE_URL", c.Embedder.OpenAI.BaseURL)
	c.Embedder.OpenAI.Model = envOrDefault("OPENAI_EMBEDDING_MODEL", c.Embedder.OpenAI.Model)

	c.Embedder.Ollama.URL = envOrDefault("OLLAMA_EMBED_URL", c.Embedder.Ollama.URL)
	c.Embedder.Ollama.Model = envOrDefault("OLLAMA_EMBED_MODEL", c.Embedder.Ollama.Model)
	c.Embedder.Ollama.Token = envOrDefault("OLLAMA_EMBED_TOKEN", c.Embedder.Ollama.Token)

	c.Log.Level = envOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envOrDefault("LOG_FORMAT", c.Log.Format)
	return nil
}

// databaseURLFromEnv resolves DATABASE_URL and its SQLAlchemy-style aliases.
// Setting both forms to different values is rejected.
func databaseURLFromEnv() (string, error) {
	primary := os.Getenv("DATABASE_URL")
	alias := os.Getenv("SQLALCHEMY_DATABASE_URL")
	if alias == "" {
		alias = os.Getenv("SQLALCHEMY_DATABASE_URI")
	}

	if primary != "" && alias != "" && primary != alias {
		return "", fmt.Errorf("%w: DATABASE_URL and SQLALCHEMY_DATABASE_URL/SQLALCHEMY_DATABASE_URI differ; set only one", ErrConflictingDatabaseURL)
	}
	if primary != "" {
		return primary, nil
	}
	return alias, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: database_url is required", ErrInvalidConfig)
	}
	if c.Chunker.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidConfig, c.Chunker.ChunkSize)
	}
	if c.Chunker.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidConfig, c.Chunker.Overlap)
	}
	if c.Embedder.BatchSize < 1 || c.Embedder.BatchSize > MaxBatchSize {
		return fmt.Errorf("%w: batch_size must be between 1 and %d, got %d", ErrInvalidConfig, MaxBatchSize, c.Embedder.BatchSize)
	}
	if c.Embedder.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Embedder.Workers)
	}
	if c.Embedder.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: requests_per_second must not be negative, got %g", ErrInvalidConfig, c.Embedder.RequestsPerSecond)
	}
	if c.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidConfig, c.TopK)
	}
	return nil
}

// RedactedDatabaseURL returns the database URL with any password masked, for logging
func (c *Config) RedactedDatabaseURL() string {
	u := c.DatabaseURL
	at := strings.LastIndex(u, "@")
	scheme := strings.Index(u, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return u
	}
	creds := u[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		creds = creds[:colon] + ":***"
	}
	return u[:scheme+3] + creds + u[at:]
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}

func envOrDefaultFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}
