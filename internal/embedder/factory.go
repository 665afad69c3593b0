package embedder

import (
	"fmt"
	"strings"

	"github.com/dshills/policyindex/internal/config"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderLocal  = "local"

	EnvOpenAIAPIKey = "OPENAI_API_KEY"

	// Default models
	DefaultOpenAIModel = "text-embedding-3-small"
	DefaultOllamaModel = "bge-m3"
	DefaultOllamaURL   = "http://localhost:11434"
	LocalModel         = "hashed-bag-of-words"

	// LocalDimension is the vector length of the local provider
	LocalDimension = 384

	// Batch limits
	DefaultBatchSize = 64
	MaxBatchSize     = 100

	DefaultCacheSize = 10000

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0
)

// DetectProvider returns the provider New would use for cfg.
// An explicit provider wins; otherwise OpenAI when an API key is present,
// else local.
func DetectProvider(cfg config.EmbedderConfig) string {
	if cfg.Provider != "" {
		return strings.ToLower(cfg.Provider)
	}
	if cfg.OpenAI.APIKey != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}

// New creates an embedder from configuration. Remote providers are
// throttled when cfg.RequestsPerSecond is positive.
func New(cfg config.EmbedderConfig) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch provider := DetectProvider(cfg); provider {
	case ProviderOpenAI:
		p, err := NewOpenAIProvider(OpenAIConfig{
			APIKey:       cfg.OpenAI.APIKey,
			Organization: cfg.OpenAI.Organization,
			Project:      cfg.OpenAI.Project,
			BaseURL:      cfg.OpenAI.BaseURL,
			Model:        cfg.OpenAI.Model,
		}, cache)
		if err != nil {
			return nil, err
		}
		return WithRateLimit(p, cfg.RequestsPerSecond), nil
	case ProviderOllama:
		p, err := NewOllamaProvider(OllamaConfig{
			BaseURL: cfg.Ollama.URL,
			Model:   cfg.Ollama.Model,
			Token:   cfg.Ollama.Token,
		}, cache)
		if err != nil {
			return nil, err
		}
		return WithRateLimit(p, cfg.RequestsPerSecond), nil
	case ProviderLocal:
		return NewLocalProvider(cache)
	default:
		return nil, fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, provider)
	}
}
