package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// OllamaConfig configures an OllamaProvider
type OllamaConfig struct {
	BaseURL string // e.g. http://localhost:11434
	Model   string // e.g. bge-m3
	Token   string // Bearer token for hosted Ollama (empty = no auth)
}

// OllamaProvider implements Embedder using the Ollama /api/embed endpoint
type OllamaProvider struct {
	baseURL    string
	model      string
	token      string
	httpClient *http.Client
	cache      *Cache
	retry      RetryConfig
	dimension  atomic.Int64
}

// NewOllamaProvider creates a new Ollama embedder
func NewOllamaProvider(cfg OllamaConfig, cache *Cache) (*OllamaProvider, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	return &OllamaProvider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		token:   cfg.Token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		cache: cache,
		retry: DefaultRetryConfig(),
	}, nil
}

func (o *OllamaProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, o, text)
}

func (o *OllamaProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedCached(ctx, o.cache, texts, func(ctx context.Context, missing []string) ([][]float32, error) {
		vecs, err := retryWithBackoff(ctx, o.retry, func() ([][]float32, error) {
			return o.callAPI(ctx, missing)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: ollama: %w", ErrProviderFailed, err)
		}
		return vecs, nil
	})
}

func (o *OllamaProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(map[string]interface{}{
		"model": o.model,
		"input": texts,
	})
	if err != nil {
		return nil, permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if o.token != "" {
		req.Header.Set("Authorization", "Bearer "+o.token)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		if !isRetryableStatus(resp.StatusCode) {
			return nil, permanent(err)
		}
		return nil, err
	}

	var apiResp struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("requested %d embeddings, got %d", len(texts), len(apiResp.Embeddings))
	}
	if len(apiResp.Embeddings) > 0 {
		o.dimension.Store(int64(len(apiResp.Embeddings[0])))
	}
	return apiResp.Embeddings, nil
}

func (o *OllamaProvider) Dimension() int {
	return int(o.dimension.Load())
}

func (o *OllamaProvider) Provider() string {
	return ProviderOllama
}

func (o *OllamaProvider) Model() string {
	return o.model
}

func (o *OllamaProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
