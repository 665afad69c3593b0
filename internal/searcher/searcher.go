package searcher

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/policyindex/internal/embedder"
	"github.com/dshills/policyindex/internal/extractor"
	"github.com/dshills/policyindex/internal/storage"
	"github.com/dshills/policyindex/pkg/types"
)

// ErrEmptyQuery is returned when the query has no text left after normalization
var ErrEmptyQuery = errors.New("query cannot be empty")

const (
	// DefaultCacheSize bounds the number of cached responses
	DefaultCacheSize = 1000
	// DefaultCacheTTL is how long a cached response stays valid
	DefaultCacheTTL = 5 * time.Minute
)

// Response contains ranked results and timing for one query
type Response struct {
	Query    string // normalized query text
	Results  []types.SearchResult
	Duration time.Duration
	CacheHit bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// Searcher embeds query text and ranks stored chunks against it
type Searcher struct {
	store    storage.Store
	embedder embedder.Embedder
	cacheTTL time.Duration
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// Option configures a Searcher
type Option func(*Searcher)

// WithCacheTTL sets the response cache lifetime. Zero disables caching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Searcher) {
		if ttl >= 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Store, emb embedder.Embedder, opts ...Option) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](DefaultCacheSize)
	if err != nil {
		// only fails for a non-positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	s := &Searcher{
		store:    store,
		embedder: emb,
		cacheTTL: DefaultCacheTTL,
		cache:    cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns the topK chunks most similar to query, best first
func (s *Searcher) Search(ctx context.Context, query string, topK int) (*Response, error) {
	startTime := time.Now()

	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}

	normalized := extractor.Normalize(query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	key := computeQueryHash(normalized, topK)
	if cached := s.checkCache(key); cached != nil {
		cached.CacheHit = true
		cached.Duration = time.Since(startTime)
		return cached, nil
	}

	vector, err := s.embedder.Embed(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	chunks, err := s.store.SimilarChunks(ctx, vector, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}

	response := &Response{
		Query:   normalized,
		Results: types.Rank(chunks),
	}
	if len(response.Results) > 0 {
		s.storeInCache(key, response)
	}
	response.Duration = time.Since(startTime)
	return response, nil
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(key [32]byte) *Response {
	if s.cacheTTL == 0 {
		return nil
	}

	s.cacheMu.RLock()
	entry, found := s.cache.Get(key)
	s.cacheMu.RUnlock()
	if !found {
		return nil
	}

	if time.Now().After(entry.expiresAt) {
		s.cacheMu.Lock()
		s.cache.Remove(key)
		s.cacheMu.Unlock()
		return nil
	}
	return copyResponse(entry.response)
}

// storeInCache saves a copy of response
func (s *Searcher) storeInCache(key [32]byte, response *Response) {
	if s.cacheTTL == 0 {
		return
	}
	entry := &cacheEntry{
		response:  copyResponse(response),
		expiresAt: time.Now().Add(s.cacheTTL),
	}
	s.cacheMu.Lock()
	s.cache.Add(key, entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response. Call after the index changes.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// CacheLen returns the number of cached responses
func (s *Searcher) CacheLen() int {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	return s.cache.Len()
}

func copyResponse(src *Response) *Response {
	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	copy(dst.Results, src.Results)
	return &dst
}

// computeQueryHash keys the cache on normalized text and result count
func computeQueryHash(query string, topK int) [32]byte {
	h := sha256.New()
	h.Write([]byte(query))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(int64(topK)))
	h.Write(buf[:])

	var sum [32]byte
	copy(sum[:], h.Sum(nil))
	return sum
}
