package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"unicode"
)

// LocalProvider is an offline, deterministic embedder. Each lowercase word
// is hashed into a fixed number of buckets with a signed weight and the
// result is L2-normalized, so texts sharing vocabulary score higher under
// cosine similarity. It needs no model and is meant for tests, demos and
// air-gapped indexing.
type LocalProvider struct {
	dimension int
	cache     *Cache
}

// NewLocalProvider creates a local embedder with LocalDimension buckets
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{dimension: LocalDimension, cache: cache}, nil
}

func (l *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, l, text)
}

func (l *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedCached(ctx, l.cache, texts, func(ctx context.Context, missing []string) ([][]float32, error) {
		vecs := make([][]float32, len(missing))
		for i, text := range missing {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			vecs[i] = l.vectorize(text)
		}
		return vecs, nil
	})
}

func (l *LocalProvider) vectorize(text string) []float32 {
	vec := make([]float32, l.dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		sum := sha256.Sum256([]byte(w))
		bucket := binary.LittleEndian.Uint32(sum[:4]) % uint32(l.dimension)
		sign := float32(1)
		if sum[4]&1 == 1 {
			sign = -1
		}
		vec[bucket] += sign
	}
	return NormalizeVector(vec)
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return LocalModel
}

func (l *LocalProvider) Close() error {
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val) * float64(val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
