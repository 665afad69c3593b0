package embedder

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// rateLimited throttles provider calls with a token bucket. Cached texts
// still count against the limit because the wrapper sits in front of the
// provider's cache.
type rateLimited struct {
	Embedder
	limiter *rate.Limiter
}

// WithRateLimit wraps e so that at most rps batch requests per second
// reach it. rps <= 0 returns e unchanged.
func WithRateLimit(e Embedder, rps float64) Embedder {
	if rps <= 0 {
		return e
	}
	burst := max(1, int(math.Ceil(rps)))
	return &rateLimited{
		Embedder: e,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (r *rateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Embedder.Embed(ctx, text)
}

func (r *rateLimited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Embedder.EmbedBatch(ctx, texts)
}
