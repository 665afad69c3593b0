package embedder

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/policyindex/internal/config"
)

func TestWithRateLimit_Disabled(t *testing.T) {
	local, err := NewLocalProvider(nil)
	require.NoError(t, err)

	assert.Same(t, local, WithRateLimit(local, 0))
	assert.Same(t, local, WithRateLimit(local, -1))
}

func TestWithRateLimit_Throttles(t *testing.T) {
	local, err := NewLocalProvider(nil)
	require.NoError(t, err)
	limited := WithRateLimit(local, 20)

	assert.Equal(t, ProviderLocal, limited.Provider())
	assert.Equal(t, LocalDimension, limited.Dimension())

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 30; i++ {
		_, err := limited.Embed(ctx, "leave policy")
		require.NoError(t, err)
	}
	// 20 tokens up front, then 10 more at 20/s
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
}

func TestWithRateLimit_Cancelled(t *testing.T) {
	local, err := NewLocalProvider(nil)
	require.NoError(t, err)
	limited := WithRateLimit(local, 1)

	ctx := context.Background()
	_, err = limited.EmbedBatch(ctx, []string{"first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = limited.EmbedBatch(ctx, []string{"second"})
	assert.Error(t, err)
}

func TestNew_RateLimited(t *testing.T) {
	cfg := config.Default().Embedder
	cfg.Provider = ProviderOllama
	cfg.RequestsPerSecond = 5

	emb, err := New(cfg)
	require.NoError(t, err)
	_, ok := emb.(*rateLimited)
	assert.True(t, ok)
	assert.Equal(t, ProviderOllama, emb.Provider())

	cfg.Provider = ProviderLocal
	emb, err = New(cfg)
	require.NoError(t, err)
	_, ok = emb.(*rateLimited)
	assert.False(t, ok, "local provider is never throttled")
}
