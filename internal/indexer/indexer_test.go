package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/policyindex/internal/embedder"
	"github.com/dshills/policyindex/internal/logger"
	"github.com/dshills/policyindex/internal/storage"
)

// mockEmbedder encodes each text's length so tests can check vector order
type mockEmbedder struct {
	err     error
	delay   time.Duration
	batches atomic.Int32

	mu    sync.Mutex
	sizes []int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.batches.Add(1)
	m.mu.Lock()
	m.sizes = append(m.sizes, len(texts))
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = []float32{float32(len(text)), 1}
	}
	return out, nil
}

func (m *mockEmbedder) Dimension() int   { return 2 }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-v1" }
func (m *mockEmbedder) Close() error     { return nil }

func setupTestStorage(t testing.TB) *storage.SQLStore {
	t.Helper()
	store, err := storage.NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func createTestFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func createPolicyDir(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	createTestFile(t, dir, "Leave Policy.txt",
		"Employees accrue annual leave monthly. Unused leave expires in March.\f"+
			"Sick leave requires a doctor's note after three days.")
	createTestFile(t, dir, "travel.txt",
		"Book all flights through the travel portal. Economy class is the default.")
	createTestFile(t, dir, "notes.md", "ignored")
	return dir
}

func newLocalEmbedder() embedder.Embedder {
	emb, err := embedder.NewLocalProvider(embedder.NewCache(100))
	if err != nil {
		panic(err)
	}
	return emb
}

func TestBuild(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)
	idx := New(store, newLocalEmbedder(), logger.Discard())

	stats, err := idx.Build(ctx, Options{Dir: createPolicyDir(t)})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.DocumentsFound)
	assert.Equal(t, 2, stats.DocumentsIndexed)
	assert.Zero(t, stats.DocumentsFailed)
	assert.Equal(t, 3, stats.ChunksStored)
	assert.Equal(t, embedder.LocalDimension, stats.Dimension)
	assert.Empty(t, stats.Errors)
	assert.Len(t, stats.RunID, 36)
	assert.Greater(t, stats.Duration, time.Duration(0))

	embedded, total := idx.Progress()
	assert.Equal(t, 3, embedded)
	assert.Equal(t, 3, total)

	storeStats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, storeStats.Documents)
	assert.Equal(t, 3, storeStats.Chunks)
	assert.Equal(t, 3, storeStats.Embeddings)
	assert.Equal(t, embedder.LocalDimension, storeStats.Dimension)

	titles, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Leave Policy.txt", "travel.txt"}, titles)

	query, err := newLocalEmbedder().Embed(ctx, "flights travel portal")
	require.NoError(t, err)
	results, err := store.SimilarChunks(ctx, query, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "travel_p1_c0", results[0].ChunkID)
}

func TestBuild_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)
	idx := New(store, newLocalEmbedder(), logger.Discard())
	dir := createPolicyDir(t)

	_, err := idx.Build(ctx, Options{Dir: dir})
	require.NoError(t, err)
	_, err = idx.Build(ctx, Options{Dir: dir})
	require.NoError(t, err)

	storeStats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, storeStats.Documents)
	assert.Equal(t, 3, storeStats.Chunks)
}

func TestBuild_Rebuild(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)
	idx := New(store, newLocalEmbedder(), logger.Discard())
	dir := createPolicyDir(t)

	_, err := idx.Build(ctx, Options{Dir: dir})
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(dir, "travel.txt")))

	// without rebuild the removed document stays
	_, err = idx.Build(ctx, Options{Dir: dir})
	require.NoError(t, err)
	titles, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Len(t, titles, 2)

	_, err = idx.Build(ctx, Options{Dir: dir, Rebuild: true})
	require.NoError(t, err)
	titles, err = store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Leave Policy.txt"}, titles)
}

func TestBuild_NoDocuments(t *testing.T) {
	idx := New(setupTestStorage(t), newLocalEmbedder(), logger.Discard())
	dir := t.TempDir()
	createTestFile(t, dir, "readme.md", "nothing to see")

	stats, err := idx.Build(context.Background(), Options{Dir: dir})
	assert.ErrorIs(t, err, ErrNoDocuments)
	require.NotNil(t, stats)
	assert.Zero(t, stats.DocumentsFound)
}

func TestBuild_MissingDir(t *testing.T) {
	idx := New(setupTestStorage(t), newLocalEmbedder(), logger.Discard())
	_, err := idx.Build(context.Background(), Options{Dir: filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDocuments)
}

func TestBuild_NoChunks(t *testing.T) {
	emb := &mockEmbedder{}
	idx := New(setupTestStorage(t), emb, logger.Discard())
	dir := t.TempDir()
	createTestFile(t, dir, "blank.txt", "\n\n   \n")

	stats, err := idx.Build(context.Background(), Options{Dir: dir})
	assert.ErrorIs(t, err, ErrNoChunks)
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.DocumentsFound)
	assert.Zero(t, emb.batches.Load())
}

func TestBuild_SkipsBrokenDocuments(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)
	idx := New(store, newLocalEmbedder(), logger.Discard())
	dir := createPolicyDir(t)
	createTestFile(t, dir, "broken.pdf", "this is not a pdf")

	stats, err := idx.Build(ctx, Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.DocumentsFound)
	assert.Equal(t, 2, stats.DocumentsIndexed)
	assert.Equal(t, 1, stats.DocumentsFailed)
	require.Len(t, stats.Errors, 1)
	assert.Contains(t, stats.Errors[0], "broken.pdf")

	titles, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Leave Policy.txt", "travel.txt"}, titles)
}

func TestBuild_BrokenDocumentSharingID(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)
	idx := New(store, newLocalEmbedder(), logger.Discard())
	dir := t.TempDir()
	createTestFile(t, dir, "handbook.pdf", "this is not a pdf")
	createTestFile(t, dir, "handbook.txt", "Badges must be worn on site. Visitors sign in at reception.")

	stats, err := idx.Build(ctx, Options{Dir: dir})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentsFailed)
	assert.Equal(t, 1, stats.DocumentsIndexed)

	titles, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"handbook.txt"}, titles)
}

func TestBuild_EmbedderError(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)
	emb := &mockEmbedder{err: embedder.ErrProviderFailed}
	idx := New(store, emb, logger.Discard())

	_, err := idx.Build(ctx, Options{Dir: createPolicyDir(t)})
	assert.ErrorIs(t, err, embedder.ErrProviderFailed)

	// nothing was written, the dimension was never locked
	_, err = store.Dimension(ctx)
	assert.ErrorIs(t, err, storage.ErrDimensionUnknown)
}

func TestBuild_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := setupTestStorage(t)
	require.NoError(t, store.EnsureSchema(ctx, 2))
	idx := New(store, newLocalEmbedder(), logger.Discard())

	_, err := idx.Build(ctx, Options{Dir: createPolicyDir(t)})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
}

func TestBuild_BatchesInOrder(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("Page text ")
		b.WriteString(strings.Repeat("x", i+1))
		b.WriteString(".\f")
	}
	createTestFile(t, dir, "long.txt", b.String())

	store := setupTestStorage(t)
	emb := &mockEmbedder{delay: time.Millisecond}
	idx := New(store, emb, logger.Discard())

	stats, err := idx.Build(ctx, Options{Dir: dir, BatchSize: 4, Workers: 3})
	require.NoError(t, err)
	assert.Equal(t, 25, stats.ChunksStored)
	assert.Equal(t, int32(7), emb.batches.Load())

	emb.mu.Lock()
	total := 0
	for _, s := range emb.sizes {
		assert.LessOrEqual(t, s, 4)
		total += s
	}
	emb.mu.Unlock()
	assert.Equal(t, 25, total)

	// the first vector component is the text length, so each chunk must be
	// its own best match when queried with its own vector
	for page := 1; page <= 25; page++ {
		text := "Page text " + strings.Repeat("x", page) + "."
		results, err := store.SimilarChunks(ctx, []float32{float32(len(text)), 1}, 25)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		found := false
		for _, r := range results {
			if r.Text == text {
				found = true
				assert.InDelta(t, 1.0, r.Similarity, 1e-6)
			}
		}
		assert.True(t, found, "page %d stored", page)
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	idx := New(setupTestStorage(t), newLocalEmbedder(), logger.Discard())
	_, err := idx.Build(ctx, Options{Dir: createPolicyDir(t)})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWithDefaults(t *testing.T) {
	opts := withDefaults(Options{Overlap: -1, BatchSize: 500})
	assert.Equal(t, 220, opts.ChunkSize)
	assert.Equal(t, 40, opts.Overlap)
	assert.Equal(t, embedder.MaxBatchSize, opts.BatchSize)
	assert.Positive(t, opts.Workers)

	opts = withDefaults(Options{ChunkSize: 50, Overlap: 0, BatchSize: 8, Workers: 2})
	assert.Equal(t, Options{ChunkSize: 50, Overlap: 0, BatchSize: 8, Workers: 2}, opts)
}

func TestIndexLock(t *testing.T) {
	var lock IndexLock
	assert.False(t, lock.Locked())
	assert.True(t, lock.TryAcquire())
	assert.True(t, lock.Locked())
	assert.False(t, lock.TryAcquire())
	lock.Release()
	assert.False(t, lock.Locked())
	assert.True(t, lock.TryAcquire())
}

func TestIndexLock_Concurrent(t *testing.T) {
	var lock IndexLock
	var acquired atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lock.TryAcquire() {
				acquired.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), acquired.Load())
}
