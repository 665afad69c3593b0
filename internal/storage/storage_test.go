package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/policyindex/pkg/types"
)

func newTestStore(t *testing.T) *SQLStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testDocs() []types.Document {
	return []types.Document{
		{ID: "leave_policy", Title: "Leave Policy.pdf", SourcePath: "policies/Leave Policy.pdf"},
		{ID: "travel", Title: "travel.txt", SourcePath: "policies/travel.txt"},
	}
}

func chunk(doc string, page, idx int, text string) types.Chunk {
	return types.Chunk{
		ChunkID:    types.ChunkID(doc, page, idx),
		DocumentID: doc,
		PageNumber: page,
		ChunkIndex: idx,
		Text:       text,
	}
}

func seedStore(t *testing.T, store *SQLStore) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.EnsureSchema(ctx, 2))
	chunks := []types.Chunk{
		chunk("leave_policy", 1, 0, "Annual leave accrues monthly."),
		chunk("leave_policy", 1, 1, "Sick leave requires a note."),
		chunk("travel", 1, 0, "Book flights through the portal."),
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	require.NoError(t, store.StoreChunks(ctx, testDocs(), chunks, vectors))
}

func TestNewSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, BackendSQLite, store.Backend())

	current, err := currentVersion(context.Background(), store.db, sqliteDialect)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, current.String())
}

func TestNewSQLiteStore_File(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vectors.db")

	store, err := Open(ctx, "sqlite:///"+path)
	require.NoError(t, err)
	seedStore(t, store)
	require.NoError(t, store.Close())

	_, err = os.Stat(path)
	require.NoError(t, err)

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	titles, err := reopened.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Leave Policy.pdf", "travel.txt"}, titles)
}

func TestNewSQLiteStore_FileURI(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.db")

	store, err := Open(ctx, "file:"+path+"?mode=rwc")
	require.NoError(t, err)
	seedStore(t, store)
	require.NoError(t, store.Close())

	_, err = os.Stat(path)
	require.NoError(t, err, "query parameters are not part of the file name")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), "?")
	}
}

func TestEnsureSchema(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown without dimension", func(t *testing.T) {
		store := newTestStore(t)
		err := store.EnsureSchema(ctx, 0)
		assert.ErrorIs(t, err, ErrDimensionUnknown)

		_, err = store.Dimension(ctx)
		assert.ErrorIs(t, err, ErrDimensionUnknown)
	})

	t.Run("locks first dimension", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.EnsureSchema(ctx, 3))
		require.NoError(t, store.EnsureSchema(ctx, 3))
		require.NoError(t, store.EnsureSchema(ctx, 0))

		dim, err := store.Dimension(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, dim)
	})

	t.Run("mismatch", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.EnsureSchema(ctx, 3))

		err := store.EnsureSchema(ctx, 4)
		require.ErrorIs(t, err, ErrDimensionMismatch)
		assert.Contains(t, err.Error(), "3")
		assert.Contains(t, err.Error(), "4")
	})
}

func TestStoreChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedStore(t, store)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Stats{Backend: BackendSQLite, Documents: 2, Chunks: 3, Embeddings: 3, Dimension: 2}, stats)
}

func TestStoreChunks_Upsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedStore(t, store)

	docs := []types.Document{{ID: "travel", Title: "Travel Guide.txt", SourcePath: "policies/travel.txt"}}
	chunks := []types.Chunk{chunk("travel", 1, 0, "Use the new booking portal.")}
	require.NoError(t, store.StoreChunks(ctx, docs, chunks, [][]float32{{0, 1}}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Documents)
	assert.Equal(t, 3, stats.Chunks)
	assert.Equal(t, 3, stats.Embeddings)

	results, err := store.SimilarChunks(ctx, []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)

	titles, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Leave Policy.pdf", "Travel Guide.txt"}, titles)
}

func TestStoreChunks_Rejects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		docs    []types.Document
		chunks  []types.Chunk
		vectors [][]float32
		wantErr error
	}{
		{
			name:    "count mismatch",
			docs:    testDocs(),
			chunks:  []types.Chunk{chunk("travel", 1, 0, "a"), chunk("travel", 1, 1, "b")},
			vectors: [][]float32{{1, 0}},
			wantErr: ErrCountMismatch,
		},
		{
			name:    "orphan chunk",
			docs:    testDocs()[:1],
			chunks:  []types.Chunk{chunk("leave_policy", 1, 0, "a"), chunk("travel", 1, 0, "b")},
			vectors: [][]float32{{1, 0}, {0, 1}},
			wantErr: ErrOrphanChunk,
		},
		{
			name:    "wrong dimension",
			docs:    testDocs(),
			chunks:  []types.Chunk{chunk("leave_policy", 1, 0, "a"), chunk("travel", 1, 0, "b")},
			vectors: [][]float32{{1, 0}, {1, 0, 0}},
			wantErr: ErrDimensionMismatch,
		},
		{
			name:    "empty chunk text",
			docs:    testDocs(),
			chunks:  []types.Chunk{chunk("leave_policy", 1, 0, "a"), chunk("travel", 1, 0, "  ")},
			vectors: [][]float32{{1, 0}, {0, 1}},
			wantErr: types.ErrEmptyContent,
		},
		{
			name:    "missing chunk id",
			docs:    testDocs(),
			chunks:  []types.Chunk{{DocumentID: "travel", PageNumber: 1, Text: "a"}},
			vectors: [][]float32{{1, 0}},
			wantErr: types.ErrInvalidChunkID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			require.NoError(t, store.EnsureSchema(ctx, 2))

			err := store.StoreChunks(ctx, tt.docs, tt.chunks, tt.vectors)
			require.ErrorIs(t, err, tt.wantErr)

			stats, err := store.Stats(ctx)
			require.NoError(t, err)
			assert.Zero(t, stats.Documents)
			assert.Zero(t, stats.Chunks)
			assert.Zero(t, stats.Embeddings)
		})
	}
}

func TestStoreChunks_DimensionUnknown(t *testing.T) {
	store := newTestStore(t)
	err := store.StoreChunks(context.Background(), testDocs(),
		[]types.Chunk{chunk("travel", 1, 0, "a")}, [][]float32{{1, 0}})
	assert.ErrorIs(t, err, ErrDimensionUnknown)
}

func TestSimilarChunks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedStore(t, store)

	results, err := store.SimilarChunks(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "leave_policy_p1_c0", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-9)
	assert.Equal(t, "travel_p1_c0", results[1].ChunkID)
	assert.InDelta(t, 0.7071, results[1].Similarity, 1e-4)
	assert.Equal(t, "leave_policy_p1_c1", results[2].ChunkID)
	assert.InDelta(t, 0.0, results[2].Similarity, 1e-9)

	top := results[0]
	assert.Equal(t, "leave_policy", top.DocumentID)
	assert.Equal(t, "Leave Policy.pdf", top.Title)
	assert.Equal(t, 1, top.PageNumber)
	assert.Equal(t, 0, top.ChunkIndex)
	assert.Equal(t, "Annual leave accrues monthly.", top.Text)
}

func TestSimilarChunks_Limits(t *testing.T) {
	ctx := context.Background()

	t.Run("empty store", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.EnsureSchema(ctx, 2))
		results, err := store.SimilarChunks(ctx, []float32{1, 0}, 4)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	store := newTestStore(t)
	seedStore(t, store)

	t.Run("top k smaller than rows", func(t *testing.T) {
		results, err := store.SimilarChunks(ctx, []float32{0, 1}, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "leave_policy_p1_c1", results[0].ChunkID)
	})

	t.Run("top k larger than rows", func(t *testing.T) {
		results, err := store.SimilarChunks(ctx, []float32{0, 1}, 10)
		require.NoError(t, err)
		assert.Len(t, results, 3)
	})

	t.Run("non positive top k", func(t *testing.T) {
		for _, k := range []int{0, -1} {
			results, err := store.SimilarChunks(ctx, []float32{0, 1}, k)
			require.NoError(t, err)
			assert.Empty(t, results)
		}
	})

	t.Run("zero query", func(t *testing.T) {
		results, err := store.SimilarChunks(ctx, []float32{0, 0}, 3)
		require.NoError(t, err)
		require.Len(t, results, 3)
		for _, r := range results {
			assert.Zero(t, r.Similarity)
		}
		// equal scores keep insertion order
		assert.Equal(t, "leave_policy_p1_c0", results[0].ChunkID)
		assert.Equal(t, "leave_policy_p1_c1", results[1].ChunkID)
		assert.Equal(t, "travel_p1_c0", results[2].ChunkID)
	})
}

func TestDeleteAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedStore(t, store)

	require.NoError(t, store.DeleteAll(ctx))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Documents)
	assert.Zero(t, stats.Chunks)
	assert.Zero(t, stats.Embeddings)
	assert.Equal(t, 2, stats.Dimension, "dimension lock survives a rebuild")

	titles, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, titles)
}

func TestDocumentDeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	seedStore(t, store)

	_, err := store.db.ExecContext(ctx, "DELETE FROM documents WHERE document_identifier = ?", "leave_policy")
	require.NoError(t, err)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Documents)
	assert.Equal(t, 1, stats.Chunks)
	assert.Equal(t, 1, stats.Embeddings)
}

func TestMigrations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Applying again is a no-op
	require.NoError(t, ApplyMigrations(ctx, store.db, sqliteDialect))

	require.NoError(t, RollbackMigration(ctx, store.db, sqliteDialect))
	current, err := currentVersion(ctx, store.db, sqliteDialect)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", current.String())

	require.NoError(t, RollbackMigration(ctx, store.db, sqliteDialect))
	current, err = currentVersion(ctx, store.db, sqliteDialect)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0", current.String())

	assert.Error(t, RollbackMigration(ctx, store.db, sqliteDialect))

	require.NoError(t, ApplyMigrations(ctx, store.db, sqliteDialect))
	current, err = currentVersion(ctx, store.db, sqliteDialect)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, current.String())
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("POLICYINDEX_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("POLICYINDEX_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	store, err := Open(ctx, url)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	assert.Equal(t, BackendPostgres, store.Backend())

	require.NoError(t, store.DeleteAll(ctx))
	dim, err := store.Dimension(ctx)
	if err == nil && dim != 2 {
		t.Skipf("database already locked to dimension %d", dim)
	}
	seedStore(t, store)

	results, err := store.SimilarChunks(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "leave_policy_p1_c0", results[0].ChunkID)
	assert.Equal(t, "travel_p1_c0", results[1].ChunkID)

	require.NoError(t, store.DeleteAll(ctx))
}
