package storage

import (
	"context"
	"errors"

	"github.com/dshills/policyindex/pkg/types"
)

var (
	// ErrDimensionUnknown is returned when no embedding dimension has been recorded yet
	ErrDimensionUnknown = errors.New("embedding dimension is unknown; build the index first or provide a value")
	// ErrDimensionMismatch is returned when a vector length differs from the recorded dimension
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrCountMismatch is returned when chunks and vectors are not paired one to one
	ErrCountMismatch = errors.New("embeddings and chunk counts do not match")
	// ErrOrphanChunk is returned when a chunk references a document not being stored
	ErrOrphanChunk = errors.New("chunk references unknown document")
)

// DimensionKey is the embedding_metadata key holding the locked vector length
const DimensionKey = "embedding_dimension"

// Store persists documents, chunks and their embeddings and answers
// similarity queries over them
type Store interface {
	// EnsureSchema creates missing tables and locks the embedding dimension.
	// dim <= 0 means the caller does not know the dimension.
	EnsureSchema(ctx context.Context, dim int) error

	// Dimension returns the locked embedding dimension
	Dimension(ctx context.Context) (int, error)

	// StoreChunks upserts documents, chunks and vectors in one transaction.
	// vectors[i] is the embedding of chunks[i].
	StoreChunks(ctx context.Context, docs []types.Document, chunks []types.Chunk, vectors [][]float32) error

	// ListDocuments returns the titles of stored documents ordered by title
	ListDocuments(ctx context.Context) ([]string, error)

	// SimilarChunks returns the topK chunks most similar to query, best first
	SimilarChunks(ctx context.Context, query []float32, topK int) ([]types.RetrievedChunk, error)

	// DeleteAll removes every embedding, chunk and document
	DeleteAll(ctx context.Context) error

	// Stats returns row counts and the locked dimension
	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// Stats summarizes the stored index
type Stats struct {
	Backend    string // "sqlite" or "postgres"
	Documents  int
	Chunks     int
	Embeddings int
	Dimension  int // 0 when unknown
}
