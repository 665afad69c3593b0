package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dshills/policyindex/pkg/types"
)

// Backend names reported by Stats
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// SQLStore implements Store on database/sql for SQLite and PostgreSQL
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

var _ Store = (*SQLStore)(nil)

// newSQLStore applies migrations and wraps db
func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	if err := ApplyMigrations(ctx, db, d); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Backend returns the backend name
func (s *SQLStore) Backend() string {
	return s.dialect.name
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing when fn succeeds
func (s *SQLStore) withTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Dimension operations

func (s *SQLStore) EnsureSchema(ctx context.Context, dim int) error {
	if err := ApplyMigrations(ctx, s.db, s.dialect); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s.withTx(ctx, func(q querier) error {
		stored, err := s.dimensionWithQuerier(ctx, q)
		switch {
		case errors.Is(err, ErrDimensionUnknown):
			if dim <= 0 {
				return ErrDimensionUnknown
			}
			_, err := q.ExecContext(ctx, s.dialect.rebind(
				"INSERT INTO embedding_metadata (key, value) VALUES (?, ?)"), DimensionKey, dim)
			if err != nil {
				return fmt.Errorf("failed to record embedding dimension: %w", err)
			}
			return nil
		case err != nil:
			return err
		case dim > 0 && stored != dim:
			return fmt.Errorf("%w: existing embedding dimension %d does not match %d", ErrDimensionMismatch, stored, dim)
		}
		return nil
	})
}

func (s *SQLStore) Dimension(ctx context.Context) (int, error) {
	return s.dimensionWithQuerier(ctx, s.db)
}

// dimensionWithQuerier is the internal implementation that uses a querier
func (s *SQLStore) dimensionWithQuerier(ctx context.Context, q querier) (int, error) {
	var dim int
	err := q.QueryRowContext(ctx, s.dialect.rebind(
		"SELECT value FROM embedding_metadata WHERE key = ?"), DimensionKey).Scan(&dim)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrDimensionUnknown
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read embedding dimension: %w", err)
	}
	return dim, nil
}

// Write operations

func (s *SQLStore) StoreChunks(ctx context.Context, docs []types.Document, chunks []types.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrCountMismatch, len(chunks), len(vectors))
	}

	known := make(map[string]struct{}, len(docs))
	for _, doc := range docs {
		known[doc.ID] = struct{}{}
	}
	for _, chunk := range chunks {
		if err := chunk.Validate(); err != nil {
			return fmt.Errorf("invalid chunk %q: %w", chunk.ChunkID, err)
		}
		if _, ok := known[chunk.DocumentID]; !ok {
			return fmt.Errorf("%w: chunk %s references %q", ErrOrphanChunk, chunk.ChunkID, chunk.DocumentID)
		}
	}

	return s.withTx(ctx, func(q querier) error {
		dim, err := s.dimensionWithQuerier(ctx, q)
		if err != nil {
			return err
		}

		encoded := make([]any, len(vectors))
		for i, vec := range vectors {
			if len(vec) != dim {
				return fmt.Errorf("%w: chunk %s has %d values, expected %d", ErrDimensionMismatch, chunks[i].ChunkID, len(vec), dim)
			}
			if encoded[i], err = s.dialect.codec.Encode(vec); err != nil {
				return err
			}
		}

		docIDs := make(map[string]int64, len(docs))
		for _, doc := range docs {
			id, err := s.upsertDocumentWithQuerier(ctx, q, doc)
			if err != nil {
				return err
			}
			docIDs[doc.ID] = id
		}

		for i, chunk := range chunks {
			if err := s.upsertChunkWithQuerier(ctx, q, docIDs[chunk.DocumentID], chunk); err != nil {
				return err
			}
			if err := s.upsertEmbeddingWithQuerier(ctx, q, chunk.ChunkID, encoded[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// upsertDocumentWithQuerier inserts or refreshes a document and returns its row id
func (s *SQLStore) upsertDocumentWithQuerier(ctx context.Context, q querier, doc types.Document) (int64, error) {
	query := `
		INSERT INTO documents (document_identifier, title, source_path)
		VALUES (?, ?, ?)
		ON CONFLICT(document_identifier) DO UPDATE SET
			title = excluded.title,
			source_path = excluded.source_path
		RETURNING id
	`
	var id int64
	if err := q.QueryRowContext(ctx, s.dialect.rebind(query), doc.ID, doc.Title, doc.SourcePath).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
	}
	return id, nil
}

// upsertChunkWithQuerier inserts or refreshes a chunk by its chunk id
func (s *SQLStore) upsertChunkWithQuerier(ctx context.Context, q querier, documentRowID int64, chunk types.Chunk) error {
	query := `
		INSERT INTO chunks (document_id, chunk_id, content, page_number, chunk_index)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			content = excluded.content,
			page_number = excluded.page_number,
			chunk_index = excluded.chunk_index
	`
	_, err := q.ExecContext(ctx, s.dialect.rebind(query),
		documentRowID, chunk.ChunkID, chunk.Text, chunk.PageNumber, chunk.ChunkIndex)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk %s: %w", chunk.ChunkID, err)
	}
	return nil
}

// upsertEmbeddingWithQuerier inserts or replaces the vector of a chunk
func (s *SQLStore) upsertEmbeddingWithQuerier(ctx context.Context, q querier, chunkID string, vector any) error {
	query := `
		INSERT INTO embeddings (chunk_id, embedding)
		VALUES (?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			embedding = excluded.embedding
	`
	if _, err := q.ExecContext(ctx, s.dialect.rebind(query), chunkID, vector); err != nil {
		return fmt.Errorf("failed to upsert embedding %s: %w", chunkID, err)
	}
	return nil
}

func (s *SQLStore) DeleteAll(ctx context.Context) error {
	return s.withTx(ctx, func(q querier) error {
		for _, table := range []string{"embeddings", "chunks", "documents"} {
			if _, err := q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}

// Read operations

func (s *SQLStore) ListDocuments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT title FROM documents ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	titles := make([]string, 0)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}

func (s *SQLStore) SimilarChunks(ctx context.Context, query []float32, topK int) ([]types.RetrievedChunk, error) {
	if topK <= 0 {
		return []types.RetrievedChunk{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.document_identifier, d.title, c.chunk_id, c.page_number, c.chunk_index, c.content, e.embedding
		FROM chunks c
		INNER JOIN documents d ON c.document_id = d.id
		INNER JOIN embeddings e ON e.chunk_id = c.chunk_id
		ORDER BY c.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	chunks, candidates, err := s.scoreRows(rows, query)
	if err != nil {
		return nil, err
	}
	sortCandidates(candidates)

	limit := min(topK, len(candidates))
	results := make([]types.RetrievedChunk, limit)
	for i := 0; i < limit; i++ {
		results[i] = chunks[candidates[i].index]
		results[i].Similarity = candidates[i].score
	}
	return results, nil
}

// scoreRows decodes every row and computes its similarity to query
func (s *SQLStore) scoreRows(rows *sql.Rows, query []float32) ([]types.RetrievedChunk, []candidate, error) {
	var chunks []types.RetrievedChunk
	var candidates []candidate

	for rows.Next() {
		var rc types.RetrievedChunk
		var page, index sql.NullInt64
		var raw any
		if err := rows.Scan(&rc.DocumentID, &rc.Title, &rc.ChunkID, &page, &index, &rc.Text, &raw); err != nil {
			return nil, nil, fmt.Errorf("failed to scan result: %w", err)
		}
		rc.PageNumber = int(page.Int64)
		rc.ChunkIndex = int(index.Int64)

		vec, err := s.dialect.codec.Decode(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("chunk %s: %w", rc.ChunkID, err)
		}

		candidates = append(candidates, candidate{index: len(chunks), score: cosineSimilarity(query, vec)})
		chunks = append(chunks, rc)
	}
	return chunks, candidates, rows.Err()
}

// Status operations

func (s *SQLStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Backend: s.dialect.name}

	counts := []struct {
		table string
		dest  *int
	}{
		{"documents", &stats.Documents},
		{"chunks", &stats.Chunks},
		{"embeddings", &stats.Embeddings},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.table, err)
		}
	}

	dim, err := s.Dimension(ctx)
	switch {
	case errors.Is(err, ErrDimensionUnknown):
		stats.Dimension = 0
	case err != nil:
		return nil, err
	default:
		stats.Dimension = dim
	}
	return stats, nil
}
