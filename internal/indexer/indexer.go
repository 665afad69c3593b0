package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/policyindex/internal/chunker"
	"github.com/dshills/policyindex/internal/embedder"
	"github.com/dshills/policyindex/internal/logger"
	"github.com/dshills/policyindex/internal/source"
	"github.com/dshills/policyindex/internal/storage"
	"github.com/dshills/policyindex/pkg/types"
)

var (
	// ErrNoDocuments is returned when the source directory has no supported files
	ErrNoDocuments = errors.New("no source documents found")
	// ErrNoChunks is returned when no document produced any text
	ErrNoChunks = errors.New("no chunks were produced from the source documents")
)

// Indexer coordinates the ingestion pipeline: discover -> chunk -> embed -> store
type Indexer struct {
	store    storage.Store
	embedder embedder.Embedder
	logger   *slog.Logger

	progress Progress
}

// Options controls a single Build run. Zero values fall back to defaults.
type Options struct {
	Dir       string
	ChunkSize int
	Overlap   int  // negative uses the default
	BatchSize int  // texts per embedding request (default: embedder.DefaultBatchSize)
	Workers   int  // concurrent embedding requests (default: runtime.NumCPU())
	Rebuild   bool // delete all stored data before writing
}

// Progress tracks the current build with atomic counters
type Progress struct {
	TotalChunks    atomic.Int32
	EmbeddedChunks atomic.Int32
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	RunID            string // correlates the log lines of one build
	DocumentsFound   int
	DocumentsIndexed int
	DocumentsFailed  int
	ChunksStored     int
	Dimension        int
	Duration         time.Duration
	Errors           []string
}

// New creates a new Indexer instance
func New(store storage.Store, emb embedder.Embedder, log *slog.Logger) *Indexer {
	return &Indexer{
		store:    store,
		embedder: emb,
		logger:   logger.OrDefault(log),
	}
}

// Progress returns embedded and total chunk counts of the running build
func (idx *Indexer) Progress() (embedded, total int) {
	return int(idx.progress.EmbeddedChunks.Load()), int(idx.progress.TotalChunks.Load())
}

// Build indexes every supported document in opts.Dir
func (idx *Indexer) Build(ctx context.Context, opts Options) (*Statistics, error) {
	startTime := time.Now()
	opts = withDefaults(opts)
	idx.progress.TotalChunks.Store(0)
	idx.progress.EmbeddedChunks.Store(0)

	stats := &Statistics{RunID: uuid.NewString()}
	log := idx.logger.With("run_id", stats.RunID)

	docs, err := source.Discover(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents: %w", err)
	}
	stats.DocumentsFound = len(docs)
	if len(docs) == 0 {
		return stats, fmt.Errorf("%w in %s", ErrNoDocuments, opts.Dir)
	}
	log.Info("discovered documents", "dir", opts.Dir, "count", len(docs))

	c := chunker.New(
		chunker.WithChunkSize(opts.ChunkSize),
		chunker.WithOverlap(opts.Overlap),
		chunker.WithLogger(log),
	)
	chunks, failures, err := c.ChunkDocuments(ctx, docs)
	if err != nil {
		return nil, err
	}
	stats.DocumentsFailed = len(failures)
	stats.DocumentsIndexed = len(docs) - len(failures)
	for _, f := range failures {
		stats.Errors = append(stats.Errors, f.Error())
	}
	if len(chunks) == 0 {
		stats.Duration = time.Since(startTime)
		return stats, ErrNoChunks
	}
	idx.progress.TotalChunks.Store(int32(len(chunks)))
	log.Info("chunked documents", "chunks", len(chunks), "failed", len(failures))

	vectors, err := idx.embedChunks(ctx, log, chunks, opts)
	if err != nil {
		return nil, err
	}
	stats.Dimension = len(vectors[0])

	if err := idx.store.EnsureSchema(ctx, stats.Dimension); err != nil {
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}
	if opts.Rebuild {
		log.Info("rebuild requested, deleting existing index")
		if err := idx.store.DeleteAll(ctx); err != nil {
			return nil, fmt.Errorf("failed to clear index: %w", err)
		}
	}
	if err := idx.store.StoreChunks(ctx, indexedDocuments(docs, failures), chunks, vectors); err != nil {
		return nil, fmt.Errorf("failed to store chunks: %w", err)
	}

	stats.ChunksStored = len(chunks)
	stats.Duration = time.Since(startTime)
	log.Info("index build complete",
		"documents", stats.DocumentsIndexed,
		"chunks", stats.ChunksStored,
		"dimension", stats.Dimension,
		"duration", stats.Duration)
	return stats, nil
}

// embedChunks embeds chunk texts in fixed-size batches, up to opts.Workers
// requests at a time. vectors[i] belongs to chunks[i].
func (idx *Indexer) embedChunks(ctx context.Context, log *slog.Logger, chunks []types.Chunk, opts Options) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors := make([][]float32, len(texts))

	semaphore := make(chan struct{}, opts.Workers)
	g, gctx := errgroup.WithContext(ctx)

	for n, batch := range embedder.Batches(texts, opts.BatchSize) {
		batch := batch
		offset := n * opts.BatchSize
		g.Go(func() error {
			select {
			case semaphore <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-semaphore }()

			vecs, err := idx.embedder.EmbedBatch(gctx, batch)
			if err != nil {
				return fmt.Errorf("failed to embed batch at chunk %d: %w", offset, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("%w: batch at chunk %d returned %d vectors for %d texts",
					embedder.ErrProviderFailed, offset, len(vecs), len(batch))
			}
			copy(vectors[offset:], vecs)
			idx.progress.EmbeddedChunks.Add(int32(len(vecs)))
			log.Debug("embedded batch", "offset", offset, "size", len(batch))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// indexedDocuments drops the documents the chunker skipped
func indexedDocuments(docs []types.Document, failures []chunker.DocumentError) []types.Document {
	if len(failures) == 0 {
		return docs
	}
	failed := make(map[string]struct{}, len(failures))
	for _, f := range failures {
		failed[f.Document.SourcePath] = struct{}{}
	}
	kept := make([]types.Document, 0, len(docs)-len(failures))
	for _, doc := range docs {
		if _, ok := failed[doc.SourcePath]; !ok {
			kept = append(kept, doc)
		}
	}
	return kept
}

func withDefaults(opts Options) Options {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultChunkSize
	}
	if opts.Overlap < 0 {
		opts.Overlap = chunker.DefaultOverlap
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = embedder.DefaultBatchSize
	}
	if opts.BatchSize > embedder.MaxBatchSize {
		opts.BatchSize = embedder.MaxBatchSize
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return opts
}
