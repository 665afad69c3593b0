package chunker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dshills/policyindex/internal/extractor"
	"github.com/dshills/policyindex/internal/source"
	"github.com/dshills/policyindex/pkg/types"
)

const (
	// DefaultChunkSize is the target number of words per chunk
	DefaultChunkSize = 220

	// DefaultOverlap is the number of words repeated between consecutive chunks
	DefaultOverlap = 40
)

// Chunker splits documents into overlapping, sentence-aligned chunks
type Chunker struct {
	chunkSize int
	overlap   int
	segmenter Segmenter
	logger    *slog.Logger

	// readerFor resolves page readers; replaced in tests
	readerFor func(path string) (source.Reader, error)
}

// Option configures a Chunker
type Option func(*Chunker)

// WithChunkSize sets the word budget per chunk. Non-positive values are ignored.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap in words. Negative values are ignored.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// WithSegmenter replaces the sentence segmenter
func WithSegmenter(s Segmenter) Option {
	return func(c *Chunker) {
		if s != nil {
			c.segmenter = s
		}
	}
}

// WithLogger sets the logger used for skipped documents
func WithLogger(l *slog.Logger) Option {
	return func(c *Chunker) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Chunker
func New(opts ...Option) *Chunker {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
		segmenter: RegexSegmenter{},
		logger:    slog.Default(),
		readerFor: source.ReaderFor,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkSize returns the configured word budget
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap
func (c *Chunker) Overlap() int { return c.overlap }

// DocumentError records a document that could not be chunked
type DocumentError struct {
	Document types.Document
	Err      error
}

func (e DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Document.SourcePath, e.Err)
}

func (e DocumentError) Unwrap() error { return e.Err }

// ChunkDocuments chunks each document independently. Documents that fail
// are logged, skipped and reported; the returned error is non-nil only when
// ctx is done.
func (c *Chunker) ChunkDocuments(ctx context.Context, docs []types.Document) ([]types.Chunk, []DocumentError, error) {
	var chunks []types.Chunk
	var failures []DocumentError

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return chunks, failures, err
		}

		docChunks, err := c.ChunkDocument(ctx, doc)
		if err != nil {
			if ctx.Err() != nil {
				return chunks, failures, ctx.Err()
			}
			c.logger.Warn("failed to parse document", "path", doc.SourcePath, "error", err)
			failures = append(failures, DocumentError{Document: doc, Err: err})
			continue
		}
		chunks = append(chunks, docChunks...)
	}
	return chunks, failures, nil
}

// ChunkDocument reads, cleans and chunks a single document
func (c *Chunker) ChunkDocument(ctx context.Context, doc types.Document) ([]types.Chunk, error) {
	reader, err := c.readerFor(doc.SourcePath)
	if err != nil {
		return nil, err
	}
	pages, err := reader.ReadPages(ctx, doc.SourcePath)
	if err != nil {
		return nil, err
	}

	var chunks []types.Chunk
	for _, page := range extractor.Extract(pages) {
		for idx, text := range c.ChunkText(page.Text) {
			chunks = append(chunks, types.Chunk{
				ChunkID:    types.ChunkID(doc.ID, page.Number, idx),
				DocumentID: doc.ID,
				Title:      doc.Title,
				PageNumber: page.Number,
				ChunkIndex: idx,
				Text:       text,
			})
		}
	}
	return chunks, nil
}

// ChunkText splits text into windows of whole sentences holding at most
// chunkSize words, except that a single longer sentence forms its own
// chunk. Consecutive windows share roughly overlap words and every window
// starts at least one sentence after the previous one.
func (c *Chunker) ChunkText(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sentences := c.segmenter.Split(text)
	if len(sentences) == 0 {
		return []string{text}
	}

	words := make([]int, len(sentences))
	for i, s := range sentences {
		words[i] = max(len(strings.Fields(s)), 1)
	}

	var chunks []string
	total := len(sentences)
	start := 0
	for start < total {
		prevStart := start
		count := 0
		end := start
		for end < total {
			if end > start && count+words[end] > c.chunkSize {
				break
			}
			count += words[end]
			end++
		}

		chunks = append(chunks, strings.Join(sentences[start:end], " "))
		if end >= total {
			break
		}

		next := end
		remaining := c.overlap
		for next > prevStart && remaining > 0 {
			next--
			remaining -= words[next]
		}
		start = max(next, prevStart+1)
		if start >= end {
			if end-1 > prevStart {
				start = end - 1
			} else {
				start = end
			}
		}
	}
	return chunks
}
