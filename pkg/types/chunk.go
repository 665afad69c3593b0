package types

import (
	"errors"
	"fmt"
	"strings"
)

// Chunk is a sentence-aligned excerpt of one page of a document
type Chunk struct {
	// Identification
	ChunkID    string
	DocumentID string
	Title      string

	// Location
	PageNumber int // 1-based
	ChunkIndex int // 0-based within the page

	// Content
	Text string
}

// ChunkID returns the deterministic identifier for a chunk
func ChunkID(documentID string, page, index int) string {
	return fmt.Sprintf("%s_p%d_c%d", documentID, page, index)
}

// Validate checks that the chunk can be persisted
func (c *Chunk) Validate() error {
	if c.ChunkID == "" {
		return ErrInvalidChunkID
	}
	if c.DocumentID == "" {
		return ErrMissingDocument
	}
	if c.PageNumber <= 0 {
		return errors.New("page number must be positive")
	}
	if c.ChunkIndex < 0 {
		return errors.New("chunk index must not be negative")
	}
	if strings.TrimSpace(c.Text) == "" {
		return ErrEmptyContent
	}
	return nil
}
