package types

import "errors"

// Domain errors for type validation
var (
	ErrInvalidChunkID  = errors.New("invalid chunk ID")
	ErrMissingDocument = errors.New("document ID is required")
	ErrEmptyContent    = errors.New("content cannot be empty")
)
