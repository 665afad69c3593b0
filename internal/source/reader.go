package source

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned by ReaderFor for unknown extensions
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Page is the raw content of one page. Number is 1-based.
type Page struct {
	Number int
	Lines  []string
	Tables [][][]string // tables -> rows -> cells
}

// Reader extracts the pages of a document
type Reader interface {
	ReadPages(ctx context.Context, path string) ([]Page, error)
}

// ReaderFor returns the Reader for path based on its extension
func ReaderFor(path string) (Reader, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return PDFReader{}, nil
	case ".txt":
		return TextReader{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}
