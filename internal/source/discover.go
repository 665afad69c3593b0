package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dshills/policyindex/pkg/types"
)

// SupportedExtensions lists the lowercase file extensions Discover accepts
var SupportedExtensions = []string{".pdf", ".txt"}

// IsSupported reports whether path has a supported extension (case-insensitive)
func IsSupported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Discover lists supported documents directly inside dir. Subdirectories are
// not walked. An empty result is not an error.
func Discover(dir string) ([]types.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !IsSupported(entry.Name()) {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	docs := make([]types.Document, 0, len(names))
	for _, name := range names {
		docs = append(docs, types.NewDocument(filepath.Join(dir, name)))
	}
	return docs, nil
}
