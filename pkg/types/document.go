package types

import (
	"path/filepath"
	"regexp"
	"strings"
)

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Document describes a source file discovered for ingestion
type Document struct {
	ID         string // Normalized file stem
	Title      string // Original file name
	SourcePath string
}

// DocumentID derives a stable identifier from a file name.
// The extension is dropped, the stem lowercased, and every run of
// non-alphanumeric characters collapsed to a single underscore.
func DocumentID(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	id := nonAlphanumeric.ReplaceAllString(strings.ToLower(stem), "_")
	return strings.Trim(id, "_")
}

// NewDocument builds a Document for the file at path
func NewDocument(path string) Document {
	name := filepath.Base(path)
	return Document{
		ID:         DocumentID(name),
		Title:      name,
		SourcePath: path,
	}
}
