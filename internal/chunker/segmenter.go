package chunker

import (
	"unicode"
	"unicode/utf8"

	"github.com/dshills/policyindex/internal/extractor"
)

// Segmenter splits text into sentences
type Segmenter interface {
	Split(text string) []string
}

// RegexSegmenter breaks after '.', '!' or '?' when the following whitespace
// run is followed by an ASCII uppercase letter or digit. Segments are
// normalized and empty segments dropped.
type RegexSegmenter struct{}

// Split implements Segmenter
func (RegexSegmenter) Split(text string) []string {
	var sentences []string
	emit := func(segment string) {
		if s := extractor.Normalize(segment); s != "" {
			sentences = append(sentences, s)
		}
	}

	start := 0
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		i += size
		if r != '.' && r != '!' && r != '?' {
			continue
		}

		end := i
		j := i
		for j < len(text) {
			ws, n := utf8.DecodeRuneInString(text[j:])
			if !unicode.IsSpace(ws) {
				break
			}
			j += n
		}
		if j == end || j >= len(text) || !isSentenceStart(text[j]) {
			continue
		}

		emit(text[start:end])
		start = j
		i = j
	}
	emit(text[start:])
	return sentences
}

func isSentenceStart(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
