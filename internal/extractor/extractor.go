// Package extractor turns raw document pages into cleaned page text.
//
// Lines that repeat at the top or bottom of most pages (running headers and
// footers) are treated as boilerplate and removed everywhere they occur,
// together with bare page numbers and divider lines. The remaining text is
// normalized so that typographic punctuation and whitespace do not affect
// chunking or embeddings.
package extractor

import (
	"regexp"
	"strings"

	"github.com/dshills/policyindex/internal/source"
)

// BoilerplateThreshold is the minimum fraction of pages a header or footer
// line must appear on to be removed
const BoilerplateThreshold = 0.6

// edgeLines is how many lines at each end of a page are header/footer candidates
const edgeLines = 3

var (
	pageNumberPattern = regexp.MustCompile(`(?i)^(page\s*)?\d{1,4}[a-z]*$`)
	dividerPattern    = regexp.MustCompile(`^[-_–—•\s]*$`)

	punctuation = strings.NewReplacer(
		"–", "-", "—", "-",
		"“", `"`, "”", `"`,
		"‘", "'", "’", "'",
	)
)

// CleanPage is the normalized text of one page
type CleanPage struct {
	Number int
	Text   string
}

// Extract cleans pages in order. Pages left empty after cleaning are omitted.
func Extract(pages []source.Page) []CleanPage {
	if len(pages) == 0 {
		return nil
	}

	lines := make([][]string, len(pages))
	for i, p := range pages {
		lines[i] = PageLines(p)
	}
	boilerplate := DetectBoilerplate(lines)

	var out []CleanPage
	for i, p := range pages {
		kept := filterLines(lines[i], boilerplate)
		text := Normalize(strings.Join(kept, "\n"))
		if text == "" {
			continue
		}
		out = append(out, CleanPage{Number: p.Number, Text: text})
	}
	return out
}

// PageLines flattens a page into trimmed, non-empty lines: body lines first,
// then table rows rendered as "cell | cell"
func PageLines(p source.Page) []string {
	var lines []string
	for _, raw := range p.Lines {
		for _, line := range strings.Split(raw, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	for _, table := range p.Tables {
		for _, row := range table {
			if line := renderRow(row); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines
}

// renderRow joins trimmed cells; rows without any content render empty
func renderRow(row []string) string {
	cells := make([]string, len(row))
	hasContent := false
	for i, cell := range row {
		cells[i] = strings.TrimSpace(cell)
		if cells[i] != "" {
			hasContent = true
		}
	}
	if !hasContent {
		return ""
	}
	return strings.TrimSpace(strings.Join(cells, " | "))
}

// DetectBoilerplate returns the set of lines that appear among the first or
// last edge lines of at least BoilerplateThreshold of the pages. Header and
// footer positions are counted separately. A single page has nothing to
// repeat, so it never yields boilerplate.
func DetectBoilerplate(pages [][]string) map[string]struct{} {
	boilerplate := make(map[string]struct{})
	if len(pages) < 2 {
		return boilerplate
	}

	headers := make(map[string]int)
	footers := make(map[string]int)
	for _, lines := range pages {
		head := lines
		if len(head) > edgeLines {
			head = head[:edgeLines]
		}
		for _, line := range head {
			headers[line]++
		}

		foot := lines
		if len(foot) > edgeLines {
			foot = foot[len(foot)-edgeLines:]
		}
		for _, line := range foot {
			footers[line]++
		}
	}

	total := float64(len(pages))
	for _, counts := range []map[string]int{headers, footers} {
		for line, n := range counts {
			if float64(n)/total >= BoilerplateThreshold {
				boilerplate[line] = struct{}{}
			}
		}
	}
	return boilerplate
}

func filterLines(lines []string, boilerplate map[string]struct{}) []string {
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, ok := boilerplate[line]; ok {
			continue
		}
		if IsPageNumber(line) || IsDivider(line) {
			continue
		}
		kept = append(kept, line)
	}
	return kept
}

// IsPageNumber matches lines such as "12", "Page 3" or "4a"
func IsPageNumber(line string) bool {
	return pageNumberPattern.MatchString(line)
}

// IsDivider matches lines made only of dashes, underscores, bullets or spaces
func IsDivider(line string) bool {
	return dividerPattern.MatchString(line)
}

// Normalize replaces typographic dashes and quotes with ASCII, collapses
// every whitespace run to one space and trims the result
func Normalize(text string) string {
	return strings.Join(strings.Fields(punctuation.Replace(text)), " ")
}
