package source

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// TextReader reads plain text files. Form feeds separate pages. A line
// containing a tab is a table row with tab-separated cells; all rows of a
// page form a single table.
type TextReader struct{}

// ReadPages reads path and splits it into pages
func (TextReader) ReadPages(ctx context.Context, path string) ([]Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text %s: %w", path, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ParseText(string(data)), nil
}

// ParseText splits raw text into pages
func ParseText(content string) []Page {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	raw := strings.Split(content, "\f")

	pages := make([]Page, 0, len(raw))
	for i, body := range raw {
		page := Page{Number: i + 1}
		var table [][]string
		for _, line := range strings.Split(body, "\n") {
			if strings.Contains(line, "\t") {
				table = append(table, strings.Split(line, "\t"))
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			page.Lines = append(page.Lines, line)
		}
		if len(table) > 0 {
			page.Tables = [][][]string{table}
		}
		pages = append(pages, page)
	}
	return pages
}
