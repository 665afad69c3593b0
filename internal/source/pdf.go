package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFReader reads PDF files. Each PDF page becomes one Page whose lines are
// the text rows reported by the PDF library. Tables are never detected.
type PDFReader struct{}

// ReadPages opens path and extracts every page. A page that fails to
// extract yields an empty Page instead of failing the document.
func (PDFReader) ReadPages(ctx context.Context, path string) (pages []Page, err error) {
	// the pdf package panics on some malformed inputs
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("open pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	pages = make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages = append(pages, Page{Number: i, Lines: pageLines(r, i)})
	}
	return pages, nil
}

// pageLines returns the text rows of page i, or nil when the page cannot be read
func pageLines(r *pdf.Reader, i int) (lines []string) {
	defer func() {
		if rec := recover(); rec != nil {
			lines = nil
		}
	}()

	p := r.Page(i)
	if p.V.IsNull() {
		return nil
	}

	rows, err := p.GetTextByRow()
	if err != nil {
		return nil
	}

	for _, row := range rows {
		var b strings.Builder
		for _, word := range row.Content {
			b.WriteString(word.S)
		}
		if line := strings.TrimSpace(b.String()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
