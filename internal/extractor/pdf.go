// Package extractor turns statement PDFs into one page-annotated text blob.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/statement-analyzer/internal/logger"
	"github.com/ledongthuc/pdf"
)

var (
	// ErrOpen is returned when the document cannot be parsed as a PDF.
	ErrOpen = errors.New("cannot open PDF")
	// ErrNoText is returned when no page yields any text.
	ErrNoText = errors.New("no text in PDF")
)

const (
	// DefaultCellGap is the horizontal gap, in points, that separates two table cells.
	DefaultCellGap = 12.0
	// rawCharsLimit bounds the diagnostic character dump for pages without text.
	rawCharsLimit = 100
)

// PDFExtractor extracts text with github.com/ledongthuc/pdf.
type PDFExtractor struct {
	CellGap float64
}

// New returns a PDFExtractor with default settings.
func New() *PDFExtractor {
	return &PDFExtractor{CellGap: DefaultCellGap}
}

// Extract returns the text of every page, in page order. Pages with a
// detectable table are rendered as tab-joined rows; other pages fall back to
// positional text and finally to a short raw character dump.
func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (text string, err error) {
	log := logger.FromContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("Extract: %w: PDF library crashed: %v", ErrOpen, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("Extract: %w: %v", ErrOpen, err)
	}

	numPages := r.NumPage()
	pages := make([]Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		page := e.readPage(i, p)
		log.Debug().
			Int("page", i).
			Int("table_rows", len(page.TableRows)).
			Int("text_lines", len(page.Lines)).
			Msg("Extracted page")
		pages = append(pages, page)
	}

	text = Render(pages)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("Extract: %w", ErrNoText)
	}
	return text, nil
}

func (e *PDFExtractor) readPage(number int, p pdf.Page) Page {
	page := Page{Number: number}

	if rows, err := p.GetTextByRow(); err == nil {
		cells := make([][]string, 0, len(rows))
		for _, row := range rows {
			if c := SplitCells(row.Content, e.CellGap); len(c) > 0 {
				cells = append(cells, c)
			}
		}
		if IsTable(cells) {
			page.TableRows = cells
		}
	}

	content := p.Content()
	page.Lines = GroupLines(content.Text)

	if len(page.TableRows) == 0 && len(page.Lines) == 0 {
		page.RawChars = rawChars(p)
	}
	return page
}

func rawChars(p pdf.Page) string {
	fonts := make(map[string]*pdf.Font)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		fonts[name] = &f
	}
	text, err := p.GetPlainText(fonts)
	if err != nil {
		return ""
	}
	text = strings.TrimSpace(text)
	if r := []rune(text); len(r) > rawCharsLimit {
		text = string(r[:rawCharsLimit])
	}
	return text
}
