// Package ruled implements the structured-table backend for statements drawn
// with ruling lines and cell boxes, on top of github.com/ledongthuc/pdf.
package ruled

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/loader"
)

// Loader reads ruled tables from a PDF.
type Loader struct {
	logger *slog.Logger
}

// New creates a ruled-table loader.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With("backend", loader.Ruled)}
}

// Name returns the backend name.
func (l *Loader) Name() string { return loader.Ruled }

// Load parses data. A PDF without ruled tables yields the text-line fallback or
// a Document with zero tables.
func (l *Loader) Load(data []byte) (*api.Document, error) {
	return loader.Guard(loader.Ruled, l.logger, func() (*api.Document, error) {
		r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("opening pdf: %w", err)
		}

		n := r.NumPage()
		pages := make([]loader.Page, 0, n)
		for i := 1; i <= n; i++ {
			p := r.Page(i)
			if p.V.IsNull() {
				continue
			}
			pages = append(pages, readPage(i, p.Content()))
		}

		l.logger.Debug("read pages", "pages", len(pages))
		return loader.Assemble(loader.Ruled, data, pages, loader.RuledTables), nil
	})
}

func readPage(number int, c pdf.Content) loader.Page {
	page := loader.Page{Number: number}
	for _, t := range c.Text {
		page.Glyphs = append(page.Glyphs, loader.Glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}
	for _, r := range c.Rect {
		page.Rules = append(page.Rules, loader.Segment{
			X0: min(r.Min.X, r.Max.X), Y0: min(r.Min.Y, r.Max.Y),
			X1: max(r.Min.X, r.Max.X), Y1: max(r.Min.Y, r.Max.Y),
		})
	}
	return page
}
