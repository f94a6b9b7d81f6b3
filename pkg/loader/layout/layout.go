// Package layout implements the borderless, multi-column backend on top of
// github.com/dslipak/pdf. Columns are recovered from the gaps between glyph runs.
package layout

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/dslipak/pdf"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/loader"
)

// Loader reads borderless tables from a PDF.
type Loader struct {
	logger *slog.Logger
}

// New creates a layout loader.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With("backend", loader.Layout)}
}

// Name returns the backend name.
func (l *Loader) Name() string { return loader.Layout }

// Load parses data. When no positioned glyphs can be read the library's plain
// text is used with the text-line fallback.
func (l *Loader) Load(data []byte) (*api.Document, error) {
	return loader.Guard(loader.Layout, l.logger, func() (*api.Document, error) {
		r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, fmt.Errorf("opening pdf: %w", err)
		}

		n := r.NumPage()
		pages := make([]loader.Page, 0, n)
		glyphs := 0
		for i := 1; i <= n; i++ {
			p := r.Page(i)
			if p.V.IsNull() {
				continue
			}
			page := loader.Page{Number: i}
			for _, t := range p.Content().Text {
				page.Glyphs = append(page.Glyphs, loader.Glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
			}
			glyphs += len(page.Glyphs)
			pages = append(pages, page)
		}

		if glyphs > 0 {
			return loader.Assemble(loader.Layout, data, pages, loader.ColumnTables), nil
		}

		l.logger.Debug("no positioned glyphs, using plain text")
		text, err := plainText(r)
		if err != nil {
			return nil, err
		}
		return loader.FromText(loader.Layout, data, len(pages), text), nil
	})
}

func plainText(r *pdf.Reader) (string, error) {
	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rd); err != nil {
		return "", fmt.Errorf("reading text: %w", err)
	}
	return buf.String(), nil
}
