// Package loader holds the layout analysis shared by the PDF backends: positioned
// glyphs become lines and words, ruling segments become cell grids, column gaps
// become borderless tables, and raw text becomes a pseudo-table when nothing else
// is found.
package loader

import (
	"crypto/sha1"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/google/uuid"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// Backend names.
const (
	Ruled  = "ruled"
	Layout = "layout"
	Grid   = "grid"
)

// DefaultOrder is the auto-mode backend priority.
var DefaultOrder = []string{Ruled, Layout, Grid}

// Glyph is a run of text at a position on a page. Y grows upwards as in PDF user
// space.
type Glyph struct {
	X, Y float64
	W    float64
	Size float64
	S    string
}

// Segment is a ruling line or a filled rectangle.
type Segment struct {
	X0, Y0, X1, Y1 float64
}

// Horizontal reports whether s is a thin horizontal rule.
func (s Segment) Horizontal() bool {
	return s.Y1-s.Y0 <= 2 && s.X1-s.X0 > 10
}

// Vertical reports whether s is a thin vertical rule.
func (s Segment) Vertical() bool {
	return s.X1-s.X0 <= 2 && s.Y1-s.Y0 > 5
}

// Page is the positioned content of one page.
type Page struct {
	Number int
	Glyphs []Glyph
	Rules  []Segment
}

// TableFinder turns the lines of one page into tables.
type TableFinder func(p Page, lines []Line) []api.Table

// DocumentID derives a stable document identifier from the PDF bytes.
func DocumentID(data []byte) string {
	return uuid.NewHash(sha1.New(), uuid.NameSpaceOID, data, 5).String()
}

// Assemble builds a Document from analyzed pages. finders are tried in order per
// page and the first that yields tables wins. Headers are synthesized where the
// finder produced placeholders, and when no page yields a table the text-line
// fallback is applied to the whole text.
func Assemble(backend string, data []byte, pages []Page, finders ...TableFinder) *api.Document {
	var text strings.Builder
	var tables []api.Table

	for _, p := range pages {
		lines := BuildLines(p.Glyphs)
		for _, l := range lines {
			text.WriteString(l.Text())
			text.WriteByte('\n')
		}

		for _, find := range finders {
			found := find(p, lines)
			if len(found) == 0 {
				continue
			}
			for _, t := range found {
				tables = append(tables, SynthesizeHeaders(decodeTable(t)))
			}
			break
		}
	}

	decoded := textnorm.DecodeGlyphs(text.String())
	if len(tables) == 0 {
		if t, ok := TextLineTable(decoded); ok {
			tables = append(tables, t)
		}
	}

	info := api.DocumentInfo{ID: DocumentID(data), Backend: backend, Pages: len(pages)}
	return api.NewDocument(info, decoded, tables)
}

// FromText builds a Document from plain text alone, applying the text-line
// fallback.
func FromText(backend string, data []byte, pages int, text string) *api.Document {
	decoded := textnorm.DecodeGlyphs(text)
	var tables []api.Table
	if t, ok := TextLineTable(decoded); ok {
		tables = append(tables, t)
	}
	info := api.DocumentInfo{ID: DocumentID(data), Backend: backend, Pages: pages}
	return api.NewDocument(info, decoded, tables)
}

func decodeTable(t api.Table) api.Table {
	headers := t.Headers()
	for i, h := range headers {
		headers[i] = textnorm.CollapseSpaces(textnorm.DecodeGlyphs(h))
	}
	rows := t.Rows()
	for _, row := range rows {
		for i, c := range row {
			row[i] = textnorm.CollapseSpaces(textnorm.DecodeGlyphs(c))
		}
	}
	return api.NewTable(headers, rows)
}

// Guard runs load and converts a panic raised by a PDF library into a LoadError.
func Guard(backend string, logger *slog.Logger, load func() (*api.Document, error)) (doc *api.Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Debug("backend panicked", "backend", backend, "panic", r, "stack", string(debug.Stack()))
			doc, err = nil, &api.LoadError{Backend: backend, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	doc, err = load()
	if err != nil {
		return nil, &api.LoadError{Backend: backend, Err: err}
	}
	return doc, nil
}
