// Package grid implements the last-resort backend. It reads raw page content
// streams through github.com/pdfcpu/pdfcpu, rebuilds text positions and ruling
// from the operators, and detects cell grids or column gaps from them.
package grid

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"sync"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/loader"
)

var disableConfigDir sync.Once

// Loader detects grids from raw content streams.
type Loader struct {
	logger *slog.Logger
}

// New creates a grid loader.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	disableConfigDir.Do(pdfapi.DisableConfigDir)
	return &Loader{logger: logger.With("backend", loader.Grid)}
}

// Name returns the backend name.
func (l *Loader) Name() string { return loader.Grid }

// Load parses data. Pages whose content cannot be extracted are skipped.
func (l *Loader) Load(data []byte) (*api.Document, error) {
	return loader.Guard(loader.Grid, l.logger, func() (*api.Document, error) {
		ctx, err := pdfapi.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
		if err != nil {
			return nil, fmt.Errorf("pdfcpu read: %w", err)
		}

		pages := make([]loader.Page, 0, ctx.PageCount)
		for nr := 1; nr <= ctx.PageCount; nr++ {
			r, err := pdfcpu.ExtractPageContent(ctx, nr)
			if err != nil || r == nil {
				l.logger.Debug("skipping page", "page", nr, "error", err)
				continue
			}
			content, err := io.ReadAll(r)
			if err != nil {
				l.logger.Debug("skipping page", "page", nr, "error", err)
				continue
			}
			glyphs, rules := interpret(content)
			pages = append(pages, loader.Page{Number: nr, Glyphs: glyphs, Rules: rules})
		}

		return loader.Assemble(loader.Grid, data, pages, loader.RuledTables, loader.ColumnTables), nil
	})
}
