// Package orchestrator runs one statement through the extraction pipeline:
// backend selection, extractor resolution, extraction and diagnostics.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/diagnostics"
	"github.com/ArionMiles/stmtx/pkg/engine"
	"github.com/ArionMiles/stmtx/pkg/extractor"
)

// Config holds pipeline options.
type Config struct {
	// Forced bypasses detection and always extracts with this extractor.
	Forced *extractor.Entry
	// RejectionThreshold is passed to diagnostics.
	RejectionThreshold float64
}

// Result is the outcome of one statement.
type Result struct {
	Source     string              `json:"source,omitempty"`
	DocumentID string              `json:"document_id"`
	Backend    string              `json:"backend"`
	Extractor  string              `json:"extractor"`
	Origin     api.Origin          `json:"origin"`
	Attempts   []api.Attempt       `json:"attempts"`
	Extraction *api.Extraction     `json:"extraction"`
	Report     *diagnostics.Report `json:"diagnostics"`
	Duration   time.Duration       `json:"-"`
}

// Pipeline extracts statements. It holds no per-statement state and is safe
// for concurrent use.
type Pipeline struct {
	selector *engine.Selector
	registry *extractor.Registry
	cfg      Config
	logger   *slog.Logger
}

// New creates a pipeline.
func New(selector *engine.Selector, registry *extractor.Registry, cfg Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		selector: selector,
		registry: registry,
		cfg:      cfg,
		logger:   logger.With("component", "pipeline"),
	}
}

// Run extracts one statement from data. source names the input in logs and
// output. The returned error is an *api.UnsupportedFormatError when no backend
// or extractor applies.
func (p *Pipeline) Run(ctx context.Context, source string, data []byte) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	logger := p.logger.With("source", source)

	doc, attempts, err := p.selector.Load(data)
	if err != nil {
		return nil, err
	}

	entry, err := p.resolve(doc)
	if err != nil {
		logger.Warn("no extractor matched", "backend", doc.Backend(), "error", err)
		return nil, err
	}

	extraction, err := entry.Extractor.Extract(doc)
	if err != nil {
		return nil, fmt.Errorf("extracting with %s: %w", entry.Name(), err)
	}

	opts := diagnostics.Options{
		Text:               doc.Text(),
		RejectionThreshold: p.cfg.RejectionThreshold,
		Backend:            doc.Backend(),
		Extractor:          entry.Name(),
		Tables:             doc.NumTables(),
	}
	if src, ok := entry.Extractor.(diagnostics.SubtotalSource); ok {
		opts.Subtotals = src.SubtotalPatterns()
	}
	report := diagnostics.Analyze(extraction, opts)

	res := &Result{
		Source:     source,
		DocumentID: doc.ID(),
		Backend:    doc.Backend(),
		Extractor:  entry.Name(),
		Origin:     entry.Origin,
		Attempts:   attempts,
		Extraction: extraction,
		Report:     report,
		Duration:   time.Since(start),
	}

	logger.Info("statement extracted",
		"backend", res.Backend,
		"extractor", res.Extractor,
		"transactions", len(extraction.Transactions),
		"rejected", len(extraction.Rejected),
		"duration", res.Duration,
	)
	for _, issue := range report.Issues {
		logger.Warn("diagnostic", "code", issue.Code, "severity", issue.Severity, "message", issue.Message)
	}
	return res, nil
}

func (p *Pipeline) resolve(doc *api.Document) (extractor.Entry, error) {
	if p.cfg.Forced != nil {
		return *p.cfg.Forced, nil
	}
	return p.registry.Resolve(doc)
}
