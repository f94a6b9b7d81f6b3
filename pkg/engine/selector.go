// Package engine picks the PDF backend for a statement. Backends are tried in a
// fixed order and the first one that produces tables wins.
package engine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/loader"
	"github.com/ArionMiles/stmtx/pkg/loader/grid"
	"github.com/ArionMiles/stmtx/pkg/loader/layout"
	"github.com/ArionMiles/stmtx/pkg/loader/ruled"
)

// ModeAuto tries every backend in priority order.
const ModeAuto = "auto"

// Config selects the backends to try.
type Config struct {
	// Mode is "auto" or the name of a single backend.
	Mode string `koanf:"mode"`
	// Order overrides the auto priority order.
	Order []string `koanf:"order"`
}

// Loaders returns every available backend.
func Loaders(logger *slog.Logger) []api.Loader {
	return []api.Loader{ruled.New(logger), layout.New(logger), grid.New(logger)}
}

// Selector runs backends in order until one yields a usable document. It is
// sequential and deterministic; a backend is never retried.
type Selector struct {
	loaders map[string]api.Loader
	order   []string
	logger  *slog.Logger
}

// NewSelector validates cfg against the available loaders.
func NewSelector(loaders []api.Loader, cfg Config, logger *slog.Logger) (*Selector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]api.Loader, len(loaders))
	for _, l := range loaders {
		byName[l.Name()] = l
	}

	var order []string
	switch mode := strings.ToLower(strings.TrimSpace(cfg.Mode)); mode {
	case "", ModeAuto:
		order = cfg.Order
		if len(order) == 0 {
			order = loader.DefaultOrder
		}
	default:
		order = []string{mode}
	}

	seen := make(map[string]bool, len(order))
	for _, name := range order {
		if _, ok := byName[name]; !ok {
			return nil, fmt.Errorf("unknown backend %q (available: %s)", name, strings.Join(names(loaders), ", "))
		}
		if seen[name] {
			return nil, fmt.Errorf("backend %q listed twice", name)
		}
		seen[name] = true
	}

	return &Selector{
		loaders: byName,
		order:   append([]string(nil), order...),
		logger:  logger.With("component", "selector"),
	}, nil
}

// Order returns the backends in the order they are tried.
func (s *Selector) Order() []string {
	return append([]string(nil), s.order...)
}

// Load tries each backend on data. A backend error or a document without
// tables moves on to the next backend. When all are exhausted the error is an
// *api.UnsupportedFormatError listing every attempt.
func (s *Selector) Load(data []byte) (*api.Document, []api.Attempt, error) {
	attempts := make([]api.Attempt, 0, len(s.order))
	for _, name := range s.order {
		doc, err := s.loaders[name].Load(data)
		switch {
		case err != nil:
			attempts = append(attempts, api.Attempt{Backend: name, Err: err.Error()})
			s.logger.Warn("backend failed", "backend", name, "error", err)
			continue
		case doc == nil || doc.NumTables() == 0:
			attempts = append(attempts, api.Attempt{Backend: name})
			s.logger.Warn("backend produced no tables", "backend", name)
			continue
		}

		attempts = append(attempts, api.Attempt{Backend: name, Tables: doc.NumTables()})
		s.logger.Info("selected backend", "backend", name, "tables", doc.NumTables(), "attempts", len(attempts))
		return doc, attempts, nil
	}
	return nil, attempts, &api.UnsupportedFormatError{Attempts: attempts}
}

func names(loaders []api.Loader) []string {
	out := make([]string, len(loaders))
	for i, l := range loaders {
		out[i] = l.Name()
	}
	return out
}
