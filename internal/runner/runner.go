// Package runner wires configuration, plugins, the extractor registry and the
// pipeline for one CLI invocation.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/config"
	"github.com/ArionMiles/stmtx/pkg/engine"
	"github.com/ArionMiles/stmtx/pkg/extractor"
	"github.com/ArionMiles/stmtx/pkg/extractor/builtin"
	"github.com/ArionMiles/stmtx/pkg/orchestrator"
	"github.com/ArionMiles/stmtx/pkg/plugins"
	"github.com/ArionMiles/stmtx/pkg/rules"
	"github.com/ArionMiles/stmtx/pkg/source"
	"github.com/ArionMiles/stmtx/pkg/writer"
	"github.com/ArionMiles/stmtx/pkg/writer/buffered"
)

// Exit codes.
const (
	ExitOK          = 0
	ExitUsage       = 1
	ExitUnsupported = 2
	ExitFatal       = 3
)

// Options are per-invocation settings that are not part of the config file.
type Options struct {
	// Spec forces a single declarative spec and bypasses detection.
	Spec string
	// Stdin is read for the "-" input.
	Stdin io.Reader
	// DiagnosticsOut receives diagnostics reports when output.diagnostics is
	// set and the output format cannot carry them.
	DiagnosticsOut io.Writer
}

// Runner extracts statements.
type Runner struct {
	cfg      *config.Config
	opts     Options
	registry *extractor.Registry
	selector *engine.Selector
	pipeline *orchestrator.Pipeline
	source   *source.Reader
	logger   *slog.Logger
}

// New builds the registry, selector and pipeline described by cfg.
func New(cfg *config.Config, opts Options, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	selector, err := engine.NewSelector(engine.Loaders(logger), cfg.Engine, logger)
	if err != nil {
		return nil, fmt.Errorf("configuring engine: %w", err)
	}

	registry, err := BuildRegistry(cfg, logger)
	if err != nil {
		return nil, err
	}

	pcfg := orchestrator.Config{RejectionThreshold: cfg.Diagnostics.RejectionThreshold}
	if opts.Spec != "" {
		entry, err := ForcedSpec(opts.Spec, logger)
		if err != nil {
			return nil, err
		}
		pcfg.Forced = &entry
		logger.Info("detection bypassed", "spec", opts.Spec, "extractor", entry.Name())
	}

	return &Runner{
		cfg:      cfg,
		opts:     opts,
		registry: registry,
		selector: selector,
		pipeline: orchestrator.New(selector, registry, pcfg, logger),
		source:   source.New(opts.Stdin, source.Options{}, logger),
		logger:   logger.With("component", "runner"),
	}, nil
}

// BuildRegistry registers the built-in extractors and then the bundled and
// user plugins allowed by cfg.
func BuildRegistry(cfg *config.Config, logger *slog.Logger) (*extractor.Registry, error) {
	b := extractor.NewBuilder(extractor.Options{
		AllowOverrides: cfg.Plugins.Overrides,
		Allow:          cfg.Plugins.Allow,
		Block:          cfg.Plugins.Block,
	}, logger)

	for _, ex := range builtin.All(logger) {
		if err := b.Register(ex, api.OriginBuiltin, api.KindCode, ""); err != nil {
			return nil, fmt.Errorf("registering built-in extractor: %w", err)
		}
	}
	plugins.Load(b, plugins.Options{
		Enabled: cfg.Plugins.Enabled,
		Dirs:    cfg.Plugins.Dirs,
		Timeout: cfg.Plugins.Timeout,
	}, logger)
	return b.Build(), nil
}

// ForcedSpec loads a declarative spec file as a registry entry.
func ForcedSpec(path string, logger *slog.Logger) (extractor.Entry, error) {
	spec, err := rules.LoadFile(path)
	if err != nil {
		return extractor.Entry{}, err
	}
	ex, err := rules.New(spec, logger)
	if err != nil {
		return extractor.Entry{}, err
	}
	return extractor.Entry{Extractor: ex, Origin: api.OriginUser, Kind: api.KindDeclarative, Source: path}, nil
}

// Registry returns the extractor registry.
func (r *Runner) Registry() *extractor.Registry { return r.registry }

// Backends returns the backend order.
func (r *Runner) Backends() []string { return r.selector.Order() }

// Failure is one input that produced no output.
type Failure struct {
	Source string
	Err    error
}

// Summary describes a batch.
type Summary struct {
	Inputs    int
	Succeeded int
	Failures  []Failure
}

// ExitCode returns the most severe exit code among the failures.
func (s *Summary) ExitCode() int {
	code := ExitOK
	for _, f := range s.Failures {
		code = max(code, ExitCode(f.Err))
	}
	return code
}

// ExitCode maps an extraction error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ufe *api.UnsupportedFormatError
	if errors.As(err, &ufe) {
		return ExitUnsupported
	}
	return ExitFatal
}

// Extract runs every input through the pipeline, at most cfg.Jobs at a time,
// and writes results to out in input order. A failed input is recorded in the
// summary and does not stop the others. The returned error is reserved for
// output failures.
func (r *Runner) Extract(ctx context.Context, paths []string, out io.Writer) (*Summary, error) {
	w, err := writer.New(out, r.cfg.Output, r.logger)
	if err != nil {
		return nil, err
	}

	items := make(chan buffered.Item, len(paths))
	sink := buffered.New(r.flusher(w), r.logger)
	writerDone := make(chan error, 1)
	go func() {
		writerDone <- sink.Write(ctx, items)
	}()

	failures := make([]error, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Jobs)
	for i, path := range paths {
		g.Go(func() error {
			res, err := r.extractOne(gctx, path)
			if err != nil {
				failures[i] = err
				r.logger.Error("extraction failed", "source", path, "error", err)
			}
			items <- buffered.Item{Index: i, Result: res}
			return nil
		})
	}
	_ = g.Wait()
	close(items)

	writeErr := <-writerDone
	if closeErr := w.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return nil, fmt.Errorf("writing output: %w", writeErr)
	}

	summary := &Summary{Inputs: len(paths)}
	for i, err := range failures {
		if err != nil {
			summary.Failures = append(summary.Failures, Failure{Source: paths[i], Err: err})
		} else {
			summary.Succeeded++
		}
	}
	r.logger.Info("extraction finished", "inputs", summary.Inputs, "succeeded", summary.Succeeded, "failed", len(summary.Failures))
	return summary, nil
}

func (r *Runner) extractOne(ctx context.Context, path string) (*orchestrator.Result, error) {
	data, err := r.source.Read(ctx, path)
	if err != nil {
		return nil, err
	}
	return r.pipeline.Run(ctx, path, data)
}

// flusher writes each result and, for formats without a diagnostics block,
// prints its report separately.
func (r *Runner) flusher(w writer.Writer) buffered.Flusher {
	separate := r.cfg.Output.Diagnostics && !strings.EqualFold(r.cfg.Output.Format, writer.FormatJSON) && r.opts.DiagnosticsOut != nil
	return func(res *orchestrator.Result) error {
		if err := w.Write(res); err != nil {
			return err
		}
		if !separate {
			return nil
		}
		data, err := json.MarshalIndent(struct {
			Source string `json:"source"`
			Report any    `json:"diagnostics"`
		}{res.Source, res.Report}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling diagnostics: %w", err)
		}
		_, err = r.opts.DiagnosticsOut.Write(append(data, '\n'))
		return err
	}
}
