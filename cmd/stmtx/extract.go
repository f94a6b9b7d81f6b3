package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ArionMiles/stmtx/internal/runner"
	"github.com/ArionMiles/stmtx/pkg/api"
)

// runExtract extracts transactions from each input.
func runExtract(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var common commonFlags
	common.register(fs)
	var (
		engineMode     = fs.String("engine", "", "backend: auto, ruled, layout or grid")
		order          stringList
		allow          stringList
		block          stringList
		allowOverrides = fs.Bool("allow-overrides", false, "let plugins replace extractors of the same name")
		format         = fs.String("format", "", "output format: csv or json")
		outPath        = fs.String("out", "", "output file (default stdout)")
		diagnostics    = fs.Bool("diagnostics", false, "emit the diagnostics report")
		credits        = fs.Bool("include-credits", false, "include credit rows in the output")
		jobs           = fs.Int("jobs", 0, "statements extracted concurrently")
		spec           = fs.String("spec", "", "extract with this declarative spec, bypassing detection")
	)
	fs.Var(&order, "order", "backend order for auto mode, e.g. layout,ruled")
	fs.Var(&allow, "allow-plugin", "only load these plugins (repeatable)")
	fs.Var(&block, "block-plugin", "never load these plugins (repeatable)")

	paths, err := parseInterleaved(fs, args)
	if err != nil {
		return usageError(stderr, fs, err)
	}
	if len(paths) == 0 {
		return usageError(stderr, fs, errors.New("at least one PDF path (or - for stdin) is required"))
	}

	cfg, _, err := common.loadConfig(fs, map[string]binding{
		"engine":          {"engine.mode", func() any { return *engineMode }},
		"order":           {"engine.order", func() any { return []string(order) }},
		"allow-plugin":    {"plugins.allow", func() any { return []string(allow) }},
		"block-plugin":    {"plugins.block", func() any { return []string(block) }},
		"allow-overrides": {"plugins.overrides", func() any { return *allowOverrides }},
		"format":          {"output.format", func() any { return *format }},
		"diagnostics":     {"output.diagnostics", func() any { return *diagnostics }},
		"include-credits": {"output.credits", func() any { return *credits }},
		"jobs":            {"jobs", func() any { return *jobs }},
	}, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "stmtx extract: %v\n", err)
		return runner.ExitUsage
	}
	logger := slog.Default()

	r, err := runner.New(cfg, runner.Options{Spec: *spec, Stdin: stdin, DiagnosticsOut: stderr}, logger)
	if err != nil {
		fmt.Fprintf(stderr, "stmtx extract: %v\n", err)
		var sve *api.SpecValidationError
		if errors.As(err, &sve) {
			return runner.ExitFatal
		}
		return runner.ExitUsage
	}

	out := stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(stderr, "stmtx extract: creating output: %v\n", err)
			return runner.ExitUsage
		}
		defer func() {
			if err := f.Close(); err != nil {
				logger.Error("closing output", "path", *outPath, "error", err)
			}
		}()
		out = f
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := r.Extract(ctx, paths, out)
	if err != nil {
		fmt.Fprintf(stderr, "stmtx extract: %v\n", err)
		return runner.ExitFatal
	}
	for _, f := range summary.Failures {
		fmt.Fprintf(stderr, "stmtx extract: %s: %v\n", f.Source, f.Err)
	}
	return summary.ExitCode()
}
