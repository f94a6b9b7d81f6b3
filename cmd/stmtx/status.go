package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/ArionMiles/stmtx/internal/runner"
	"github.com/ArionMiles/stmtx/pkg/config"
	"github.com/ArionMiles/stmtx/pkg/engine"
	"github.com/ArionMiles/stmtx/pkg/extractor"
	"github.com/ArionMiles/stmtx/pkg/plugins"
)

// runStatus checks the configuration and plugin load status.
func runStatus(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	if _, err := parseInterleaved(fs, args); err != nil {
		return usageError(stderr, fs, err)
	}

	fmt.Fprintln(stdout, "=== stmtx status ===")
	fmt.Fprintln(stdout)

	cfg, path, err := common.loadConfig(fs, nil, stderr)
	if path == "" {
		path = "(none)"
	}
	fmt.Fprintf(stdout, "Config file %s: ", path)
	if err != nil {
		fmt.Fprintf(stdout, "✗ %v\n", err)
		return runner.ExitUsage
	}
	fmt.Fprintln(stdout, "✓ Loaded")

	allGood := true
	checkBackends(stdout, cfg, &allGood)
	checkPlugins(stdout, cfg, &allGood)

	fmt.Fprintln(stdout)
	if allGood {
		fmt.Fprintln(stdout, "✓ All checks passed")
	} else {
		fmt.Fprintln(stdout, "⚠ Some checks need attention")
	}
	return runner.ExitOK
}

func checkBackends(w io.Writer, cfg *config.Config, allGood *bool) {
	fmt.Fprint(w, "Backends: ")
	sel, err := engine.NewSelector(engine.Loaders(slog.Default()), cfg.Engine, slog.Default())
	if err != nil {
		fmt.Fprintf(w, "✗ %v\n", err)
		*allGood = false
		return
	}
	fmt.Fprintf(w, "✓ %v (mode %s)\n", sel.Order(), cfg.Engine.Mode)
}

func checkPlugins(w io.Writer, cfg *config.Config, allGood *bool) {
	if !cfg.Plugins.Enabled {
		fmt.Fprintln(w, "Plugins: disabled")
	} else {
		for _, dir := range cfg.Plugins.Dirs {
			fmt.Fprintf(w, "Plugin directory (%s): ", dir)
			if _, err := os.Stat(dir); err != nil {
				fmt.Fprintln(w, "- not present")
				continue
			}
			fmt.Fprintln(w, "✓ Found")
		}
	}
	if bundled, err := plugins.Bundled(); err == nil {
		names := make([]string, 0, len(bundled))
		for name := range bundled {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "Bundled specs: %v\n", names)
	}

	reg, err := runner.BuildRegistry(cfg, slog.Default())
	if err != nil {
		fmt.Fprintf(w, "Registry: ✗ %v\n", err)
		*allGood = false
		return
	}

	fmt.Fprintln(w, "\nExtractors (precedence order):")
	for _, e := range reg.Entries() {
		src := e.Source
		if src == "" {
			src = "-"
		}
		fmt.Fprintf(w, "  %-14s %-8s %-12s %s\n", e.Name(), e.Origin, e.Kind, src)
	}
	printReport(w, reg.Report(), allGood)
}

func printReport(w io.Writer, report extractor.LoadReport, allGood *bool) {
	for _, s := range report.Skipped {
		fmt.Fprintf(w, "⚠ skipped %s (%s): %s\n", s.Name, s.Origin, s.Reason)
	}
	for _, f := range report.Failed {
		fmt.Fprintf(w, "✗ failed %s: %s\n", f.Path, f.Reason)
		*allGood = false
	}
}
