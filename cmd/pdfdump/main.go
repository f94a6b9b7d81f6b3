// Command pdfdump loads statements with every backend and dumps the resulting
// documents as JSON. This utility is used to collect fixtures for unit testing
// and to see what a declarative spec has to work with.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ArionMiles/stmtx/internal/runner"
	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/config"
	"github.com/ArionMiles/stmtx/pkg/engine"
	"github.com/ArionMiles/stmtx/pkg/extractor"
	"github.com/ArionMiles/stmtx/pkg/logging"
	"github.com/ArionMiles/stmtx/pkg/source"
)

const dumpDir = "tests/data/dump"

func main() {
	logger := logging.Setup(logging.DefaultConfig())

	outDir := flag.String("out", dumpDir, "directory to write documents to")
	backend := flag.String("backend", "", "only dump this backend")
	resolve := flag.Bool("resolve", false, "report which extractor claims each document")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: pdfdump [-out dir] [-backend name] [-resolve] <pdf>...")
		os.Exit(runner.ExitUsage)
	}

	var loaders []api.Loader
	for _, l := range engine.Loaders(logger) {
		if *backend == "" || l.Name() == *backend {
			loaders = append(loaders, l)
		}
	}
	if len(loaders) == 0 {
		logger.Error("no matching backend", "backend", *backend)
		os.Exit(runner.ExitUsage)
	}

	var registry *extractor.Registry
	if *resolve {
		cfg, _, err := config.Load(config.Options{})
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(runner.ExitUsage)
		}
		if registry, err = runner.BuildRegistry(cfg, logger); err != nil {
			logger.Error("failed to build registry", "error", err)
			os.Exit(runner.ExitUsage)
		}
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("failed to create dump directory", "error", err)
		os.Exit(runner.ExitFatal)
	}

	reader := source.New(os.Stdin, source.Options{}, logger)
	totalDumped := 0
	for _, path := range flag.Args() {
		data, err := reader.Read(context.Background(), path)
		if err != nil {
			logger.Error("failed to read statement", "path", path, "error", err)
			continue
		}
		for _, l := range loaders {
			if err := dump(l, path, data, *outDir, registry, logger); err != nil {
				logger.Warn("failed to dump document", "path", path, "backend", l.Name(), "error", err)
				continue
			}
			totalDumped++
		}
	}

	logger.Info("document dump complete", "total_dumped", totalDumped, "directory", *outDir)
}

func dump(l api.Loader, path string, data []byte, outDir string, registry *extractor.Registry, logger *slog.Logger) error {
	doc, err := l.Load(data)
	if err != nil {
		return fmt.Errorf("loading: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if path == source.Stdin {
		base = "stdin"
	}
	target := filepath.Join(outDir, fmt.Sprintf("%s.%s.json", base, l.Name()))

	body, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}
	if err := os.WriteFile(target, append(body, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}

	attrs := []any{"path", target, "pages", doc.Pages(), "tables", doc.NumTables(), "empty", doc.Empty()}
	if registry != nil {
		if entry, err := registry.Resolve(doc); err == nil {
			attrs = append(attrs, "extractor", entry.Name(), "origin", entry.Origin)
		} else {
			attrs = append(attrs, "extractor", "-")
		}
	}
	logger.Info("dumped document", attrs...)
	return nil
}
