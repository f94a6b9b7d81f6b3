package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/ArionMiles/stmtx/internal/runner"
	"github.com/ArionMiles/stmtx/pkg/rules"
)

// runValidate checks declarative specs without extracting anything.
func runValidate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(stderr)
	paths, err := parseInterleaved(fs, args)
	if err != nil {
		return usageError(stderr, fs, err)
	}
	if len(paths) == 0 {
		return usageError(stderr, fs, errors.New("at least one spec path is required"))
	}

	code := runner.ExitOK
	for _, path := range paths {
		spec, err := rules.LoadFile(path)
		if err == nil {
			_, err = rules.New(spec, slog.Default())
		}
		if err != nil {
			fmt.Fprintf(stdout, "✗ %s: %v\n", path, err)
			code = runner.ExitFatal
			continue
		}
		fmt.Fprintf(stdout, "✓ %s (%s, %s)\n", path, spec.Name, spec.AccountTypeDefault)
	}
	return code
}
