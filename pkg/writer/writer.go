// Package writer selects an output writer by format.
package writer

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ArionMiles/stmtx/pkg/orchestrator"
	csvwriter "github.com/ArionMiles/stmtx/pkg/writer/csv"
	jsonwriter "github.com/ArionMiles/stmtx/pkg/writer/json"
)

// Output formats.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Writer writes extracted statements.
type Writer interface {
	// Write adds one statement to the output.
	Write(res *orchestrator.Result) error
	// Close finishes the output. It does not close the underlying io.Writer.
	Close() error
}

// Options holds output settings.
type Options struct {
	Format      string `koanf:"format"`
	Credits     bool   `koanf:"credits"`
	Metadata    bool   `koanf:"metadata"`
	Diagnostics bool   `koanf:"diagnostics"`
}

// New creates a writer for opts.Format.
func New(out io.Writer, opts Options, logger *slog.Logger) (Writer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch format := strings.ToLower(opts.Format); format {
	case FormatCSV, "":
		return csvwriter.New(out, csvwriter.Config{
			Credits:  opts.Credits,
			Metadata: opts.Metadata,
		}, logger.With("component", "csv_writer")), nil
	case FormatJSON:
		return jsonwriter.New(out, jsonwriter.Config{
			Credits:     opts.Credits,
			Diagnostics: opts.Diagnostics,
		}, logger.With("component", "json_writer")), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (want %s or %s)", opts.Format, FormatCSV, FormatJSON)
	}
}
