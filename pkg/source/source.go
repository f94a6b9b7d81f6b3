// Package source reads statement PDFs from files or standard input.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/avast/retry-go"
)

// Stdin is the path that selects standard input.
const Stdin = "-"

// headerWindow is how far into the file the %PDF- marker may appear.
const headerWindow = 1024

// ErrNotPDF means the input carries no PDF header.
var ErrNotPDF = errors.New("input is not a PDF")

// Options tunes file reads.
type Options struct {
	// Attempts is the number of tries for a transient read error. Defaults to 3.
	Attempts uint
	// Delay is the initial backoff between tries. Defaults to 100ms.
	Delay time.Duration
}

// Reader loads statement bytes.
type Reader struct {
	stdin  io.Reader
	opts   Options
	logger *slog.Logger
}

// New creates a Reader. stdin is read when the path is "-".
func New(stdin io.Reader, opts Options, logger *slog.Logger) *Reader {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.Delay <= 0 {
		opts.Delay = 100 * time.Millisecond
	}
	return &Reader{stdin: stdin, opts: opts, logger: logger.With("component", "source")}
}

// Read returns the bytes at path. Missing files and permission errors fail at
// once; other read errors are retried.
func (r *Reader) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	if path == Stdin {
		if r.stdin == nil {
			return nil, errors.New("reading stdin: no input attached")
		}
		b, err := io.ReadAll(r.stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		data = b
	} else {
		err := retry.Do(
			func() error {
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				data = b
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(r.opts.Attempts),
			retry.Delay(r.opts.Delay),
			retry.RetryIf(transient),
			retry.OnRetry(func(n uint, err error) {
				r.logger.Warn("retrying read", "path", path, "attempt", n+1, "error", err)
			}),
			retry.LastErrorOnly(true),
		)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	if !IsPDF(data) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotPDF)
	}
	return data, nil
}

// IsPDF reports whether data starts with a PDF header within the first
// kilobyte.
func IsPDF(data []byte) bool {
	window := data
	if len(window) > headerWindow {
		window = window[:headerWindow]
	}
	return bytes.Contains(window, []byte("%PDF-"))
}

func transient(err error) bool {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission), errors.Is(err, syscall.EISDIR):
		return false
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
