// Package buffered holds results that finish out of order and releases them
// in input order.
package buffered

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ArionMiles/stmtx/pkg/orchestrator"
)

// Flusher is called once per result, in input order.
type Flusher func(res *orchestrator.Result) error

// Item is one finished input. A nil Result marks an input that failed and
// produces no output.
type Item struct {
	Index  int
	Result *orchestrator.Result
}

// Writer buffers items until every earlier index has arrived.
type Writer struct {
	mu      sync.Mutex
	pending map[int]*orchestrator.Result
	next    int
	flusher Flusher
	logger  *slog.Logger
}

// New creates a new ordered writer.
func New(flusher Flusher, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		pending: make(map[int]*orchestrator.Result),
		flusher: flusher,
		logger:  logger,
	}
}

// Write consumes items until in is closed. It returns early on a flush error
// or when ctx is canceled. Indexes must start at zero with no gaps.
func (w *Writer) Write(ctx context.Context, in <-chan Item) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-in:
			if !ok {
				return w.handleShutdown()
			}
			if err := w.Put(item); err != nil {
				return err
			}
		}
	}
}

// Put records one item and flushes every result that is now in order.
func (w *Writer) Put(item Item) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if item.Index < w.next {
		return fmt.Errorf("item %d already written", item.Index)
	}
	if _, dup := w.pending[item.Index]; dup {
		return fmt.Errorf("item %d received twice", item.Index)
	}
	w.pending[item.Index] = item.Result

	for {
		res, ok := w.pending[w.next]
		if !ok {
			break
		}
		delete(w.pending, w.next)
		w.next++
		if res == nil {
			continue
		}
		if err := w.flusher(res); err != nil {
			return fmt.Errorf("flushing item %d: %w", w.next-1, err)
		}
	}
	if len(w.pending) > 0 {
		w.logger.Debug("holding out-of-order results", "pending", len(w.pending), "waiting_for", w.next)
	}
	return nil
}

// Written returns how many indexes have been released.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next
}

func (w *Writer) handleShutdown() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) > 0 {
		return fmt.Errorf("input closed with %d results waiting for item %d", len(w.pending), w.next)
	}
	return nil
}
