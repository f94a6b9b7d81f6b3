package source

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReader(stdin string) *Reader {
	return New(strings.NewReader(stdin), Options{Attempts: 2, Delay: time.Millisecond}, slog.New(slog.DiscardHandler))
}

func TestRead_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n..."), 0o600))

	data, err := newReader("").Read(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7\n...", string(data))
}

func TestRead_Stdin(t *testing.T) {
	data, err := newReader("\n%PDF-1.4 body").Read(context.Background(), Stdin)
	require.NoError(t, err)
	assert.Contains(t, string(data), "body")
}

func TestRead_NotPDF(t *testing.T) {
	_, err := newReader("hello").Read(context.Background(), Stdin)
	assert.ErrorIs(t, err, ErrNotPDF)

	path := filepath.Join(t.TempDir(), "late.pdf")
	require.NoError(t, os.WriteFile(path, append([]byte(strings.Repeat(" ", 2000)), "%PDF-1.7"...), 0o600))
	_, err = newReader("").Read(context.Background(), path)
	assert.ErrorIs(t, err, ErrNotPDF)
}

func TestRead_MissingFileIsNotRetried(t *testing.T) {
	start := time.Now()
	_, err := New(nil, Options{Attempts: 5, Delay: time.Second}, slog.New(slog.DiscardHandler)).
		Read(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assert.Less(t, time.Since(start), time.Second)
}

func TestTransient(t *testing.T) {
	assert.False(t, transient(fs.ErrNotExist))
	assert.False(t, transient(fs.ErrPermission))
	assert.False(t, transient(context.Canceled))
	assert.True(t, transient(errors.New("resource temporarily unavailable")))
}
