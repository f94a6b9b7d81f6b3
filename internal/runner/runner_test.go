package runner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/config"
	"github.com/ArionMiles/stmtx/pkg/engine"
	"github.com/ArionMiles/stmtx/pkg/source"
	"github.com/ArionMiles/stmtx/pkg/writer"
)

const userSpec = `
name: creditunion
account_type_default: checking
header_aliases:
  date: [date]
  description: [description]
  amount: [amount]
date_formats: ["%m/%d/%Y"]
`

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func testConfig(dirs ...string) *config.Config {
	return &config.Config{
		Engine:  engine.Config{Mode: engine.ModeAuto},
		Plugins: config.Plugins{Enabled: true, Dirs: dirs, Timeout: 5 * time.Second},
		Output:  writer.Options{Format: writer.FormatJSON},
		Log:     config.Log{Level: "info"},
		Jobs:    2,
	}
}

func writeSpec(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestBuildRegistry_Precedence(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "creditunion.yaml", userSpec)

	reg, err := BuildRegistry(testConfig(dir), discard())
	require.NoError(t, err)

	var got []string
	for _, e := range reg.Entries() {
		got = append(got, string(e.Origin)+":"+e.Name())
	}
	assert.Equal(t, []string{
		"builtin:chase", "builtin:amex", "builtin:bofa",
		"bundled:capitalone", "bundled:discover", "bundled:wellsfargo",
		"user:creditunion",
	}, got)
}

func TestBuildRegistry_BlockAndDisable(t *testing.T) {
	dir := t.TempDir()
	writeSpec(t, dir, "creditunion.yaml", userSpec)

	cfg := testConfig(dir)
	cfg.Plugins.Block = []string{"discover", "chase"}
	reg, err := BuildRegistry(cfg, discard())
	require.NoError(t, err)
	_, ok := reg.Lookup("discover")
	assert.False(t, ok)
	_, ok = reg.Lookup("chase")
	assert.True(t, ok, "built-ins ignore the block list")

	cfg.Plugins.Enabled = false
	reg, err = BuildRegistry(cfg, discard())
	require.NoError(t, err)
	assert.Len(t, reg.Entries(), 3)
}

func TestNew_ForcedSpec(t *testing.T) {
	dir := t.TempDir()
	good := writeSpec(t, dir, "good.yaml", userSpec)
	bad := writeSpec(t, dir, "bad.yaml", "name: bad\naccount_type_default: credit\n")

	r, err := New(testConfig(), Options{Spec: good}, discard())
	require.NoError(t, err)
	assert.Equal(t, []string{"ruled", "layout", "grid"}, r.Backends())

	_, err = New(testConfig(), Options{Spec: bad}, discard())
	var sve *api.SpecValidationError
	require.True(t, errors.As(err, &sve))
	assert.Equal(t, "header_aliases", sve.Section)
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig()
	cfg.Engine.Mode = "ocr"
	_, err := New(cfg, Options{}, discard())
	assert.ErrorContains(t, err, "configuring engine")
}

func TestExtract_FailuresKeepGoing(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.pdf")
	require.NoError(t, os.WriteFile(junk, []byte("%PDF-1.4\n%garbage that no backend can read\n"), 0o600))
	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o600))
	missing := filepath.Join(dir, "missing.pdf")

	r, err := New(testConfig(), Options{Stdin: strings.NewReader("")}, discard())
	require.NoError(t, err)

	var out bytes.Buffer
	summary, err := r.Extract(context.Background(), []string{missing, junk, text}, &out)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", out.String())
	assert.Equal(t, 3, summary.Inputs)
	assert.Equal(t, 0, summary.Succeeded)
	require.Len(t, summary.Failures, 3)

	assert.Equal(t, missing, summary.Failures[0].Source)
	assert.Equal(t, ExitFatal, ExitCode(summary.Failures[0].Err))
	assert.Equal(t, junk, summary.Failures[1].Source)
	assert.Equal(t, ExitUnsupported, ExitCode(summary.Failures[1].Err))
	assert.ErrorIs(t, summary.Failures[2].Err, source.ErrNotPDF)
	assert.Equal(t, ExitFatal, summary.ExitCode())
}

func TestSummary_ExitCode(t *testing.T) {
	s := &Summary{}
	assert.Equal(t, ExitOK, s.ExitCode())

	s.Failures = []Failure{{Err: &api.UnsupportedFormatError{}}}
	assert.Equal(t, ExitUnsupported, s.ExitCode())

	s.Failures = append(s.Failures, Failure{Err: errors.New("read failed")})
	assert.Equal(t, ExitFatal, s.ExitCode())
}
