package ruled

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/loader"
	"github.com/ArionMiles/stmtx/pkg/loader/pdftest"
)

func newLoader() *Loader { return New(slog.New(slog.DiscardHandler)) }

func TestLoad_UnruledFallsBackToTextLines(t *testing.T) {
	doc, err := newLoader().Load(pdftest.Statement())
	require.NoError(t, err)
	pdftest.AssertStatement(t, doc, loader.Ruled)
	assert.Equal(t, loader.TextLineHeaders, doc.Tables()[0].Headers())
}

func TestLoad_SameBytesSameDocument(t *testing.T) {
	data := pdftest.Statement()
	a, err := newLoader().Load(data)
	require.NoError(t, err)
	b, err := newLoader().Load(data)
	require.NoError(t, err)
	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, a.Text(), b.Text())
}

func TestLoad_GarbageIsLoadError(t *testing.T) {
	_, err := newLoader().Load([]byte("%PDF-1.4\nnot really a pdf\n"))
	var le *api.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, loader.Ruled, le.Backend)
}
