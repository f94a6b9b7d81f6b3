package grid

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

func TestLoad_ColumnsFromContentStream(t *testing.T) {
	doc, err := newLoader().Load(pdftest.Statement())
	require.NoError(t, err)
	pdftest.AssertStatement(t, doc, loader.Grid)
	assert.Equal(t, []string{loader.HeaderTransactionDate, loader.HeaderDescription, loader.HeaderAmount}, doc.Tables()[0].Headers())
}

func TestLoad_GarbageIsLoadError(t *testing.T) {
	_, err := newLoader().Load([]byte("%PDF-1.4\nnot really a pdf\n"))
	var le *api.LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, loader.Grid, le.Backend)
}
