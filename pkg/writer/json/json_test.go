package json

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/diagnostics"
	"github.com/ArionMiles/stmtx/pkg/orchestrator"
)

func result(source string) *orchestrator.Result {
	extraction := &api.Extraction{
		Metadata: api.StatementMetadata{
			Institution: "Chase",
			AccountName: "Chase Sapphire Preferred",
			AccountType: api.AccountCredit,
			StatementPeriod: &api.DateRange{
				Start: time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 1, 14, 0, 0, 0, 0, time.UTC),
			},
		},
		Transactions: []api.ExtractedTransaction{
			{Date: time.Date(2024, 12, 22, 0, 0, 0, 0, time.UTC), Merchant: "REFUND", Amount: decimal.RequireFromString("25.99"), IsCredit: true},
			{Date: time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC), Merchant: "AMAZON.COM", Amount: decimal.RequireFromString("45.6"), OriginalDescription: "AMAZON.COM*AB12C"},
		},
	}
	return &orchestrator.Result{
		Source:     source,
		DocumentID: "id-" + source,
		Backend:    "layout",
		Extractor:  "chase",
		Extraction: extraction,
		Report:     diagnostics.Analyze(extraction, diagnostics.Options{Backend: "layout", Extractor: "chase"}),
	}
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func TestWriter_SingleStatement(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Config{}, discard())
	require.NoError(t, w.Write(result("a.pdf")))
	require.NoError(t, w.Close())

	var got Statement
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "id-a.pdf", got.DocumentID)
	assert.Equal(t, "layout", got.Backend)
	assert.Equal(t, "chase", got.Extractor)
	assert.Equal(t, "USD", got.Metadata.Currency)
	assert.Equal(t, &Period{Start: "2024-12-15", End: "2025-01-14"}, got.Metadata.StatementPeriod)
	assert.Equal(t, []Transaction{{Date: "2024-12-30", Merchant: "AMAZON.COM", Amount: "45.60", OriginalDescription: "AMAZON.COM*AB12C"}}, got.Transactions)
	assert.Nil(t, got.Diagnostics)
}

func TestWriter_ManyStatementsWithDiagnostics(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Config{Credits: true, Diagnostics: true}, discard())
	require.NoError(t, w.Write(result("a.pdf")))
	require.NoError(t, w.Write(result("b.pdf")))
	assert.Equal(t, 2, w.StatementCount())
	require.NoError(t, w.Close())

	var got []Statement
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "b.pdf", got[1].Source)
	assert.Len(t, got[0].Transactions, 2)
	require.NotNil(t, got[0].Diagnostics)
	assert.Equal(t, 1, got[0].Diagnostics.Credits)
	assert.Equal(t, "$45.60", got[0].Diagnostics.SpendTotal)
}

func TestWriter_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf, Config{}, discard())
	require.NoError(t, w.Close())
	assert.Equal(t, "[]\n", buf.String())
}
