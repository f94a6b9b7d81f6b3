package diagnostics

import (
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/stmtx/pkg/api"
)

func tx(amount string, credit bool) api.ExtractedTransaction {
	return api.ExtractedTransaction{
		Date:     time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC),
		Amount:   decimal.RequireFromString(amount),
		IsCredit: credit,
	}
}

func codes(r *Report) []string {
	var out []string
	for _, i := range r.Issues {
		out = append(out, i.Code)
	}
	return out
}

var purchasesRe = regexp.MustCompile(`(?i)purchases\s+\$?([\d,]+\.\d{2})`)

func TestAnalyze_Reconciles(t *testing.T) {
	result := &api.Extraction{
		Transactions: []api.ExtractedTransaction{tx("45.67", false), tx("5.25", false), tx("25.99", true)},
		Skipped:      []api.SkippedRow{{Reason: api.SkipExcludedKeyword}, {Reason: api.SkipSectionLabel}, {Reason: api.SkipSectionLabel}},
	}

	r := Analyze(result, Options{Text: "Purchases $50.92\nNew Balance $1,024.00", Subtotals: []*regexp.Regexp{purchasesRe}})
	assert.Equal(t, 3, r.Transactions)
	assert.Equal(t, 2, r.Spend)
	assert.Equal(t, 1, r.Credits)
	assert.Equal(t, "$50.92", r.SpendTotal)
	assert.Equal(t, 2, r.Skipped[api.SkipSectionLabel])
	require.NotNil(t, r.Reconciliation)
	assert.True(t, r.Reconciliation.Matched)
	assert.Equal(t, int64(5092), r.Reconciliation.Expected)
	assert.Empty(t, r.Issues)
	assert.True(t, r.OK())
}

func TestAnalyze_SubtotalMismatch(t *testing.T) {
	result := &api.Extraction{Transactions: []api.ExtractedTransaction{tx("45.67", false)}}

	r := Analyze(result, Options{Text: "Purchases 50.92", Subtotals: []*regexp.Regexp{purchasesRe}})
	require.NotNil(t, r.Reconciliation)
	assert.False(t, r.Reconciliation.Matched)
	assert.Equal(t, int64(-525), r.Reconciliation.Difference)
	assert.Equal(t, []string{IssueSubtotalMismatch}, codes(r))
	assert.True(t, r.OK(), "mismatch is a warning")
}

func TestAnalyze_NoTransactions(t *testing.T) {
	r := Analyze(&api.Extraction{}, Options{})
	assert.Equal(t, []string{IssueNoTransactions}, codes(r))
	assert.False(t, r.OK())
	assert.Nil(t, r.Reconciliation)
}

func TestAnalyze_Rejections(t *testing.T) {
	result := &api.Extraction{
		Transactions: []api.ExtractedTransaction{tx("1.00", false), tx("2.00", false)},
		Rejected: []*api.RowParseError{
			{Table: 1, Reason: api.ReasonDateParse},
			{Table: 1, Reason: api.ReasonDateParse},
			{Table: 1, Reason: api.ReasonAmountParse},
			{Table: 0, Reason: api.ReasonMissingAmt},
		},
	}

	r := Analyze(result, Options{})
	assert.Equal(t, map[string]int{api.ReasonDateParse: 2, api.ReasonAmountParse: 1, api.ReasonMissingAmt: 1}, r.Rejected)
	assert.InDelta(t, 4.0/6.0, r.RejectionRate, 1e-9)
	assert.Equal(t, []string{IssueHighRejection}, codes(r))

	result.Rejected = append(result.Rejected, &api.RowParseError{Table: 1, Reason: api.ReasonDateParse}, &api.RowParseError{Table: 1, Reason: api.ReasonDateParse})
	r = Analyze(result, Options{})
	assert.Equal(t, []string{IssueHighRejection, IssueTableRejects}, codes(r))
}

func TestReport_JSON(t *testing.T) {
	r := Analyze(&api.Extraction{Transactions: []api.ExtractedTransaction{tx("1.00", false)}}, Options{Backend: "ruled", Extractor: "chase", Tables: 2})
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "chase", got["extractor"])
	assert.Equal(t, float64(1), got["transactions"])
	assert.Equal(t, []any{}, got["issues"])
}
