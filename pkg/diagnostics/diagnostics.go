// Package diagnostics summarizes an extraction so a new statement format can
// be checked and tuned: counts, rejection reasons, and a reconciliation of the
// extracted spend against the statement's own subtotal.
package diagnostics

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/ArionMiles/stmtx/pkg/amount"
	"github.com/ArionMiles/stmtx/pkg/api"
)

// Severity ranks an issue.
type Severity string

// Issue severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Issue codes.
const (
	IssueNoTransactions   = "no_transactions"
	IssueHighRejection    = "high_rejection_rate"
	IssueSubtotalMismatch = "subtotal_mismatch"
	IssueTableRejects     = "single_table_many_rejects"
)

// DefaultRejectionThreshold is the share of rejected rows above which a
// warning is raised.
const DefaultRejectionThreshold = 0.2

const minTableRejects = 3

// Issue is one finding.
type Issue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Reconciliation compares extracted spend against a subtotal printed on the
// statement. Amounts are in minor units of the statement currency.
type Reconciliation struct {
	Currency   string `json:"currency"`
	Expected   int64  `json:"expected"`
	Extracted  int64  `json:"extracted"`
	Difference int64  `json:"difference"`
	Display    string `json:"display"`
	Matched    bool   `json:"matched"`
}

// Report is the outcome of Analyze.
type Report struct {
	Backend      string `json:"backend,omitempty"`
	Extractor    string `json:"extractor,omitempty"`
	Tables       int    `json:"tables"`
	Transactions int    `json:"transactions"`
	Spend        int    `json:"spend"`
	Credits      int    `json:"credits"`
	SpendTotal   string `json:"spend_total"`
	CreditTotal  string `json:"credit_total"`

	Rejected      map[string]int         `json:"rejected"`
	Skipped       map[api.SkipReason]int `json:"skipped"`
	RejectionRate float64                `json:"rejection_rate"`

	Reconciliation *Reconciliation `json:"reconciliation,omitempty"`
	Issues         []Issue         `json:"issues"`
}

// OK reports whether the report holds no error-level issue.
func (r *Report) OK() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return false
		}
	}
	return true
}

// SubtotalSource is implemented by extractors that know how to find the
// statement's own spend total in its text.
type SubtotalSource interface {
	SubtotalPatterns() []*regexp.Regexp
}

// Options tunes Analyze.
type Options struct {
	// Text is the document text searched for subtotals.
	Text string
	// Subtotals are patterns with one capture group holding the amount.
	Subtotals []*regexp.Regexp
	// RejectionThreshold defaults to DefaultRejectionThreshold.
	RejectionThreshold float64

	Backend   string
	Extractor string
	Tables    int
}

// Analyze builds a report for result.
func Analyze(result *api.Extraction, opts Options) *Report {
	if opts.RejectionThreshold <= 0 {
		opts.RejectionThreshold = DefaultRejectionThreshold
	}
	currency := currencyOf(result.Metadata.CurrencyCode())

	r := &Report{
		Backend:      opts.Backend,
		Extractor:    opts.Extractor,
		Tables:       opts.Tables,
		Transactions: len(result.Transactions),
		Rejected:     make(map[string]int),
		Skipped:      make(map[api.SkipReason]int),
		Issues:       []Issue{},
	}

	spend, credit := money.New(0, currency), money.New(0, currency)
	for _, tx := range result.Transactions {
		m := fromDecimal(tx.Amount, currency)
		if tx.IsCredit {
			r.Credits++
			credit, _ = credit.Add(m)
		} else {
			r.Spend++
			spend, _ = spend.Add(m)
		}
	}
	r.SpendTotal = spend.Display()
	r.CreditTotal = credit.Display()

	perTable := make(map[int]int)
	for _, e := range result.Rejected {
		r.Rejected[e.Reason]++
		perTable[e.Table]++
	}
	for _, s := range result.Skipped {
		r.Skipped[s.Reason]++
	}
	if total := len(result.Rejected) + len(result.Transactions); total > 0 {
		r.RejectionRate = float64(len(result.Rejected)) / float64(total)
	}

	if r.Transactions == 0 {
		r.add(IssueNoTransactions, SeverityError, "no transactions were extracted")
	}
	if len(result.Rejected) > 0 && r.RejectionRate > opts.RejectionThreshold {
		r.add(IssueHighRejection, SeverityWarning, fmt.Sprintf("%.0f%% of rows were rejected (%s)", r.RejectionRate*100, reasons(r.Rejected)))
	}
	for _, table := range sortedKeys(perTable) {
		n := perTable[table]
		if n >= minTableRejects && n*5 >= len(result.Rejected)*4 {
			r.add(IssueTableRejects, SeverityWarning, fmt.Sprintf("table %d holds %d of %d rejected rows; check its header aliases and date formats", table, n, len(result.Rejected)))
		}
	}

	if expected, ok := findSubtotal(opts.Text, opts.Subtotals); ok {
		want := fromDecimal(expected, currency)
		diff, _ := spend.Subtract(want)
		rec := &Reconciliation{
			Currency:   currency,
			Expected:   want.Amount(),
			Extracted:  spend.Amount(),
			Difference: diff.Amount(),
			Display:    diff.Display(),
			Matched:    diff.IsZero(),
		}
		r.Reconciliation = rec
		if !rec.Matched {
			r.add(IssueSubtotalMismatch, SeverityWarning, fmt.Sprintf("extracted spend %s differs from statement subtotal %s by %s", spend.Display(), want.Display(), diff.Display()))
		}
	}
	return r
}

func (r *Report) add(code string, sev Severity, msg string) {
	r.Issues = append(r.Issues, Issue{Code: code, Severity: sev, Message: msg})
}

// findSubtotal returns the first amount captured by any pattern.
func findSubtotal(text string, patterns []*regexp.Regexp) (decimal.Decimal, bool) {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if len(m) < 2 {
				continue
			}
			d, err := amount.Parse(m[1])
			if err == nil {
				return d.Abs(), true
			}
		}
	}
	return decimal.Zero, false
}

func currencyOf(code string) string {
	if money.GetCurrency(code) == nil {
		return money.USD
	}
	return code
}

func fromDecimal(d decimal.Decimal, code string) *money.Money {
	fraction := money.GetCurrency(code).Fraction
	return money.New(d.Shift(int32(fraction)).Round(0).IntPart(), code)
}

func reasons(counts map[string]int) string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, ", ")
}

func sortedKeys(m map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
