package loader

import (
	"regexp"
	"strings"

	"github.com/ArionMiles/stmtx/pkg/api"
)

// Token patterns shared by the transaction-line heuristic.
const (
	datePattern   = `(?:\d{1,2}/\d{1,2}(?:/\d{2,4})?|\d{4}-\d{2}-\d{2}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.? \d{1,2}(?:,? \d{4})?)`
	amountPattern = `(?:\(?[-+]?\$?\s?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?-?(?:\s?CR)?|\(?[-+]?(?:\d{1,3}(?:\.\d{3})+|\d+),\d{2}\)?-?)`
)

// Headers of the pseudo-table built from raw text lines.
var TextLineHeaders = []string{"Transaction Date", "Description", "Amount", "Balance"}

var (
	txnLineRe = regexp.MustCompile(`(?i)^\s*` + datePattern + `\s+.*?` + amountPattern + `\s*(?:\s` + amountPattern + `)?\s*$`)
	textRowRe = regexp.MustCompile(`(?i)^\s*(` + datePattern + `)\s+(?:` + datePattern + `\s+)?(.+?)\s+(` + amountPattern + `)(?:\s+(` + amountPattern + `))?\s*$`)
	dateRe    = regexp.MustCompile(`(?i)^` + datePattern + `$`)
	amountRe  = regexp.MustCompile(`(?i)^` + amountPattern + `$`)
)

// LooksLikeTransactionLine reports whether s starts with a date-like token and
// eventually carries a currency-like token.
func LooksLikeTransactionLine(s string) bool {
	return txnLineRe.MatchString(s)
}

// IsDateToken reports whether s is a date-like cell.
func IsDateToken(s string) bool { return dateRe.MatchString(strings.TrimSpace(s)) }

// IsAmountToken reports whether s is a currency-like cell.
func IsAmountToken(s string) bool { return amountRe.MatchString(strings.TrimSpace(s)) }

// TextLineTable synthesizes a table from raw text when no table object was
// detected. Every transaction-like line becomes a row; a second date after the
// first (a post date) is dropped and a trailing second amount is the balance.
// Lines that are not transaction-like but follow one, directly or through other
// such lines, are kept as description-only rows so wrapped descriptions can be
// rejoined downstream.
func TextLineTable(text string) (api.Table, bool) {
	var rows [][]string
	prevTxn := false
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			prevTxn = false
			continue
		}
		m := textRowRe.FindStringSubmatch(line)
		if m == nil {
			prevTxn = prevTxn && isContinuationText(line)
			if prevTxn {
				rows = append(rows, []string{"", strings.Join(strings.Fields(line), " "), "", ""})
			}
			continue
		}
		rows = append(rows, []string{m[1], strings.Join(strings.Fields(m[2]), " "), m[3], m[4]})
		prevTxn = true
	}
	if !hasTransactionRow(rows) {
		return api.Table{}, false
	}
	return api.NewTable(TextLineHeaders, rows), true
}

var notContinuationRe = regexp.MustCompile(`(?i)^(?:page|total|subtotal|balance|new balance|previous balance|continued)\b`)

// isContinuationText reports whether a line after a transaction line can be the
// wrapped tail of its description.
func isContinuationText(line string) bool {
	fields := strings.Fields(line)
	if len(fields) > 8 || notContinuationRe.MatchString(line) {
		return false
	}
	for _, f := range fields {
		if IsAmountToken(f) || strings.Contains(f, "$") {
			return false
		}
	}
	return true
}

func hasTransactionRow(rows [][]string) bool {
	for _, r := range rows {
		if r[0] != "" {
			return true
		}
	}
	return false
}
