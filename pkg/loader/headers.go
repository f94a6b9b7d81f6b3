package loader

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// Semantic header names produced by synthesis.
const (
	HeaderTransactionDate = "Transaction Date"
	HeaderPostDate        = "Post Date"
	HeaderDescription     = "Description"
	HeaderAmount          = "Amount"
	HeaderDebit           = "Debit"
	HeaderCredit          = "Credit"
	HeaderBalance         = "Balance"
)

const sampleRows = 5

var placeholderRe = regexp.MustCompile(`(?i)^(?:\d+|col(?:umn)?[\s_]*\d+|unnamed:?\s*\d+|field\s*\d+)?$`)

var headerWords = textnorm.NewKeywordSet([]string{
	"date", "trans date", "transaction date", "post date", "posting date", "description",
	"details", "merchant", "amount", "debit", "debits", "credit", "credits", "balance",
	"withdrawals", "deposits", "reference",
})

// IsPlaceholderHeaders reports whether every header is empty, an ordinal, or a
// generic "Column N" label.
func IsPlaceholderHeaders(headers []string) bool {
	for _, h := range headers {
		if !placeholderRe.MatchString(strings.TrimSpace(h)) {
			return false
		}
	}
	return true
}

// SynthesizeHeaders replaces placeholder headers with semantic ones. A first row
// that is really a header row is promoted; otherwise columns are typed from the
// first transaction-like rows. Tables with real headers are returned unchanged.
func SynthesizeHeaders(t api.Table) api.Table {
	headers := t.Headers()
	if len(headers) == 0 || !IsPlaceholderHeaders(headers) {
		return t
	}

	rows := t.Rows()
	if len(rows) > 0 && looksLikeHeaderRow(rows[0]) {
		return api.NewTable(rows[0], rows[1:])
	}

	var sample [][]string
	for _, r := range rows {
		if len(sample) == sampleRows {
			break
		}
		if LooksLikeTransactionLine(strings.Join(r, "  ")) {
			sample = append(sample, r)
		}
	}
	if len(sample) == 0 {
		return t
	}

	return api.NewTable(inferHeaders(len(headers), sample), rows)
}

func looksLikeHeaderRow(row []string) bool {
	named := 0
	for _, c := range row {
		if c == "" {
			continue
		}
		if IsAmountToken(c) || IsDateToken(c) {
			return false
		}
		if headerWords.Contains(c) {
			named++
		}
	}
	return named >= 2
}

type columnKind int

const (
	kindEmpty columnKind = iota
	kindDate
	kindAmount
	kindText
)

func inferHeaders(width int, sample [][]string) []string {
	kinds := make([]columnKind, width)
	filled := make([]int, width)
	textLen := make([]int, width)

	for col := 0; col < width; col++ {
		dates, amounts := 0, 0
		for _, r := range sample {
			c := r[col]
			switch {
			case c == "":
				continue
			case IsDateToken(c):
				dates++
			case IsAmountToken(c):
				amounts++
			default:
				textLen[col] += len(c)
			}
			filled[col]++
		}
		switch {
		case filled[col] == 0:
			kinds[col] = kindEmpty
		case dates*2 > filled[col]:
			kinds[col] = kindDate
		case amounts*2 > filled[col]:
			kinds[col] = kindAmount
		default:
			kinds[col] = kindText
		}
	}

	headers := make([]string, width)
	var dateCols, amountCols []int
	descCol, descLen := -1, -1
	for col, k := range kinds {
		switch k {
		case kindDate:
			dateCols = append(dateCols, col)
		case kindAmount:
			amountCols = append(amountCols, col)
		case kindText:
			if textLen[col] > descLen {
				descCol, descLen = col, textLen[col]
			}
		}
	}

	if len(dateCols) > 0 {
		headers[dateCols[0]] = HeaderTransactionDate
	}
	if len(dateCols) > 1 {
		headers[dateCols[1]] = HeaderPostDate
	}
	if descCol >= 0 {
		headers[descCol] = HeaderDescription
	}
	for col, name := range amountHeaders(amountCols, filled, len(sample)) {
		headers[col] = name
	}

	for i, h := range headers {
		if h == "" {
			headers[i] = "Column " + strconv.Itoa(i+1)
		}
	}
	return headers
}

// amountHeaders names amount columns. A rightmost column filled on every row
// next to sparser ones is the running balance; two sparse columns that never
// both hold a value are debit and credit.
func amountHeaders(cols []int, filled []int, n int) map[int]string {
	out := make(map[int]string, len(cols))
	switch len(cols) {
	case 0:
		return out
	case 1:
		out[cols[0]] = HeaderAmount
		return out
	}

	last := cols[len(cols)-1]
	rest := cols[:len(cols)-1]
	sparse := false
	for _, c := range rest {
		if filled[c] < n {
			sparse = true
		}
	}

	switch {
	case filled[last] == n && (sparse || len(rest) == 1):
		out[last] = HeaderBalance
		if len(rest) == 1 {
			out[rest[0]] = HeaderAmount
		} else {
			out[rest[0]] = HeaderDebit
			out[rest[1]] = HeaderCredit
		}
	default:
		out[cols[0]] = HeaderDebit
		out[cols[1]] = HeaderCredit
		if len(cols) > 2 {
			out[last] = HeaderBalance
		}
	}
	return out
}
