// Package amount parses statement amounts and classifies rows as spend, credit
// or excluded.
package amount

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmpty is returned for blank amount cells.
var ErrEmpty = errors.New("empty amount")

var currencyTokens = []string{"US$", "R$", "USD", "EUR", "GBP", "CAD", "BRL", "$", "€", "£", "¥", "₹"}

// amountLikeRe matches a currency-like token: optional sign or parenthesis, optional
// symbol, grouped digits and exactly two decimals.
var amountLikeRe = regexp.MustCompile(`^\(?[-+]?\s?(?:US)?[$€£]?\s?[-+]?(?:\d{1,3}(?:[,. ]\d{3})+|\d+)[.,]\d{2}\)?-?(?:\s?CR)?$`)

// LooksLikeAmount reports whether s is a currency-like token such as "$1,234.56",
// "(45.00)" or "12.00-".
func LooksLikeAmount(s string) bool {
	return amountLikeRe.MatchString(strings.TrimSpace(s))
}

// Parse parses a raw statement amount into a signed decimal.
//
// Currency symbols, codes, spaces and thousands separators are stripped. A value in
// parentheses, with a leading or trailing minus, or with a CR suffix is negative.
// Both 1,234.56 and 1.234,56 groupings are understood.
func Parse(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}

	negative := false
	upper := strings.ToUpper(s)
	if strings.HasSuffix(upper, "CR") {
		negative = true
		s = strings.TrimSpace(s[:len(s)-2])
	} else if strings.HasSuffix(upper, "DR") {
		s = strings.TrimSpace(s[:len(s)-2])
	}

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = !negative
		s = s[1 : len(s)-1]
	}

	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.Join(strings.Fields(s), "")

	switch {
	case strings.HasPrefix(s, "-"):
		negative = !negative
		s = s[1:]
	case strings.HasSuffix(s, "-"):
		negative = !negative
		s = s[:len(s)-1]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	s = normalizeSeparators(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("no digits in %q", raw)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites grouped digits into a plain decimal string.
// The last separator followed by one or two digits is the decimal point.
func normalizeSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			return strings.Replace(s, ",", ".", 1)
		}
		return strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		if decimals := len(s) - lastComma - 1; decimals == 1 || decimals == 2 {
			s = strings.ReplaceAll(s[:lastComma], ",", "") + "." + s[lastComma+1:]
			return s
		}
		return strings.ReplaceAll(s, ",", "")
	case strings.Count(s, ".") > 1:
		// 1.234.567 with no decimals
		return strings.ReplaceAll(s, ".", "")
	}
	return s
}

// Abs parses raw and returns its absolute value together with its sign.
func Abs(raw string) (value decimal.Decimal, negative bool, err error) {
	d, err := Parse(raw)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d.Abs(), d.IsNegative(), nil
}
