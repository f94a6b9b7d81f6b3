// Package textnorm normalizes text pulled out of PDFs so issuer keywords and
// descriptions can be matched reliably.
package textnorm

import (
	"html"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var cidRe = regexp.MustCompile(`\(cid:(\d{1,5})\)`)

// DecodeGlyphs resolves glyph escapes some PDF producers leave in extracted text:
// numeric character references (&#72; &#x48;), HTML entities, (cid:NN) codes and
// compatibility forms such as ligatures. Newlines and tabs are kept, other control
// characters are dropped.
func DecodeGlyphs(s string) string {
	if strings.Contains(s, "(cid:") {
		s = cidRe.ReplaceAllStringFunc(s, func(m string) string {
			n, err := strconv.Atoi(cidRe.FindStringSubmatch(m)[1])
			if err != nil || n < 32 || n > 126 {
				return ""
			}
			return string(rune(n))
		})
	}
	if strings.ContainsRune(s, '&') {
		s = html.UnescapeString(s)
	}
	s = norm.NFKC.String(s)

	return strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\r':
			return '\n'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
}

// Fold lowercases s, turns every run of non-alphanumeric characters into one space
// and trims the result.
func Fold(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// CollapseDoubled merges runs of the same letter into a single letter, repairing
// doubled-glyph artifacts such as "CChhaassee". Digits are never touched.
func CollapseDoubled(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for i, r := range s {
		if i > 0 && r == prev && unicode.IsLetter(r) {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// DetectForm is the form used for issuer detection: folded, then with doubled
// letters collapsed. Apply it to both the document and the keyword.
func DetectForm(s string) string {
	return CollapseDoubled(Fold(s))
}

// Preview returns up to n folded, non-empty lines of text, each cut to 60 runes.
func Preview(text string, n int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if len(out) >= n {
			break
		}
		f := Fold(line)
		if f == "" {
			continue
		}
		if r := []rune(f); len(r) > 60 {
			f = string(r[:60])
		}
		out = append(out, f)
	}
	return out
}

// CollapseSpaces trims s and reduces internal whitespace runs to one space.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
