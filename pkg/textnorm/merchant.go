package textnorm

import (
	"regexp"
	"strings"
)

var (
	processorPrefixRe = regexp.MustCompile(`(?i)^(?:sq|tst|pp|paypal|sp|py|dd|in|ic)\s?\*\s*`)
	refTokenRe        = regexp.MustCompile(`\*[A-Za-z0-9]{4,}\b`)
	trailingDigitsRe  = regexp.MustCompile(`\s+#?\d{4,}$`)
	trailingPhoneRe   = regexp.MustCompile(`\s+\(?\d{3}\)?[-. ]?\d{3}[-. ]?\d{4}$`)
	trailingStateRe   = regexp.MustCompile(`\s+(?:AL|AK|AZ|AR|CA|CO|CT|DC|DE|FL|GA|HI|IA|ID|IL|IN|KS|KY|LA|MA|MD|ME|MI|MN|MO|MS|MT|NC|ND|NE|NH|NJ|NM|NV|NY|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VA|VT|WA|WI|WV|WY)$`)
)

// CleanMerchant derives a display merchant from a raw statement description by
// removing card processor prefixes, reference tokens, phone numbers, store numbers
// and a trailing US state code.
func CleanMerchant(desc string) string {
	s := CollapseSpaces(desc)
	original := s

	s = processorPrefixRe.ReplaceAllString(s, "")
	s = refTokenRe.ReplaceAllString(s, "")
	for {
		next := trailingPhoneRe.ReplaceAllString(s, "")
		next = trailingDigitsRe.ReplaceAllString(next, "")
		if strings.Count(next, " ") >= 1 {
			next = trailingStateRe.ReplaceAllString(next, "")
		}
		next = strings.TrimSpace(next)
		if next == s {
			break
		}
		s = next
	}

	s = CollapseSpaces(s)
	if s == "" {
		return original
	}
	return s
}
