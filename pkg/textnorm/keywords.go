package textnorm

import (
	"sort"
	"sync"

	"github.com/cloudflare/ahocorasick"
)

// KeywordSet matches many keywords against a text in one pass using Aho-Corasick.
// Keywords only match on word boundaries after folding, so "chase" does not hit
// "purchase". A KeywordSet is safe for concurrent use.
type KeywordSet struct {
	keywords []string
	matcher  *ahocorasick.Matcher
	form     func(string) string
}

// NewKeywordSet builds a set that matches on Fold forms. Keywords with the same
// form as an earlier one are dropped.
func NewKeywordSet(keywords []string) *KeywordSet {
	return newKeywordSet(keywords, Fold)
}

// NewDetectionSet builds a set that matches on DetectForm, tolerating doubled glyphs.
func NewDetectionSet(keywords []string) *KeywordSet {
	return newKeywordSet(keywords, DetectForm)
}

func newKeywordSet(keywords []string, form func(string) string) *KeywordSet {
	ks := &KeywordSet{form: form}

	patterns := make([]string, 0, len(keywords))
	seen := make(map[string]bool, len(keywords))
	for _, kw := range keywords {
		f := form(kw)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		ks.keywords = append(ks.keywords, kw)
		patterns = append(patterns, " "+f+" ")
	}
	if len(patterns) > 0 {
		ks.matcher = ahocorasick.NewStringMatcher(patterns)
	}
	return ks
}

// Len returns the number of usable keywords.
func (ks *KeywordSet) Len() int {
	if ks == nil {
		return 0
	}
	return len(ks.keywords)
}

// Keywords returns the keywords in the set.
func (ks *KeywordSet) Keywords() []string {
	if ks == nil {
		return nil
	}
	out := make([]string, len(ks.keywords))
	copy(out, ks.keywords)
	return out
}

// Match returns the keywords found in text, in keyword order.
func (ks *KeywordSet) Match(text string) []string {
	if ks == nil || ks.matcher == nil {
		return nil
	}
	hits := ks.matcher.MatchThreadSafe([]byte(" " + ks.form(text) + " "))
	if len(hits) == 0 {
		return nil
	}
	sort.Ints(hits)
	out := make([]string, 0, len(hits))
	for _, i := range hits {
		out = append(out, ks.keywords[i])
	}
	return out
}

// Contains reports whether any keyword occurs in text.
func (ks *KeywordSet) Contains(text string) bool {
	if ks == nil || ks.matcher == nil {
		return false
	}
	return len(ks.matcher.MatchThreadSafe([]byte(" "+ks.form(text)+" "))) > 0
}

// ContainsAll reports whether every keyword occurs in text.
func (ks *KeywordSet) ContainsAll(text string) bool {
	if ks.Len() == 0 {
		return true
	}
	return len(ks.Match(text)) == len(ks.keywords)
}

var institutionNames = []string{
	"american express", "amex", "ally bank", "apple card", "bank of america", "barclays",
	"capital one", "charles schwab", "chase", "citi", "citibank", "discover", "fidelity",
	"goldman sachs", "hsbc", "navy federal", "pnc", "santander", "synchrony", "td bank",
	"truist", "us bank", "usaa", "wells fargo",
}

var institutions = sync.OnceValue(func() *KeywordSet {
	return NewDetectionSet(institutionNames)
})

// DetectInstitutions returns well-known institution names present in text. It is
// used to explain failed issuer detection.
func DetectInstitutions(text string) []string {
	return institutions().Match(text)
}
