package rules

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// DefaultHeaderAliases fill in fields a spec does not mention.
var DefaultHeaderAliases = map[string][]string{
	FieldDate:        {"transaction date", "trans date", "date"},
	FieldPostDate:    {"post date", "posting date", "posted"},
	FieldDescription: {"description", "merchant", "details", "payee"},
	FieldAmount:      {"amount"},
	FieldDebit:       {"debit", "debits", "withdrawals", "withdrawal"},
	FieldCredit:      {"credit", "credits", "deposits", "deposit"},
}

// Match quality, best first.
const (
	matchExact    = 3
	matchContains = 2
	matchFuzzy    = 1
)

// minFuzzyAlias keeps short aliases from matching as scattered subsequences.
const minFuzzyAlias = 4

// Columns maps canonical fields to column indexes.
type Columns map[string]int

// Has reports whether field resolved to a column.
func (c Columns) Has(field string) bool {
	_, ok := c[field]
	return ok
}

// Cell returns the value of field in row, or "".
func (c Columns) Cell(row []string, field string) string {
	i, ok := c[field]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// HasAmount reports whether any amount-bearing column resolved.
func (c Columns) HasAmount() bool {
	return c.Has(FieldAmount) || c.Has(FieldDebit) || c.Has(FieldCredit)
}

type candidate struct {
	field  string
	col    int
	score  int
	rank   int
	fieldN int
}

// ResolveColumns matches headers against aliases case-insensitively. Exact
// matches beat word containment, which beats a fuzzy subsequence match; ties go
// to the closer fuzzy rank, then field order, then the leftmost column. Each
// field and each column is used at most once.
func ResolveColumns(headers []string, aliases map[string][]string) Columns {
	var cands []candidate
	for fn, field := range Fields {
		for col, h := range headers {
			header := textnorm.Fold(h)
			if header == "" {
				continue
			}
			best := candidate{field: field, col: col, fieldN: fn, rank: -1}
			for _, a := range aliases[field] {
				alias := textnorm.Fold(a)
				if alias == "" {
					continue
				}
				score, rank := matchAlias(alias, header)
				if score > best.score || (score == best.score && score > 0 && rank < best.rank) {
					best.score, best.rank = score, rank
				}
			}
			if best.score > 0 {
				cands = append(cands, best)
			}
		}
	}

	sort.SliceStable(cands, func(i, j int) bool {
		a, b := cands[i], cands[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		if a.fieldN != b.fieldN {
			return a.fieldN < b.fieldN
		}
		return a.col < b.col
	})

	cols := make(Columns)
	used := make(map[int]bool)
	for _, c := range cands {
		if cols.Has(c.field) || used[c.col] {
			continue
		}
		cols[c.field] = c.col
		used[c.col] = true
	}
	return cols
}

func matchAlias(alias, header string) (score, rank int) {
	switch {
	case alias == header:
		return matchExact, 0
	case strings.Contains(" "+header+" ", " "+alias+" "):
		return matchContains, len(header) - len(alias)
	case len(alias) >= minFuzzyAlias && fuzzy.MatchNormalizedFold(alias, header):
		return matchFuzzy, fuzzy.RankMatchNormalizedFold(alias, header)
	}
	return 0, -1
}

// mergeAliases returns the spec aliases with defaults for unmentioned fields.
func mergeAliases(spec map[string][]string) map[string][]string {
	out := make(map[string][]string, len(Fields))
	for _, f := range Fields {
		if a, ok := spec[f]; ok {
			out[f] = a
			continue
		}
		out[f] = DefaultHeaderAliases[f]
	}
	return out
}
