// Package builtin holds hand-written extractors for issuers whose statements
// read best as text lines: a transaction per line under section headings.
package builtin

import (
	"log/slog"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ArionMiles/stmtx/pkg/amount"
	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/dates"
	"github.com/ArionMiles/stmtx/pkg/extractor"
	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// Statement is a line-oriented extractor. Transaction lines are recognised by a
// pattern whose groups are date, description and amount; they only count while
// a section heading is open. Rows are numbered by text line.
type Statement struct {
	name        string
	institution string
	accountType api.AccountType
	account     string
	accountRe   *regexp.Regexp

	detect  *textnorm.KeywordSet
	require *textnorm.KeywordSet

	formats          []dates.Format
	txn              *regexp.Regexp
	sections         extractor.Sections
	stops            []string
	negativeIsCredit bool
	continuation     bool
	classifier       *amount.Classifier

	logger *slog.Logger
}

// Lines that close the open section.
var defaultStops = []string{"total", "totals", "page", "continued on next page"}

var checkNumberRe = regexp.MustCompile(`^\d{3,6}\*?$`)

// Name returns the extractor name.
func (s *Statement) Name() string { return s.name }

// Supports reports whether any detection keyword and every required keyword
// occur in the document text.
func (s *Statement) Supports(doc *api.Document) bool {
	text := doc.Text()
	return s.detect.Contains(text) && s.require.ContainsAll(text)
}

// Metadata reads the account name and statement period from the text.
func (s *Statement) Metadata(doc *api.Document) api.StatementMetadata {
	meta := api.StatementMetadata{
		Institution: s.institution,
		AccountName: s.account,
		AccountType: s.accountType,
		Currency:    "USD",
	}
	if s.accountRe != nil {
		if m := s.accountRe.FindStringSubmatch(doc.Text()); m != nil {
			meta.AccountName = s.institution + " " + cases.Title(language.AmericanEnglish).String(textnorm.CollapseSpaces(m[1]))
		}
	}
	if r, ok := dates.FindPeriod(doc.Text()); ok {
		meta.StatementPeriod = &api.DateRange{Start: r.Start, End: r.End}
	}
	return meta
}

// Extract walks the document text line by line.
func (s *Statement) Extract(doc *api.Document) (*api.Extraction, error) {
	c := extractor.NewCollector(s.Metadata(doc), doc.Text(), s.formats, s.classifier)

	open := false
	section := amount.HintNone
	for i, line := range doc.Lines() {
		if hint, ok := s.sections.Match(line); ok {
			open, section = true, hint
			c.Skip(0, i, api.SkipSectionLabel, hint.String(), line)
			c.Break()
			continue
		}
		if !open {
			continue
		}
		if s.stopped(line) {
			open = false
			c.Break()
			continue
		}

		if m := s.txn.FindStringSubmatch(line); m != nil {
			desc := textnorm.CollapseSpaces(m[2])
			if checkNumberRe.MatchString(desc) {
				desc = "CHECK " + strings.TrimSuffix(desc, "*")
			}
			c.Add(extractor.Row{
				Index:            i,
				Date:             m[1],
				Description:      desc,
				Amount:           m[3],
				Section:          section,
				NegativeIsCredit: s.negativeIsCredit,
			})
			continue
		}

		if s.continuation && c.Open() && continuationLine(line) {
			c.Continue(0, i, line)
			continue
		}
		c.Break()
	}

	out := c.Result()
	s.logger.Debug("extracted", "transactions", len(out.Transactions), "rejected", len(out.Rejected))
	return out, nil
}

func (s *Statement) stopped(line string) bool {
	f := textnorm.Fold(line)
	for _, stop := range s.stops {
		if f == stop || strings.HasPrefix(f, stop+" ") {
			return true
		}
	}
	return false
}

// continuationLine reports whether line reads like the wrapped tail of a
// description rather than a heading, a total or another transaction.
func continuationLine(line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields) > 8 {
		return false
	}
	if dates.LooksLikeDate(fields[0]) {
		return false
	}
	for _, f := range fields {
		if amount.LooksLikeAmount(f) {
			return false
		}
	}
	return true
}

func newStatement(s Statement, detect, require []string, logger *slog.Logger) *Statement {
	if logger == nil {
		logger = slog.Default()
	}
	s.detect = textnorm.NewDetectionSet(detect)
	s.require = textnorm.NewDetectionSet(require)
	s.stops = append(append([]string{}, defaultStops...), s.stops...)
	s.logger = logger.With("extractor", s.name)
	return &s
}

// All returns every built-in extractor in registration order.
func All(logger *slog.Logger) []api.Extractor {
	return []api.Extractor{NewChase(logger), NewAmex(logger), NewBankOfAmerica(logger)}
}
