package rules

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ArionMiles/stmtx/pkg/amount"
	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/dates"
	"github.com/ArionMiles/stmtx/pkg/extractor"
	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// Extractor applies a Spec to documents. It is immutable once built and safe for
// concurrent use.
type Extractor struct {
	spec *Spec

	detect  *textnorm.KeywordSet
	require *textnorm.KeywordSet

	aliases      map[string][]string
	formats      []dates.Format
	drop         []*regexp.Regexp
	subtotals    []*regexp.Regexp
	accountRe    *regexp.Regexp
	classifier   *amount.Classifier
	sections     extractor.Sections
	continuation bool

	logger *slog.Logger
}

// New validates spec and compiles it into an Extractor.
func New(spec *Spec, logger *slog.Logger) (*Extractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	formats, err := dates.CompileAll(spec.DateFormats)
	if err != nil {
		return nil, fmt.Errorf("compiling date formats: %w", err)
	}
	drop, err := compilePatterns(spec.DropRowPatterns, false)
	if err != nil {
		return nil, fmt.Errorf("compiling drop patterns: %w", err)
	}
	subtotals, err := compilePatterns(spec.SubtotalPatterns, true)
	if err != nil {
		return nil, fmt.Errorf("compiling subtotal patterns: %w", err)
	}

	e := &Extractor{
		spec:      spec,
		detect:    textnorm.NewDetectionSet(spec.DetectKeywords()),
		require:   textnorm.NewDetectionSet(spec.Detect.Require),
		aliases:   mergeAliases(spec.HeaderAliases),
		formats:   formats,
		drop:      drop,
		subtotals: subtotals,
		classifier: amount.NewClassifier(amount.ClassifierConfig{
			ExcludeKeywords:     spec.ExcludeKeywords,
			NoDefaultExclusions: !boolOr(spec.ExcludeDefaults, true),
			CreditKeywords:      spec.SignRules.CreditKeywords,
			ChargeKeywords:      spec.SignRules.ChargeKeywords,
		}),
		sections:     extractor.NewSections(spec.Sections.Credit, spec.Sections.Debit),
		continuation: boolOr(spec.Continuation, true),
		logger:       logger.With("extractor", spec.Name),
	}
	if spec.AccountNamePattern != "" {
		res, err := compilePatterns([]string{spec.AccountNamePattern}, true)
		if err != nil {
			return nil, fmt.Errorf("compiling account name pattern: %w", err)
		}
		e.accountRe = res[0]
	}
	return e, nil
}

// Name returns the spec name.
func (e *Extractor) Name() string { return e.spec.Name }

// Spec returns the spec the extractor was built from.
func (e *Extractor) Spec() *Spec { return e.spec }

// SubtotalPatterns returns patterns recovering the statement's own total of
// spend from its text.
func (e *Extractor) SubtotalPatterns() []*regexp.Regexp { return e.subtotals }

// Supports reports whether any detection keyword and every required keyword
// occur in the document text. Matching tolerates doubled glyphs.
func (e *Extractor) Supports(doc *api.Document) bool {
	text := doc.Text()
	return e.detect.Contains(text) && e.require.ContainsAll(text)
}

// Metadata infers the statement metadata from the document text.
func (e *Extractor) Metadata(doc *api.Document) api.StatementMetadata {
	meta := api.StatementMetadata{
		Institution: e.spec.InstitutionName(),
		AccountName: e.spec.AccountName,
		AccountType: e.spec.AccountTypeDefault,
		Currency:    e.spec.Currency,
	}
	if meta.AccountName == "" && e.accountRe != nil {
		if m := e.accountRe.FindStringSubmatch(doc.Text()); m != nil {
			meta.AccountName = textnorm.CollapseSpaces(m[1])
		}
	}
	if meta.AccountName == "" {
		meta.AccountName = meta.Institution
	}
	if r, ok := dates.FindPeriod(doc.Text()); ok {
		meta.StatementPeriod = &api.DateRange{Start: r.Start, End: r.End}
	}
	return meta
}

// Extract walks every table of doc. Tables without a date column or any amount
// column are skipped; rows that fail to parse are rejected individually.
func (e *Extractor) Extract(doc *api.Document) (*api.Extraction, error) {
	meta := e.Metadata(doc)
	c := extractor.NewCollector(meta, doc.Text(), e.formats, e.classifier)
	negIsCredit := e.spec.NegativeIsCredit()

	for ti, table := range doc.Tables() {
		cols := ResolveColumns(table.Headers(), e.aliases)
		if !cols.Has(FieldDate) || !cols.HasAmount() {
			e.logger.Debug("skipping table", "table", ti, "headers", table.Headers())
			continue
		}

		c.Break()
		section := amount.HintNone
		for ri, row := range table.Rows() {
			rowText := strings.Join(nonEmptyCells(row), " ")
			if rowText == "" {
				continue
			}

			if pattern := e.dropMatch(rowText); pattern != "" {
				c.Skip(ti, ri, api.SkipDropPattern, pattern, rowText)
				c.Break()
				continue
			}

			dateCell := cols.Cell(row, FieldDate)
			postCell := cols.Cell(row, FieldPostDate)
			amt, column := amountCell(cols, row)
			desc := cols.Cell(row, FieldDescription)
			if desc == "" {
				desc = leftover(row, cols)
			}

			if dateCell == "" && postCell == "" && amt == "" {
				if hint, ok := e.sections.Match(rowText); ok {
					section = hint
					c.Skip(ti, ri, api.SkipSectionLabel, hint.String(), rowText)
					c.Break()
					continue
				}
				if e.continuation {
					c.Continue(ti, ri, rowText)
					continue
				}
			}

			c.Add(extractor.Row{
				Table:            ti,
				Index:            ri,
				Date:             dateCell,
				PostDate:         postCell,
				Description:      desc,
				Amount:           amt,
				Column:           column,
				Section:          section,
				NegativeIsCredit: negIsCredit,
			})
		}
	}

	out := c.Result()
	e.logger.Debug("extracted", "transactions", len(out.Transactions), "rejected", len(out.Rejected), "skipped", len(out.Skipped))
	return out, nil
}

func (e *Extractor) dropMatch(text string) string {
	for _, re := range e.drop {
		if re.MatchString(text) {
			return re.String()
		}
	}
	return ""
}

// amountCell returns the raw amount of a row and the polarity implied by its
// column. A single amount column carries no polarity of its own.
func amountCell(cols Columns, row []string) (string, amount.Hint) {
	if v := cols.Cell(row, FieldAmount); v != "" {
		return v, amount.HintNone
	}
	debit := cols.Cell(row, FieldDebit)
	credit := cols.Cell(row, FieldCredit)
	switch {
	case debit != "" && !isZero(debit):
		return debit, amount.HintDebit
	case credit != "" && !isZero(credit):
		return credit, amount.HintCredit
	case debit != "":
		return debit, amount.HintDebit
	case credit != "":
		return credit, amount.HintCredit
	}
	return "", amount.HintNone
}

func isZero(raw string) bool {
	d, err := amount.Parse(raw)
	return err == nil && d.IsZero()
}

// leftover joins cells not claimed by any field, used as the description when
// no description column resolved.
func leftover(row []string, cols Columns) string {
	claimed := make(map[int]bool, len(cols))
	for _, i := range cols {
		claimed[i] = true
	}
	var parts []string
	for i, c := range row {
		if !claimed[i] && c != "" && !amount.LooksLikeAmount(c) {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " ")
}

func nonEmptyCells(row []string) []string {
	var out []string
	for _, c := range row {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}
