package extractor

import (
	"errors"
	"strings"

	"github.com/ArionMiles/stmtx/pkg/amount"
	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/dates"
	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// Row is one candidate transaction row as read by an extractor, before parsing.
type Row struct {
	Table, Index int

	Date     string
	PostDate string

	Description string
	Amount      string

	// Column is the polarity implied by the column the amount came from.
	Column amount.Hint
	// Section is the polarity of the statement section the row sits in.
	Section amount.Hint
	// NegativeIsCredit sets the polarity of a signed amount when neither the
	// column nor the section says anything.
	NegativeIsCredit bool
}

// Collector turns rows into an Extraction. It parses dates and amounts,
// resolves polarity, applies the classifier and joins continuation lines onto
// the previous transaction. Every row it is given ends up as a transaction, a
// rejection or a skip.
type Collector struct {
	formats      []dates.Format
	period       *dates.Range
	fallbackYear int
	classifier   *amount.Classifier

	out      api.Extraction
	last     int
	lastHint amount.Hint
}

// NewCollector creates a collector. The statement period in meta drives year
// inference; without one, the latest year in text is used.
func NewCollector(meta api.StatementMetadata, text string, formats []dates.Format, classifier *amount.Classifier) *Collector {
	c := &Collector{
		formats:    formats,
		classifier: classifier,
		out:        api.Extraction{Metadata: meta, Transactions: []api.ExtractedTransaction{}},
		last:       -1,
	}
	if meta.StatementPeriod != nil {
		c.period = &dates.Range{Start: meta.StatementPeriod.Start, End: meta.StatementPeriod.End}
	} else {
		c.fallbackYear = dates.LatestYear(text)
	}
	return c
}

// Add parses r and records the outcome.
func (c *Collector) Add(r Row) {
	desc := textnorm.CollapseSpaces(r.Description)
	raw := strings.Join(nonEmpty(r.Date, r.PostDate, desc, r.Amount), " ")
	reject := func(reason string, err error) {
		c.out.Rejected = append(c.out.Rejected, &api.RowParseError{Table: r.Table, Row: r.Index, Reason: reason, Raw: raw, Err: err})
		c.last = -1
	}

	dateRaw := strings.TrimSpace(r.Date)
	if dateRaw == "" {
		dateRaw = strings.TrimSpace(r.PostDate)
	}
	if dateRaw == "" {
		reject(api.ReasonMissingDate, nil)
		return
	}
	parsed, err := dates.Parse(dateRaw, c.formats)
	if err != nil {
		reject(api.ReasonDateParse, err)
		return
	}
	date, err := parsed.Resolve(c.period, c.fallbackYear)
	if err != nil {
		if errors.Is(err, dates.ErrYearUnknown) {
			reject(api.ReasonYearUnknown, err)
		} else {
			reject(api.ReasonDateParse, err)
		}
		return
	}

	if strings.TrimSpace(r.Amount) == "" {
		reject(api.ReasonMissingAmt, nil)
		return
	}
	value, err := amount.Parse(r.Amount)
	if err != nil {
		reject(api.ReasonAmountParse, err)
		return
	}

	hint := Polarity(r.Column, r.Section, value.IsNegative(), r.NegativeIsCredit)
	d := c.classifier.Classify(desc, hint)
	if d.Exclude {
		c.Skip(r.Table, r.Index, api.SkipExcludedKeyword, d.Reason, desc)
		c.last = -1
		return
	}

	c.out.Transactions = append(c.out.Transactions, api.ExtractedTransaction{
		Date:                date,
		Merchant:            textnorm.CleanMerchant(desc),
		Amount:              value.Abs(),
		OriginalDescription: desc,
		IsCredit:            d.IsCredit,
	})
	c.last = len(c.out.Transactions) - 1
	c.lastHint = hint
}

// Polarity picks the layout hint for a row: the amount column first, then the
// section, then the sign of the amount.
func Polarity(column, section amount.Hint, negative, negativeIsCredit bool) amount.Hint {
	switch {
	case column != amount.HintNone:
		return column
	case section != amount.HintNone:
		return section
	case negative == negativeIsCredit:
		return amount.HintCredit
	}
	return amount.HintDebit
}

// Continue appends text to the description of the previous transaction. A
// continuation that turns the description into an excluded one removes the
// transaction.
func (c *Collector) Continue(table, index int, text string) {
	text = textnorm.CollapseSpaces(text)
	if c.last < 0 {
		c.Skip(table, index, api.SkipContinuation, "no preceding transaction", text)
		return
	}

	tx := &c.out.Transactions[c.last]
	desc := tx.OriginalDescription + " " + text

	d := c.classifier.Classify(desc, c.lastHint)
	if d.Exclude {
		c.Skip(table, index, api.SkipExcludedKeyword, d.Reason, desc)
		c.out.Transactions = append(c.out.Transactions[:c.last], c.out.Transactions[c.last+1:]...)
		c.last = -1
		return
	}
	c.Skip(table, index, api.SkipContinuation, "", text)
	tx.OriginalDescription = desc
	tx.Merchant = textnorm.CleanMerchant(desc)
	tx.IsCredit = d.IsCredit
}

// Skip records a row discarded on purpose.
func (c *Collector) Skip(table, index int, reason api.SkipReason, detail, desc string) {
	c.out.Skipped = append(c.out.Skipped, api.SkippedRow{Table: table, Row: index, Reason: reason, Detail: detail, Description: desc})
}

// Break ends the continuation target, for example at a table boundary.
func (c *Collector) Break() { c.last = -1 }

// Open reports whether a continuation line has a transaction to attach to.
func (c *Collector) Open() bool { return c.last >= 0 }

// Result returns the collected extraction.
func (c *Collector) Result() *api.Extraction {
	out := c.out
	return &out
}

func nonEmpty(ss ...string) []string {
	out := ss[:0:0]
	for _, s := range ss {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
