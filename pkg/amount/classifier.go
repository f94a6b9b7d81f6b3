package amount

import (
	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// Hint is the polarity a row carries from its layout: the column the amount came
// from, the section it sits in, or the amount's sign.
type Hint int

const (
	// HintNone means the layout says nothing about polarity; the row is spend.
	HintNone Hint = iota
	HintDebit
	HintCredit
)

func (h Hint) String() string {
	switch h {
	case HintDebit:
		return "debit"
	case HintCredit:
		return "credit"
	default:
		return "none"
	}
}

// Default exclusion phrases. Rows matching any of these never reach output.
var (
	DefaultPaymentKeywords = []string{
		"payment thank you", "payment received", "autopay", "auto pay", "ach payment",
		"online payment", "mobile payment", "epayment", "credit card payment", "card payment",
		"payment to chase card", "applecard gsbank payment",
	}
	DefaultTransferKeywords = []string{
		"online transfer", "transfer to", "transfer from", "internal transfer",
		"zelle payment to", "zelle payment from", "wire transfer", "funds transfer",
	}
	DefaultInterestKeywords = []string{
		"interest charge", "interest charged", "purchase interest", "interest payment",
		"interest paid", "interest earned", "finance charge",
	}
)

// DefaultExclusions returns every default exclusion phrase.
func DefaultExclusions() []string {
	out := make([]string, 0, len(DefaultPaymentKeywords)+len(DefaultTransferKeywords)+len(DefaultInterestKeywords))
	out = append(out, DefaultPaymentKeywords...)
	out = append(out, DefaultTransferKeywords...)
	return append(out, DefaultInterestKeywords...)
}

// ClassifierConfig configures a Classifier.
type ClassifierConfig struct {
	// ExcludeKeywords are added to the default exclusion phrases.
	ExcludeKeywords []string
	// NoDefaultExclusions drops the default payment, transfer and interest phrases.
	NoDefaultExclusions bool
	CreditKeywords      []string
	ChargeKeywords      []string
}

// Decision is the outcome of classifying one row.
type Decision struct {
	Exclude  bool
	Reason   string
	IsCredit bool
}

// Classifier decides whether a row is spend, a credit, or excluded. It is immutable
// and safe for concurrent use.
type Classifier struct {
	exclude *textnorm.KeywordSet
	credit  *textnorm.KeywordSet
	charge  *textnorm.KeywordSet
}

// NewClassifier compiles the keyword sets in cfg.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	var exclude []string
	if !cfg.NoDefaultExclusions {
		exclude = DefaultExclusions()
	}
	exclude = append(exclude, cfg.ExcludeKeywords...)

	return &Classifier{
		exclude: textnorm.NewKeywordSet(exclude),
		credit:  textnorm.NewKeywordSet(cfg.CreditKeywords),
		charge:  textnorm.NewKeywordSet(cfg.ChargeKeywords),
	}
}

// Classify applies exclusion phrases first, then credit and charge keywords, and
// finally the layout hint. A description matching both credit and charge keywords
// is ambiguous and falls through to the hint.
func (c *Classifier) Classify(description string, hint Hint) Decision {
	if hits := c.exclude.Match(description); len(hits) > 0 {
		return Decision{Exclude: true, Reason: hits[0]}
	}

	credit := c.credit.Contains(description)
	charge := c.charge.Contains(description)
	switch {
	case credit && !charge:
		return Decision{IsCredit: true, Reason: "credit_keyword"}
	case charge && !credit:
		return Decision{IsCredit: false, Reason: "charge_keyword"}
	}

	if hint == HintCredit {
		return Decision{IsCredit: true, Reason: "hint_credit"}
	}
	return Decision{Reason: "hint_" + hint.String()}
}
