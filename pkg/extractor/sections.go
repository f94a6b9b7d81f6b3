package extractor

import (
	"strings"

	"github.com/ArionMiles/stmtx/pkg/amount"
	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// Section labels recognised on every statement.
var (
	DefaultCreditSections = []string{
		"payments and other credits", "payments and credits", "payments", "credits",
		"other credits", "deposits and additions", "deposits and other additions",
		"deposits and other credits", "deposits", "refunds",
	}
	DefaultDebitSections = []string{
		"purchases", "purchase", "purchases and adjustments", "purchases and other charges",
		"new charges", "fees", "fees charged", "interest charged", "cash advances",
		"withdrawals", "withdrawals and other debits", "withdrawals and other subtractions",
		"atm and debit card withdrawals", "electronic withdrawals", "checks", "checks paid",
		"other subtractions", "service fees",
	}
	// DefaultNeutralSections open a transaction listing without implying polarity.
	DefaultNeutralSections = []string{"account activity", "transactions", "transaction details"}
)

// Sections maps folded section labels to the polarity of the rows under them.
type Sections map[string]amount.Hint

// NewSections returns the default labels plus the given ones. Later labels win.
func NewSections(credit, debit []string) Sections {
	s := make(Sections)
	s.add(DefaultNeutralSections, amount.HintNone)
	s.add(DefaultDebitSections, amount.HintDebit)
	s.add(DefaultCreditSections, amount.HintCredit)
	s.add(debit, amount.HintDebit)
	s.add(credit, amount.HintCredit)
	return s
}

func (s Sections) add(labels []string, hint amount.Hint) {
	for _, l := range labels {
		if f := textnorm.Fold(l); f != "" {
			s[f] = hint
		}
	}
}

// Match reports whether text is a bare section label, tolerating a trailing
// "continued".
func (s Sections) Match(text string) (amount.Hint, bool) {
	f := textnorm.Fold(text)
	f = strings.TrimSuffix(f, " continued")
	f = strings.TrimSuffix(f, " cont d")
	hint, ok := s[f]
	return hint, ok
}
