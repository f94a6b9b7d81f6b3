package builtin

import (
	"log/slog"
	"regexp"

	"github.com/ArionMiles/stmtx/pkg/amount"
	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/dates"
	"github.com/ArionMiles/stmtx/pkg/extractor"
)

// NewBankOfAmerica returns the extractor for Bank of America checking
// statements. Polarity comes from the deposit and withdrawal sections; checks
// are listed by number.
func NewBankOfAmerica(logger *slog.Logger) *Statement {
	return newStatement(Statement{
		name:        "bofa",
		institution: "Bank of America",
		accountType: api.AccountChecking,
		account:     "Bank of America Checking",
		accountRe:   regexp.MustCompile(`(?i)\b(adv(?:antage)? plus banking|advantage safebalance banking|advantage relationship banking|bofa core checking)\b`),
		formats:     dates.MustCompileAll([]string{"%m/%d/%y", "%m/%d/%Y"}),
		txn:         regexp.MustCompile(`^(\d{2}/\d{2}/\d{2,4})\s+(.+?)\s+(-?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2})$`),
		sections:    extractor.NewSections(nil, []string{"atm and debit card subtractions", "other subtractions"}),
		stops:       []string{"daily ledger balances", "account summary"},
		classifier: amount.NewClassifier(amount.ClassifierConfig{
			CreditKeywords: []string{"refund", "reversal"},
		}),
	}, []string{"bank of america"}, []string{"deposits and other additions"}, logger)
}
