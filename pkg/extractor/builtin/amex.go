package builtin

import (
	"log/slog"
	"regexp"

	"github.com/ArionMiles/stmtx/pkg/amount"
	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/dates"
	"github.com/ArionMiles/stmtx/pkg/extractor"
)

// NewAmex returns the extractor for American Express card statements. Dates
// carry a two-digit year, optionally marked with an asterisk, and merchant
// details wrap onto the lines below the charge.
func NewAmex(logger *slog.Logger) *Statement {
	return newStatement(Statement{
		name:        "amex",
		institution: "American Express",
		accountType: api.AccountCredit,
		account:     "American Express Card",
		accountRe:   regexp.MustCompile(`(?i)\b(platinum card|gold card|green card|blue cash preferred|blue cash everyday|everyday preferred|delta skymiles (?:gold|platinum|reserve)|hilton honors)\b`),
		formats:     dates.MustCompileAll([]string{"%m/%d/%y", "%m/%d/%Y"}),
		txn:         regexp.MustCompile(`^(\d{2}/\d{2}/\d{2,4})\*?\s+(.+?)\s+(-?\$?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2})$`),
		sections:    extractor.NewSections([]string{"payments and credits", "credits"}, []string{"new charges", "other account transactions"}),
		stops:       []string{"interest charge calculation", "about trailing interest"},
		classifier: amount.NewClassifier(amount.ClassifierConfig{
			ExcludeKeywords: []string{"membership rewards"},
			CreditKeywords:  []string{"refund", "return", "credit adjustment", "amex offer credit"},
			ChargeKeywords:  []string{"annual membership fee", "late fee"},
		}),
		negativeIsCredit: true,
		continuation:     true,
	}, []string{"american express", "americanexpress"}, nil, logger)
}
