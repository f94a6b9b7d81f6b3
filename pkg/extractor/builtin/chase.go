package builtin

import (
	"log/slog"
	"regexp"

	"github.com/ArionMiles/stmtx/pkg/amount"
	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/dates"
	"github.com/ArionMiles/stmtx/pkg/extractor"
)

// NewChase returns the extractor for Chase credit card statements. Activity
// lines carry a month/day date resolved against the Opening/Closing Date range;
// payments and credits are negative.
func NewChase(logger *slog.Logger) *Statement {
	return newStatement(Statement{
		name:        "chase",
		institution: "Chase",
		accountType: api.AccountCredit,
		account:     "Chase Credit Card",
		accountRe:   regexp.MustCompile(`(?i)\b(freedom unlimited|freedom flex|freedom|sapphire preferred|sapphire reserve|slate edge|slate|amazon prime visa|prime visa|united explorer|ink business preferred|ink business cash)\b`),
		formats:     dates.MustCompileAll([]string{"%m/%d"}),
		txn:         regexp.MustCompile(`^(\d{2}/\d{2})\s+(.+?)\s+(-?\$?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2})$`),
		sections:    extractor.NewSections(nil, []string{"purchases and redemptions"}),
		stops:       []string{"interest charges"},
		classifier: amount.NewClassifier(amount.ClassifierConfig{
			CreditKeywords: []string{"refund", "return", "reversal", "statement credit"},
		}),
		negativeIsCredit: true,
	}, []string{"chase", "jpmorgan chase"}, []string{"opening closing date"}, logger)
}
