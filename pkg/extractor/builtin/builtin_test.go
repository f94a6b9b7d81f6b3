package builtin

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/stmtx/pkg/api"
)

const chaseText = `CChhaassee Freedom Unlimited
Opening/Closing Date 12/15/24 - 01/14/25
ACCOUNT ACTIVITY
Date of Transaction  Merchant Name or Transaction Description  $ Amount
PAYMENTS AND OTHER CREDITS
12/20  Payment Thank You-Mobile  -500.00
12/22  AMAZON MKTPL RETURN  -25.99
PURCHASE
12/30  AMAZON.COM*AB12C AMZN.COM/BILL WA  45.67
01/04  STARBUCKS STORE 1234  5.25
Total fees charged in 2025  $0.00
INTEREST CHARGES
Purchases  20.49%(v)(d)  - 0 -  $0.00`

const amexText = `American Express
Blue Cash Preferred
Closing Date 01/14/25
Payments and Credits
Summary  Total
Detail
12/31/24*  MOBILE PAYMENT - THANK YOU  -$500.00
01/02/25  AMAZON MARKETPLACE RETURN  -$19.99
New Charges
Detail
12/30/24  UBER TRIP  $12.40
HELP.UBER.COM  CA
01/05/25  WHOLEFDS MKT 10233  $84.12
Total New Charges  $96.52
Fees
Total Fees for this Period  $0.00`

const bofaText = `Bank of America
Your Adv Plus Banking for December 1, 2024 to December 31, 2024
Account summary
Beginning balance on December 1, 2024  $1,000.00
Deposits and other additions  2,000.00
Deposits and other additions
Date  Description  Amount
12/02/24  PAYROLL ACME DES:PAYROLL ID:123  2,000.00
Total deposits and other additions  $2,000.00
Withdrawals and other subtractions
Date  Description  Amount
12/03/24  GROCERY OUTLET #123  -84.12
12/04/24  Online Banking transfer to SAV 1234 Confirmation# 555  -100.00
Total withdrawals and other subtractions  -$184.12
Checks
12/05/24  1234  -150.00
Total checks  -$150.00
Daily ledger balances
12/02  3,000.00`

func textDoc(text string) *api.Document {
	return api.NewDocument(api.DocumentInfo{Backend: "layout"}, text, nil)
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func descriptions(out *api.Extraction) []string {
	var ds []string
	for _, tx := range out.Transactions {
		ds = append(ds, tx.OriginalDescription)
	}
	return ds
}

func TestSupports(t *testing.T) {
	docs := map[string]*api.Document{
		"chase": textDoc(chaseText),
		"amex":  textDoc(amexText),
		"bofa":  textDoc(bofaText),
	}
	for _, ex := range All(discard()) {
		for name, doc := range docs {
			assert.Equal(t, ex.Name() == name, ex.Supports(doc), "%s on %s", ex.Name(), name)
		}
	}
}

func TestChase_DoubledGlyphDetection(t *testing.T) {
	ex := NewChase(discard())
	assert.True(t, ex.Supports(textDoc("CChhaassee CCaarrdd SSeerrvviicceess\nOOppeenniinngg//CClloossiinngg DDaattee 12/15/24 - 01/14/25")))
	assert.False(t, ex.Supports(textDoc("PURCHASE activity\nOpening/Closing Date 12/15/24 - 01/14/25")))
}

func TestChase_Extract(t *testing.T) {
	out, err := NewChase(discard()).Extract(textDoc(chaseText))
	require.NoError(t, err)

	assert.Equal(t, "Chase Freedom Unlimited", out.Metadata.AccountName)
	assert.Equal(t, api.AccountCredit, out.Metadata.AccountType)
	require.NotNil(t, out.Metadata.StatementPeriod)

	assert.Equal(t, []string{"AMAZON MKTPL RETURN", "AMAZON.COM*AB12C AMZN.COM/BILL WA", "STARBUCKS STORE 1234"}, descriptions(out))
	assert.True(t, out.Transactions[0].IsCredit)
	assert.Equal(t, "25.99", out.Transactions[0].Amount.StringFixed(2))
	assert.Equal(t, day(2024, time.December, 30), out.Transactions[1].Date)
	assert.False(t, out.Transactions[1].IsCredit)
	assert.Equal(t, day(2025, time.January, 4), out.Transactions[2].Date)
	assert.Empty(t, out.Rejected)

	for _, tx := range out.Transactions {
		assert.False(t, tx.Amount.IsNegative())
		assert.NotContains(t, strings.ToLower(tx.OriginalDescription), "payment thank you")
	}

	var labels []string
	for _, s := range out.Skipped {
		if s.Reason == api.SkipSectionLabel {
			labels = append(labels, s.Description)
		}
	}
	assert.Equal(t, []string{"ACCOUNT ACTIVITY", "PAYMENTS AND OTHER CREDITS", "PURCHASE"}, labels)
}

func TestAmex_Extract(t *testing.T) {
	out, err := NewAmex(discard()).Extract(textDoc(amexText))
	require.NoError(t, err)

	assert.Equal(t, "American Express Blue Cash Preferred", out.Metadata.AccountName)
	assert.Equal(t, []string{"AMAZON MARKETPLACE RETURN", "UBER TRIP HELP.UBER.COM CA", "WHOLEFDS MKT 10233"}, descriptions(out))
	assert.True(t, out.Transactions[0].IsCredit)
	assert.False(t, out.Transactions[1].IsCredit)
	assert.Equal(t, day(2024, time.December, 30), out.Transactions[1].Date)
	assert.Equal(t, "84.12", out.Transactions[2].Amount.StringFixed(2))
}

func TestBankOfAmerica_Extract(t *testing.T) {
	out, err := NewBankOfAmerica(discard()).Extract(textDoc(bofaText))
	require.NoError(t, err)

	assert.Equal(t, "Bank of America Adv Plus Banking", out.Metadata.AccountName)
	assert.Equal(t, api.AccountChecking, out.Metadata.AccountType)
	require.NotNil(t, out.Metadata.StatementPeriod)
	assert.Equal(t, day(2024, time.December, 1), out.Metadata.StatementPeriod.Start)

	assert.Equal(t, []string{"PAYROLL ACME DES:PAYROLL ID:123", "GROCERY OUTLET #123", "CHECK 1234"}, descriptions(out))
	assert.True(t, out.Transactions[0].IsCredit)
	assert.False(t, out.Transactions[1].IsCredit)
	assert.False(t, out.Transactions[2].IsCredit)
	assert.Equal(t, "150.00", out.Transactions[2].Amount.StringFixed(2))
}
