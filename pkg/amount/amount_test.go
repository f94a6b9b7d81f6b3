package amount

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"45.67", "45.67"},
		{"$1,234.56", "1234.56"},
		{"-$12.00", "-12"},
		{"(12.34)", "-12.34"},
		{"($1,000.00)", "-1000"},
		{"12.00-", "-12"},
		{"500.00 CR", "-500"},
		{"500.00CR", "-500"},
		{"75.10 DR", "75.1"},
		{"1.234,56", "1234.56"},
		{"1 234,56 €", "1234.56"},
		{"USD 9.99", "9.99"},
		{"+3.50", "3.5"},
		{"1,234", "1234"},
		{"1.234.567", "1234567"},
		{"12,5", "12.5"},
	}

	for _, tc := range tests {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := Parse(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("   ")
	assert.ErrorIs(t, err, ErrEmpty)

	for _, raw := range []string{"$", "abc", "12.34.56,7x"} {
		_, err := Parse(raw)
		assert.Error(t, err, raw)
	}
}

func TestAbs(t *testing.T) {
	v, neg, err := Abs("(45.67)")
	require.NoError(t, err)
	assert.True(t, neg)
	assert.Equal(t, "45.67", v.String())
}

func TestLooksLikeAmount(t *testing.T) {
	for _, s := range []string{"45.67", "$1,234.56", "(45.00)", "12.00-", "-$3.10", "500.00 CR", "1.234,56"} {
		assert.True(t, LooksLikeAmount(s), s)
	}
	for _, s := range []string{"12/30", "2024", "AMAZON", "45", "1234567"} {
		assert.False(t, LooksLikeAmount(s), s)
	}
}

func TestClassifier_Exclusion(t *testing.T) {
	c := NewClassifier(ClassifierConfig{ExcludeKeywords: []string{"balance transfer fee"}})

	tests := []struct {
		desc    string
		exclude bool
	}{
		{"AMAZON.COM", false},
		{"ACH PAYMENT THANK YOU", true},
		{"AUTOPAY 999999", true},
		{"PURCHASE INTEREST CHARGE", true},
		{"ONLINE TRANSFER TO SAV 1234", true},
		{"BALANCE TRANSFER FEE", true},
		{"PAYMENTS R US HARDWARE", false},
	}

	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			d := c.Classify(tc.desc, HintNone)
			assert.Equal(t, tc.exclude, d.Exclude)
		})
	}
}

func TestClassifier_NoDefaults(t *testing.T) {
	c := NewClassifier(ClassifierConfig{NoDefaultExclusions: true, ExcludeKeywords: []string{"rewards"}})

	assert.False(t, c.Classify("ACH PAYMENT THANK YOU", HintNone).Exclude)
	assert.True(t, c.Classify("REWARDS REDEMPTION", HintNone).Exclude)
}

func TestClassifier_Polarity(t *testing.T) {
	c := NewClassifier(ClassifierConfig{
		CreditKeywords: []string{"refund", "return"},
		ChargeKeywords: []string{"fee"},
	})

	assert.True(t, c.Classify("REFUND AMAZON", HintDebit).IsCredit, "keyword beats hint")
	assert.False(t, c.Classify("ANNUAL FEE", HintCredit).IsCredit, "keyword beats hint")
	assert.True(t, c.Classify("REFUND FEE", HintCredit).IsCredit, "ambiguous falls back to hint")
	assert.False(t, c.Classify("REFUND FEE", HintDebit).IsCredit)
	assert.True(t, c.Classify("STARBUCKS", HintCredit).IsCredit)
	assert.False(t, c.Classify("STARBUCKS", HintNone).IsCredit)
}
