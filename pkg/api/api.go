// Package api defines the core interfaces and data structures for stmtx.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies the account a statement belongs to.
type AccountType string

// Supported account types.
const (
	AccountChecking AccountType = "checking"
	AccountSavings  AccountType = "savings"
	AccountCredit   AccountType = "credit"
)

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	switch t {
	case AccountChecking, AccountSavings, AccountCredit:
		return true
	}
	return false
}

// DateRange is an inclusive statement period.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// StatementMetadata identifies the issuer and account of one statement.
// It is created once per extraction and never mutated afterwards.
type StatementMetadata struct {
	Institution     string      `json:"institution"`
	AccountName     string      `json:"account_name"`
	AccountType     AccountType `json:"account_type"`
	StatementPeriod *DateRange  `json:"statement_period,omitempty"`
	// Currency is an ISO-4217 code. Empty means USD.
	Currency string `json:"currency,omitempty"`
}

// CurrencyCode returns the statement currency, defaulting to USD.
func (m StatementMetadata) CurrencyCode() string {
	if m.Currency == "" {
		return "USD"
	}
	return m.Currency
}

// ExtractedTransaction is one normalized statement row.
// Amount is never negative; polarity lives in IsCredit.
type ExtractedTransaction struct {
	Date                time.Time       `json:"date"`
	Merchant            string          `json:"merchant"`
	Amount              decimal.Decimal `json:"amount"`
	OriginalDescription string          `json:"original_description"`
	IsCredit            bool            `json:"is_credit"`
}

// SkipReason explains why a row was intentionally left out of the output.
type SkipReason string

// Reasons a row is skipped without being an error.
const (
	SkipExcludedKeyword SkipReason = "excluded_keyword"
	SkipSectionLabel    SkipReason = "section_label"
	SkipDropPattern     SkipReason = "drop_pattern"
	SkipContinuation    SkipReason = "continuation"
)

// SkippedRow records a row that was discarded on purpose.
type SkippedRow struct {
	Table       int        `json:"table"`
	Row         int        `json:"row"`
	Reason      SkipReason `json:"reason"`
	Detail      string     `json:"detail,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Extraction is the output of one extractor pass over a Document.
type Extraction struct {
	Metadata     StatementMetadata      `json:"metadata"`
	Transactions []ExtractedTransaction `json:"transactions"`
	Rejected     []*RowParseError       `json:"rejected,omitempty"`
	Skipped      []SkippedRow           `json:"skipped,omitempty"`
}

// Extractor turns a Document from one issuer into transactions.
type Extractor interface {
	// Name returns the unique extractor name (e.g., "chase", "discover").
	Name() string
	// Supports reports whether the document looks like this issuer's statement.
	Supports(doc *Document) bool
	// Extract walks the document and returns metadata plus transactions.
	Extract(doc *Document) (*Extraction, error)
}

// Loader turns raw PDF bytes into a Document.
type Loader interface {
	// Name returns the backend name used in configuration ("ruled", "layout", "grid").
	Name() string
	// Load parses data. Recoverable malformed input yields an empty Document, not an error.
	Load(data []byte) (*Document, error)
}

// Origin says where an extractor came from.
type Origin string

// Extractor origins in precedence order.
const (
	OriginBuiltin Origin = "builtin"
	OriginBundled Origin = "bundled"
	OriginUser    Origin = "user"
)

// Rank returns the precedence rank of an origin; lower wins.
func (o Origin) Rank() int {
	switch o {
	case OriginBuiltin:
		return 0
	case OriginBundled:
		return 1
	default:
		return 2
	}
}

// Kind says how an extractor is implemented.
type Kind string

// Extractor kinds.
const (
	KindCode        Kind = "code"
	KindDeclarative Kind = "declarative"
)
