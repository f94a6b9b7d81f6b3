// Package json implements a Writer that writes statements as JSON.
package json

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/diagnostics"
	"github.com/ArionMiles/stmtx/pkg/orchestrator"
)

// Config holds configuration for the JSON writer.
type Config struct {
	// Credits keeps credit rows in the transaction list.
	Credits bool
	// Diagnostics adds the diagnostics report to each statement.
	Diagnostics bool
}

// Period is a statement period with date-only bounds.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Metadata is the statement metadata as written.
type Metadata struct {
	Institution     string  `json:"institution"`
	AccountName     string  `json:"account_name"`
	AccountType     string  `json:"account_type"`
	StatementPeriod *Period `json:"statement_period,omitempty"`
	Currency        string  `json:"currency"`
}

// Transaction is one transaction as written. Amount is a fixed two-decimal
// string and never negative.
type Transaction struct {
	Date                string `json:"date"`
	Merchant            string `json:"merchant"`
	Amount              string `json:"amount"`
	OriginalDescription string `json:"original_description"`
	IsCredit            bool   `json:"is_credit"`
}

// Statement is the document written per input.
type Statement struct {
	Source       string              `json:"source,omitempty"`
	Metadata     Metadata            `json:"metadata"`
	DocumentID   string              `json:"document_id"`
	Backend      string              `json:"backend"`
	Extractor    string              `json:"extractor"`
	Transactions []Transaction       `json:"transactions"`
	Diagnostics  *diagnostics.Report `json:"diagnostics,omitempty"`
}

// Writer collects statements and writes them on Close: a single object for
// one statement, an array otherwise.
type Writer struct {
	out        io.Writer
	cfg        Config
	mu         sync.Mutex
	statements []Statement
	logger     *slog.Logger
}

// New creates a new JSON writer.
func New(out io.Writer, cfg Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{out: out, cfg: cfg, statements: make([]Statement, 0), logger: logger}
}

// Write buffers one statement.
func (w *Writer) Write(res *orchestrator.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statements = append(w.statements, w.statement(res))
	return nil
}

// Close encodes everything written so far.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var v any = w.statements
	if len(w.statements) == 1 {
		v = w.statements[0]
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}
	if _, err := w.out.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("writing json: %w", err)
	}

	w.logger.Debug("wrote statements to json", "count", len(w.statements))
	return nil
}

// StatementCount returns the number of statements written.
func (w *Writer) StatementCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.statements)
}

func (w *Writer) statement(res *orchestrator.Result) Statement {
	meta := res.Extraction.Metadata
	s := Statement{
		Source:       res.Source,
		DocumentID:   res.DocumentID,
		Backend:      res.Backend,
		Extractor:    res.Extractor,
		Transactions: make([]Transaction, 0, len(res.Extraction.Transactions)),
		Metadata: Metadata{
			Institution: meta.Institution,
			AccountName: meta.AccountName,
			AccountType: string(meta.AccountType),
			Currency:    meta.CurrencyCode(),
		},
	}
	if p := meta.StatementPeriod; p != nil {
		s.Metadata.StatementPeriod = &Period{Start: p.Start.Format(time.DateOnly), End: p.End.Format(time.DateOnly)}
	}
	for _, tx := range res.Extraction.Transactions {
		if tx.IsCredit && !w.cfg.Credits {
			continue
		}
		s.Transactions = append(s.Transactions, transaction(tx))
	}
	if w.cfg.Diagnostics {
		s.Diagnostics = res.Report
	}
	return s
}

func transaction(tx api.ExtractedTransaction) Transaction {
	return Transaction{
		Date:                tx.Date.Format(time.DateOnly),
		Merchant:            tx.Merchant,
		Amount:              tx.Amount.StringFixed(2),
		OriginalDescription: tx.OriginalDescription,
		IsCredit:            tx.IsCredit,
	}
}
