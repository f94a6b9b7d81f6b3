// Package csv implements a Writer that writes spend transactions as CSV.
package csv

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/orchestrator"
)

// Record is one output row.
type Record struct {
	Date                string `csv:"date"`
	Merchant            string `csv:"merchant"`
	Amount              string `csv:"amount"`
	OriginalDescription string `csv:"original_description"`
	AccountName         string `csv:"account_name"`
	Institution         string `csv:"institution"`
	AccountType         string `csv:"account_type"`
}

// CreditRecord is a Record with an explicit polarity column. It is only used
// when credits are written.
type CreditRecord struct {
	Record
	IsCredit bool `csv:"is_credit"`
}

// Config holds configuration for the CSV writer.
type Config struct {
	// Credits includes credit rows and adds an is_credit column.
	Credits bool
	// Metadata writes a "# key=value" line before each statement's rows.
	Metadata bool
}

// Writer writes statements to an io.Writer. The header row is written once,
// before the first statement.
type Writer struct {
	out         io.Writer
	cfg         Config
	mu          sync.Mutex
	wroteHeader bool
	logger      *slog.Logger
}

// New creates a new CSV writer.
func New(out io.Writer, cfg Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{out: out, cfg: cfg, logger: logger}
}

// Write appends one statement.
func (w *Writer) Write(res *orchestrator.Result) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cfg.Metadata {
		if _, err := io.WriteString(w.out, MetadataLine(res)+"\n"); err != nil {
			return fmt.Errorf("writing metadata line: %w", err)
		}
	}

	var rows any
	if w.cfg.Credits {
		rows = creditRecords(res)
	} else {
		rows = Records(res)
	}

	marshal := gocsv.MarshalWithoutHeaders
	if !w.wroteHeader {
		marshal = gocsv.Marshal
	}
	if err := marshal(rows, w.out); err != nil {
		return fmt.Errorf("writing csv records: %w", err)
	}
	w.wroteHeader = true

	w.logger.Debug("wrote statement to csv", "source", res.Source, "extractor", res.Extractor)
	return nil
}

// Close is a no-op; the caller owns the underlying writer.
func (w *Writer) Close() error { return nil }

// Records returns the spend rows of a statement in statement order.
func Records(res *orchestrator.Result) []Record {
	out := []Record{}
	for _, tx := range res.Extraction.Transactions {
		if tx.IsCredit {
			continue
		}
		out = append(out, record(res.Extraction.Metadata, tx))
	}
	return out
}

func creditRecords(res *orchestrator.Result) []CreditRecord {
	out := make([]CreditRecord, 0, len(res.Extraction.Transactions))
	for _, tx := range res.Extraction.Transactions {
		out = append(out, CreditRecord{Record: record(res.Extraction.Metadata, tx), IsCredit: tx.IsCredit})
	}
	return out
}

func record(meta api.StatementMetadata, tx api.ExtractedTransaction) Record {
	return Record{
		Date:                tx.Date.Format(time.DateOnly),
		Merchant:            tx.Merchant,
		Amount:              tx.Amount.StringFixed(2),
		OriginalDescription: tx.OriginalDescription,
		AccountName:         meta.AccountName,
		Institution:         meta.Institution,
		AccountType:         string(meta.AccountType),
	}
}

// MetadataLine renders the statement header comment.
func MetadataLine(res *orchestrator.Result) string {
	meta := res.Extraction.Metadata
	period := ""
	if p := meta.StatementPeriod; p != nil {
		period = p.Start.Format(time.DateOnly) + ".." + p.End.Format(time.DateOnly)
	}
	pairs := [][2]string{
		{"institution", meta.Institution},
		{"account", meta.AccountName},
		{"type", string(meta.AccountType)},
		{"period", period},
		{"backend", res.Backend},
		{"extractor", res.Extractor},
	}
	parts := make([]string, len(pairs))
	for i, kv := range pairs {
		parts[i] = kv[0] + "=" + quote(kv[1])
	}
	return "# " + strings.Join(parts, " ")
}

func quote(v string) string {
	if v == "" || strings.ContainsAny(v, " \t\"=") {
		return fmt.Sprintf("%q", v)
	}
	return v
}
