package plugins

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/v2"

	"github.com/ArionMiles/stmtx/pkg/amount"
	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// Manifest describes a code plugin: an executable answering "supports" and
// "extract" with the document as JSON on stdin.
type Manifest struct {
	Name        string          `koanf:"name"`
	Command     string          `koanf:"command"`
	Args        []string        `koanf:"args"`
	Timeout     time.Duration   `koanf:"timeout"`
	Institution string          `koanf:"institution"`
	AccountType api.AccountType `koanf:"account_type"`
	// ExcludeKeywords extend the default payment, transfer and interest phrases.
	ExcludeKeywords []string `koanf:"exclude_keywords"`
	ExcludeDefaults *bool    `koanf:"exclude_defaults"`

	// Dir is the manifest's directory, used as the working directory.
	Dir string `koanf:"-"`
}

func parseManifest(k *koanf.Koanf, dir string, timeout time.Duration) (Manifest, error) {
	var m Manifest
	if err := k.UnmarshalWithConf("", &m, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return m, fmt.Errorf("decoding manifest: %w", err)
	}
	m.Dir = dir
	if strings.TrimSpace(m.Name) == "" {
		return m, &api.SpecValidationError{Section: "name"}
	}
	if strings.TrimSpace(m.Command) == "" {
		return m, &api.SpecValidationError{Spec: m.Name, Section: "command"}
	}
	if m.AccountType == "" {
		m.AccountType = api.AccountCredit
	}
	if !m.AccountType.Valid() {
		return m, &api.SpecValidationError{Spec: m.Name, Section: "account_type", Reason: fmt.Sprintf("unknown account type %q", m.AccountType)}
	}
	if m.Timeout <= 0 {
		m.Timeout = timeout
	}

	cmd, err := resolveCommand(m.Command, dir)
	if err != nil {
		return m, err
	}
	m.Command = cmd
	return m, nil
}

// resolveCommand makes commands with a path component relative to the
// manifest and looks bare names up on PATH.
func resolveCommand(command, dir string) (string, error) {
	if !strings.ContainsRune(command, '/') && !strings.ContainsRune(command, filepath.Separator) {
		p, err := exec.LookPath(command)
		if err != nil {
			return "", fmt.Errorf("finding command %q: %w", command, err)
		}
		return p, nil
	}
	if !filepath.IsAbs(command) {
		command = filepath.Join(dir, command)
	}
	if _, err := os.Stat(command); err != nil {
		return "", fmt.Errorf("command %q: %w", command, err)
	}
	return command, nil
}

// Exec is an extractor backed by an external executable.
type Exec struct {
	m          Manifest
	classifier *amount.Classifier
	logger     *slog.Logger
}

// NewExec returns an extractor for a parsed manifest.
func NewExec(m Manifest, logger *slog.Logger) *Exec {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exec{
		m: m,
		classifier: amount.NewClassifier(amount.ClassifierConfig{
			ExcludeKeywords:     m.ExcludeKeywords,
			NoDefaultExclusions: m.ExcludeDefaults != nil && !*m.ExcludeDefaults,
		}),
		logger: logger.With("extractor", m.Name, "command", m.Command),
	}
}

// Name returns the manifest name.
func (e *Exec) Name() string { return e.m.Name }

type supportsReply struct {
	Supports bool `json:"supports"`
}

// Supports asks the plugin. A plugin that fails or times out does not
// support the document.
func (e *Exec) Supports(doc *api.Document) bool {
	var reply supportsReply
	if err := e.run("supports", doc, &reply); err != nil {
		e.logger.Warn("plugin supports failed", "error", err)
		return false
	}
	return reply.Supports
}

type transactionReply struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Merchant    string `json:"merchant"`
	Amount      string `json:"amount"`
	IsCredit    bool   `json:"is_credit"`
}

type extractReply struct {
	Metadata struct {
		Institution string          `json:"institution"`
		AccountName string          `json:"account_name"`
		AccountType api.AccountType `json:"account_type"`
		Currency    string          `json:"currency"`
		Period      *api.DateRange  `json:"statement_period"`
	} `json:"metadata"`
	Transactions []transactionReply `json:"transactions"`
}

// Extract runs the plugin and normalizes its reply. Rows with an unreadable
// date or amount are rejected individually, and rows matching an exclusion
// phrase are skipped like any other extractor's.
func (e *Exec) Extract(doc *api.Document) (*api.Extraction, error) {
	var reply extractReply
	if err := e.run("extract", doc, &reply); err != nil {
		return nil, err
	}

	meta := api.StatementMetadata{
		Institution:     reply.Metadata.Institution,
		AccountName:     reply.Metadata.AccountName,
		AccountType:     reply.Metadata.AccountType,
		Currency:        reply.Metadata.Currency,
		StatementPeriod: reply.Metadata.Period,
	}
	if meta.Institution == "" {
		meta.Institution = e.m.Institution
	}
	if meta.Institution == "" {
		meta.Institution = e.m.Name
	}
	if !meta.AccountType.Valid() {
		meta.AccountType = e.m.AccountType
	}
	if meta.AccountName == "" {
		meta.AccountName = meta.Institution
	}

	out := &api.Extraction{Metadata: meta, Transactions: []api.ExtractedTransaction{}}
	for i, r := range reply.Transactions {
		raw := strings.Join([]string{r.Date, r.Description, r.Amount}, " ")
		date, err := parseReplyDate(r.Date)
		if err != nil {
			out.Rejected = append(out.Rejected, &api.RowParseError{Row: i, Reason: api.ReasonDateParse, Raw: raw, Err: err})
			continue
		}
		value, _, err := amount.Abs(r.Amount)
		if err != nil {
			reason := api.ReasonAmountParse
			if errors.Is(err, amount.ErrEmpty) {
				reason = api.ReasonMissingAmt
			}
			out.Rejected = append(out.Rejected, &api.RowParseError{Row: i, Reason: reason, Raw: raw, Err: err})
			continue
		}
		desc := textnorm.CollapseSpaces(r.Description)
		hint := amount.HintNone
		if r.IsCredit {
			hint = amount.HintCredit
		}
		d := e.classifier.Classify(desc, hint)
		if d.Exclude {
			out.Skipped = append(out.Skipped, api.SkippedRow{Row: i, Reason: api.SkipExcludedKeyword, Detail: d.Reason, Description: desc})
			continue
		}
		merchant := r.Merchant
		if merchant == "" {
			merchant = textnorm.CleanMerchant(desc)
		}
		out.Transactions = append(out.Transactions, api.ExtractedTransaction{
			Date:                date,
			Merchant:            merchant,
			Amount:              value,
			OriginalDescription: desc,
			IsCredit:            d.IsCredit,
		})
	}
	return out, nil
}

func parseReplyDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q is neither YYYY-MM-DD nor RFC 3339", s)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func (e *Exec) run(verb string, doc *api.Document, reply any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.m.Timeout)
	defer cancel()

	args := append(append([]string{}, e.m.Args...), verb)
	cmd := exec.CommandContext(ctx, e.m.Command, args...)
	cmd.Dir = e.m.Dir
	cmd.WaitDelay = time.Second
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("plugin %s %s: timed out after %s", e.m.Name, verb, e.m.Timeout)
		}
		return fmt.Errorf("plugin %s %s: %w: %s", e.m.Name, verb, err, strings.TrimSpace(stderr.String()))
	}
	if err := json.Unmarshal(stdout.Bytes(), reply); err != nil {
		return fmt.Errorf("plugin %s %s: decoding reply: %w", e.m.Name, verb, err)
	}
	return nil
}
