package api

import (
	"fmt"
	"strings"
)

// LoadError means a backend could not parse the bytes at all.
// The engine recovers by trying the next backend.
type LoadError struct {
	Backend string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("backend %s: %v", e.Backend, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Attempt records one backend try made by the engine selector.
type Attempt struct {
	Backend string `json:"backend"`
	Tables  int    `json:"tables"`
	Err     string `json:"error,omitempty"`
}

// UnsupportedFormatError means no backend produced a usable document, or no
// registered extractor recognised the one that was produced.
type UnsupportedFormatError struct {
	// Attempts is set when every backend was exhausted.
	Attempts []Attempt
	// Detected lists normalized institution keywords found in the document.
	Detected []string
	// Preview holds the first normalized lines of the document.
	Preview []string
}

func (e *UnsupportedFormatError) Error() string {
	var b strings.Builder
	if len(e.Attempts) > 0 {
		b.WriteString("no backend produced a usable document")
		for _, a := range e.Attempts {
			reason := a.Err
			if reason == "" {
				reason = "no tables"
			}
			fmt.Fprintf(&b, "; %s: %s", a.Backend, reason)
		}
		return b.String()
	}

	b.WriteString("no extractor matched the document")
	if len(e.Detected) > 0 {
		fmt.Fprintf(&b, " (detected: %s)", strings.Join(e.Detected, ", "))
	} else {
		b.WriteString(" (no known institution keywords detected)")
	}
	if len(e.Preview) > 0 {
		fmt.Fprintf(&b, "; first lines: %q", e.Preview)
	}
	return b.String()
}

// Reasons a single row could not be parsed.
const (
	ReasonDateParse   = "date_parse_error"
	ReasonMissingDate = "missing_date"
	ReasonYearUnknown = "year_unknown"
	ReasonMissingAmt  = "missing_amount"
	ReasonAmountParse = "amount_parse_error"
)

// RowParseError means one row's date or amount could not be parsed.
// The row is skipped and counted; extraction continues.
type RowParseError struct {
	Table  int    `json:"table"`
	Row    int    `json:"row"`
	Reason string `json:"reason"`
	Raw    string `json:"raw,omitempty"`
	Err    error  `json:"-"`
}

func (e *RowParseError) Error() string {
	msg := fmt.Sprintf("table %d row %d: %s", e.Table, e.Row, e.Reason)
	if e.Raw != "" {
		msg += fmt.Sprintf(" (%q)", e.Raw)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RowParseError) Unwrap() error { return e.Err }

// SpecValidationError means a declarative spec is missing a required section.
// It is fatal for that spec only.
type SpecValidationError struct {
	Spec    string
	Section string
	Reason  string
}

func (e *SpecValidationError) Error() string {
	name := e.Spec
	if name == "" {
		name = "<unnamed>"
	}
	if e.Reason == "" {
		return fmt.Sprintf("spec %s: missing required section %q", name, e.Section)
	}
	return fmt.Sprintf("spec %s: section %q: %s", name, e.Section, e.Reason)
}

// PluginLoadError means one plugin file failed to load. It is recorded in the
// load report and does not stop discovery.
type PluginLoadError struct {
	Path string
	Err  error
}

func (e *PluginLoadError) Error() string {
	return fmt.Sprintf("plugin %s: %v", e.Path, e.Err)
}

func (e *PluginLoadError) Unwrap() error { return e.Err }
