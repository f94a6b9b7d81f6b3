// Package rules interprets declarative per-issuer extraction specs: header
// aliases, date formats, sign keywords and row filters mapped onto the
// canonical transaction schema without bespoke code.
package rules

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/dates"
)

// Canonical fields a header can resolve to.
const (
	FieldDate        = "date"
	FieldPostDate    = "post_date"
	FieldDescription = "description"
	FieldAmount      = "amount"
	FieldDebit       = "debit"
	FieldCredit      = "credit"
)

// Fields lists the canonical fields in resolution order.
var Fields = []string{FieldDate, FieldPostDate, FieldDescription, FieldAmount, FieldDebit, FieldCredit}

// Limits on user-supplied patterns. Go regexps run in linear time; these bound
// compile cost and memory.
const (
	MaxPatternLength = 512
	MaxPatterns      = 64
)

// Spec is a declarative extraction spec as read from YAML or JSON.
type Spec struct {
	Name               string              `koanf:"name" yaml:"name"`
	Institution        string              `koanf:"institution" yaml:"institution,omitempty"`
	AccountTypeDefault api.AccountType     `koanf:"account_type_default" yaml:"account_type_default"`
	AccountName        string              `koanf:"account_name" yaml:"account_name,omitempty"`
	AccountNamePattern string              `koanf:"account_name_pattern" yaml:"account_name_pattern,omitempty"`
	Currency           string              `koanf:"currency" yaml:"currency,omitempty"`
	Detect             Detect              `koanf:"detect" yaml:"detect,omitempty"`
	HeaderAliases      map[string][]string `koanf:"header_aliases" yaml:"header_aliases"`
	DateFormats        []string            `koanf:"date_formats" yaml:"date_formats"`
	SignRules          SignRules           `koanf:"sign_rules" yaml:"sign_rules"`
	DropRowPatterns    []string            `koanf:"drop_row_patterns" yaml:"drop_row_patterns,omitempty"`
	ExcludeKeywords    []string            `koanf:"exclude_keywords" yaml:"exclude_keywords,omitempty"`
	ExcludeDefaults    *bool               `koanf:"exclude_defaults" yaml:"exclude_defaults,omitempty"`
	Sections           Sections            `koanf:"sections" yaml:"sections,omitempty"`
	Continuation       *bool               `koanf:"continuation" yaml:"continuation,omitempty"`
	SubtotalPatterns   []string            `koanf:"subtotal_patterns" yaml:"subtotal_patterns,omitempty"`
}

// Detect controls issuer detection.
type Detect struct {
	// Keywords identify the issuer; any one must occur. Defaults to the
	// institution and spec name.
	Keywords []string `koanf:"keywords" yaml:"keywords,omitempty"`
	// Require lists keywords that must all occur.
	Require []string `koanf:"require" yaml:"require,omitempty"`
}

// SignRules drives credit classification.
type SignRules struct {
	ChargeKeywords []string `koanf:"charge_keywords" yaml:"charge_keywords"`
	CreditKeywords []string `koanf:"credit_keywords" yaml:"credit_keywords"`
	// NegativeIsCredit sets the polarity of a single signed amount column.
	// Defaults to true for credit accounts and false otherwise.
	NegativeIsCredit *bool `koanf:"negative_is_credit" yaml:"negative_is_credit,omitempty"`
}

// Sections lists section labels whose following rows are credits or debits.
type Sections struct {
	Credit []string `koanf:"credit" yaml:"credit,omitempty"`
	Debit  []string `koanf:"debit" yaml:"debit,omitempty"`
}

// Required top-level sections.
var requiredSections = []string{"name", "account_type_default", "header_aliases", "date_formats"}

// Parse reads a spec from YAML or JSON bytes. format is "yaml" or "json".
func Parse(data []byte, format string) (*Spec, error) {
	k := koanf.New(".")
	parser, err := Parser(format)
	if err != nil {
		return nil, err
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("parsing spec: %w", err)
	}
	return fromKoanf(k)
}

// LoadFile reads and validates a spec file. The format follows the extension.
func LoadFile(path string) (*Spec, error) {
	k := koanf.New(".")
	parser, err := Parser(FormatOf(path))
	if err != nil {
		return nil, err
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("loading spec %s: %w", path, err)
	}
	return fromKoanf(k)
}

// FormatOf returns "json" for .json paths and "yaml" otherwise.
func FormatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}

// Parser returns the koanf parser for a format as given by FormatOf.
func Parser(format string) (koanf.Parser, error) {
	switch strings.ToLower(format) {
	case "yaml", "yml", "":
		return yaml.Parser(), nil
	case "json":
		return json.Parser(), nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

func fromKoanf(k *koanf.Koanf) (*Spec, error) {
	name := k.String("name")
	for _, section := range requiredSections {
		if !k.Exists(section) {
			return nil, &api.SpecValidationError{Spec: name, Section: section}
		}
	}

	var s Spec
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("decoding spec %s: %w", name, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks s for missing or malformed sections.
func (s *Spec) Validate() error {
	invalid := func(section, format string, args ...any) error {
		return &api.SpecValidationError{Spec: s.Name, Section: section, Reason: fmt.Sprintf(format, args...)}
	}

	if strings.TrimSpace(s.Name) == "" {
		return &api.SpecValidationError{Section: "name"}
	}
	if s.AccountTypeDefault == "" {
		return &api.SpecValidationError{Spec: s.Name, Section: "account_type_default"}
	}
	if !s.AccountTypeDefault.Valid() {
		return invalid("account_type_default", "unknown account type %q", s.AccountTypeDefault)
	}

	if len(s.HeaderAliases) == 0 {
		return &api.SpecValidationError{Spec: s.Name, Section: "header_aliases"}
	}
	for field, aliases := range s.HeaderAliases {
		if !isField(field) {
			return invalid("header_aliases", "unknown field %q", field)
		}
		if len(aliases) == 0 {
			return invalid("header_aliases."+field, "no aliases")
		}
	}
	if len(s.HeaderAliases[FieldDate]) == 0 {
		return &api.SpecValidationError{Spec: s.Name, Section: "header_aliases.date"}
	}
	if len(s.HeaderAliases[FieldAmount]) == 0 && len(s.HeaderAliases[FieldDebit]) == 0 && len(s.HeaderAliases[FieldCredit]) == 0 {
		return &api.SpecValidationError{Spec: s.Name, Section: "header_aliases.amount"}
	}

	if len(s.DateFormats) == 0 {
		return &api.SpecValidationError{Spec: s.Name, Section: "date_formats"}
	}
	if _, err := dates.CompileAll(s.DateFormats); err != nil {
		return invalid("date_formats", "%v", err)
	}

	if _, err := compilePatterns(s.DropRowPatterns, false); err != nil {
		return invalid("drop_row_patterns", "%v", err)
	}
	if _, err := compilePatterns(s.SubtotalPatterns, true); err != nil {
		return invalid("subtotal_patterns", "%v", err)
	}
	if s.AccountNamePattern != "" {
		if _, err := compilePatterns([]string{s.AccountNamePattern}, true); err != nil {
			return invalid("account_name_pattern", "%v", err)
		}
	}
	return nil
}

func isField(f string) bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// compilePatterns compiles user patterns case-insensitively, enforcing the size
// limits. withGroup requires exactly one capture group.
func compilePatterns(patterns []string, withGroup bool) ([]*regexp.Regexp, error) {
	if len(patterns) > MaxPatterns {
		return nil, fmt.Errorf("%d patterns exceeds the limit of %d", len(patterns), MaxPatterns)
	}
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if len(p) > MaxPatternLength {
			return nil, fmt.Errorf("pattern longer than %d characters", MaxPatternLength)
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		if withGroup && re.NumSubexp() != 1 {
			return nil, fmt.Errorf("pattern %q must have exactly one capture group", p)
		}
		out = append(out, re)
	}
	return out, nil
}

// DetectKeywords returns the issuer keywords used by Supports.
func (s *Spec) DetectKeywords() []string {
	if len(s.Detect.Keywords) > 0 {
		return s.Detect.Keywords
	}
	var kws []string
	if s.Institution != "" {
		kws = append(kws, s.Institution)
	}
	return append(kws, s.Name)
}

// InstitutionName returns the institution, defaulting to the spec name.
func (s *Spec) InstitutionName() string {
	if s.Institution != "" {
		return s.Institution
	}
	return s.Name
}

// NegativeIsCredit resolves the polarity of single signed amount columns.
func (s *Spec) NegativeIsCredit() bool {
	if s.SignRules.NegativeIsCredit != nil {
		return *s.SignRules.NegativeIsCredit
	}
	return s.AccountTypeDefault == api.AccountCredit
}

func boolOr(b *bool, def bool) bool {
	if b == nil {
		return def
	}
	return *b
}
