package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/ArionMiles/stmtx/internal/runner"
	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/rules"
)

var specNameRe = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

const specHeader = `# Declarative extraction spec for %s.
# Tune it with: stmtx extract --spec %s --diagnostics <statement.pdf>
`

// runNewSpec writes a starter spec into the first plugin directory.
func runNewSpec(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("new-spec", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var common commonFlags
	common.register(fs)
	dir := fs.String("dir", "", "directory to write to (default: first plugin directory)")
	accountType := fs.String("account-type", string(api.AccountCredit), "checking, savings or credit")
	institution := fs.String("institution", "", "institution display name")
	force := fs.Bool("force", false, "overwrite an existing spec")

	names, err := parseInterleaved(fs, args)
	if err != nil {
		return usageError(stderr, fs, err)
	}
	if len(names) != 1 {
		return usageError(stderr, fs, errors.New("exactly one spec name is required"))
	}
	name := names[0]
	if !specNameRe.MatchString(name) {
		return usageError(stderr, fs, fmt.Errorf("spec name %q must be lowercase letters, digits, '-' or '_'", name))
	}

	target := *dir
	if target == "" {
		cfg, _, err := common.loadConfig(fs, nil, stderr)
		if err != nil {
			fmt.Fprintf(stderr, "stmtx new-spec: %v\n", err)
			return runner.ExitUsage
		}
		if len(cfg.Plugins.Dirs) == 0 {
			return usageError(stderr, fs, errors.New("no plugin directory configured; pass --dir"))
		}
		target = cfg.Plugins.Dirs[0]
	}

	spec := scaffold(name, *institution, api.AccountType(*accountType))
	if err := spec.Validate(); err != nil {
		return usageError(stderr, fs, err)
	}

	path := filepath.Join(target, name+".yaml")
	if _, err := os.Stat(path); err == nil && !*force {
		return usageError(stderr, fs, fmt.Errorf("%s already exists (use --force to overwrite)", path))
	}

	data, err := encodeSpec(spec, path)
	if err != nil {
		fmt.Fprintf(stderr, "stmtx new-spec: %v\n", err)
		return runner.ExitFatal
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		fmt.Fprintf(stderr, "stmtx new-spec: creating %s: %v\n", target, err)
		return runner.ExitFatal
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(stderr, "stmtx new-spec: writing %s: %v\n", path, err)
		return runner.ExitFatal
	}

	fmt.Fprintf(stdout, "Created %s\n", path)
	return runner.ExitOK
}

// scaffold returns a spec that validates and covers the common column names.
func scaffold(name, institution string, accountType api.AccountType) *rules.Spec {
	if institution == "" {
		institution = name
	}
	return &rules.Spec{
		Name:               name,
		Institution:        institution,
		AccountTypeDefault: accountType,
		Detect:             rules.Detect{Keywords: []string{institution}},
		HeaderAliases: map[string][]string{
			"date":        {"transaction date", "trans date", "date"},
			"post_date":   {"post date", "posting date"},
			"description": {"description", "merchant", "details"},
			"amount":      {"amount"},
		},
		DateFormats: []string{"%m/%d/%Y", "%m/%d/%y", "%m/%d"},
		SignRules: rules.SignRules{
			ChargeKeywords: []string{},
			CreditKeywords: []string{"refund", "return", "reversal"},
		},
		DropRowPatterns:  []string{`^(total|subtotal)\b`},
		SubtotalPatterns: []string{`purchases\s+\$?([\d,]+\.\d{2})`},
	}
}

func encodeSpec(spec *rules.Spec, path string) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, specHeader, spec.Institution, path)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(spec); err != nil {
		return nil, fmt.Errorf("encoding spec: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding spec: %w", err)
	}
	return buf.Bytes(), nil
}
