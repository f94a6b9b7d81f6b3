// Package config loads stmtx settings from defaults, an optional config file,
// STMTX_ environment variables and command-line flags, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ArionMiles/stmtx/pkg/engine"
	"github.com/ArionMiles/stmtx/pkg/logging"
	"github.com/ArionMiles/stmtx/pkg/plugins"
	"github.com/ArionMiles/stmtx/pkg/rules"
	"github.com/ArionMiles/stmtx/pkg/writer"
)

// EnvPrefix prefixes every environment variable.
const EnvPrefix = "STMTX_"

// EnvConfigFile names the config file when --config is not given.
const EnvConfigFile = EnvPrefix + "CONFIG"

// Config holds the application configuration.
type Config struct {
	Engine      engine.Config  `koanf:"engine"`
	Plugins     Plugins        `koanf:"plugins"`
	Output      writer.Options `koanf:"output"`
	Log         Log            `koanf:"log"`
	Diagnostics Diagnostics    `koanf:"diagnostics"`
	// Jobs bounds how many statements are extracted at once.
	Jobs int `koanf:"jobs"`
}

// Plugins configures plugin discovery and registry precedence.
type Plugins struct {
	Enabled   bool          `koanf:"enabled"`
	Dirs      []string      `koanf:"dirs"`
	Allow     []string      `koanf:"allow"`
	Block     []string      `koanf:"block"`
	Overrides bool          `koanf:"overrides"`
	Timeout   time.Duration `koanf:"timeout"`
}

// Log configures logging.
type Log struct {
	// Level is debug, info, warn or error.
	Level string `koanf:"level"`
	JSON  bool   `koanf:"json"`
}

// Diagnostics tunes the diagnostics report.
type Diagnostics struct {
	RejectionThreshold float64 `koanf:"rejection_threshold"`
}

// sections are the top-level keys that own nested keys. An environment
// variable's first underscore after the prefix separates section and key.
var sections = map[string]bool{
	"engine": true, "plugins": true, "output": true, "log": true, "diagnostics": true,
}

// Defaults returns the built-in configuration values keyed by path.
func Defaults() map[string]any {
	var dirs []string
	if dir := plugins.DefaultDir(); dir != "" {
		dirs = []string{dir}
	}
	return map[string]any{
		"engine.mode":                     engine.ModeAuto,
		"engine.order":                    []string{},
		"plugins.enabled":                 true,
		"plugins.dirs":                    dirs,
		"plugins.allow":                   []string{},
		"plugins.block":                   []string{},
		"plugins.overrides":               false,
		"plugins.timeout":                 plugins.DefaultTimeout.String(),
		"output.format":                   writer.FormatCSV,
		"output.credits":                  false,
		"output.metadata":                 true,
		"output.diagnostics":              false,
		"log.level":                       "info",
		"log.json":                        false,
		"diagnostics.rejection_threshold": 0.2,
		"jobs":                            runtime.GOMAXPROCS(0),
	}
}

// Options controls Load.
type Options struct {
	// File is an explicit config path. When empty, STMTX_CONFIG is consulted.
	File string
	// Flags holds values from command-line flags that were set, keyed by path.
	Flags map[string]any
}

// Load resolves the configuration layers. A file named explicitly or through
// STMTX_CONFIG must exist.
func Load(opts Options) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, "", fmt.Errorf("loading defaults: %w", err)
	}

	path := opts.File
	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		parser, err := rules.Parser(rules.FormatOf(path))
		if err != nil {
			return nil, "", err
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, "", fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, "", fmt.Errorf("loading config from environment: %w", err)
	}

	if len(opts.Flags) > 0 {
		if err := k.Load(confmap.Provider(opts.Flags, "."), nil); err != nil {
			return nil, "", fmt.Errorf("loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, "", fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, path, nil
}

// Validate checks values that cannot be checked by type alone.
func (c *Config) Validate() error {
	var errs []error
	if c.Jobs < 1 {
		errs = append(errs, fmt.Errorf("jobs must be at least 1, got %d", c.Jobs))
	}
	switch strings.ToLower(c.Output.Format) {
	case writer.FormatCSV, writer.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("output.format must be %s or %s, got %q", writer.FormatCSV, writer.FormatJSON, c.Output.Format))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Plugins.Timeout < 0 {
		errs = append(errs, fmt.Errorf("plugins.timeout must not be negative"))
	}
	if t := c.Diagnostics.RejectionThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("diagnostics.rejection_threshold must be within [0, 1], got %g", t))
	}
	return errors.Join(errs...)
}

// LoggingConfig converts the log section.
func (c *Config) LoggingConfig() logging.Config {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.Config{Level: level, JSON: c.Log.JSON, Output: os.Stderr}
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if section, rest, ok := strings.Cut(key, "_"); ok && sections[section] {
		return section + "." + rest
	}
	return key
}

// listKeys hold comma-separated values when set from the environment.
var listKeys = map[string]bool{
	"engine.order":  true,
	"plugins.dirs":  true,
	"plugins.allow": true,
	"plugins.block": true,
}

func envValue(name, value string) (string, any) {
	key := envKey(name)
	if !listKeys[key] {
		return key, value
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return key, items
}

