// Package plugins discovers user extractors on disk and registers them, along
// with the bundled declarative specs, into an extractor registry.
//
// A plugin file is YAML or JSON. A file with a top-level "command" key is a
// code plugin manifest; anything else is a declarative extraction spec.
package plugins

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/extractor"
	"github.com/ArionMiles/stmtx/pkg/rules"
)

//go:embed bundled/*.yaml
var bundledFS embed.FS

// DefaultTimeout bounds each code plugin invocation.
const DefaultTimeout = 30 * time.Second

// Options controls discovery.
type Options struct {
	// Enabled turns bundled and user plugins on. Built-ins are always present.
	Enabled bool
	// Dirs are scanned recursively in order.
	Dirs []string
	// Timeout is the default code plugin timeout.
	Timeout time.Duration
}

// DefaultDir returns <UserConfigDir>/stmtx/plugins, or "" when the user config
// directory is unknown.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "stmtx", "plugins")
}

// Load registers bundled specs and then every plugin found under opts.Dirs.
// Failures never stop discovery; they are recorded in the builder's report.
func Load(b *extractor.Builder, opts Options, logger *slog.Logger) *extractor.LoadReport {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "plugins")
	report := b.Report()
	if !opts.Enabled {
		logger.Debug("plugins disabled")
		return report
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	loadBundled(b, logger)

	for _, dir := range opts.Dirs {
		if dir == "" {
			continue
		}
		files, err := Discover(dir)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("plugin directory does not exist", "dir", dir)
				continue
			}
			report.Fail(&api.PluginLoadError{Path: dir, Err: err})
			logger.Warn("scanning plugin directory", "dir", dir, "error", err)
			continue
		}
		report.Dirs = append(report.Dirs, dir)

		for _, file := range files {
			ex, kind, err := loadFile(file, opts.Timeout, logger)
			if err != nil {
				report.Fail(&api.PluginLoadError{Path: file, Err: err})
				logger.Warn("plugin failed to load", "path", file, "error", err)
				continue
			}
			if err := b.Register(ex, api.OriginUser, kind, file); err != nil {
				report.Fail(&api.PluginLoadError{Path: file, Err: err})
			}
		}
	}

	logger.Info("plugins loaded", "loaded", len(report.Loaded), "failed", len(report.Failed), "skipped", len(report.Skipped))
	return report
}

// Discover lists plugin files under dir recursively in lexical order. Hidden
// files and directories are skipped.
func Discover(dir string) ([]string, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, err
	}
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != dir && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && isPluginFile(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return files, nil
}

func isPluginFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// loadFile builds one extractor from a plugin file. Panics in parsing are
// turned into errors so one bad file cannot take down discovery.
func loadFile(file string, timeout time.Duration, logger *slog.Logger) (ex api.Extractor, kind api.Kind, err error) {
	defer func() {
		if r := recover(); r != nil {
			ex, err = nil, fmt.Errorf("panic while loading: %v", r)
		}
	}()

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, "", fmt.Errorf("reading plugin: %w", err)
	}
	format := rules.FormatOf(file)

	k := koanf.New(".")
	parser, err := rules.Parser(format)
	if err != nil {
		return nil, "", err
	}
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, "", fmt.Errorf("parsing plugin: %w", err)
	}

	if k.Exists("command") {
		m, err := parseManifest(k, filepath.Dir(file), timeout)
		if err != nil {
			return nil, "", err
		}
		return NewExec(m, logger), api.KindCode, nil
	}

	spec, err := rules.Parse(data, format)
	if err != nil {
		return nil, "", err
	}
	rex, err := rules.New(spec, logger)
	if err != nil {
		return nil, "", err
	}
	return rex, api.KindDeclarative, nil
}

func loadBundled(b *extractor.Builder, logger *slog.Logger) {
	report := b.Report()
	entries, err := fs.ReadDir(bundledFS, "bundled")
	if err != nil {
		report.Fail(&api.PluginLoadError{Path: "bundled", Err: err})
		return
	}
	for _, e := range entries {
		name := path.Join("bundled", e.Name())
		data, err := bundledFS.ReadFile(name)
		if err == nil {
			var ex api.Extractor
			if ex, err = bundledExtractor(data, logger); err == nil {
				err = b.Register(ex, api.OriginBundled, api.KindDeclarative, name)
			}
		}
		if err != nil {
			report.Fail(&api.PluginLoadError{Path: name, Err: err})
			logger.Error("bundled spec failed to load", "path", name, "error", err)
		}
	}
}

func bundledExtractor(data []byte, logger *slog.Logger) (api.Extractor, error) {
	spec, err := rules.Parse(data, "yaml")
	if err != nil {
		return nil, err
	}
	return rules.New(spec, logger)
}

// Bundled returns the names and contents of the embedded specs.
func Bundled() (map[string][]byte, error) {
	entries, err := fs.ReadDir(bundledFS, "bundled")
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := bundledFS.ReadFile(path.Join("bundled", e.Name()))
		if err != nil {
			return nil, err
		}
		out[e.Name()] = data
	}
	return out, nil
}
