// Package extractor resolves which issuer extractor applies to a document and
// provides the row collector shared by built-in and declarative extractors.
package extractor

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/textnorm"
)

// previewLines is how many normalized lines an unsupported-format error carries.
const previewLines = 5

// Entry is a registered extractor with its provenance.
type Entry struct {
	Extractor api.Extractor
	Origin    api.Origin
	Kind      api.Kind
	// Source is the plugin file an entry was loaded from, empty for built-ins.
	Source string
}

// Name returns the extractor name.
func (e Entry) Name() string { return e.Extractor.Name() }

// Options controls registration.
type Options struct {
	// AllowOverrides lets a later tier replace an extractor of the same name.
	AllowOverrides bool
	// Allow, when set, restricts plugin extractors to these names.
	Allow []string
	// Block excludes plugin extractors by name.
	Block []string
}

type slot struct {
	rank  int
	entry Entry
}

// Builder collects extractors before producing a read-only Registry.
type Builder struct {
	opts   Options
	allow  map[string]bool
	block  map[string]bool
	slots  []slot
	index  map[string]int
	report LoadReport
	logger *slog.Logger
}

// NewBuilder creates a registry builder.
func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		opts:   opts,
		allow:  toSet(opts.Allow),
		block:  toSet(opts.Block),
		index:  make(map[string]int),
		logger: logger.With("component", "registry"),
	}
}

// Register adds an extractor. Built-ins ignore the allow and block lists. A name
// already taken is skipped with a warning unless overrides are enabled, in which
// case the new entry takes over the existing entry's position.
func (b *Builder) Register(ex api.Extractor, origin api.Origin, kind api.Kind, source string) error {
	if ex == nil {
		return errors.New("registering nil extractor")
	}
	name := ex.Name()
	if name == "" {
		return fmt.Errorf("registering %s extractor from %q: empty name", origin, source)
	}
	entry := Entry{Extractor: ex, Origin: origin, Kind: kind, Source: source}

	if origin != api.OriginBuiltin {
		if b.block[name] {
			b.skip(entry, "blocked")
			return nil
		}
		if len(b.allow) > 0 && !b.allow[name] {
			b.skip(entry, "not in allow list")
			return nil
		}
	}

	if i, exists := b.index[name]; exists {
		prev := b.slots[i].entry
		if !b.opts.AllowOverrides {
			b.logger.Warn("extractor name collision, keeping existing",
				"name", name, "existing", prev.Origin, "rejected", origin, "source", source)
			b.skip(entry, fmt.Sprintf("name taken by %s extractor", prev.Origin))
			return nil
		}
		b.logger.Info("overriding extractor", "name", name, "replaced", prev.Origin, "by", origin, "source", source)
		b.slots[i].entry = entry
		b.removeLoaded(name)
		b.skip(prev, fmt.Sprintf("overridden by %s extractor", origin))
		b.report.Loaded = append(b.report.Loaded, loaded(entry))
		return nil
	}

	b.index[name] = len(b.slots)
	b.slots = append(b.slots, slot{rank: origin.Rank(), entry: entry})
	b.report.Loaded = append(b.report.Loaded, loaded(entry))
	return nil
}

// Report returns the report being accumulated, for plugin loaders to add
// failures and directories to.
func (b *Builder) Report() *LoadReport { return &b.report }

// Build returns the read-only registry. Entries are ordered builtin, bundled,
// user; registration order holds within a tier.
func (b *Builder) Build() *Registry {
	slots := make([]slot, len(b.slots))
	copy(slots, b.slots)
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].rank < slots[j].rank })

	entries := make([]Entry, len(slots))
	for i, s := range slots {
		entries[i] = s.entry
	}
	report := b.report
	return &Registry{entries: entries, report: report, logger: b.logger}
}

func (b *Builder) skip(e Entry, reason string) {
	b.report.Skipped = append(b.report.Skipped, Skipped{Name: e.Name(), Origin: e.Origin, Reason: reason})
}

func (b *Builder) removeLoaded(name string) {
	out := b.report.Loaded[:0]
	for _, l := range b.report.Loaded {
		if l.Name != name {
			out = append(out, l)
		}
	}
	b.report.Loaded = out
}

func loaded(e Entry) Loaded {
	return Loaded{Name: e.Name(), Origin: e.Origin, Kind: e.Kind, Source: e.Source}
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

// Registry is a read-only, ordered set of extractors. It is safe for
// concurrent use.
type Registry struct {
	entries []Entry
	report  LoadReport
	logger  *slog.Logger
}

// Entries returns the registered extractors in precedence order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Report returns the load report captured at build time.
func (r *Registry) Report() LoadReport { return r.report }

// Lookup returns the extractor registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Name() == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Resolve returns the first extractor, in precedence order, that supports doc.
// When none does, the error carries the institutions detected in the text and
// its first normalized lines.
func (r *Registry) Resolve(doc *api.Document) (Entry, error) {
	for _, e := range r.entries {
		if supports(e, doc, r.logger) {
			r.logger.Debug("resolved extractor", "name", e.Name(), "origin", e.Origin, "kind", e.Kind)
			return e, nil
		}
	}
	text := doc.Text()
	return Entry{}, &api.UnsupportedFormatError{
		Detected: textnorm.DetectInstitutions(text),
		Preview:  textnorm.Preview(text, previewLines),
	}
}

// supports shields resolution from a misbehaving plugin.
func supports(e Entry, doc *api.Document, logger *slog.Logger) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("extractor panicked in Supports", "name", e.Name(), "panic", r)
			ok = false
		}
	}()
	return e.Extractor.Supports(doc)
}
