package extractor

import (
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/stmtx/pkg/api"
)

type fakeExtractor struct {
	name    string
	keyword string
	panics  bool
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Supports(doc *api.Document) bool {
	if f.panics {
		panic("boom")
	}
	return strings.Contains(strings.ToLower(doc.Text()), f.keyword)
}

func (f *fakeExtractor) Extract(doc *api.Document) (*api.Extraction, error) {
	return &api.Extraction{}, nil
}

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func textDoc(text string) *api.Document {
	return api.NewDocument(api.DocumentInfo{}, text, nil)
}

func TestRegistry_PrecedenceAcrossTiers(t *testing.T) {
	b := NewBuilder(Options{}, discard())
	require.NoError(t, b.Register(&fakeExtractor{name: "user-bank", keyword: "bank"}, api.OriginUser, api.KindDeclarative, "/p/user.yaml"))
	require.NoError(t, b.Register(&fakeExtractor{name: "bundled-bank", keyword: "bank"}, api.OriginBundled, api.KindDeclarative, "bundled/b.yaml"))
	require.NoError(t, b.Register(&fakeExtractor{name: "chase", keyword: "chase"}, api.OriginBuiltin, api.KindCode, ""))
	require.NoError(t, b.Register(&fakeExtractor{name: "builtin-bank", keyword: "bank"}, api.OriginBuiltin, api.KindCode, ""))
	reg := b.Build()

	var names []string
	for _, e := range reg.Entries() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"chase", "builtin-bank", "bundled-bank", "user-bank"}, names)

	e, err := reg.Resolve(textDoc("Some Bank statement"))
	require.NoError(t, err)
	assert.Equal(t, "builtin-bank", e.Name())
}

func TestRegistry_CollisionRejectedWithoutOverrides(t *testing.T) {
	b := NewBuilder(Options{}, discard())
	require.NoError(t, b.Register(&fakeExtractor{name: "chase", keyword: "chase"}, api.OriginBuiltin, api.KindCode, ""))
	require.NoError(t, b.Register(&fakeExtractor{name: "chase", keyword: "other"}, api.OriginUser, api.KindDeclarative, "/p/chase.yaml"))
	reg := b.Build()

	require.Len(t, reg.Entries(), 1)
	assert.Equal(t, api.OriginBuiltin, reg.Entries()[0].Origin)

	report := reg.Report()
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, api.OriginUser, report.Skipped[0].Origin)
	assert.Contains(t, report.Skipped[0].Reason, "name taken")
}

func TestRegistry_OverrideReplacesInPlace(t *testing.T) {
	b := NewBuilder(Options{AllowOverrides: true}, discard())
	require.NoError(t, b.Register(&fakeExtractor{name: "chase", keyword: "chase"}, api.OriginBuiltin, api.KindCode, ""))
	require.NoError(t, b.Register(&fakeExtractor{name: "amex", keyword: "bank"}, api.OriginBuiltin, api.KindCode, ""))
	require.NoError(t, b.Register(&fakeExtractor{name: "chase", keyword: "bank"}, api.OriginUser, api.KindDeclarative, "/p/chase.yaml"))
	reg := b.Build()

	entries := reg.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "chase", entries[0].Name())
	assert.Equal(t, api.OriginUser, entries[0].Origin)

	e, err := reg.Resolve(textDoc("bank"))
	require.NoError(t, err)
	assert.Equal(t, "chase", e.Name(), "override keeps the built-in position")

	report := reg.Report()
	assert.Len(t, report.Loaded, 2)
	require.Len(t, report.Skipped, 1)
	assert.Equal(t, api.OriginBuiltin, report.Skipped[0].Origin)
}

func TestRegistry_AllowAndBlockLists(t *testing.T) {
	b := NewBuilder(Options{Allow: []string{"discover", "chase"}, Block: []string{"discover"}}, discard())
	require.NoError(t, b.Register(&fakeExtractor{name: "amex"}, api.OriginBuiltin, api.KindCode, ""))
	require.NoError(t, b.Register(&fakeExtractor{name: "discover"}, api.OriginBundled, api.KindDeclarative, ""))
	require.NoError(t, b.Register(&fakeExtractor{name: "capitalone"}, api.OriginBundled, api.KindDeclarative, ""))
	require.NoError(t, b.Register(&fakeExtractor{name: "chase"}, api.OriginUser, api.KindDeclarative, ""))

	reg := b.Build()
	var names []string
	for _, e := range reg.Entries() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"amex", "chase"}, names)
	assert.Len(t, reg.Report().Skipped, 2)
}

func TestRegistry_RegisterErrors(t *testing.T) {
	b := NewBuilder(Options{}, discard())
	assert.Error(t, b.Register(nil, api.OriginUser, api.KindCode, ""))
	assert.Error(t, b.Register(&fakeExtractor{}, api.OriginUser, api.KindCode, "x.yaml"))
}

func TestRegistry_ResolveFailureCarriesContext(t *testing.T) {
	b := NewBuilder(Options{}, discard())
	require.NoError(t, b.Register(&fakeExtractor{name: "chase", keyword: "chase"}, api.OriginBuiltin, api.KindCode, ""))
	reg := b.Build()

	_, err := reg.Resolve(textDoc("WWeellllss FFaarrggoo Everyday Checking\nStatement period"))
	var ufe *api.UnsupportedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Contains(t, ufe.Detected, "wells fargo")
	assert.NotEmpty(t, ufe.Preview)
}

func TestRegistry_PanickingSupportsIsSkipped(t *testing.T) {
	b := NewBuilder(Options{}, discard())
	require.NoError(t, b.Register(&fakeExtractor{name: "bad", panics: true}, api.OriginUser, api.KindCode, ""))
	require.NoError(t, b.Register(&fakeExtractor{name: "good", keyword: "bank"}, api.OriginUser, api.KindCode, ""))
	reg := b.Build()

	e, err := reg.Resolve(textDoc("bank"))
	require.NoError(t, err)
	assert.Equal(t, "good", e.Name())
}

func TestRegistry_Lookup(t *testing.T) {
	b := NewBuilder(Options{}, discard())
	require.NoError(t, b.Register(&fakeExtractor{name: "amex"}, api.OriginBuiltin, api.KindCode, ""))
	reg := b.Build()

	_, ok := reg.Lookup("amex")
	assert.True(t, ok)
	_, ok = reg.Lookup("nope")
	assert.False(t, ok)
}
