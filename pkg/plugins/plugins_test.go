package plugins

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArionMiles/stmtx/pkg/api"
	"github.com/ArionMiles/stmtx/pkg/extractor"
)

const alphaSpec = `
name: alpha
account_type_default: credit
header_aliases:
  date: [date]
  amount: [amount]
date_formats: ["%m/%d/%Y"]
`

const betaSpec = `{"name": "beta", "account_type_default": "checking",
 "header_aliases": {"date": ["date"], "debit": ["withdrawals"], "credit": ["deposits"]},
 "date_formats": ["01/02/2006"]}`

const brokenSpec = `
name: broken
account_type_default: credit
header_aliases:
  date: [date]
  amount: [amount]
`

func discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), mode))
}

func userLoaded(r *extractor.LoadReport) []string {
	var names []string
	for _, l := range r.Loaded {
		if l.Origin == api.OriginUser {
			names = append(names, l.Name)
		}
	}
	return names
}

func TestLoad_IsolatesFailures(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), alphaSpec, 0o600)
	writeFile(t, filepath.Join(dir, "nested", "b.json"), betaSpec, 0o600)
	writeFile(t, filepath.Join(dir, "c.yaml"), brokenSpec, 0o600)
	writeFile(t, filepath.Join(dir, ".hidden", "d.yaml"), alphaSpec, 0o600)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not a plugin", 0o600)

	b := extractor.NewBuilder(extractor.Options{}, discard())
	report := Load(b, Options{Enabled: true, Dirs: []string{dir, filepath.Join(dir, "missing")}}, discard())

	assert.Equal(t, []string{"alpha", "beta"}, userLoaded(report))
	require.Len(t, report.Failed, 1)
	assert.Equal(t, filepath.Join(dir, "c.yaml"), report.Failed[0].Path)
	assert.Contains(t, report.Failed[0].Reason, "date_formats")
	assert.Equal(t, []string{dir}, report.Dirs)

	reg := b.Build()
	_, ok := reg.Lookup("beta")
	assert.True(t, ok)
}

func TestLoad_BundledSpecs(t *testing.T) {
	b := extractor.NewBuilder(extractor.Options{}, discard())
	report := Load(b, Options{Enabled: true}, discard())

	assert.Empty(t, report.Failed)
	var names []string
	for _, l := range report.Loaded {
		assert.Equal(t, api.OriginBundled, l.Origin)
		assert.Equal(t, api.KindDeclarative, l.Kind)
		names = append(names, l.Name)
	}
	assert.Equal(t, []string{"capitalone", "discover", "wellsfargo"}, names)
}

func TestLoad_Disabled(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.yaml"), alphaSpec, 0o600)

	b := extractor.NewBuilder(extractor.Options{}, discard())
	report := Load(b, Options{Enabled: false, Dirs: []string{dir}}, discard())
	assert.Empty(t, report.Loaded)
	assert.Empty(t, b.Build().Entries())
}

func TestDiscover_LexicalAndHidden(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"z.yml", "a.yaml", "m/b.json", ".x.yaml", "_y.yaml"} {
		writeFile(t, filepath.Join(dir, name), "name: x", 0o600)
	}

	files, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "_y.yaml"),
		filepath.Join(dir, "a.yaml"),
		filepath.Join(dir, "m", "b.json"),
		filepath.Join(dir, "z.yml"),
	}, files)
}

const scriptPlugin = `#!/bin/sh
cat > /dev/null
case "$1" in
supports) echo '{"supports": true}' ;;
extract) echo '{"metadata":{"institution":"Script Bank","account_type":"checking"},"transactions":[{"date":"2024-12-30","description":"COFFEE  SHOP","amount":"-4.50","is_credit":false},{"date":"bad","description":"X","amount":"1.00"}]}' ;;
*) exit 2 ;;
esac
`

func TestExec_CodePlugin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script plugin")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bin", "plugin.sh"), scriptPlugin, 0o755)
	writeFile(t, filepath.Join(dir, "script.yaml"), "name: scriptbank\ncommand: ./bin/plugin.sh\ntimeout: 5s\n", 0o600)

	b := extractor.NewBuilder(extractor.Options{}, discard())
	report := Load(b, Options{Enabled: true, Dirs: []string{dir}}, discard())
	require.Empty(t, report.Failed)
	require.Equal(t, []string{"scriptbank"}, userLoaded(report))

	entry, ok := b.Build().Lookup("scriptbank")
	require.True(t, ok)
	assert.Equal(t, api.KindCode, entry.Kind)

	doc := api.NewDocument(api.DocumentInfo{}, "anything", nil)
	assert.True(t, entry.Extractor.Supports(doc))

	out, err := entry.Extractor.Extract(doc)
	require.NoError(t, err)
	assert.Equal(t, "Script Bank", out.Metadata.Institution)
	assert.Equal(t, api.AccountChecking, out.Metadata.AccountType)
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, "4.50", out.Transactions[0].Amount.StringFixed(2))
	assert.Equal(t, "COFFEE SHOP", out.Transactions[0].OriginalDescription)
	require.Len(t, out.Rejected, 1)
	assert.Equal(t, api.ReasonDateParse, out.Rejected[0].Reason)
}

const excludingPlugin = `#!/bin/sh
cat > /dev/null
echo '{"transactions":[
{"date":"2024-12-02","description":"AMAZON.COM","amount":"45.67"},
{"date":"2024-12-03","description":"ACH PAYMENT THANK YOU","amount":"500.00","is_credit":true},
{"date":"2024-12-04","description":"INTEREST CHARGE ON PURCHASES","amount":"12.00"},
{"date":"2024-12-05","description":"ANNUAL MEMBERSHIP FEE","amount":"95.00"},
{"date":"2024-12-06","description":"MERCHANT REFUND","amount":"10.00","is_credit":true}]}'
`

func TestExec_AppliesExclusions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script plugin")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "excl.sh"), excludingPlugin, 0o755)
	writeFile(t, filepath.Join(dir, "excl.yaml"), "name: excl\ncommand: ./excl.sh\nexclude_keywords: [membership fee]\n", 0o600)

	b := extractor.NewBuilder(extractor.Options{}, discard())
	report := Load(b, Options{Enabled: true, Dirs: []string{dir}}, discard())
	require.Empty(t, report.Failed)
	entry, ok := b.Build().Lookup("excl")
	require.True(t, ok)

	out, err := entry.Extractor.Extract(api.NewDocument(api.DocumentInfo{}, "", nil))
	require.NoError(t, err)

	var descs []string
	for _, tx := range out.Transactions {
		descs = append(descs, tx.OriginalDescription)
	}
	assert.Equal(t, []string{"AMAZON.COM", "MERCHANT REFUND"}, descs)
	assert.False(t, out.Transactions[0].IsCredit)
	assert.True(t, out.Transactions[1].IsCredit)

	require.Len(t, out.Skipped, 3)
	for _, s := range out.Skipped {
		assert.Equal(t, api.SkipExcludedKeyword, s.Reason)
	}
	assert.Equal(t, "ANNUAL MEMBERSHIP FEE", out.Skipped[2].Description)
}

func TestExec_TimeoutMeansUnsupported(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell script plugin")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "slow.sh"), "#!/bin/sh\nexec sleep 5\n", 0o755)
	writeFile(t, filepath.Join(dir, "slow.yaml"), "name: slow\ncommand: ./slow.sh\ntimeout: 200ms\n", 0o600)

	b := extractor.NewBuilder(extractor.Options{}, discard())
	Load(b, Options{Enabled: true, Dirs: []string{dir}}, discard())
	entry, ok := b.Build().Lookup("slow")
	require.True(t, ok)

	assert.False(t, entry.Extractor.Supports(api.NewDocument(api.DocumentInfo{}, "", nil)))
}

func TestManifest_MissingCommandFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.yaml"), "name: bad\ncommand: ./does-not-exist\n", 0o600)

	b := extractor.NewBuilder(extractor.Options{}, discard())
	report := Load(b, Options{Enabled: true, Dirs: []string{dir}}, discard())
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Reason, "does-not-exist")
}
