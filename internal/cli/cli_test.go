package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raysh454/shieldsuite/internal/cli"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := cli.NewRootCommand(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "shieldd.yaml")
	cfg := "log_level: error\nstorage:\n  root: " + filepath.Join(dir, "data") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	t.Parallel()
	out, err := run(t, "version")
	require.NoError(t, err)

	var v map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, "shieldd", v["name"])
	assert.Equal(t, cli.Version, v["version"])
	assert.True(t, strings.HasPrefix(v["go"], "go"))
}

func TestAnalyze(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	out, err := run(t, "-c", cfg, "analyze", "WhatsApp_GB_Mod", "--size", "15000000")
	require.NoError(t, err)

	var a struct {
		Threats   []string `json:"threats"`
		RiskScore int      `json:"riskScore"`
		RiskLevel string   `json:"riskLevel"`
		IsSafe    bool     `json:"isSafe"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &a))
	assert.Equal(t, 75, a.RiskScore)
	assert.Equal(t, "HIGH", a.RiskLevel)
	assert.False(t, a.IsSafe)
	assert.Len(t, a.Threats, 2)
}

func TestAnalyzeWithoutSizeSkipsSizeRules(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	out, err := run(t, "-c", cfg, "analyze", "Calculator")
	require.NoError(t, err)
	assert.Contains(t, out, `"riskScore": 0`)
	assert.Contains(t, out, `"isSafe": true`)
}

func TestAnalyzeRequiresName(t *testing.T) {
	t.Parallel()
	_, err := run(t, "analyze")
	assert.Error(t, err)
}

func TestAnalyzeRemoteWithoutKey(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	_, err := run(t, "-c", cfg, "analyze", "app", "--remote")
	assert.Error(t, err)
}

func TestMalwareImportAndList(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	feed := filepath.Join(t.TempDir(), "feed.txt")
	require.NoError(t, os.WriteFile(feed, []byte(
		"# known bad\n"+
			"AAAA1111,com.evil.one,trojan\n"+
			"bbbb2222\n"+
			"\n"), 0o644))

	// The two built-in samples are seeded on first open.
	out, err := run(t, "-c", cfg, "malware", "import", feed)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 new of 2 entries (4 known)")

	// Re-importing the same feed adds nothing.
	out, err = run(t, "-c", cfg, "malware", "import", feed)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 0 new of 2 entries (4 known)")

	out, err = run(t, "-c", cfg, "malware", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "aaaa1111")
	assert.Contains(t, out, "com.evil.one")
	assert.Contains(t, out, "bbbb2222")
}

func TestMalwareImportMissingFile(t *testing.T) {
	t.Parallel()
	cfg := writeConfig(t)

	_, err := run(t, "-c", cfg, "malware", "import", filepath.Join(t.TempDir(), "nope.txt"))
	assert.Error(t, err)
}
