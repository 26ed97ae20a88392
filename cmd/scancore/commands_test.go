package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pentellia/scan-core/internal/model"
)

func execute(t *testing.T, stdin string, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetArgs(nil)
	})
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersionCmd(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := Version, BuildTime, GitCommit
	defer func() {
		Version, BuildTime, GitCommit = oldVersion, oldBuildTime, oldGitCommit
	}()

	Version = "1.2.3"
	BuildTime = "2026-01-01"
	GitCommit = "abcdef"

	output := execute(t, "", "version")
	assert.Contains(t, output, "scancore 1.2.3")
	assert.Contains(t, output, "Built: 2026-01-01")
	assert.Contains(t, output, "Commit: abcdef")
}

func TestNormalizeCmdFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nuclei.json")
	raw := `{"results":[
		{"template-id":"a","info":{"severity":"high"}},
		{"template-id":"b","info":{"severity":"high"}},
		{"template-id":"c","info":{"severity":"critical"}}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	output := execute(t, "", "normalize", "--tool", "nuclei", "--file", path, "--target", "https://example.com")

	var res model.Result
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Len(t, res.Findings, 3)
	assert.Equal(t, 1, res.Summary.Critical)
	assert.Equal(t, 2, res.Summary.High)
	assert.Equal(t, "https://example.com", res.Findings[0].AffectedAsset)
}

func TestNormalizeCmdPlainTextStdin(t *testing.T) {
	output := execute(t, "80/tcp open http\n22/tcp open ssh\n", "normalize", "--tool", "nmap", "--file", "-", "--target", "")

	var res model.Result
	require.NoError(t, json.Unmarshal([]byte(output), &res))
	assert.Len(t, res.Findings, 2)
	assert.Equal(t, 2, res.Summary.Info)
}

func TestAsRawJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, string(asRawJSON([]byte(`{"a":1}`))))
	assert.Equal(t, `"80/tcp open http"`, string(asRawJSON([]byte("80/tcp open http"))))
}
