package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/report"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path     string
		fallback string
		expected string
	}{
		{"out/report.json", report.FormatText, report.FormatJSON},
		{"REPORT.MD", report.FormatJSON, report.FormatMarkdown},
		{"report.markdown", report.FormatText, report.FormatMarkdown},
		{"report.txt", report.FormatJSON, report.FormatText},
		{"report", report.FormatMarkdown, report.FormatMarkdown},
		{"report.html", report.FormatJSON, report.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatForPath(tt.path, tt.fallback))
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, exitOK, exitCodeFor(0))
	assert.Equal(t, exitBlocking, exitCodeFor(1))
	assert.Equal(t, exitBlocking, exitCodeFor(42))
}

func TestReadConfigFile(t *testing.T) {
	t.Run("explicit file is loaded", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "docguard.yaml")
		require.NoError(t, os.WriteFile(p, []byte("fail_on: warning\ntokens:\n  file_budget: 900\n"), 0o644))

		v := viper.New()
		v.SetConfigType("yaml")
		file, err := readConfigFile(v, p)
		require.NoError(t, err)
		assert.Equal(t, p, file)
		assert.Equal(t, "warning", v.GetString("fail_on"))
		assert.Equal(t, 900, v.GetInt("tokens.file_budget"))
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		v := viper.New()
		v.SetConfigType("yaml")
		_, err := readConfigFile(v, filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read config")
	})

	t.Run("malformed explicit file is an error", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(p, []byte("fail_on: [unclosed\n"), 0o644))

		v := viper.New()
		v.SetConfigType("yaml")
		_, err := readConfigFile(v, p)
		require.Error(t, err)
	})

	t.Run("no candidates is not an error", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())
		t.Chdir(t.TempDir())

		v := viper.New()
		v.SetConfigType("yaml")
		file, err := readConfigFile(v, "")
		require.NoError(t, err)
		assert.Empty(t, file)
	})

	t.Run("repository config is preferred", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		require.NoError(t, os.MkdirAll(filepath.Join(home, ".docguard"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(home, ".docguard", "config.yaml"), []byte("format: json\n"), 0o644))

		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(".docguard.yaml", []byte("format: markdown\n"), 0o644))

		v := viper.New()
		v.SetConfigType("yaml")
		file, err := readConfigFile(v, "")
		require.NoError(t, err)
		assert.Equal(t, ".docguard.yaml", file)
		assert.Equal(t, "markdown", v.GetString("format"))
	})
}

func TestWriteReport(t *testing.T) {
	r := check.NewReport("links", "/repo")
	r.FilesScanned = 2
	r.Add(check.Issue{File: "README.md", Line: 3, Rule: "link-broken", Severity: check.SeverityError, Message: "broken link to a.md"})

	t.Run("json", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "report.json")
		require.NoError(t, writeReport(p, report.FormatJSON, r))

		data, err := os.ReadFile(p)
		require.NoError(t, err)
		var decoded check.Report
		require.NoError(t, json.Unmarshal(data, &decoded))
		assert.Equal(t, "links", decoded.Tool)
		require.Len(t, decoded.Issues, 1)
		assert.Equal(t, check.SeverityError, decoded.Issues[0].Severity)
	})

	t.Run("markdown", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "report.md")
		require.NoError(t, writeReport(p, report.FormatMarkdown, r))

		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), "README.md"))
	})

	t.Run("unknown format", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "report.out")
		assert.Error(t, writeReport(p, "yaml", r))
	})
}
