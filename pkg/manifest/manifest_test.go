package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

func options(root string) Options {
	return Options{
		Root:          root,
		File:          "MANIFEST.yaml",
		StandardsDir:  "docs/standards",
		StandardsGlob: "docs/standards/*_STANDARDS.md",
		TokenDrift:    0.5,
		Estimator:     tokens.Chars,
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "MANIFEST.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestParseValid(t *testing.T) {
	m, err := Parse([]byte(`version: "2.0"
standards:
  CS:
    full_name: CODING_STANDARDS.md
    version: 1.2.0
    status: Active
    token_estimate: 100
skills:
  python:
    path: skills/python/SKILL.md
`))
	require.NoError(t, err)
	assert.Empty(t, m.SchemaIssues)

	entries := m.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "CS", entries[0].Code)
	assert.Equal(t, "standards", entries[0].Section)
	assert.Equal(t, "docs/standards/CODING_STANDARDS.md", entries[0].Resolve("docs/standards"))
	assert.Equal(t, "skills/python/SKILL.md", entries[1].Resolve("docs/standards"))
}

func TestParseSchemaIssues(t *testing.T) {
	m, err := Parse([]byte(`standards:
  CS:
    version: 1.0.0
    token_estimate: lots
`))
	require.NoError(t, err)
	require.Len(t, m.SchemaIssues, 2)
	joined := m.SchemaIssues[0].String() + "\n" + m.SchemaIssues[1].String()
	assert.Contains(t, joined, "/standards/CS")
	assert.Contains(t, joined, "token_estimate")
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("standards: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid manifest yaml")
}

func TestCheckMissingFileReportedOnce(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"docs/standards/CODING_STANDARDS.md": "# Coding\n",
	})
	raw := []byte(`standards:
  CS:
    full_name: CODING_STANDARDS.md
    version: 1.0.0
    status: active
  GONE:
    path: docs/standards/GONE_STANDARDS.md
    version: 1.0.0
    status: active
`)
	m, err := Parse(raw)
	require.NoError(t, err)

	issues := Check(m, raw, options(root))
	var missing []check.Issue
	for _, i := range issues {
		if i.Rule == RuleMissingFile {
			missing = append(missing, i)
		}
	}
	require.Len(t, missing, 1)
	assert.Contains(t, missing[0].Message, "docs/standards/GONE_STANDARDS.md")
	assert.Equal(t, 6, missing[0].Line)
	assert.Equal(t, check.SeverityError, missing[0].Severity)
	assert.Len(t, issues, 1)
}

func TestCheckMetadata(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"docs/standards/A_STANDARDS.md": "a",
		"docs/standards/B_STANDARDS.md": "b",
	})
	raw := []byte(`standards:
  A:
    full_name: A_STANDARDS.md
  B:
    full_name: B_STANDARDS.md
    version: "1.0"
    status: draft
`)
	m, err := Parse(raw)
	require.NoError(t, err)

	rules := map[string]int{}
	for _, i := range Check(m, raw, options(root)) {
		rules[i.Rule]++
	}
	assert.Equal(t, map[string]int{
		RuleMissingVersion: 1,
		RuleMissingStatus:  1,
		RuleInvalidVersion: 1,
	}, rules)
}

func TestCheckTokenDriftAndUnlisted(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"docs/standards/A_STANDARDS.md":     strings.Repeat("x", 4000),
		"docs/standards/EXTRA_STANDARDS.md": "x",
		"docs/standards/notes.md":           "x",
	})
	raw := []byte(`standards:
  A:
    full_name: A_STANDARDS.md
    version: 1.0.0
    status: active
    token_estimate: 100
`)
	m, err := Parse(raw)
	require.NoError(t, err)

	issues := Check(m, raw, options(root))
	require.Len(t, issues, 2)
	assert.Equal(t, "MANIFEST.yaml", issues[0].File)
	assert.Equal(t, RuleTokenDrift, issues[0].Rule)
	assert.Contains(t, issues[0].Message, "estimates 1000")
	assert.Equal(t, "docs/standards/EXTRA_STANDARDS.md", issues[1].File)
	assert.Equal(t, RuleUnlisted, issues[1].Rule)
}

func TestCheckDeterministic(t *testing.T) {
	root := t.TempDir()
	raw := []byte(`standards:
  Z: {path: z.md}
  A: {path: a.md}
  M: {path: m.md}
`)
	m, err := Parse(raw)
	require.NoError(t, err)
	first := Check(m, raw, options(root))
	second := Check(m, raw, options(root))
	assert.Equal(t, first, second)
	assert.Equal(t, 2, first[0].Line)
}
