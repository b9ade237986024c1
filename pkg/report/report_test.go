package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *check.Report {
	r := check.NewReport("links", "/repo")
	r.FilesScanned = 3
	r.Skipped = []docs.Skip{{File: "locked.md", Reason: "permission denied"}}
	r.Add(
		check.Issue{File: "docs/b.md", Line: 7, Column: 3, Rule: "link-text", Severity: check.SeverityWarning, Message: `non-descriptive link text "here"`},
		check.Issue{File: "docs/a.md", Line: 2, Column: 1, Rule: "link-broken", Severity: check.SeverityError,
			Message: "broken link to missing.md", Suggestion: "docs/missing.md does not exist"},
		check.Issue{File: "docs/a.md", Rule: "readme-missing", Severity: check.SeverityInfo, Message: "a | b"},
	)
	r.Sort()
	return r
}

func TestTextIsPlainWhenNotATerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, sample()))
	out := buf.String()

	assert.NotContains(t, out, "\x1b[")
	assert.Contains(t, out, "docs/a.md\n")
	assert.Contains(t, out, "2:1")
	assert.Contains(t, out, "link-broken")
	assert.Contains(t, out, "↳ docs/missing.md does not exist")
	assert.Contains(t, out, "skipped locked.md: permission denied")
	assert.Contains(t, out, "docguard links")
	assert.Less(t, strings.Index(out, "docs/a.md"), strings.Index(out, "docs/b.md"))
}

func TestMarkdown(t *testing.T) {
	out := MarkdownString(sample())
	assert.True(t, strings.HasPrefix(out, "# docguard links report\n"))
	assert.Contains(t, out, "| Errors | 1 |")
	assert.Contains(t, out, "| `link-broken` | 1 |")
	assert.Contains(t, out, "| `docs/a.md` | 2 | error | `link-broken` | broken link to missing.md (docs/missing.md does not exist) |")
	assert.Contains(t, out, `a \| b`)
	assert.Contains(t, out, "- `locked.md`: permission denied")
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, sample()))

	var decoded struct {
		Tool    string        `json:"tool"`
		Issues  []check.Issue `json:"issues"`
		Summary check.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "links", decoded.Tool)
	require.Len(t, decoded.Issues, 3)
	assert.Equal(t, check.SeverityError, decoded.Issues[1].Severity)
	assert.Equal(t, 1, decoded.Summary.BySeverity["warning"])
	assert.Equal(t, 1, decoded.Summary.Skipped)
}

func TestRenderIsDeterministic(t *testing.T) {
	for _, format := range []string{FormatText, FormatMarkdown, FormatJSON} {
		var a, b bytes.Buffer
		require.NoError(t, Render(&a, format, sample()))
		require.NoError(t, Render(&b, format, sample()))
		assert.Equal(t, a.String(), b.String(), format)
	}
	assert.Error(t, Render(&bytes.Buffer{}, "xml", sample()))
}

func TestPublishGitHub(t *testing.T) {
	dir := t.TempDir()
	summary := filepath.Join(dir, "summary.md")
	output := filepath.Join(dir, "output")
	t.Setenv(stepSummaryEnv, summary)
	t.Setenv(outputEnv, output)

	wrote, err := PublishGitHub(sample(), 1)
	require.NoError(t, err)
	assert.True(t, wrote)

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "files_scanned=3\nerrors=1\nwarnings=1\ninfo=1\nblocking=1\npassed=false\n", string(content))

	md, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.Contains(t, string(md), "# docguard links report")

	_, err = PublishGitHub(sample(), 0)
	require.NoError(t, err)
	content, err = os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(content), "files_scanned=3"))
}

func TestPublishGitHubWithoutEnv(t *testing.T) {
	t.Setenv(stepSummaryEnv, "")
	t.Setenv(outputEnv, "")
	wrote, err := PublishGitHub(sample(), 0)
	require.NoError(t, err)
	assert.False(t, wrote)
}
