package check

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in       string
		expected Severity
		wantErr  bool
	}{
		{"error", SeverityError, false},
		{"ERROR", SeverityError, false},
		{"warning", SeverityWarning, false},
		{"warn", SeverityWarning, false},
		{" info ", SeverityInfo, false},
		{"fatal", SeverityInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSeverity(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestIssueJSON(t *testing.T) {
	issue := Issue{File: "README.md", Line: 3, Rule: "link-broken", Severity: SeverityError, Message: "broken"}
	b, err := json.Marshal(issue)
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":"README.md","line":3,"rule":"link-broken","severity":"error","message":"broken"}`, string(b))

	var decoded Issue
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, issue, decoded)
}

func TestIssueLocation(t *testing.T) {
	assert.Equal(t, "a.md", Issue{File: "a.md"}.Location())
	assert.Equal(t, "a.md:4", Issue{File: "a.md", Line: 4}.Location())
	assert.Equal(t, "a.md:4:2", Issue{File: "a.md", Line: 4, Column: 2}.Location())
}

func TestRegistryOnly(t *testing.T) {
	noop := func(*docs.Document) []Issue { return nil }
	r := NewRegistry().
		Register("a", noop).
		Register("b", noop).
		RegisterTree("graph", func(*docs.Tree) []Issue { return nil })

	assert.Equal(t, []string{"a", "b", "graph"}, r.Names())

	only, err := r.Only("graph", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "graph"}, only.Names())

	_, err = r.Only("missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown check")

	all, err := r.Only()
	require.NoError(t, err)
	assert.Equal(t, 3, all.Len())
}

func TestRunnerRecoversPerFile(t *testing.T) {
	tree := docs.NewTree("/repo",
		docs.Parse("b.md", []byte("# B\npanic here\n")),
		docs.Parse("a.md", []byte("# A\nTODO\n")),
	)

	registry := NewRegistry().
		Register("explode", func(doc *docs.Document) []Issue {
			if strings.Contains(string(doc.Raw), "panic") {
				panic("boom")
			}
			return nil
		}).
		Register("todo", func(doc *docs.Document) []Issue {
			var out []Issue
			for i, line := range doc.Lines() {
				if strings.Contains(line, "TODO") {
					out = append(out, Issue{File: doc.RelPath, Line: i + 1, Rule: "todo", Severity: SeverityWarning, Message: "todo left"})
				}
			}
			return out
		}).
		RegisterTree("count", func(tree *docs.Tree) []Issue {
			return []Issue{{File: ".", Rule: "count", Severity: SeverityInfo, Message: "files"}}
		})

	report := NewRunner("demo", registry).Run(context.Background(), tree)

	assert.Equal(t, 2, report.FilesScanned)
	require.Len(t, report.Issues, 3)
	assert.Equal(t, ".", report.Issues[0].File)
	assert.Equal(t, "a.md", report.Issues[1].File)
	assert.Equal(t, "todo", report.Issues[1].Rule)
	assert.Equal(t, "b.md", report.Issues[2].File)
	assert.Equal(t, RuleInternalError, report.Issues[2].Rule)
	assert.Contains(t, report.Issues[2].Message, "explode")
	assert.Equal(t, 1, report.Blocking(SeverityError))
	assert.Equal(t, 2, report.Blocking(SeverityWarning))
}

func TestReportSummaryAndMerge(t *testing.T) {
	a := NewReport("links", ".")
	a.FilesScanned = 3
	a.Add(Issue{File: "b.md", Line: 2, Rule: "link-broken", Severity: SeverityError})
	a.Skipped = []docs.Skip{{File: "z.md", Reason: "denied"}}

	b := NewReport("audit", ".")
	b.FilesScanned = 4
	b.Add(
		Issue{File: "a.md", Rule: "orphan", Severity: SeverityWarning},
		Issue{File: "c.md", Rule: "orphan", Severity: SeverityWarning},
	)
	b.Skipped = []docs.Skip{{File: "z.md", Reason: "denied"}, {File: "y.md", Reason: "denied"}}
	b.SetExtra("orphans", 2)

	a.Merge(b)

	s := a.Summary()
	assert.Equal(t, 4, s.FilesScanned)
	assert.Equal(t, 3, s.Total)
	assert.Equal(t, 2, s.Skipped)
	assert.Equal(t, map[string]int{"error": 1, "warning": 2, "info": 0}, s.BySeverity)
	assert.Equal(t, map[string]int{"link-broken": 1, "orphan": 2}, s.ByRule)
	assert.Equal(t, "a.md", a.Issues[0].File)
	assert.Equal(t, map[string]any{"orphans": 2}, a.Extra["audit"])
	assert.Len(t, a.Filter("orphan"), 2)
}

func TestReportDeterministicJSON(t *testing.T) {
	build := func() []byte {
		r := NewReport("links", ".")
		r.Add(
			Issue{File: "b.md", Line: 1, Rule: "x", Severity: SeverityError},
			Issue{File: "a.md", Line: 9, Rule: "y", Severity: SeverityWarning},
			Issue{File: "a.md", Line: 9, Rule: "x", Severity: SeverityWarning},
		)
		r.SetExtra("external", map[string][]string{"example.com": {"a.md"}})
		r.Sort()
		b, err := json.Marshal(r)
		require.NoError(t, err)
		return b
	}
	assert.Equal(t, string(build()), string(build()))
}
