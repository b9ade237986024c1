package links

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func loadTree(t *testing.T, root string) *docs.Tree {
	t.Helper()
	tree, err := docs.Load(context.Background(), root)
	require.NoError(t, err)
	return tree
}

func newResolver(t *testing.T, root string) *Resolver {
	t.Helper()
	r, err := NewResolver(root, []string{"url", "(url)"}, []string{"**/generated/**"})
	require.NoError(t, err)
	return r
}

func TestResolve(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md":           "# Root",
		"docs/guide.md":       "# Guide",
		"docs/api/README.md":  "# API",
		"docs/My Notes.md":    "# Notes",
		"docs/empty/.keep":    "",
		"images/logo.png":     "png",
		"docs/standards/A.md": "# A",
		"docs/c#sharp.md":     "# C#",
	})
	r := newResolver(t, root)

	tests := []struct {
		target string
		want   Resolution
	}{
		{"guide.md", Resolution{Internal, "docs/guide.md"}},
		{"./guide.md#install", Resolution{Internal, "docs/guide.md"}},
		{"guide", Resolution{Internal, "docs/guide.md"}},
		{"api", Resolution{Internal, "docs/api/README.md"}},
		{"api/", Resolution{Internal, "docs/api/README.md"}},
		{"empty", Resolution{Internal, "docs/empty"}},
		{"My%20Notes.md", Resolution{Internal, "docs/My Notes.md"}},
		{"../images/logo.png", Resolution{Internal, "images/logo.png"}},
		{"/README.md", Resolution{Internal, "README.md"}},
		{"standards/A.md?plain=1", Resolution{Internal, "docs/standards/A.md"}},
		{"missing.md", Resolution{Broken, "docs/missing.md"}},
		{"c%23sharp.md", Resolution{Internal, "docs/c#sharp.md"}},
		{"c%23sharp.md#usage", Resolution{Internal, "docs/c#sharp.md"}},
		{"../../outside.md", Resolution{Broken, "../outside.md"}},
		{"#section", Resolution{Kind: Skipped}},
		{"mailto:a@example.com", Resolution{Kind: Skipped}},
		{"url", Resolution{Kind: Skipped}},
		{"reports/generated/x.md", Resolution{Kind: Skipped}},
		{"https://example.com/x", Resolution{External, "https://example.com/x"}},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve("docs/index.md", tt.target))
		})
	}
}

func TestNewResolverInvalidGlob(t *testing.T) {
	_, err := NewResolver(t.TempDir(), nil, []string{"[unclosed"})
	assert.Error(t, err)
}

func TestBrokenCheckReportsExactlyOne(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md": "# Root\n\nSee [the guide](docs/guide.md) and [gone](docs/gone.md).\n\n```md\n[in code](nowhere.md)\n```\n\nInline `[x](nowhere.md)` too.\n",
		"docs/guide.md": "# Guide\n",
	})
	tree := loadTree(t, root)
	r := newResolver(t, root)

	report := check.NewRunner("links", check.NewRegistry().Register("broken", BrokenCheck(r, nil))).Run(context.Background(), tree)
	require.Len(t, report.Issues, 1)
	issue := report.Issues[0]
	assert.Equal(t, RuleBroken, issue.Rule)
	assert.Equal(t, "README.md", issue.File)
	assert.Equal(t, 3, issue.Line)
	assert.Contains(t, issue.Message, "docs/gone.md")

	// Excluded sources are not scanned.
	report = check.NewRunner("links", check.NewRegistry().Register("broken", BrokenCheck(r, []string{"README.md"}))).Run(context.Background(), tree)
	assert.Empty(t, report.Issues)
}

func TestBrokenCheckRejectsTargetsAboveRoot(t *testing.T) {
	base := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(base, "secret.md"), []byte("# Secret\n"), 0o644))
	root := filepath.Join(base, "repo")
	require.NoError(t, os.Mkdir(root, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# Root\n\n[s](../secret.md)\n"), 0o644))

	tree := loadTree(t, root)
	report := check.NewRunner("links", check.NewRegistry().Register("broken", BrokenCheck(newResolver(t, root), nil))).Run(context.Background(), tree)

	require.Len(t, report.Issues, 1)
	assert.Equal(t, RuleBroken, report.Issues[0].Rule)
	assert.Equal(t, "../secret.md is outside the repository root", report.Issues[0].Suggestion)
}

func TestTextCheck(t *testing.T) {
	doc := docs.Parse("a.md", []byte("Read [here](b.md), [the setup guide](c.md) or [Click Here](d.md).\n"))
	issues := TextCheck([]string{"here", "click here"})(doc)
	require.Len(t, issues, 2)
	assert.Equal(t, RuleText, issues[0].Rule)
	assert.Contains(t, issues[1].Message, "Click Here")
}

func TestExternals(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.md": "[Go](https://go.dev/doc) [Spec](https://go.dev/ref/spec) [GH](https://github.com/x)\n",
	})
	tree := loadTree(t, root)
	ext := Externals(tree, newResolver(t, root), nil)
	assert.Equal(t, []string{"github.com", "go.dev"}, Domains(ext))
	assert.Equal(t, 3, ExternalCount(ext))
	assert.Len(t, ext["go.dev"], 2)
}

func TestAutoLinks(t *testing.T) {
	doc := docs.Parse("hub.md", []byte("# Hub\n\n<!-- AUTO-LINKS:standards -->\n- [A](a.md)\n- [B](b.md)\n<!-- /AUTO-LINKS -->\n"))
	got := AutoLinks(doc)
	require.Len(t, got, 2)
	assert.Equal(t, "a.md", got[0].Target)
	assert.Equal(t, 4, got[0].Line)
	assert.Equal(t, 5, got[1].Line)
}

func orphanTree(t *testing.T, orphans int) string {
	files := map[string]string{
		"README.md":      "# Root\n\n[linked](docs/linked.md)\n",
		"docs/README.md": "# Docs\n",
		"docs/linked.md": "# Linked\n",
	}
	for i := 0; i < orphans; i++ {
		files[fmt.Sprintf("docs/orphan%d.md", i)] = "# Orphan\n"
	}
	return writeTree(t, files)
}

func auditOptions(tolerance int) AuditOptions {
	return AuditOptions{
		Orphans: config.OrphansConfig{
			Tolerance: tolerance,
			Exclude:   []string{".git/**"},
			HubNames:  []string{"README.md"},
		},
	}
}

func TestOrphanGateTolerance(t *testing.T) {
	const n = 3
	root := orphanTree(t, n)
	tree := loadTree(t, root)
	g := BuildGraph(tree, newResolver(t, root))

	atLimit := Audit(tree, g, auditOptions(n))
	assert.Len(t, atLimit.Orphans, n)
	assert.False(t, atLimit.OrphanGateFailed())
	for _, i := range atLimit.Issues() {
		assert.NotEqual(t, RuleOrphanGate, i.Rule)
	}

	overLimit := Audit(tree, g, auditOptions(n-1))
	assert.True(t, overLimit.OrphanGateFailed())
	var gate []check.Issue
	for _, i := range overLimit.Issues() {
		if i.Rule == RuleOrphanGate {
			gate = append(gate, i)
		}
	}
	require.Len(t, gate, 1)
	assert.Equal(t, "3 orphans exceed tolerance 2", gate[0].Message)
	assert.Equal(t, check.SeverityError, gate[0].Severity)
}

func TestOrphansRespectReferencedAndExcludes(t *testing.T) {
	root := orphanTree(t, 2)
	tree := loadTree(t, root)
	g := BuildGraph(tree, newResolver(t, root))

	opts := auditOptions(0)
	opts.Referenced = map[string]bool{"docs/orphan0.md": true}
	opts.Orphans.Exclude = append(opts.Orphans.Exclude, "docs/orphan1.md")
	assert.Empty(t, Audit(tree, g, opts).Orphans)
}

func TestHubRules(t *testing.T) {
	root := writeTree(t, map[string]string{
		"docs/standards/UNIFIED_STANDARDS.md": "# Hub\n\n[A](A_STANDARDS.md)\n",
		"docs/standards/A_STANDARDS.md":       "# A\n",
		"docs/standards/b-standards.md":       "# B\n",
		"docs/standards/README.md":            "# Readme\n",
	})
	tree := loadTree(t, root)
	g := BuildGraph(tree, newResolver(t, root))

	opts := auditOptions(10)
	opts.HubRules = []config.HubRule{{Pattern: "docs/standards/**/*.md", Hubs: []string{"docs/standards/UNIFIED_STANDARDS.md"}}}
	opts.UpperSnakeDirs = []string{"docs/standards"}
	opts.ExpectedDirs = []string{"docs/standards", "examples"}
	res := Audit(tree, g, opts)

	assert.Equal(t, []string{"docs/standards/b-standards.md"}, res.HubViolations)
	assert.Equal(t, []string{"docs/standards/b-standards.md"}, res.NonConforming)
	assert.Equal(t, []string{"examples"}, res.MissingDirs)
	assert.Equal(t, []string{"docs"}, res.MissingReadmes)

	tsv := HubMatrixTSV(res)
	assert.Equal(t, "file\tdocs/standards/UNIFIED_STANDARDS.md\n"+
		"docs/standards/A_STANDARDS.md\t1\n"+
		"docs/standards/UNIFIED_STANDARDS.md\t1\n"+
		"docs/standards/b-standards.md\t0\n", tsv)

	rules := map[string]int{}
	for _, i := range res.Issues() {
		rules[i.Rule]++
	}
	assert.Equal(t, 1, rules[RuleHubMissingLink])
	assert.Equal(t, 1, rules[RuleNameConvention])
	assert.Equal(t, 1, rules[RuleMissingDir])
	assert.Equal(t, 1, rules[RuleReadmeMissing])
}

func TestUnidirectionalAndDOT(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.md": "# A\n\n[B](b.md) [C](c.md)\n",
		"b.md": "# B\n\n[A](a.md)\n",
		"c.md": "# C\n",
	})
	tree := loadTree(t, root)
	g := BuildGraph(tree, newResolver(t, root))

	issues := Unidirectional(g, []string{"*.md"})
	require.Len(t, issues, 1)
	assert.Equal(t, "a.md", issues[0].File)
	assert.Equal(t, 3, issues[0].Line)
	assert.Contains(t, issues[0].Message, "c.md")

	dot := g.DOT(nil)
	assert.Contains(t, dot, `"a.md" -> "b.md";`)
	assert.Contains(t, dot, `"b.md" -> "a.md";`)
	assert.Equal(t, dot, BuildGraph(tree, newResolver(t, root)).DOT(nil))

	onlyAB := g.DOT(func(p string) bool { return p != "c.md" })
	assert.NotContains(t, onlyAB, "c.md")
}

func TestWriteReports(t *testing.T) {
	root := orphanTree(t, 1)
	tree := loadTree(t, root)
	g := BuildGraph(tree, newResolver(t, root))
	res := Audit(tree, g, auditOptions(0))
	dir := filepath.Join(t.TempDir(), "reports")

	broken := []check.Issue{{File: "a.md", Line: 2, Rule: RuleBroken, Message: "broken link to x.md"}}
	ext := map[string][]ExternalLink{"go.dev": {{File: "a.md", Line: 1, Text: "Go", URL: "https://go.dev"}}}
	require.NoError(t, WriteReports(dir, len(tree.Documents), broken, ext, res))

	for _, name := range []string{LinkCheckFile, StructureAuditFile, StructureJSONFile, HubMatrixFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	raw, err := os.ReadFile(filepath.Join(dir, StructureJSONFile))
	require.NoError(t, err)
	var summary AuditSummary
	require.NoError(t, json.Unmarshal(raw, &summary))
	assert.Equal(t, AuditSummary{BrokenLinks: 1, Orphans: 1, Tolerance: 0, OrphanGate: "fail", ExternalLinks: 1}, summary)

	linkcheck, err := os.ReadFile(filepath.Join(dir, LinkCheckFile))
	require.NoError(t, err)
	assert.Contains(t, string(linkcheck), "- **a.md:2**: broken link to x.md")
	assert.Contains(t, string(linkcheck), "### go.dev (1 links)")
}
