package links

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillAutoLinks(t *testing.T) {
	const pattern = "docs/standards/**/*.md"
	hub := "docs/standards/UNIFIED_STANDARDS.md"

	t.Run("existing block keeps its links", func(t *testing.T) {
		content := "# Hub\n\n<!-- AUTO-LINKS:docs/standards/**/*.md -->\n\n- [A](A.md)\n\n<!-- /AUTO-LINKS -->\n\nFooter\n"
		got := FillAutoLinks(content, hub, pattern, []string{"docs/standards/A.md", "docs/standards/api/REST_API.md"})
		assert.Equal(t, "# Hub\n\n<!-- AUTO-LINKS:docs/standards/**/*.md -->\n\n- [A](A.md)\n- [Rest Api](api/REST_API.md)\n\n<!-- /AUTO-LINKS -->\n\nFooter\n", got)
	})

	t.Run("placeholder is replaced", func(t *testing.T) {
		content := "<!-- AUTO-LINKS:docs/standards/**/*.md -->\n\n_(no documents found)_\n\n<!-- /AUTO-LINKS -->\n"
		got := FillAutoLinks(content, hub, pattern, []string{"docs/standards/B_STANDARDS.md"})
		assert.Equal(t, "<!-- AUTO-LINKS:docs/standards/**/*.md -->\n\n- [B Standards](B_STANDARDS.md)\n\n<!-- /AUTO-LINKS -->\n", got)
	})

	t.Run("block goes under contents heading", func(t *testing.T) {
		content := "# Hub\n\n## Contents\n\nIntro.\n"
		got := FillAutoLinks(content, hub, pattern, []string{"docs/standards/B_STANDARDS.md"})
		assert.Equal(t, "# Hub\n\n## Contents\n\n<!-- AUTO-LINKS:docs/standards/**/*.md -->\n\n- [B Standards](B_STANDARDS.md)\n\n<!-- /AUTO-LINKS -->\n\nIntro.\n", got)
	})

	t.Run("block goes before navigation", func(t *testing.T) {
		content := "# Hub\n\n## Navigation\n"
		got := FillAutoLinks(content, hub, pattern, []string{"docs/standards/B_STANDARDS.md"})
		assert.Equal(t, "# Hub\n\n<!-- AUTO-LINKS:docs/standards/**/*.md -->\n\n- [B Standards](B_STANDARDS.md)\n\n<!-- /AUTO-LINKS -->\n\n## Navigation\n", got)
	})

	t.Run("block is appended otherwise", func(t *testing.T) {
		got := FillAutoLinks("# Hub\n", "README.md", "guides/*.md", []string{"guides/getting-started.md"})
		assert.Equal(t, "# Hub\n\n<!-- AUTO-LINKS:guides/*.md -->\n\n- [Getting Started](guides/getting-started.md)\n\n<!-- /AUTO-LINKS -->\n", got)
	})

	t.Run("links climb out of the hub directory", func(t *testing.T) {
		got := FillAutoLinks("# Hub\n", "docs/hub/README.md", "guides/*.md", []string{"guides/a.md"})
		assert.Contains(t, got, "- [A](../../guides/a.md)")
	})
}

func hubFixture(t *testing.T) (string, AuditOptions) {
	t.Helper()
	root := writeTree(t, map[string]string{
		"README.md":                           "# Root\n\n[standards](docs/standards/UNIFIED_STANDARDS.md)\n",
		"docs/standards/UNIFIED_STANDARDS.md": "# Unified\n\n## Contents\n\n[A](A_STANDARDS.md)\n",
		"docs/standards/A_STANDARDS.md":       "# A\n",
		"docs/standards/B_STANDARDS.md":       "# B\n",
		"docs/standards/C_STANDARDS.md":       "# C\n",
	})
	opts := auditOptions(10)
	opts.HubRules = []config.HubRule{{Pattern: "docs/standards/**/*.md", Hubs: []string{"docs/standards/UNIFIED_STANDARDS.md"}}}
	return root, opts
}

func TestFixHubsResolvesViolations(t *testing.T) {
	ctx := context.Background()
	root, opts := hubFixture(t)
	tree := loadTree(t, root)
	res := Audit(tree, BuildGraph(tree, newResolver(t, root)), opts)
	require.Equal(t, []string{"docs/standards/B_STANDARDS.md", "docs/standards/C_STANDARDS.md"}, res.HubViolations)

	fixes, err := FixHubs(ctx, tree, res, opts.HubRules, HubFixOptions{})
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.Equal(t, "docs/standards/UNIFIED_STANDARDS.md", fixes[0].Hub)
	assert.True(t, fixes[0].Written)
	assert.Len(t, fixes[0].Added, 2)

	tree = loadTree(t, root)
	res = Audit(tree, BuildGraph(tree, newResolver(t, root)), opts)
	assert.Empty(t, res.HubViolations)
	for _, i := range res.Issues() {
		assert.NotEqual(t, RuleHubMissingLink, i.Rule)
	}

	// A second pass has nothing to add.
	fixes, err = FixHubs(ctx, tree, res, opts.HubRules, HubFixOptions{})
	require.NoError(t, err)
	assert.Empty(t, fixes)
}

func TestFixHubsDryRunNeverWrites(t *testing.T) {
	root, opts := hubFixture(t)
	hubPath := filepath.Join(root, "docs", "standards", "UNIFIED_STANDARDS.md")
	before, err := os.ReadFile(hubPath)
	require.NoError(t, err)

	tree := loadTree(t, root)
	res := Audit(tree, BuildGraph(tree, newResolver(t, root)), opts)
	fixes, err := FixHubs(context.Background(), tree, res, opts.HubRules, HubFixOptions{DryRun: true})
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.False(t, fixes[0].Written)
	assert.Contains(t, fixes[0].Diff, "+- [B Standards](B_STANDARDS.md)")
	assert.Contains(t, fixes[0].Diff, "+- [C Standards](C_STANDARDS.md)")

	after, err := os.ReadFile(hubPath)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestFixHubsCreatesMissingHub(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md":          "# Root\n",
		"guides/install.md":  "# Install\n",
		"guides/upgrades.md": "# Upgrades\n",
	})
	opts := auditOptions(10)
	opts.HubRules = []config.HubRule{{Pattern: "guides/*.md", Hubs: []string{"guides/README.md"}}}
	tree := loadTree(t, root)
	res := Audit(tree, BuildGraph(tree, newResolver(t, root)), opts)
	require.Len(t, res.HubViolations, 2)

	backupDir := t.TempDir()
	fixes, err := FixHubs(context.Background(), tree, res, opts.HubRules, HubFixOptions{BackupDir: backupDir})
	require.NoError(t, err)
	require.Len(t, fixes, 1)
	assert.True(t, fixes[0].Created)
	assert.Empty(t, fixes[0].Backup)

	data, err := os.ReadFile(filepath.Join(root, "guides", "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Guides\n")
	assert.Contains(t, string(data), "- [Install](install.md)\n- [Upgrades](upgrades.md)")
	assert.Contains(t, string(data), "[Main Repository](../README.md)")
}
