package skills

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSkill(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel), "SKILL.md")
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestNewDiscovery(t *testing.T) {
	t.Run("with default dirs", func(t *testing.T) {
		discovery, err := NewDiscovery()
		require.NoError(t, err)
		assert.Equal(t, []string{"skills"}, discovery.skillDirs)
		assert.Equal(t, ".", discovery.root)
	})

	t.Run("with custom dirs", func(t *testing.T) {
		discovery, err := NewDiscovery(WithRoot("/repo"), WithSkillDirs("a", "b"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, discovery.skillDirs)
		assert.Equal(t, "/repo", discovery.root)
	})

	t.Run("rejects empty dir", func(t *testing.T) {
		_, err := NewDiscovery(WithSkillDirs(""))
		assert.Error(t, err)
	})
}

func TestDiscoverSkills(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "skills/testing/unit-testing", `---
name: unit-testing
description: Write focused unit tests with table-driven cases
---

# Unit Testing

## Level 1: Quick Start
This is a test skill.
`)
	writeSkill(t, root, "skills/api-design", `---
name: api-design
description: Design REST APIs
category: architecture
---

# API Design
`)

	discovery, err := NewDiscovery(WithRoot(root), WithSkillDirs("skills"))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	assert.Len(t, skills, 2)

	unit, exists := skills["unit-testing"]
	require.True(t, exists)
	assert.Equal(t, "Write focused unit tests with table-driven cases", unit.Description)
	assert.Equal(t, "skills/testing/unit-testing", unit.Directory)
	assert.Equal(t, "skills/testing/unit-testing/SKILL.md", unit.File)
	assert.Equal(t, "unit-testing", unit.DirName)
	assert.Equal(t, "testing", unit.Category)
	assert.Contains(t, unit.Content, "# Unit Testing")
	assert.NotContains(t, unit.Content, "description:")

	api := skills["api-design"]
	require.NotNil(t, api)
	assert.Equal(t, "architecture", api.Category)

	names, err := discovery.ListSkillNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"api-design", "unit-testing"}, names)
}

func TestDiscoveryPrecedence(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "first/shared-skill", "---\nname: shared-skill\ndescription: From first directory\n---\n\nFirst directory content.\n")
	writeSkill(t, root, "second/shared-skill", "---\nname: shared-skill\ndescription: From second directory\n---\n\nSecond directory content.\n")

	discovery, err := NewDiscovery(WithRoot(root), WithSkillDirs("first", "second"))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	assert.Len(t, skills, 1)
	assert.Equal(t, "From first directory", skills["shared-skill"].Description)

	all, err := discovery.Scan()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestScanKeepsInvalidSkills(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "skills/no-name", "---\ndescription: Missing name field\n---\n\nContent here.\n")
	writeSkill(t, root, "skills/no-desc", "---\nname: no-desc\n---\n\nContent here.\n")
	writeSkill(t, root, "skills/no-frontmatter", "# Just content\nNo frontmatter here.\n")

	discovery, err := NewDiscovery(WithRoot(root))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	assert.Empty(t, skills)

	all, err := discovery.Scan()
	require.NoError(t, err)
	require.Len(t, all, 3)
	for _, s := range all {
		assert.Error(t, s.LoadErr, s.File)
	}
	assert.Equal(t, "skills/no-desc/SKILL.md", all[0].File)
	assert.Equal(t, "no-desc", all[0].Name)
}

func TestNonExistentDirectory(t *testing.T) {
	discovery, err := NewDiscovery(WithRoot(t.TempDir()), WithSkillDirs("missing"))
	require.NoError(t, err)

	skills, err := discovery.DiscoverSkills()
	require.NoError(t, err)
	assert.Empty(t, skills)

	_, err = discovery.GetSkill("anything")
	assert.Error(t, err)
}

func TestExtractBodyContent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with frontmatter",
			input:    "---\nname: test\ndescription: desc\n---\n\n# Content\n\nBody text.",
			expected: "# Content\n\nBody text.",
		},
		{
			name:     "no frontmatter",
			input:    "# Just content\nNo frontmatter.",
			expected: "# Just content\nNo frontmatter.",
		},
		{
			name:     "incomplete frontmatter",
			input:    "---\nname: test\n# No closing ---",
			expected: "---\nname: test\n# No closing ---",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractBodyContent(tt.input))
		})
	}
}

func TestFilter(t *testing.T) {
	all := []*Skill{
		{Name: "unit-testing", Description: "Tests", Category: "testing"},
		{Name: "api-design", Description: "REST and GraphQL", Category: "architecture"},
		{Name: "fuzzing", Description: "Property testing", Category: "testing"},
	}

	assert.Len(t, Filter(all, "", ""), 3)
	assert.Len(t, Filter(all, "", "all"), 3)
	assert.Len(t, Filter(all, "TEST", ""), 2)
	assert.Len(t, Filter(all, "graphql", "architecture"), 1)
	assert.Empty(t, Filter(all, "graphql", "testing"))
}
