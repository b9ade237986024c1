package skills

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completeSkill = `---
name: complete
description: A complete skill with every recommended section
---

# Complete

## Level 1: Quick Start

### What You'll Learn
### Core Principles
### Quick Reference
### Essential Checklist

See [other](../other/SKILL.md).

## Level 2: Implementation

Details.

## Level 3: Mastery

More.
`

func validator(root string) *Validator {
	return NewValidator(ValidatorOptions{
		Root:           root,
		Level1Budget:   2000,
		Level2Budget:   5000,
		MinDescription: 20,
		Estimator:      tokens.Chars,
	})
}

func scan(t *testing.T, root string) []*Skill {
	t.Helper()
	d, err := NewDiscovery(WithRoot(root))
	require.NoError(t, err)
	all, err := d.Scan()
	require.NoError(t, err)
	return all
}

func ruleCounts(issues []check.Issue) map[string]int {
	out := map[string]int{}
	for _, i := range issues {
		out[i.Rule]++
	}
	return out
}

func TestValidateCompleteSkill(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "skills/complete", completeSkill)
	writeSkill(t, root, "skills/other", "---\nname: other\ndescription: Another skill that is referenced\n---\n")
	for _, dir := range ResourceDirs {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "skills", "complete", dir), 0o755))
	}

	all := scan(t, root)
	require.Len(t, all, 2)
	assert.Empty(t, validator(root).Check(all[0]))
}

func TestValidateProblems(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "skills/broken", `---
name: renamed
description: short
---

## Level 2: Implementation

See ../ghost/SKILL.md and ../ghost/SKILL.md again.
`)

	report := validator(root).Run(context.Background(), scan(t, root))
	assert.Equal(t, 1, report.FilesScanned)
	assert.Equal(t, map[string]int{
		RuleNameMismatch:     1,
		RuleDescriptionShort: 1,
		RuleLevelMissing:     2,
		RuleDirMissing:       3,
		RuleRefBroken:        1,
	}, ruleCounts(report.Issues))

	var levelErrors int
	for _, i := range report.Filter(RuleLevelMissing) {
		if i.Severity == check.SeverityError {
			levelErrors++
			assert.Contains(t, i.Message, "Level 1: Quick Start")
		}
	}
	assert.Equal(t, 1, levelErrors)
}

func TestValidateFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeSkill(t, root, "skills/bare", "# No frontmatter\n")
	writeSkill(t, root, "skills/nodesc", "---\nname: nodesc\n---\n")

	all := scan(t, root)
	require.Len(t, all, 2)

	bare := validator(root).Check(all[0])
	require.NotEmpty(t, bare)
	assert.Equal(t, RuleFrontmatter, bare[0].Rule)
	assert.Equal(t, "missing frontmatter", bare[0].Message)

	nodesc := validator(root).Check(all[1])
	require.NotEmpty(t, nodesc)
	assert.Equal(t, RuleFrontmatter, nodesc[0].Rule)
	assert.Equal(t, "missing 'description' in frontmatter", nodesc[0].Message)
}

func TestValidateLevelBudget(t *testing.T) {
	root := t.TempDir()
	body := "---\nname: big\ndescription: A skill whose first level is far too long\n---\n\n## Level 1: Quick Start\n" +
		strings.Repeat("x", 400) + "\n## Level 2: Implementation\nshort\n"
	writeSkill(t, root, "skills/big", body)

	v := NewValidator(ValidatorOptions{Root: root, Level1Budget: 50, Level2Budget: 50, MinDescription: 20, Estimator: tokens.Chars})
	issues := v.Check(scan(t, root)[0])
	budget := 0
	for _, i := range issues {
		if i.Rule == RuleLevelBudget {
			budget++
			assert.Equal(t, check.SeverityError, i.Severity)
			assert.Contains(t, i.Message, "Level 1")
		}
	}
	assert.Equal(t, 1, budget)
}

func TestExtractLevel(t *testing.T) {
	content := "intro\n## Level 1: Quick Start\none\n## Level 2: Implementation\ntwo\n"
	assert.Equal(t, "## Level 1: Quick Start\none\n", ExtractLevel(content, 1))
	assert.Equal(t, "## Level 2: Implementation\ntwo\n", ExtractLevel(content, 2))
	assert.Equal(t, "", ExtractLevel(content, 3))
}
