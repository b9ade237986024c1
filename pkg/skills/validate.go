package skills

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/telemetry"
	"github.com/jingkaihe/docguard/pkg/tokens"
	"go.opentelemetry.io/otel/attribute"
)

const (
	RuleFrontmatter      = "skill-frontmatter"
	RuleNameMismatch     = "skill-name-mismatch"
	RuleDescriptionShort = "skill-description-short"
	RuleLevelMissing     = "skill-level-missing"
	RuleLevelBudget      = "skill-level-budget"
	RuleDirMissing       = "skill-dir-missing"
	RuleRefBroken        = "skill-ref-broken"
)

// Levels are the progressive-disclosure section headings.
var Levels = []string{
	"## Level 1: Quick Start",
	"## Level 2: Implementation",
	"## Level 3: Mastery",
}

// Level1Subsections are recommended under Level 1.
var Level1Subsections = []string{
	"### What You'll Learn",
	"### Core Principles",
	"### Quick Reference",
	"### Essential Checklist",
}

// ResourceDirs are expected beside every SKILL.md.
var ResourceDirs = []string{"templates", "scripts", "resources"}

var skillRef = regexp.MustCompile(`\.\./([^/\s)]+)/SKILL\.md`)

// ValidatorOptions carry the thresholds of the skill checks.
type ValidatorOptions struct {
	Root           string
	Level1Budget   int
	Level2Budget   int
	MinDescription int
	Estimator      tokens.Estimator
}

// Validator checks discovered skills.
type Validator struct {
	opts ValidatorOptions
}

// NewValidator creates a validator.
func NewValidator(opts ValidatorOptions) *Validator {
	return &Validator{opts: opts}
}

// Run validates every skill and returns the report. A panic while checking
// one skill becomes an internal-error issue for its file.
func (v *Validator) Run(ctx context.Context, skills []*Skill) *check.Report {
	report := check.NewReport("skills", v.opts.Root)
	_ = telemetry.WithSpan(ctx, "check.skills", func(ctx context.Context) error {
		for _, s := range skills {
			report.FilesScanned++
			report.Add(v.safeCheck(ctx, s)...)
		}
		telemetry.SetAttributes(ctx, attribute.Int("docguard.skills", len(skills)))
		return nil
	})
	report.Sort()
	return report
}

func (v *Validator) safeCheck(ctx context.Context, s *Skill) (issues []check.Issue) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.G(ctx).WithField("file", s.File).Errorf("skill check panicked: %v", rec)
			issues = []check.Issue{{
				File:     s.File,
				Rule:     check.RuleInternalError,
				Severity: check.SeverityError,
				Message:  fmt.Sprintf("skill check failed: %v", rec),
			}}
		}
	}()
	return v.Check(s)
}

// Check validates one skill.
func (v *Validator) Check(s *Skill) []check.Issue {
	var issues []check.Issue
	add := func(rule string, sev check.Severity, msg, suggestion string) {
		issues = append(issues, check.Issue{File: s.File, Rule: rule, Severity: sev, Message: msg, Suggestion: suggestion})
	}

	switch {
	case s.LoadErr != nil && s.Name == "" && s.Description == "":
		add(RuleFrontmatter, check.SeverityError, s.LoadErr.Error(), "start the file with --- name/description frontmatter ---")
	case s.Name == "":
		add(RuleFrontmatter, check.SeverityError, "missing 'name' in frontmatter", "")
	case s.Description == "":
		add(RuleFrontmatter, check.SeverityError, "missing 'description' in frontmatter", "")
	}
	if s.Name != "" && s.Name != s.DirName {
		add(RuleNameMismatch, check.SeverityWarning,
			fmt.Sprintf("name %q does not match directory %q", s.Name, s.DirName), "rename the skill or its directory")
	}
	if s.Description != "" && len(s.Description) < v.opts.MinDescription {
		add(RuleDescriptionShort, check.SeverityWarning,
			fmt.Sprintf("description is %d chars, want at least %d", len(s.Description), v.opts.MinDescription),
			"say what the skill does and when to use it")
	}

	issues = append(issues, v.checkLevels(s)...)

	for _, dir := range ResourceDirs {
		info, err := os.Stat(filepath.Join(v.opts.Root, filepath.FromSlash(s.Directory), dir))
		if err != nil || !info.IsDir() {
			add(RuleDirMissing, check.SeverityInfo, fmt.Sprintf("missing %s/ directory", dir), "")
		}
	}

	skillsDir := path.Dir(s.Directory)
	seen := map[string]bool{}
	for _, m := range skillRef.FindAllStringSubmatch(s.Content, -1) {
		ref := m[1]
		if seen[ref] {
			continue
		}
		seen[ref] = true
		target := filepath.Join(v.opts.Root, filepath.FromSlash(path.Join(skillsDir, ref, skillFileName)))
		if _, err := os.Stat(target); err != nil {
			add(RuleRefBroken, check.SeverityError, fmt.Sprintf("reference to missing skill %q", ref), "")
		}
	}
	return issues
}

func (v *Validator) checkLevels(s *Skill) []check.Issue {
	var issues []check.Issue
	add := func(rule string, sev check.Severity, msg string) {
		issues = append(issues, check.Issue{File: s.File, Rule: rule, Severity: sev, Message: msg})
	}

	for i, heading := range Levels {
		if strings.Contains(s.Content, heading) {
			continue
		}
		sev := check.SeverityWarning
		if i == 0 {
			sev = check.SeverityError
		}
		add(RuleLevelMissing, sev, fmt.Sprintf("missing %q section", strings.TrimPrefix(heading, "## ")))
	}
	if strings.Contains(s.Content, Levels[0]) {
		for _, sub := range Level1Subsections {
			if !strings.Contains(s.Content, sub) {
				add(RuleLevelMissing, check.SeverityWarning, fmt.Sprintf("missing recommended subsection %q", strings.TrimPrefix(sub, "### ")))
			}
		}
	}

	budgets := []struct {
		level  int
		budget int
		sev    check.Severity
	}{
		{1, v.opts.Level1Budget, check.SeverityError},
		{2, v.opts.Level2Budget, check.SeverityWarning},
	}
	for _, b := range budgets {
		if b.budget <= 0 {
			continue
		}
		n := v.opts.Estimator.Estimate(ExtractLevel(s.Content, b.level))
		if n > b.budget {
			add(RuleLevelBudget, b.sev, fmt.Sprintf("Level %d has about %d tokens, budget is %d", b.level, n, b.budget))
		}
	}
	return issues
}

// ExtractLevel returns the text from "## Level n:" up to the next level
// heading or the end of content.
func ExtractLevel(content string, n int) string {
	start := strings.Index(content, fmt.Sprintf("## Level %d:", n))
	if start < 0 {
		return ""
	}
	rest := content[start:]
	if end := strings.Index(rest[1:], "## Level"); end >= 0 {
		return rest[:end+1]
	}
	return rest
}
