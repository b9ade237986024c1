package links

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
)

const (
	RuleOrphan         = "orphan"
	RuleOrphanGate     = "orphan-gate"
	RuleHubMissingLink = "hub-missing-link"
	RuleReadmeMissing  = "readme-missing"
	RuleNameConvention = "name-convention"
	RuleMissingDir     = "structure-missing-dir"
)

// AuditOptions configure Audit.
type AuditOptions struct {
	Orphans        config.OrphansConfig
	HubRules       []config.HubRule
	UpperSnakeDirs []string
	ExpectedDirs   []string
	ReadmeExclude  []string
	// Referenced are files listed elsewhere, such as in the manifest, which
	// are therefore not orphans.
	Referenced map[string]bool
}

// AuditResult is the structure audit of one tree.
type AuditResult struct {
	Orphans        []string `json:"orphans"`
	Tolerance      int      `json:"tolerance"`
	HubViolations  []string `json:"hub_violations"`
	MissingReadmes []string `json:"missing_readmes"`
	NonConforming  []string `json:"non_conforming_names"`
	MissingDirs    []string `json:"missing_dirs"`

	// Hubs are the distinct hub files of all rules, sorted.
	Hubs []string `json:"hubs"`
	// HubMatrix maps each file covered by a hub rule to the hubs linking it.
	HubMatrix map[string]map[string]bool `json:"-"`
}

// OrphanGateFailed reports whether the orphan count exceeds the tolerance.
func (a *AuditResult) OrphanGateFailed() bool {
	return len(a.Orphans) > a.Tolerance
}

// Audit computes orphans, hub rule violations, naming and layout problems.
func Audit(tree *docs.Tree, g *Graph, opts AuditOptions) *AuditResult {
	res := &AuditResult{
		Tolerance: opts.Orphans.Tolerance,
		HubMatrix: map[string]map[string]bool{},
	}
	res.Orphans = orphans(tree, g, opts)
	res.HubViolations, res.Hubs = hubRules(tree, g, opts, res.HubMatrix)
	res.MissingReadmes = missingReadmes(tree, opts)
	res.NonConforming = nonConforming(tree, opts)
	for _, d := range opts.ExpectedDirs {
		info, err := os.Stat(filepath.Join(tree.Root, filepath.FromSlash(d)))
		if err != nil || !info.IsDir() {
			res.MissingDirs = append(res.MissingDirs, d)
		}
	}
	return res
}

func isHubName(names []string, p string) bool {
	base := strings.ToLower(path.Base(p))
	for _, n := range names {
		if strings.ToLower(n) == base {
			return true
		}
	}
	return false
}

func orphans(tree *docs.Tree, g *Graph, opts AuditOptions) []string {
	var out []string
	for _, doc := range tree.Documents {
		p := doc.RelPath
		if docs.MatchAny(opts.Orphans.Exclude, p) || isHubName(opts.Orphans.HubNames, p) {
			continue
		}
		if opts.Referenced[p] || len(g.Inbound(p)) > 0 {
			continue
		}
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func hubRules(tree *docs.Tree, g *Graph, opts AuditOptions, matrix map[string]map[string]bool) ([]string, []string) {
	violations := map[string]bool{}
	allHubs := map[string]bool{}
	for _, rule := range opts.HubRules {
		if rule.Pattern == "" || len(rule.Hubs) == 0 {
			continue
		}
		hubs := map[string]bool{}
		for _, h := range rule.Hubs {
			hubs[h] = true
			allHubs[h] = true
		}
		for _, doc := range tree.Documents {
			p := doc.RelPath
			if !docs.MatchAny([]string{rule.Pattern}, p) || hubs[p] || path.Base(p) == "README.md" {
				continue
			}
			if matrix[p] == nil {
				matrix[p] = map[string]bool{}
			}
			linked := false
			for _, h := range rule.Hubs {
				hit := g.Links(h, p)
				matrix[p][h] = matrix[p][h] || hit
				linked = linked || hit
			}
			if !linked && !docs.MatchAny(opts.Orphans.Exclude, p) {
				violations[p] = true
			}
		}
	}
	for h := range allHubs {
		if matrix[h] == nil {
			matrix[h] = map[string]bool{}
		}
		matrix[h][h] = true
	}
	return sortedKeys(violations), sortedKeys(allHubs)
}

func missingReadmes(tree *docs.Tree, opts AuditOptions) []string {
	dirs := map[string]bool{}
	for _, doc := range tree.Documents {
		for dir := doc.Dir(); dir != ""; dir = parentDir(dir) {
			dirs[dir] = true
		}
	}
	var out []string
	for _, dir := range sortedKeys(dirs) {
		if docs.MatchAny(opts.ReadmeExclude, dir) || docs.MatchAny(opts.ReadmeExclude, dir+"/") {
			continue
		}
		if _, ok := tree.Get(path.Join(dir, "README.md")); ok {
			continue
		}
		if _, err := tree.Stat(path.Join(dir, "README.md")); err == nil {
			continue
		}
		out = append(out, dir)
	}
	return out
}

func parentDir(dir string) string {
	p := path.Dir(dir)
	if p == "." || p == "/" {
		return ""
	}
	return p
}

func nonConforming(tree *docs.Tree, opts AuditOptions) []string {
	hubs := map[string]bool{}
	for _, rule := range opts.HubRules {
		for _, h := range rule.Hubs {
			hubs[h] = true
		}
	}
	var out []string
	for _, doc := range tree.Documents {
		p := doc.RelPath
		if docs.MatchAny(opts.Orphans.Exclude, p) || hubs[p] || isHubName(opts.Orphans.HubNames, p) {
			continue
		}
		if !underAny(opts.UpperSnakeDirs, p) {
			continue
		}
		if !isUpperSnake(strings.TrimSuffix(path.Base(p), path.Ext(p))) {
			out = append(out, p)
		}
	}
	return out
}

func underAny(dirs []string, p string) bool {
	for _, d := range dirs {
		d = strings.TrimSuffix(d, "/")
		if strings.HasPrefix(p, d+"/") {
			return true
		}
	}
	return false
}

// isUpperSnake accepts names with at least one letter and no lower case
// letters, so CODING_STANDARDS and API-V2 pass.
func isUpperSnake(stem string) bool {
	return strings.ToUpper(stem) == stem && strings.ToLower(stem) != stem
}

// Issues converts the audit into issues. The orphan gate adds one blocking
// issue when the orphan count exceeds the tolerance.
func (a *AuditResult) Issues() []check.Issue {
	var issues []check.Issue
	for _, p := range a.Orphans {
		issues = append(issues, check.Issue{
			File:       p,
			Rule:       RuleOrphan,
			Severity:   check.SeverityWarning,
			Message:    "no other document links to this file",
			Suggestion: "link it from a hub or README, or add it to audit.orphans.exclude",
		})
	}
	if a.OrphanGateFailed() {
		issues = append(issues, check.Issue{
			File:     ".",
			Rule:     RuleOrphanGate,
			Severity: check.SeverityError,
			Message:  fmt.Sprintf("%d orphans exceed tolerance %d", len(a.Orphans), a.Tolerance),
		})
	}
	for _, p := range a.HubViolations {
		var hubs []string
		for _, h := range a.Hubs {
			if _, ok := a.HubMatrix[p][h]; ok {
				hubs = append(hubs, h)
			}
		}
		issues = append(issues, check.Issue{
			File:       p,
			Rule:       RuleHubMissingLink,
			Severity:   check.SeverityError,
			Message:    fmt.Sprintf("not linked from required hub %s", strings.Join(hubs, " or ")),
			Suggestion: "add a link to this file from the hub",
		})
	}
	for _, d := range a.MissingReadmes {
		issues = append(issues, check.Issue{
			File:     d,
			Rule:     RuleReadmeMissing,
			Severity: check.SeverityInfo,
			Message:  "directory has no README.md",
		})
	}
	for _, p := range a.NonConforming {
		ext := path.Ext(p)
		stem := strings.TrimSuffix(path.Base(p), ext)
		issues = append(issues, check.Issue{
			File:       p,
			Rule:       RuleNameConvention,
			Severity:   check.SeverityWarning,
			Message:    "file name is not UPPERCASE_WITH_UNDERSCORES.md",
			Suggestion: "rename to " + strings.ToUpper(strings.ReplaceAll(stem, "-", "_")) + ext,
		})
	}
	for _, d := range a.MissingDirs {
		issues = append(issues, check.Issue{
			File:     d,
			Rule:     RuleMissingDir,
			Severity: check.SeverityWarning,
			Message:  "expected directory is missing",
		})
	}
	return issues
}
