// Package standards lints standard documents: metadata headers, required
// structure, requirement tags, formatting and code fences.
package standards

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/tokens"
)

const (
	RuleMetadataVersion = "metadata-version"
	RuleMetadataDate    = "metadata-date"
	RuleMetadataStatus  = "metadata-status"
	RuleMetadataCode    = "metadata-code"
	RuleStructureTOC    = "structure-toc"
	RuleOverview        = "structure-overview"
	RuleChecklist       = "structure-checklist"
	RuleTagsMissing     = "tags-missing"
	RuleTagsPlacement   = "tags-placement"
	RuleTrailingSpace   = "format-trailing-space"
	RuleHeadingSkip     = "format-heading-skip"
	RuleCodeLanguage    = "code-language"
)

// UnifiedName is the hub document, which carries no standard code.
const UnifiedName = "UNIFIED_STANDARDS.md"

var (
	versionLine = regexp.MustCompile(`^\*\*Version:\*\*\s+\d+\.\d+\.\d+\s*$`)
	dateLine    = regexp.MustCompile(`^\*\*Last Updated:\*\*\s+\d{4}-\d{2}-\d{2}\s*$`)
	statusLine  = regexp.MustCompile(`^\*\*Status:\*\*\s+(Draft|Active|Deprecated)\s*$`)
	codeLine    = regexp.MustCompile(`^\*\*Standard Code:\*\*\s+[A-Z]{2,4}\s*$`)

	versionValue = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
	dateValue    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	statusValue  = regexp.MustCompile(`^(?i:draft|active|deprecated)$`)
	codeValue    = regexp.MustCompile(`^[A-Z]{2,4}$`)

	requirementTag = regexp.MustCompile(`\[(REQUIRED|RECOMMENDED|OPTIONAL)\]`)
	fenceLine      = regexp.MustCompile("^\\s{0,3}(`{3,}|~{3,})\\s*([^`\\s]*)")
)

// Options configure the linter.
type Options struct {
	// MetadataLines is how many leading lines may carry metadata headers.
	MetadataLines int
	TokenBudget   int
	SectionBudget int
	Estimator     tokens.Estimator
}

// Registry returns the standards checks in reporting order.
func Registry(opts Options) *check.Registry {
	if opts.MetadataLines <= 0 {
		opts.MetadataLines = 20
	}
	return check.NewRegistry().
		Register("metadata", metadataCheck(opts.MetadataLines)).
		Register("structure", structureCheck).
		Register("tags", tagsCheck).
		Register("format", formatCheck).
		Register("code-language", codeLanguageCheck).
		Register("tokens", tokens.BudgetCheck(opts.Estimator, opts.TokenBudget, opts.SectionBudget))
}

func fileIssue(doc *docs.Document, rule string, sev check.Severity, msg, suggestion string) check.Issue {
	return check.Issue{File: doc.RelPath, Line: 1, Column: 1, Rule: rule, Severity: sev, Message: msg, Suggestion: suggestion}
}

type metadataField struct {
	rule       string
	sev        check.Severity
	line       *regexp.Regexp
	keys       []string
	value      *regexp.Regexp
	message    string
	suggestion string
}

var metadataFields = []metadataField{
	{RuleMetadataVersion, check.SeverityError, versionLine, []string{"version"}, versionValue,
		"missing or invalid version metadata", "add: **Version:** X.Y.Z"},
	{RuleMetadataDate, check.SeverityError, dateLine, []string{"last_updated", "updated", "date"}, dateValue,
		"missing or invalid Last Updated metadata", "add: **Last Updated:** YYYY-MM-DD"},
	{RuleMetadataStatus, check.SeverityError, statusLine, []string{"status"}, statusValue,
		"missing or invalid Status metadata", "add: **Status:** Active, Draft or Deprecated"},
	{RuleMetadataCode, check.SeverityWarning, codeLine, []string{"code", "standard_code"}, codeValue,
		"missing Standard Code metadata", "add: **Standard Code:** XX (2-4 capital letters)"},
}

func metadataCheck(window int) check.Func {
	return func(doc *docs.Document) []check.Issue {
		lines := doc.Lines()
		if len(lines) > window {
			lines = lines[:window]
		}
		var issues []check.Issue
		for _, f := range metadataFields {
			if f.rule == RuleMetadataCode && doc.Base() == UnifiedName {
				continue
			}
			if hasMetadata(doc, lines, f) {
				continue
			}
			issues = append(issues, fileIssue(doc, f.rule, f.sev, f.message, f.suggestion))
		}
		return issues
	}
}

func hasMetadata(doc *docs.Document, lines []string, f metadataField) bool {
	for _, l := range lines {
		if f.line.MatchString(l) {
			return true
		}
	}
	for _, k := range f.keys {
		if v := strings.TrimSpace(doc.FrontmatterString(k)); v != "" && f.value.MatchString(v) {
			return true
		}
	}
	return false
}

func structureCheck(doc *docs.Document) []check.Issue {
	content := string(doc.Raw)
	var issues []check.Issue
	if !strings.Contains(content, "Table of Contents") && !strings.Contains(content, "## Contents") {
		issues = append(issues, fileIssue(doc, RuleStructureTOC, check.SeverityWarning,
			"missing Table of Contents", "add a Table of Contents section"))
	}
	overview := false
	for _, h := range doc.Headings {
		if h.Level <= 3 && strings.HasPrefix(h.Text, "Overview") {
			overview = true
			break
		}
	}
	if !overview {
		issues = append(issues, fileIssue(doc, RuleOverview, check.SeverityWarning,
			"missing Overview section", "add ## Overview"))
	}
	if !strings.Contains(strings.ToLower(content), "checklist") {
		issues = append(issues, fileIssue(doc, RuleChecklist, check.SeverityWarning,
			"missing Implementation Checklist", "add an Implementation Checklist section"))
	}
	return issues
}

func tagsCheck(doc *docs.Document) []check.Issue {
	content := string(doc.Raw)
	var issues []check.Issue
	if !strings.Contains(content, "[REQUIRED]") && !strings.Contains(content, "[RECOMMENDED]") {
		issues = append(issues, fileIssue(doc, RuleTagsMissing, check.SeverityWarning,
			"no [REQUIRED] or [RECOMMENDED] tags found", "tag important sections with their requirement level"))
	}
	for i, line := range doc.Lines() {
		n := i + 1
		if doc.InCode(n) {
			continue
		}
		loc := requirementTag.FindStringIndex(line)
		if loc == nil {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "[") {
			continue
		}
		issues = append(issues, check.Issue{
			File:       doc.RelPath,
			Line:       n,
			Column:     loc[0] + 1,
			Rule:       RuleTagsPlacement,
			Severity:   check.SeverityWarning,
			Message:    "requirement tag should be in a heading or at the start of the line",
			Suggestion: "move the tag into the heading: ### [REQUIRED] Section Name",
		})
	}
	return issues
}

func formatCheck(doc *docs.Document) []check.Issue {
	var issues []check.Issue
	for i, line := range doc.Lines() {
		n := i + 1
		if doc.InCode(n) || doc.InFrontmatter(n) {
			continue
		}
		if trimmed := strings.TrimRight(line, " \t"); trimmed != line {
			issues = append(issues, check.Issue{
				File:       doc.RelPath,
				Line:       n,
				Column:     len(trimmed) + 1,
				Rule:       RuleTrailingSpace,
				Severity:   check.SeverityInfo,
				Message:    "trailing whitespace",
				Suggestion: "remove trailing spaces",
			})
		}
	}
	prev := 0
	for _, h := range doc.Headings {
		if prev > 0 && h.Level > prev+1 {
			issues = append(issues, check.Issue{
				File:     doc.RelPath,
				Line:     h.Line,
				Rule:     RuleHeadingSkip,
				Severity: check.SeverityInfo,
				Message:  fmt.Sprintf("heading level jumps from %d to %d", prev, h.Level),
			})
		}
		prev = h.Level
	}
	return issues
}

func codeLanguageCheck(doc *docs.Document) []check.Issue {
	var (
		issues []check.Issue
		open   string
	)
	for i, line := range doc.Lines() {
		m := fenceLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if open != "" {
			if m[1][0] == open[0] && len(m[1]) >= len(open) && m[2] == "" {
				open = ""
			}
			continue
		}
		open = m[1]
		if m[2] == "" && doc.InCode(i+1) {
			issues = append(issues, check.Issue{
				File:       doc.RelPath,
				Line:       i + 1,
				Rule:       RuleCodeLanguage,
				Severity:   check.SeverityInfo,
				Message:    "code block has no language",
				Suggestion: "add a language after the fence, for example ```go",
			})
		}
	}
	return issues
}
