package tokens

import (
	"fmt"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/docs"
)

const (
	RuleFileBudget    = "tokens-file-budget"
	RuleSectionBudget = "tokens-section-budget"
)

// Section is the text under one level-2 heading.
type Section struct {
	Title  string `json:"title"`
	Line   int    `json:"line"`
	Tokens int    `json:"tokens"`
}

// Sections splits a document on "## " headings. Text before the first one is
// reported under the title "header".
func Sections(doc *docs.Document, est Estimator) []Section {
	lines := doc.Lines()
	var (
		out     []Section
		current = Section{Title: "header", Line: 1}
		buf     []string
	)
	flush := func() {
		if len(buf) == 0 && current.Title == "header" {
			return
		}
		current.Tokens = est.Estimate(strings.Join(buf, "\n"))
		out = append(out, current)
	}
	for i, line := range lines {
		if strings.HasPrefix(line, "## ") && !doc.InCode(i+1) {
			flush()
			current = Section{Title: strings.TrimSpace(line[3:]), Line: i + 1}
			buf = nil
			continue
		}
		buf = append(buf, line)
	}
	flush()
	return out
}

// BudgetCheck flags files over fileBudget and sections over sectionBudget.
// A zero budget disables that check.
func BudgetCheck(est Estimator, fileBudget, sectionBudget int) check.Func {
	return func(doc *docs.Document) []check.Issue {
		var issues []check.Issue
		if fileBudget > 0 {
			if n := est.Estimate(string(doc.Raw)); n > fileBudget {
				issues = append(issues, check.Issue{
					File:       doc.RelPath,
					Rule:       RuleFileBudget,
					Severity:   check.SeverityWarning,
					Message:    fmt.Sprintf("document has about %d tokens, budget is %d", n, fileBudget),
					Suggestion: "split the document or load parts of it on demand",
				})
			}
		}
		if sectionBudget > 0 {
			for _, s := range Sections(doc, est) {
				if s.Tokens <= sectionBudget {
					continue
				}
				issues = append(issues, check.Issue{
					File:       doc.RelPath,
					Line:       s.Line,
					Rule:       RuleSectionBudget,
					Severity:   check.SeverityInfo,
					Message:    fmt.Sprintf("section %q has about %d tokens, budget is %d", s.Title, s.Tokens, sectionBudget),
					Suggestion: "split into subsections or move detail into a linked document",
				})
			}
		}
		return issues
	}
}

// EfficiencyScore rates a document from 0 to 100. Oversized sections cost
// points; a quick-reference or summary section and short code examples earn
// some back.
func EfficiencyScore(doc *docs.Document, est Estimator, sectionBudget int) int {
	score := 100
	sections := Sections(doc, est)
	total := 0
	for _, s := range sections {
		total += s.Tokens
		switch {
		case sectionBudget > 0 && s.Tokens > sectionBudget*3/2:
			score -= 20
		case sectionBudget > 0 && s.Tokens > sectionBudget:
			score -= 10
		}
	}
	for _, s := range sections {
		title := strings.ToLower(s.Title)
		if strings.Contains(title, "quick") || strings.Contains(title, "summary") {
			score += 5
			break
		}
	}
	if fences := strings.Count(string(doc.Raw), "```"); fences > 0 && total/fences < 500 {
		score += 5
	}
	return max(0, min(100, score))
}
