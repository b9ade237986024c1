package links

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/docs"
)

const (
	RuleBroken         = "link-broken"
	RuleText           = "link-text"
	RuleUnidirectional = "link-unidirectional"
)

// ExternalLink is an http(s) link, listed but never fetched.
type ExternalLink struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

// BrokenCheck reports internal links whose target cannot be resolved.
// Documents matching excludeFiles are not scanned.
func BrokenCheck(r *Resolver, excludeFiles []string) check.Func {
	return func(doc *docs.Document) []check.Issue {
		if docs.MatchAny(excludeFiles, doc.RelPath) {
			return nil
		}
		var issues []check.Issue
		for _, l := range doc.Links {
			res := r.Resolve(doc.RelPath, l.Target)
			if res.Kind != Broken {
				continue
			}
			kind := "link"
			if l.Image {
				kind = "image"
			}
			suggestion := fmt.Sprintf("%s does not exist", res.Path)
			if OutsideRoot(res.Path) {
				suggestion = fmt.Sprintf("%s is outside the repository root", res.Path)
			}
			issues = append(issues, check.Issue{
				File:       doc.RelPath,
				Line:       l.Line,
				Column:     l.Column,
				Rule:       RuleBroken,
				Severity:   check.SeverityError,
				Message:    fmt.Sprintf("broken %s to %s", kind, l.Target),
				Suggestion: suggestion,
			})
		}
		return issues
	}
}

// TextCheck reports links whose text says nothing about the target.
func TextCheck(nonDescriptive []string) check.Func {
	words := map[string]bool{}
	for _, w := range nonDescriptive {
		words[strings.ToLower(strings.TrimSpace(w))] = true
	}
	return func(doc *docs.Document) []check.Issue {
		var issues []check.Issue
		for _, l := range doc.Links {
			if l.Image || l.Auto {
				continue
			}
			text := strings.ToLower(strings.Trim(strings.TrimSpace(l.Text), ".:!"))
			if !words[text] {
				continue
			}
			issues = append(issues, check.Issue{
				File:       doc.RelPath,
				Line:       l.Line,
				Column:     l.Column,
				Rule:       RuleText,
				Severity:   check.SeverityWarning,
				Message:    fmt.Sprintf("non-descriptive link text %q", l.Text),
				Suggestion: "describe the destination in the link text",
			})
		}
		return issues
	}
}

// Externals collects http(s) links grouped by domain.
func Externals(tree *docs.Tree, r *Resolver, excludeFiles []string) map[string][]ExternalLink {
	out := map[string][]ExternalLink{}
	for _, doc := range tree.Documents {
		if docs.MatchAny(excludeFiles, doc.RelPath) {
			continue
		}
		for _, l := range doc.Links {
			if r.Resolve(doc.RelPath, l.Target).Kind != External {
				continue
			}
			domain := Domain(l.Target)
			out[domain] = append(out[domain], ExternalLink{File: doc.RelPath, Line: l.Line, Text: l.Text, URL: l.Target})
		}
	}
	return out
}

// ExternalCount totals a grouped external link map.
func ExternalCount(byDomain map[string][]ExternalLink) int {
	n := 0
	for _, links := range byDomain {
		n += len(links)
	}
	return n
}

// Domains returns the keys of a grouped external link map, sorted.
func Domains(byDomain map[string][]ExternalLink) []string {
	out := make([]string, 0, len(byDomain))
	for d := range byDomain {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Unidirectional reports links between files matching patterns that are
// not reciprocated. The issue sits on the link that has no way back.
func Unidirectional(g *Graph, patterns []string) []check.Issue {
	in := func(p string) bool { return docs.MatchAny(patterns, p) }
	var issues []check.Issue
	for _, e := range g.Edges() {
		if !in(e.From) || !in(e.To) || g.Links(e.To, e.From) {
			continue
		}
		issues = append(issues, check.Issue{
			File:       e.From,
			Line:       e.Line,
			Rule:       RuleUnidirectional,
			Severity:   check.SeverityInfo,
			Message:    fmt.Sprintf("links to %s, which does not link back", e.To),
			Suggestion: fmt.Sprintf("add a link from %s to %s", e.To, e.From),
		})
	}
	return issues
}
