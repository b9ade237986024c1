// Package accuracy flags unverifiable language in documentation and
// rewrites the safe cases in place.
package accuracy

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/pkg/errors"
)

// RulePrefix prefixes every accuracy rule name.
const RulePrefix = "accuracy-"

type pattern struct {
	name        string
	description string
	strategy    string
	re          *regexp.Regexp
}

type evidence struct {
	name     string
	message  string
	keywords []string
	re       *regexp.Regexp
}

type replacement struct {
	re   *regexp.Regexp
	with string
}

// Linter holds the compiled pattern catalogue.
type Linter struct {
	patterns     []pattern
	evidence     []evidence
	window       int
	replacements []replacement
}

// New compiles the configured patterns. Every pattern is case-insensitive.
func New(cfg config.AccuracyConfig) (*Linter, error) {
	l := &Linter{window: cfg.EvidenceWindow}
	for _, p := range cfg.Patterns {
		re, err := compile(p.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %s", p.Name)
		}
		l.patterns = append(l.patterns, pattern{name: p.Name, description: p.Description, strategy: p.Strategy, re: re})
	}
	for _, e := range cfg.Evidence {
		re, err := compile(e.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "evidence rule %s", e.Name)
		}
		keywords := make([]string, 0, len(e.Keywords))
		for _, k := range e.Keywords {
			keywords = append(keywords, strings.ToLower(k))
		}
		l.evidence = append(l.evidence, evidence{name: e.Name, message: e.Message, keywords: keywords, re: re})
	}
	for _, r := range cfg.Replacements {
		re, err := compile(r.Pattern)
		if err != nil {
			return nil, errors.Wrap(err, "replacement")
		}
		l.replacements = append(l.replacements, replacement{re: re, with: r.Replacement})
	}
	return l, nil
}

func compile(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid expression %q", expr)
	}
	return re, nil
}

// Check scans a document line by line. Code blocks and inline code spans
// are never scanned.
func (l *Linter) Check(doc *docs.Document) []check.Issue {
	lines := doc.Lines()
	masked := make([]string, len(lines))
	for i, line := range lines {
		if !doc.InCode(i + 1) {
			masked[i] = maskInlineCode(line)
		}
	}

	var issues []check.Issue
	for i, line := range masked {
		if line == "" {
			continue
		}
		n := i + 1
		for _, p := range l.patterns {
			loc := p.re.FindStringIndex(line)
			if loc == nil {
				continue
			}
			issues = append(issues, check.Issue{
				File:       doc.RelPath,
				Line:       n,
				Column:     loc[0] + 1,
				Rule:       RulePrefix + p.name,
				Severity:   check.SeverityWarning,
				Message:    fmt.Sprintf("%s: %q", p.description, strings.TrimSpace(line[loc[0]:loc[1]])),
				Suggestion: p.strategy,
			})
		}
		for _, e := range l.evidence {
			loc := e.re.FindStringIndex(line)
			if loc == nil || l.hasEvidence(masked, i, e.keywords) {
				continue
			}
			issues = append(issues, check.Issue{
				File:       doc.RelPath,
				Line:       n,
				Column:     loc[0] + 1,
				Rule:       RulePrefix + e.name,
				Severity:   check.SeverityError,
				Message:    fmt.Sprintf("%q needs supporting evidence", strings.TrimSpace(line[loc[0]:loc[1]])),
				Suggestion: e.message,
			})
		}
	}
	return issues
}

// hasEvidence looks for any keyword within the window around line i.
func (l *Linter) hasEvidence(lines []string, i int, keywords []string) bool {
	start := max(0, i-l.window)
	end := min(len(lines), i+l.window+1)
	nearby := strings.ToLower(strings.Join(lines[start:end], " "))
	for _, k := range keywords {
		if strings.Contains(nearby, k) {
			return true
		}
	}
	return false
}

// maskInlineCode blanks backtick spans so their content never matches.
func maskInlineCode(line string) string {
	if !strings.Contains(line, "`") {
		return line
	}
	var b strings.Builder
	for i, seg := range splitInlineCode(line) {
		if i%2 == 1 {
			b.WriteString(strings.Repeat(" ", len(seg)))
			continue
		}
		b.WriteString(seg)
	}
	return b.String()
}

// splitInlineCode splits a line into alternating prose and code segments;
// odd indexes are code spans including their backticks. An unterminated
// span is treated as prose.
func splitInlineCode(line string) []string {
	var segs []string
	rest := line
	for {
		open := strings.Index(rest, "`")
		if open < 0 {
			break
		}
		ticks := len(rest[open:]) - len(strings.TrimLeft(rest[open:], "`"))
		fence := rest[open : open+ticks]
		closing := strings.Index(rest[open+ticks:], fence)
		if closing < 0 {
			break
		}
		end := open + ticks + closing + ticks
		segs = append(segs, rest[:open], rest[open:end])
		rest = rest[end:]
	}
	return append(segs, rest)
}

// Change is one rewritten line.
type Change struct {
	Line   int    `json:"line"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Rewrite applies the safe replacements to content outside code and returns
// the new content with the changed lines. Only matched phrases change; a
// match that starts with a capital keeps it.
func (l *Linter) Rewrite(rel string, content []byte) ([]byte, []Change) {
	doc := docs.Parse(rel, content)
	lines := strings.Split(string(content), "\n")
	var changes []Change
	for i, line := range lines {
		if doc.InCode(i + 1) {
			continue
		}
		segs := splitInlineCode(line)
		for j := 0; j < len(segs); j += 2 {
			segs[j] = l.replace(segs[j])
		}
		updated := strings.Join(segs, "")
		if updated != line {
			changes = append(changes, Change{Line: i + 1, Before: line, After: updated})
			lines[i] = updated
		}
	}
	if len(changes) == 0 {
		return content, nil
	}
	return []byte(strings.Join(lines, "\n")), changes
}

func (l *Linter) replace(text string) string {
	for _, r := range l.replacements {
		text = r.re.ReplaceAllStringFunc(text, func(match string) string {
			out := r.re.ReplaceAllString(match, r.with)
			return matchCase(match, out)
		})
	}
	return text
}

func matchCase(original, replaced string) string {
	first, _ := utf8.DecodeRuneInString(original)
	if !unicode.IsUpper(first) || replaced == "" {
		return replaced
	}
	r, size := utf8.DecodeRuneInString(replaced)
	return string(unicode.ToUpper(r)) + replaced[size:]
}
