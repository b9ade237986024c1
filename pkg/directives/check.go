package directives

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/docs"
)

const (
	RuleSyntax  = "directive-syntax"
	RuleUnknown = "directive-unknown"
)

// candidate finds "@load" followed by a bracketed list or a token that
// contains a colon. Plain prose such as "the @load directive" is ignored.
var candidate = regexp.MustCompile("(?:^|[\\s`\"'(])(@load[ \\t]+(?:\\[[^\\]\\n]*\\]?|[^\\s`\"')]*:[^\\s`\"')]*))")

// Found is a directive located in a document.
type Found struct {
	Text   string
	Line   int
	Column int
}

// Find returns every directive candidate on the lines of a document,
// including fenced examples.
func Find(doc *docs.Document) []Found {
	var out []Found
	for i, line := range doc.Lines() {
		if !strings.Contains(line, "@load") {
			continue
		}
		for _, m := range candidate.FindAllStringSubmatchIndex(line, -1) {
			text := strings.TrimRight(line[m[2]:m[3]], ".,;")
			out = append(out, Found{Text: text, Line: i + 1, Column: m[2] + 1})
		}
	}
	return out
}

// Check validates directive syntax and, when m is not nil, that every
// product, wildcard and category is known to the product matrix.
func Check(m *Matrix) check.Func {
	return func(doc *docs.Document) []check.Issue {
		var issues []check.Issue
		for _, f := range Find(doc) {
			d, err := Parse(f.Text)
			if err != nil {
				issues = append(issues, check.Issue{
					File:       doc.RelPath,
					Line:       f.Line,
					Column:     f.Column,
					Rule:       RuleSyntax,
					Severity:   check.SeverityError,
					Message:    fmt.Sprintf("%q: %v", f.Text, err),
					Suggestion: "use @load CATEGORY:value or @load [A:x + B:y]",
				})
				continue
			}
			if m == nil {
				continue
			}
			for _, c := range d.Components {
				if m.Known(c) {
					continue
				}
				issues = append(issues, check.Issue{
					File:     doc.RelPath,
					Line:     f.Line,
					Column:   f.Column,
					Rule:     RuleUnknown,
					Severity: check.SeverityWarning,
					Message:  fmt.Sprintf("%s is not in the product matrix", c),
				})
			}
		}
		return issues
	}
}
