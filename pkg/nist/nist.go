// Package nist scans source and documentation for NIST 800-53 control tags
// of the form @nist ac-3 "Access control" and reports their coverage.
package nist

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/fsutil"
	"github.com/jingkaihe/docguard/pkg/logger"
)

const (
	RuleInvalidControl = "nist-invalid-control"
	RuleMissingTitle   = "nist-missing-title"
	RuleUncovered      = "nist-uncovered"
)

var (
	tagPattern     = regexp.MustCompile(`@nist(-implements)?\s+(\S+)(?:\s+"([^"]*)")?`)
	controlPattern = regexp.MustCompile(`^[a-z]{2}-\d+(\(\d+\)|\.\d+)?$`)
)

// Tag is one control annotation.
type Tag struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Control string `json:"control"`
	Title   string `json:"title,omitempty"`
	// Implements is set for @nist-implements tags.
	Implements bool `json:"implements,omitempty"`
}

// ParseLine returns the tags on one line.
func ParseLine(line string) []Tag {
	var tags []Tag
	for _, m := range tagPattern.FindAllStringSubmatchIndex(line, -1) {
		t := Tag{
			Column:     m[0] + 1,
			Control:    line[m[4]:m[5]],
			Implements: m[2] >= 0,
		}
		if m[6] >= 0 {
			t.Title = strings.TrimSpace(line[m[6]:m[7]])
		}
		tags = append(tags, t)
	}
	return tags
}

// ValidControl reports whether id looks like a control identifier such as
// ac-2, ac-2(1) or ia-2.1.
func ValidControl(id string) bool {
	return controlPattern.MatchString(id)
}

// Scan reads every matching text file under root and collects its tags.
// Binary and unreadable files are skipped.
func Scan(ctx context.Context, root string, opts ...docs.WalkOption) ([]Tag, int, []docs.Skip, error) {
	w, err := docs.NewWalker(root, opts...)
	if err != nil {
		return nil, 0, nil, err
	}
	files, err := w.Walk(ctx)
	if err != nil {
		return nil, 0, nil, err
	}

	var (
		tags    []Tag
		skipped []docs.Skip
		scanned int
	)
	for _, rel := range files {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			logger.G(ctx).WithField("file", rel).WithError(err).Warn("skipping unreadable file")
			skipped = append(skipped, docs.Skip{File: rel, Reason: err.Error()})
			continue
		}
		if fsutil.IsBinary(content) {
			continue
		}
		scanned++
		tags = append(tags, scanContent(rel, content)...)
	}
	return tags, scanned, skipped, nil
}

func scanContent(rel string, content []byte) []Tag {
	var tags []Tag
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	n := 0
	for sc.Scan() {
		n++
		line := sc.Text()
		if !strings.Contains(line, "@nist") {
			continue
		}
		for _, t := range ParseLine(line) {
			t.File = rel
			t.Line = n
			tags = append(tags, t)
		}
	}
	return tags
}

// Coverage maps each valid control to the sorted files that tag it.
func Coverage(tags []Tag) map[string][]string {
	seen := map[string]map[string]bool{}
	for _, t := range tags {
		if !ValidControl(t.Control) {
			continue
		}
		if seen[t.Control] == nil {
			seen[t.Control] = map[string]bool{}
		}
		seen[t.Control][t.File] = true
	}
	out := make(map[string][]string, len(seen))
	for control, files := range seen {
		list := make([]string, 0, len(files))
		for f := range files {
			list = append(list, f)
		}
		sort.Strings(list)
		out[control] = list
	}
	return out
}

// Check turns tags into issues. When expected is non-empty every expected
// control without a tag is reported as uncovered.
func Check(tags []Tag, expected []string) []check.Issue {
	var issues []check.Issue
	for _, t := range tags {
		if !ValidControl(t.Control) {
			issue := check.Issue{
				File:     t.File,
				Line:     t.Line,
				Column:   t.Column,
				Rule:     RuleInvalidControl,
				Severity: check.SeverityWarning,
				Message:  fmt.Sprintf("invalid NIST control id %q", t.Control),
			}
			if lower := strings.ToLower(t.Control); ValidControl(lower) {
				issue.Suggestion = fmt.Sprintf("use %q", lower)
			} else {
				issue.Suggestion = "use the form ac-2 or ac-2(1)"
			}
			issues = append(issues, issue)
			continue
		}
		if t.Title == "" {
			issues = append(issues, check.Issue{
				File:       t.File,
				Line:       t.Line,
				Column:     t.Column,
				Rule:       RuleMissingTitle,
				Severity:   check.SeverityInfo,
				Message:    fmt.Sprintf("control %s has no title", t.Control),
				Suggestion: fmt.Sprintf(`@nist %s "<what this implements>"`, t.Control),
			})
		}
	}

	if len(expected) > 0 {
		coverage := Coverage(tags)
		for _, c := range expected {
			c = strings.ToLower(strings.TrimSpace(c))
			if c == "" || len(coverage[c]) > 0 {
				continue
			}
			issues = append(issues, check.Issue{
				File:     ".",
				Rule:     RuleUncovered,
				Severity: check.SeverityWarning,
				Message:  fmt.Sprintf("control %s has no @nist tag", c),
			})
		}
	}
	sort.SliceStable(issues, func(i, j int) bool { return check.Less(issues[i], issues[j]) })
	return issues
}

// Run scans root and builds the report. Coverage is stored in Extra.
func Run(ctx context.Context, root string, expected []string, opts ...docs.WalkOption) (*check.Report, error) {
	tags, scanned, skipped, err := Scan(ctx, root, opts...)
	if err != nil {
		return nil, err
	}
	report := check.NewReport("nist", root)
	report.FilesScanned = scanned
	report.Skipped = skipped
	report.Add(Check(tags, expected)...)
	coverage := Coverage(tags)
	report.SetExtra("tags", len(tags))
	report.SetExtra("controls", len(coverage))
	report.SetExtra("coverage", coverage)
	report.Sort()
	return report, nil
}
