package check

import (
	"sort"

	"github.com/jingkaihe/docguard/pkg/docs"
)

// Report is the outcome of one validator run. It carries no timestamps so
// two runs over an unchanged tree serialise identically.
type Report struct {
	Tool         string         `json:"tool"`
	Root         string         `json:"root"`
	FilesScanned int            `json:"files_scanned"`
	Skipped      []docs.Skip    `json:"skipped,omitempty"`
	Issues       []Issue        `json:"issues"`
	Extra        map[string]any `json:"extra,omitempty"`
}

// Summary is the machine-readable count view of a report.
type Summary struct {
	Tool         string         `json:"tool"`
	FilesScanned int            `json:"files_scanned"`
	Skipped      int            `json:"skipped"`
	Total        int            `json:"total"`
	BySeverity   map[string]int `json:"by_severity"`
	ByRule       map[string]int `json:"by_rule"`
}

// NewReport returns an empty report for a tool.
func NewReport(tool, root string) *Report {
	return &Report{Tool: tool, Root: root, Issues: []Issue{}}
}

// Add appends issues.
func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// SetExtra stores tool-specific structured output.
func (r *Report) SetExtra(key string, value any) {
	if r.Extra == nil {
		r.Extra = map[string]any{}
	}
	r.Extra[key] = value
}

// Sort orders issues deterministically.
func (r *Report) Sort() {
	sort.SliceStable(r.Issues, func(i, j int) bool { return Less(r.Issues[i], r.Issues[j]) })
}

// Summary counts issues per severity and per rule.
func (r *Report) Summary() Summary {
	s := Summary{
		Tool:         r.Tool,
		FilesScanned: r.FilesScanned,
		Skipped:      len(r.Skipped),
		Total:        len(r.Issues),
		BySeverity:   map[string]int{"error": 0, "warning": 0, "info": 0},
		ByRule:       map[string]int{},
	}
	for _, i := range r.Issues {
		s.BySeverity[i.Severity.String()]++
		s.ByRule[i.Rule]++
	}
	return s
}

// Blocking counts issues at or above threshold.
func (r *Report) Blocking(threshold Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity >= threshold {
			n++
		}
	}
	return n
}

// Filter returns issues of one rule.
func (r *Report) Filter(rule string) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Rule == rule {
			out = append(out, i)
		}
	}
	return out
}

// Merge folds other into r. Extra output of other is nested under its tool
// name; the scanned count is the larger of the two since validators share
// one tree.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.Issues = append(r.Issues, other.Issues...)
	if other.FilesScanned > r.FilesScanned {
		r.FilesScanned = other.FilesScanned
	}

	seen := map[string]bool{}
	for _, s := range r.Skipped {
		seen[s.File] = true
	}
	for _, s := range other.Skipped {
		if !seen[s.File] {
			r.Skipped = append(r.Skipped, s)
			seen[s.File] = true
		}
	}
	sort.Slice(r.Skipped, func(i, j int) bool { return r.Skipped[i].File < r.Skipped[j].File })

	if len(other.Extra) > 0 {
		r.SetExtra(other.Tool, other.Extra)
	}
	r.Sort()
}
