package links

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/fsutil"
	"github.com/pkg/errors"
)

// Report file names written by WriteReports.
const (
	LinkCheckFile      = "linkcheck.md"
	StructureAuditFile = "structure-audit.md"
	StructureJSONFile  = "structure-audit.json"
	HubMatrixFile      = "hub-matrix.tsv"
)

// maxPerDomain caps the external links listed per domain.
const maxPerDomain = 5

// AuditSummary is the content of structure-audit.json.
type AuditSummary struct {
	BrokenLinks   int    `json:"broken_links"`
	Orphans       int    `json:"orphans"`
	Tolerance     int    `json:"tolerance"`
	OrphanGate    string `json:"orphan_gate"`
	HubViolations int    `json:"hub_violations"`
	ExternalLinks int    `json:"external_links"`
}

// LinkCheckMarkdown renders the link check report.
func LinkCheckMarkdown(filesChecked int, broken []check.Issue, external map[string][]ExternalLink) string {
	var b strings.Builder
	b.WriteString("# Link Check Report\n")

	fmt.Fprintf(&b, "\n## Broken Internal Links (%d found)\n\n", len(broken))
	if len(broken) == 0 {
		b.WriteString("No broken internal links found.\n")
	}
	for _, i := range broken {
		fmt.Fprintf(&b, "- **%s**: %s\n", i.Location(), i.Message)
	}

	total := ExternalCount(external)
	fmt.Fprintf(&b, "\n## External Links (%d found)\n", total)
	for _, domain := range Domains(external) {
		list := external[domain]
		fmt.Fprintf(&b, "\n### %s (%d links)\n\n", domain, len(list))
		for i, l := range list {
			if i == maxPerDomain {
				fmt.Fprintf(&b, "- ... and %d more\n", len(list)-maxPerDomain)
				break
			}
			fmt.Fprintf(&b, "- %s: [%s](%s)\n", l.File, l.Text, l.URL)
		}
	}

	b.WriteString("\n## Summary\n\n")
	fmt.Fprintf(&b, "- Files checked: %d\n", filesChecked)
	fmt.Fprintf(&b, "- Broken links: %d\n", len(broken))
	fmt.Fprintf(&b, "- External links: %d\n", total)
	return b.String()
}

// StructureMarkdown renders the structure audit report.
func StructureMarkdown(a *AuditResult) string {
	var b strings.Builder
	b.WriteString("# Structure Audit Report\n\n## Summary\n\n")
	total := len(a.Orphans) + len(a.HubViolations) + len(a.MissingReadmes) + len(a.NonConforming) + len(a.MissingDirs)
	fmt.Fprintf(&b, "Total issues found: %d\n", total)
	gate := "passed"
	if a.OrphanGateFailed() {
		gate = "failed"
	}
	fmt.Fprintf(&b, "Orphan gate: %s (%d orphans, tolerance %d)\n", gate, len(a.Orphans), a.Tolerance)

	section := func(title, empty string, items []string, suffix string) {
		fmt.Fprintf(&b, "\n## %s (%d)\n\n", title, len(items))
		if len(items) == 0 {
			b.WriteString(empty + "\n")
			return
		}
		for _, it := range items {
			fmt.Fprintf(&b, "- %s%s\n", it, suffix)
		}
	}
	section("Orphaned Files", "No orphaned files found.", a.Orphans, "")
	section("Hub Violations", "All hub-link requirements satisfied.", a.HubViolations, "")
	section("Non-Conforming Filenames", "All filenames follow conventions.", a.NonConforming, "")
	section("Directories Missing README", "All directories have README files.", a.MissingReadmes, "/")
	section("Missing Expected Directories", "Repository structure follows conventions.", a.MissingDirs, "/")
	return b.String()
}

// HubMatrixTSV renders which hubs link each file covered by a hub rule.
func HubMatrixTSV(a *AuditResult) string {
	var b strings.Builder
	b.WriteString("file")
	for _, h := range a.Hubs {
		b.WriteString("\t" + h)
	}
	b.WriteString("\n")

	files := make([]string, 0, len(a.HubMatrix))
	for f := range a.HubMatrix {
		files = append(files, f)
	}
	sort.Strings(files)
	for _, f := range files {
		b.WriteString(f)
		for _, h := range a.Hubs {
			if a.HubMatrix[f][h] {
				b.WriteString("\t1")
			} else {
				b.WriteString("\t0")
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// Summarize builds the JSON summary of an audit.
func Summarize(a *AuditResult, broken int, external map[string][]ExternalLink) AuditSummary {
	gate := "pass"
	if a.OrphanGateFailed() {
		gate = "fail"
	}
	return AuditSummary{
		BrokenLinks:   broken,
		Orphans:       len(a.Orphans),
		Tolerance:     a.Tolerance,
		OrphanGate:    gate,
		HubViolations: len(a.HubViolations),
		ExternalLinks: ExternalCount(external),
	}
}

// WriteReports writes the four audit report files into dir.
func WriteReports(dir string, filesChecked int, broken []check.Issue, external map[string][]ExternalLink, a *AuditResult) error {
	summary, err := json.MarshalIndent(Summarize(a, len(broken), external), "", "    ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal audit summary")
	}
	files := map[string]string{
		LinkCheckFile:      LinkCheckMarkdown(filesChecked, broken, external),
		StructureAuditFile: StructureMarkdown(a),
		StructureJSONFile:  string(summary) + "\n",
		HubMatrixFile:      HubMatrixTSV(a),
	}
	for _, name := range []string{LinkCheckFile, StructureAuditFile, StructureJSONFile, HubMatrixFile} {
		if err := fsutil.WriteFile(filepath.Join(dir, name), []byte(files[name]), 0o644); err != nil {
			return err
		}
	}
	return nil
}
