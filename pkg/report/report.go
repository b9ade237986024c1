// Package report renders check reports as console text, markdown or JSON
// and publishes them to GitHub Actions step summaries and outputs.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/pkg/errors"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// Render writes r to w in the given format.
func Render(w io.Writer, format string, r *check.Report) error {
	switch format {
	case "", FormatText:
		return Text(w, r)
	case FormatMarkdown, "md":
		return Markdown(w, r)
	case FormatJSON:
		return JSON(w, r)
	}
	return errors.Errorf("unknown report format %q", format)
}

type jsonReport struct {
	*check.Report
	Summary check.Summary `json:"summary"`
}

// JSON writes the report and its summary as indented JSON.
func JSON(w io.Writer, r *check.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return errors.Wrap(enc.Encode(jsonReport{Report: r, Summary: r.Summary()}), "failed to encode report")
}

// Text writes one block per file followed by a bordered summary. Colours
// are only emitted when w is a terminal.
func Text(w io.Writer, r *check.Report) error {
	re := lipgloss.NewRenderer(w)
	styles := map[check.Severity]lipgloss.Style{
		check.SeverityError:   re.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		check.SeverityWarning: re.NewStyle().Foreground(lipgloss.Color("11")),
		check.SeverityInfo:    re.NewStyle().Foreground(lipgloss.Color("12")),
	}
	fileStyle := re.NewStyle().Bold(true).Underline(true)
	hint := re.NewStyle().Faint(true)

	var b strings.Builder
	current := ""
	for _, i := range r.Issues {
		if i.File != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = i.File
			b.WriteString(fileStyle.Render(i.File) + "\n")
		}
		pos := fmt.Sprintf("%d:%d", i.Line, i.Column)
		if i.Line == 0 {
			pos = "-"
		}
		sev := fmt.Sprintf("%-7s", i.Severity)
		fmt.Fprintf(&b, "  %-8s %s  %-24s %s\n", pos, styles[i.Severity].Render(sev), i.Rule, i.Message)
		if i.Suggestion != "" {
			b.WriteString("           " + hint.Render("↳ "+i.Suggestion) + "\n")
		}
	}
	if len(r.Issues) > 0 {
		b.WriteString("\n")
	}
	for _, s := range r.Skipped {
		fmt.Fprintf(&b, "skipped %s: %s\n", s.File, s.Reason)
	}

	b.WriteString(summaryBox(re, r) + "\n")
	_, err := io.WriteString(w, b.String())
	return errors.Wrap(err, "failed to write report")
}

func summaryBox(re *lipgloss.Renderer, r *check.Report) string {
	s := r.Summary()
	title := re.NewStyle().Bold(true).Render("docguard " + r.Tool)

	labels := []string{"files", "skipped", "errors", "warnings", "info"}
	values := []string{
		fmt.Sprint(s.FilesScanned),
		fmt.Sprint(s.Skipped),
		fmt.Sprint(s.BySeverity["error"]),
		fmt.Sprint(s.BySeverity["warning"]),
		fmt.Sprint(s.BySeverity["info"]),
	}
	for _, rule := range sortedKeys(s.ByRule) {
		labels = append(labels, rule)
		values = append(values, fmt.Sprint(s.ByRule[rule]))
	}

	left := re.NewStyle().PaddingRight(2).Render(strings.Join(labels, "\n"))
	right := re.NewStyle().Align(lipgloss.Right).Render(strings.Join(values, "\n"))
	body := lipgloss.JoinVertical(lipgloss.Left, title, "", lipgloss.JoinHorizontal(lipgloss.Top, left, right))

	return re.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Render(body)
}

// Markdown writes a summary table, the issue table and skipped files.
func Markdown(w io.Writer, r *check.Report) error {
	_, err := io.WriteString(w, MarkdownString(r))
	return errors.Wrap(err, "failed to write report")
}

// MarkdownString renders Markdown into a string.
func MarkdownString(r *check.Report) string {
	s := r.Summary()
	var b strings.Builder
	fmt.Fprintf(&b, "# docguard %s report\n\n", r.Tool)
	b.WriteString("| Metric | Count |\n|---|---:|\n")
	fmt.Fprintf(&b, "| Files scanned | %d |\n", s.FilesScanned)
	fmt.Fprintf(&b, "| Skipped | %d |\n", s.Skipped)
	fmt.Fprintf(&b, "| Errors | %d |\n", s.BySeverity["error"])
	fmt.Fprintf(&b, "| Warnings | %d |\n", s.BySeverity["warning"])
	fmt.Fprintf(&b, "| Info | %d |\n", s.BySeverity["info"])

	if len(s.ByRule) > 0 {
		b.WriteString("\n## Issues by rule\n\n| Rule | Count |\n|---|---:|\n")
		for _, rule := range sortedKeys(s.ByRule) {
			fmt.Fprintf(&b, "| `%s` | %d |\n", rule, s.ByRule[rule])
		}
	}

	if len(r.Issues) > 0 {
		b.WriteString("\n## Issues\n\n| File | Line | Severity | Rule | Message |\n|---|---:|---|---|---|\n")
		for _, i := range r.Issues {
			msg := i.Message
			if i.Suggestion != "" {
				msg += " (" + i.Suggestion + ")"
			}
			fmt.Fprintf(&b, "| `%s` | %d | %s | `%s` | %s |\n", i.File, i.Line, i.Severity, i.Rule, cell(msg))
		}
	}

	if len(r.Skipped) > 0 {
		b.WriteString("\n## Skipped files\n\n")
		for _, sk := range r.Skipped {
			fmt.Fprintf(&b, "- `%s`: %s\n", sk.File, sk.Reason)
		}
	}
	return b.String()
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
