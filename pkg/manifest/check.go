package manifest

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/tokens"
	"gopkg.in/yaml.v3"
)

const (
	RuleSchema         = "manifest-schema"
	RuleMissingFile    = "manifest-missing-file"
	RuleMissingVersion = "manifest-missing-version"
	RuleMissingStatus  = "manifest-missing-status"
	RuleInvalidVersion = "manifest-invalid-version"
	RuleTokenDrift     = "manifest-token-drift"
	RuleUnlisted       = "manifest-unlisted"
)

var semverPattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// Options locate the manifest and the files it describes.
type Options struct {
	Root string
	// File is the manifest path relative to Root, used as the issue file.
	File          string
	StandardsDir  string
	StandardsGlob string
	// TokenDrift is the tolerated relative difference between a declared and
	// an estimated token count; zero disables the check.
	TokenDrift float64
	Estimator  tokens.Estimator
}

// Check validates a loaded manifest against the tree. raw is the manifest
// source, used only to attach line numbers to entries.
func Check(m *Manifest, raw []byte, opts Options) []check.Issue {
	lines := entryLines(raw)
	var issues []check.Issue

	for _, s := range m.SchemaIssues {
		issues = append(issues, check.Issue{
			File:     opts.File,
			Rule:     RuleSchema,
			Severity: check.SeverityError,
			Message:  s.String(),
		})
	}

	for _, e := range m.Entries() {
		line := lines[e.Section+"/"+e.Code]
		issue := func(rule string, sev check.Severity, msg, suggestion string) {
			issues = append(issues, check.Issue{
				File:       opts.File,
				Line:       line,
				Rule:       rule,
				Severity:   sev,
				Message:    msg,
				Suggestion: suggestion,
			})
		}

		target := e.Resolve(opts.StandardsDir)
		// An entry without any path field is already a schema issue.
		var content []byte
		if target != "" {
			b, err := os.ReadFile(filepath.Join(opts.Root, filepath.FromSlash(target)))
			if err != nil {
				issue(RuleMissingFile, check.SeverityError,
					fmt.Sprintf("%s %s references missing file %s", e.Section, e.Code, target),
					"fix the path or remove the entry")
			} else {
				content = b
			}
		}

		if e.Section == "standards" {
			if e.Version == "" {
				issue(RuleMissingVersion, check.SeverityWarning,
					fmt.Sprintf("standard %s has no version", e.Code), "add a semantic version such as 1.0.0")
			} else if !semverPattern.MatchString(e.Version) {
				issue(RuleInvalidVersion, check.SeverityWarning,
					fmt.Sprintf("standard %s has non-semantic version %q", e.Code, e.Version), "use MAJOR.MINOR.PATCH")
			}
			if e.Status == "" {
				issue(RuleMissingStatus, check.SeverityWarning,
					fmt.Sprintf("standard %s has no status", e.Code), "add status: active, draft, stable, experimental or deprecated")
			}
		}

		if content != nil && e.TokenEstimate > 0 && opts.TokenDrift > 0 {
			actual := opts.Estimator.Estimate(string(content))
			if drift := relativeDrift(e.TokenEstimate, actual); drift > opts.TokenDrift {
				issue(RuleTokenDrift, check.SeverityInfo,
					fmt.Sprintf("%s %s declares %d tokens but %s estimates %d", e.Section, e.Code, e.TokenEstimate, target, actual),
					fmt.Sprintf("update token_estimate to %d", actual))
			}
		}
	}

	issues = append(issues, unlisted(m, opts)...)
	sort.SliceStable(issues, func(i, j int) bool { return check.Less(issues[i], issues[j]) })
	return issues
}

func unlisted(m *Manifest, opts Options) []check.Issue {
	if opts.StandardsGlob == "" {
		return nil
	}
	matches, err := doublestar.Glob(os.DirFS(opts.Root), opts.StandardsGlob)
	if err != nil {
		return nil
	}
	listed := m.Files(opts.StandardsDir)
	names := m.Names(opts.StandardsDir)
	sort.Strings(matches)

	var issues []check.Issue
	for _, p := range matches {
		if listed[p] || names[filepath.Base(p)] {
			continue
		}
		issues = append(issues, check.Issue{
			File:       p,
			Rule:       RuleUnlisted,
			Severity:   check.SeverityWarning,
			Message:    fmt.Sprintf("%s is not listed in %s", p, opts.File),
			Suggestion: "add a manifest entry so the standard can be loaded on demand",
		})
	}
	return issues
}

func relativeDrift(declared, actual int) float64 {
	if declared == 0 {
		return 0
	}
	return math.Abs(float64(actual-declared)) / float64(declared)
}

// entryLines maps "section/code" to the 1-based line of the entry key.
func entryLines(raw []byte) map[string]int {
	out := map[string]int{}
	var root yaml.Node
	if len(raw) == 0 || yaml.Unmarshal(raw, &root) != nil || len(root.Content) == 0 {
		return out
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return out
	}
	for i := 0; i+1 < len(top.Content); i += 2 {
		section, body := top.Content[i], top.Content[i+1]
		if body.Kind != yaml.MappingNode {
			continue
		}
		for j := 0; j+1 < len(body.Content); j += 2 {
			key := body.Content[j]
			out[section.Value+"/"+key.Value] = key.Line
		}
	}
	return out
}
