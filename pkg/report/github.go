package report

import (
	"fmt"
	"os"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/pkg/errors"
)

const (
	stepSummaryEnv = "GITHUB_STEP_SUMMARY"
	outputEnv      = "GITHUB_OUTPUT"
)

// Outputs are the key=value pairs written to $GITHUB_OUTPUT.
func Outputs(r *check.Report, blocking int) []string {
	s := r.Summary()
	return []string{
		fmt.Sprintf("files_scanned=%d", s.FilesScanned),
		fmt.Sprintf("errors=%d", s.BySeverity["error"]),
		fmt.Sprintf("warnings=%d", s.BySeverity["warning"]),
		fmt.Sprintf("info=%d", s.BySeverity["info"]),
		fmt.Sprintf("blocking=%d", blocking),
		fmt.Sprintf("passed=%t", blocking == 0),
	}
}

// PublishGitHub appends the markdown report to $GITHUB_STEP_SUMMARY and the
// counts to $GITHUB_OUTPUT. Unset variables are skipped. It reports whether
// anything was written.
func PublishGitHub(r *check.Report, blocking int) (bool, error) {
	wrote := false
	if p := os.Getenv(stepSummaryEnv); p != "" {
		if err := appendTo(p, MarkdownString(r)+"\n"); err != nil {
			return wrote, errors.Wrap(err, "failed to write step summary")
		}
		wrote = true
	}
	if p := os.Getenv(outputEnv); p != "" {
		if err := appendTo(p, strings.Join(Outputs(r, blocking), "\n")+"\n"); err != nil {
			return wrote, errors.Wrap(err, "failed to write step outputs")
		}
		wrote = true
	}
	return wrote, nil
}

func appendTo(p, content string) error {
	f, err := os.OpenFile(p, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
