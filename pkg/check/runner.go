package check

import (
	"context"
	"fmt"

	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/telemetry"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// RuleInternalError marks a check that panicked on one file.
const RuleInternalError = "internal-error"

// Runner applies a registry to a tree, one file at a time.
type Runner struct {
	tool     string
	registry *Registry
}

// NewRunner creates a runner for a named validator.
func NewRunner(tool string, registry *Registry) *Runner {
	return &Runner{tool: tool, registry: registry}
}

// Run executes file checks for each document in path order, then tree
// checks. A panic inside a check is converted into an internal-error issue
// for that file and the scan continues.
func (r *Runner) Run(ctx context.Context, tree *docs.Tree) *Report {
	report := NewReport(r.tool, tree.Root)
	report.Skipped = append(report.Skipped, tree.Skipped...)

	_ = telemetry.WithSpan(ctx, "check."+r.tool, func(ctx context.Context) error {
		for _, doc := range tree.Documents {
			if ctx.Err() != nil {
				break
			}
			report.FilesScanned++
			for _, c := range r.registry.files {
				report.Add(runFile(ctx, c, doc)...)
			}
		}
		for _, c := range r.registry.trees {
			report.Add(runTree(ctx, c, tree)...)
		}
		telemetry.SetAttributes(ctx,
			attribute.Int("docguard.files", report.FilesScanned),
			attribute.Int("docguard.issues", len(report.Issues)),
		)
		return nil
	}, attribute.String("docguard.tool", r.tool))

	report.Sort()
	return report
}

func runFile(ctx context.Context, c namedFunc, doc *docs.Document) (issues []Issue) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.G(ctx).WithFields(logrus.Fields{"check": c.name, "file": doc.RelPath}).
				Errorf("check panicked: %v", rec)
			issues = []Issue{{
				File:     doc.RelPath,
				Rule:     RuleInternalError,
				Severity: SeverityError,
				Message:  fmt.Sprintf("check %s failed: %v", c.name, rec),
			}}
		}
	}()
	return c.fn(doc)
}

func runTree(ctx context.Context, c namedTreeFunc, tree *docs.Tree) (issues []Issue) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.G(ctx).WithField("check", c.name).Errorf("tree check panicked: %v", rec)
			issues = []Issue{{
				File:     ".",
				Rule:     RuleInternalError,
				Severity: SeverityError,
				Message:  fmt.Sprintf("check %s failed: %v", c.name, rec),
			}}
		}
	}()
	return c.fn(tree)
}
