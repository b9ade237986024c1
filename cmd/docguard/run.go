package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/fsutil"
	"github.com/jingkaihe/docguard/pkg/history"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/jingkaihe/docguard/pkg/report"
	"github.com/jingkaihe/docguard/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

// runEnv is what every validator command resolves before it runs.
type runEnv struct {
	cfg    *config.Config
	failOn check.Severity
	output string
	record bool
	start  time.Time
}

// newRunEnv loads the effective configuration for cmd.
func newRunEnv(cmd *cobra.Command) (*runEnv, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	failOn, err := check.ParseSeverity(cfg.FailOn)
	if err != nil {
		return nil, err
	}
	output, _ := cmd.Flags().GetString("output")
	logger.G(cmd.Context()).WithFields(map[string]interface{}{
		"root":    cfg.Root,
		"format":  cfg.Format,
		"fail_on": cfg.FailOn,
	}).Debug("configuration loaded")

	return &runEnv{
		cfg:    cfg,
		failOn: failOn,
		output: output,
		record: viper.GetBool("record"),
		start:  time.Now(),
	}, nil
}

// loadTree reads the markdown files matching include under the root,
// honouring the global excludes.
func loadTree(ctx context.Context, cfg *config.Config, include []string) (*docs.Tree, error) {
	if len(include) == 0 {
		include = cfg.Include
	}
	return docs.Load(ctx, cfg.Root, docs.WithInclude(include...), docs.WithExclude(cfg.Exclude...))
}

// exitCodeFor maps the blocking count onto the process exit status.
func exitCodeFor(blocking int) int {
	if blocking > 0 {
		return exitBlocking
	}
	return exitOK
}

// formatForPath picks the report format from a file extension, falling back
// to the configured format.
func formatForPath(p, fallback string) string {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".json":
		return report.FormatJSON
	case ".md", ".markdown":
		return report.FormatMarkdown
	case ".txt":
		return report.FormatText
	}
	return fallback
}

// writeReport renders r into p under a file lock.
func writeReport(p, format string, r *check.Report) error {
	var buf bytes.Buffer
	if err := report.Render(&buf, format, r); err != nil {
		return err
	}
	return errors.Wrapf(fsutil.WriteFile(p, buf.Bytes(), 0o644), "failed to write report %s", p)
}

// finish sorts, renders and optionally records r, and returns the exit code.
func (e *runEnv) finish(ctx context.Context, command string, r *check.Report) int {
	r.Sort()
	blocking := r.Blocking(e.failOn)
	code := exitCodeFor(blocking)

	s := r.Summary()
	addRunAttributes(ctx, s, blocking)

	if err := report.Render(os.Stdout, e.cfg.Format, r); err != nil {
		fatal(err, "Failed to render report")
		return exitFatal
	}
	if e.output != "" {
		if err := writeReport(e.output, formatForPath(e.output, e.cfg.Format), r); err != nil {
			fatal(err, "Failed to write report")
			return exitFatal
		}
	}
	if e.cfg.Format == report.FormatText {
		presenter.Verdict(blocking, s.Total)
	}
	if e.record {
		e.recordRun(ctx, command, r, code)
	}
	return code
}

// recordRun stores the run summary. History failures are logged and never
// change the verdict.
func (e *runEnv) recordRun(ctx context.Context, command string, r *check.Report, code int) {
	store, err := history.Open(ctx, e.cfg.History.Path)
	if err != nil {
		logger.G(ctx).WithError(err).Warn("failed to open history database")
		return
	}
	defer store.Close()

	run := history.FromReport(command, r, code, time.Since(e.start))
	if err := store.Record(ctx, run); err != nil {
		logger.G(ctx).WithError(err).Warn("failed to record run")
		return
	}
	logger.G(ctx).WithField("run_id", run.ID).Debug("run recorded")
}

func addRunAttributes(ctx context.Context, s check.Summary, blocking int) {
	attrs := []attribute.KeyValue{
		attribute.Int("docguard.files_scanned", s.FilesScanned),
		attribute.Int("docguard.issues", s.Total),
		attribute.Int("docguard.blocking", blocking),
	}
	for sev, n := range s.BySeverity {
		attrs = append(attrs, attribute.Int("docguard.issues."+sev, n))
	}
	telemetry.SetAttributes(ctx, attrs...)
}
