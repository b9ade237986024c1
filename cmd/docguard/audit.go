package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/fsutil"
	"github.com/jingkaihe/docguard/pkg/links"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/manifest"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/jingkaihe/docguard/pkg/report"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// AuditConfig holds configuration for the audit command
type AuditConfig struct {
	ReportDir string
	Fix       bool
	DryRun    bool
	BackupDir string
}

// NewAuditConfig creates a new AuditConfig with default values
func NewAuditConfig() *AuditConfig {
	return &AuditConfig{}
}

// Rewriting reports whether the run computes hub link fixes.
func (c *AuditConfig) Rewriting() bool {
	return c.Fix || c.DryRun
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit the documentation structure",
	Long: `Builds the link graph of the markdown tree and reports orphaned files,
files missing a link from their hub, directories without a README,
non-conforming file names and missing expected directories.

The orphan gate fails the run when the number of orphans exceeds
audit.orphans.tolerance. With --report-dir the link check, structure audit
and hub matrix reports are written to that directory.

--fix adds the links missing from required hubs to the hub's AUTO-LINKS
block, creating the block or the hub when needed. --dry-run prints the
unified diff of those edits and never writes, even together with --fix.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		auditConfig := getAuditConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		if auditConfig.ReportDir == "" {
			auditConfig.ReportDir = env.cfg.ReportDir
		}

		r, fixes, err := runAuditFix(ctx, env.cfg, auditConfig)
		if err != nil {
			fatal(err, "Failed to audit structure")
			return
		}
		if env.cfg.Format == report.FormatText {
			presentHubFixes(fixes, auditConfig.DryRun)
		}
		if auditConfig.ReportDir != "" {
			presenter.Info("Audit reports written to " + auditConfig.ReportDir)
		}
		exitCode = env.finish(ctx, "audit", r)
	},
}

func init() {
	defaults := NewAuditConfig()
	auditCmd.Flags().String("report-dir", defaults.ReportDir, "Write linkcheck, structure audit and hub matrix reports to this directory")
	auditCmd.Flags().Bool("fix", defaults.Fix, "Add missing hub links to the hubs' AUTO-LINKS blocks")
	auditCmd.Flags().Bool("dry-run", defaults.DryRun, "Print the hub edits as unified diffs without writing")
	auditCmd.Flags().String("backup-dir", defaults.BackupDir, "Copy each hub here before rewriting it")
}

// getAuditConfigFromFlags extracts audit configuration from command flags
func getAuditConfigFromFlags(cmd *cobra.Command) *AuditConfig {
	auditConfig := NewAuditConfig()
	if dir, err := cmd.Flags().GetString("report-dir"); err == nil {
		auditConfig.ReportDir = dir
	}
	if fix, err := cmd.Flags().GetBool("fix"); err == nil {
		auditConfig.Fix = fix
	}
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		auditConfig.DryRun = dryRun
	}
	if backupDir, err := cmd.Flags().GetString("backup-dir"); err == nil {
		auditConfig.BackupDir = backupDir
	}
	return auditConfig
}

// manifestReferences returns the files listed in the manifest, or nil when
// there is no usable manifest. The audit treats them as linked.
func manifestReferences(ctx context.Context, cfg *config.Config) map[string]bool {
	m, err := manifest.Load(cfg.Path(cfg.Manifest.Path))
	if err != nil {
		logger.G(ctx).WithError(err).Debug("audit runs without manifest references")
		return nil
	}
	return m.Files(cfg.Manifest.StandardsDir)
}

func auditTree(ctx context.Context, cfg *config.Config, tree *docs.Tree) (*links.AuditResult, *links.Resolver, error) {
	resolver, err := links.NewResolver(cfg.Root, cfg.Links.Placeholders, cfg.Links.Ignore)
	if err != nil {
		return nil, nil, err
	}
	graph := links.BuildGraph(tree, resolver)
	return links.Audit(tree, graph, links.AuditOptions{
		Orphans:        cfg.Audit.Orphans,
		HubRules:       cfg.Audit.RequireLinkFrom,
		UpperSnakeDirs: cfg.Audit.UpperSnakeDirs,
		ExpectedDirs:   cfg.Audit.ExpectedDirs,
		ReadmeExclude:  cfg.Audit.ReadmeExclude,
		Referenced:     manifestReferences(ctx, cfg),
	}), resolver, nil
}

// runAuditFix fills missing hub links when asked, then audits the resulting
// tree. In a dry run the tree is never touched.
func runAuditFix(ctx context.Context, cfg *config.Config, opts *AuditConfig) (*check.Report, []*links.HubFix, error) {
	tree, err := loadTree(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}

	var fixes []*links.HubFix
	if opts.Rewriting() {
		fixes, err = fixHubs(ctx, cfg, tree, opts)
		if err != nil {
			return nil, nil, err
		}
		if !opts.DryRun && len(fixes) > 0 {
			if tree, err = loadTree(ctx, cfg, nil); err != nil {
				return nil, nil, err
			}
		}
	}

	r, err := runAudit(ctx, cfg, tree, opts.ReportDir)
	if err != nil {
		return nil, nil, err
	}
	if opts.Rewriting() {
		r.SetExtra("hub_fixes", fixes)
		r.SetExtra("dry_run", opts.DryRun)
	}
	return r, fixes, nil
}

// fixHubs writes the missing hub links under the tree lock; dry runs do not
// need it.
func fixHubs(ctx context.Context, cfg *config.Config, tree *docs.Tree, opts *AuditConfig) ([]*links.HubFix, error) {
	result, _, err := auditTree(ctx, cfg, tree)
	if err != nil {
		return nil, err
	}
	if len(result.HubViolations) == 0 {
		return nil, nil
	}
	if !opts.DryRun {
		unlock, err := fsutil.LockTree(ctx, tree.Root)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}
	return links.FixHubs(ctx, tree, result, cfg.Audit.RequireLinkFrom, links.HubFixOptions{
		DryRun:    opts.DryRun,
		BackupDir: opts.BackupDir,
	})
}

func presentHubFixes(fixes []*links.HubFix, dryRun bool) {
	if len(fixes) == 0 {
		return
	}
	if dryRun {
		presenter.Section("Proposed hub links (dry run)")
		for _, f := range fixes {
			presenter.Info(f.Diff)
		}
		return
	}
	for _, f := range fixes {
		verb := "Updated"
		if f.Created {
			verb = "Created"
		}
		msg := fmt.Sprintf("%s hub %s (%d links added)", verb, f.Hub, len(f.Added))
		if f.Backup != "" {
			msg += ", backup at " + f.Backup
		}
		presenter.Success(msg)
	}
}

// runAudit audits tree and, when reportDir is set, writes the audit report
// files there.
func runAudit(ctx context.Context, cfg *config.Config, tree *docs.Tree, reportDir string) (*check.Report, error) {
	result, resolver, err := auditTree(ctx, cfg, tree)
	if err != nil {
		return nil, err
	}

	r := check.NewReport("audit", tree.Root)
	r.FilesScanned = len(tree.Documents)
	r.Skipped = append(r.Skipped, tree.Skipped...)
	r.Add(result.Issues()...)
	r.SetExtra("orphans", result.Orphans)
	r.SetExtra("orphan_gate", map[string]any{
		"count":     len(result.Orphans),
		"tolerance": result.Tolerance,
		"failed":    result.OrphanGateFailed(),
	})
	r.SetExtra("hubs", result.Hubs)

	if reportDir != "" {
		linkReport, err := runLinks(ctx, cfg, tree)
		if err != nil {
			return nil, err
		}
		external := links.Externals(tree, resolver, cfg.Links.ExcludeFiles)
		if err := os.MkdirAll(reportDir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "failed to create report directory %s", reportDir)
		}
		if err := links.WriteReports(reportDir, linkReport.FilesScanned, linkReport.Filter(links.RuleBroken), external, result); err != nil {
			return nil, err
		}
	}
	return r, nil
}
