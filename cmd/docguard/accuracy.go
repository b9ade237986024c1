package main

import (
	"context"
	"fmt"

	"github.com/jingkaihe/docguard/pkg/accuracy"
	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/fsutil"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/jingkaihe/docguard/pkg/report"
	"github.com/spf13/cobra"
)

// AccuracyConfig holds configuration for the accuracy command
type AccuracyConfig struct {
	Fix       bool
	DryRun    bool
	BackupDir string
	Target    string
}

// NewAccuracyConfig creates a new AccuracyConfig with default values
func NewAccuracyConfig() *AccuracyConfig {
	return &AccuracyConfig{}
}

// Rewriting reports whether the run computes fixes at all.
func (c *AccuracyConfig) Rewriting() bool {
	return c.Fix || c.DryRun
}

var accuracyCmd = &cobra.Command{
	Use:   "accuracy",
	Short: "Find unverifiable and marketing language",
	Long: `Scans markdown for vague quantifiers, superlatives, marketing hyperbole,
absolute claims and similar language, and for performance or count claims
with no evidence nearby. Fenced code is never scanned.

--fix applies the safe replacements, changing only the matched phrases.
--dry-run prints the unified diff of those replacements and never writes,
even together with --fix.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		accuracyConfig := getAccuracyConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}

		r, fixes, err := runAccuracy(ctx, env.cfg, accuracyConfig)
		if err != nil {
			fatal(err, "Failed to check documentation accuracy")
			return
		}
		if env.cfg.Format == report.FormatText {
			presentFixes(fixes, accuracyConfig.DryRun)
		}
		exitCode = env.finish(ctx, "accuracy", r)
	},
}

func init() {
	defaults := NewAccuracyConfig()
	accuracyCmd.Flags().Bool("fix", defaults.Fix, "Apply the safe replacements in place")
	accuracyCmd.Flags().Bool("dry-run", defaults.DryRun, "Print the replacements as unified diffs without writing")
	accuracyCmd.Flags().String("backup-dir", defaults.BackupDir, "Copy each file here before rewriting it")
	accuracyCmd.Flags().String("target", defaults.Target, "Only check this file")
}

// getAccuracyConfigFromFlags extracts accuracy configuration from command flags
func getAccuracyConfigFromFlags(cmd *cobra.Command) *AccuracyConfig {
	accuracyConfig := NewAccuracyConfig()
	if fix, err := cmd.Flags().GetBool("fix"); err == nil {
		accuracyConfig.Fix = fix
	}
	if dryRun, err := cmd.Flags().GetBool("dry-run"); err == nil {
		accuracyConfig.DryRun = dryRun
	}
	if backupDir, err := cmd.Flags().GetString("backup-dir"); err == nil {
		accuracyConfig.BackupDir = backupDir
	}
	if target, err := cmd.Flags().GetString("target"); err == nil {
		accuracyConfig.Target = target
	}
	return accuracyConfig
}

func accuracyTree(ctx context.Context, cfg *config.Config, target string) (*docs.Tree, error) {
	if target != "" {
		return linksTree(ctx, cfg, target)
	}
	return loadTree(ctx, cfg, cfg.Accuracy.Include)
}

// runAccuracy applies fixes when asked, then checks the resulting tree. In a
// dry run the tree is never touched.
func runAccuracy(ctx context.Context, cfg *config.Config, opts *AccuracyConfig) (*check.Report, []*accuracy.FileFix, error) {
	linter, err := accuracy.New(cfg.Accuracy)
	if err != nil {
		return nil, nil, err
	}
	tree, err := accuracyTree(ctx, cfg, opts.Target)
	if err != nil {
		return nil, nil, err
	}

	var fixes []*accuracy.FileFix
	if opts.Rewriting() {
		fixes, err = fixTree(ctx, linter, tree, opts)
		if err != nil {
			return nil, nil, err
		}
		if !opts.DryRun && len(fixes) > 0 {
			if tree, err = accuracyTree(ctx, cfg, opts.Target); err != nil {
				return nil, nil, err
			}
		}
	}

	registry := check.NewRegistry().Register("accuracy", linter.Check)
	r := check.NewRunner("accuracy", registry).Run(ctx, tree)
	if opts.Rewriting() {
		r.SetExtra("fixes", fixes)
		r.SetExtra("dry_run", opts.DryRun)
	}
	return r, fixes, nil
}

// fixTree rewrites every document with a replacement. Writers hold the tree
// lock; dry runs do not need it.
func fixTree(ctx context.Context, linter *accuracy.Linter, tree *docs.Tree, opts *AccuracyConfig) ([]*accuracy.FileFix, error) {
	if !opts.DryRun {
		unlock, err := fsutil.LockTree(ctx, tree.Root)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	fixes := []*accuracy.FileFix{}
	for _, doc := range tree.Documents {
		fix, err := linter.FixFile(ctx, tree.Root, doc.RelPath, accuracy.FixOptions{
			DryRun:    opts.DryRun,
			BackupDir: opts.BackupDir,
		})
		if err != nil {
			logger.G(ctx).WithError(err).WithField("file", doc.RelPath).Warn("failed to fix file")
			continue
		}
		if len(fix.Changes) > 0 {
			fixes = append(fixes, fix)
		}
	}
	return fixes, nil
}

func presentFixes(fixes []*accuracy.FileFix, dryRun bool) {
	if len(fixes) == 0 {
		return
	}
	if dryRun {
		presenter.Section("Proposed replacements (dry run)")
		for _, f := range fixes {
			presenter.Info(f.Diff)
		}
		return
	}
	for _, f := range fixes {
		msg := fmt.Sprintf("Rewrote %s (%d changes)", f.File, len(f.Changes))
		if f.Backup != "" {
			msg += ", backup at " + f.Backup
		}
		presenter.Success(msg)
	}
}
