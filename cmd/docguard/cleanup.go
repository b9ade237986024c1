package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/cleanup"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/spf13/cobra"
)

// CleanupConfig holds configuration for the cleanup command
type CleanupConfig struct {
	Fix       bool
	BackupDir string
}

// NewCleanupConfig creates a new CleanupConfig with default values
func NewCleanupConfig() *CleanupConfig {
	return &CleanupConfig{}
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Find and remove build artifacts",
	Long: `Lists build artifacts such as __pycache__, .pytest_cache, *.pyc and
.DS_Store (cleanup.patterns). Nothing is removed unless --fix is given; with
--backup-dir the artifacts are moved there instead of deleted.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		cleanupConfig := getCleanupConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		r, err := runCleanup(ctx, env.cfg, cleanupConfig)
		if err != nil {
			fatal(err, "Failed to clean up artifacts")
			return
		}
		exitCode = env.finish(ctx, "cleanup", r)
	},
}

func init() {
	defaults := NewCleanupConfig()
	cleanupCmd.Flags().Bool("fix", defaults.Fix, "Remove the artifacts instead of listing them")
	cleanupCmd.Flags().String("backup-dir", defaults.BackupDir, "Move artifacts here instead of deleting them")
}

// getCleanupConfigFromFlags extracts cleanup configuration from command flags
func getCleanupConfigFromFlags(cmd *cobra.Command) *CleanupConfig {
	cleanupConfig := NewCleanupConfig()
	if fix, err := cmd.Flags().GetBool("fix"); err == nil {
		cleanupConfig.Fix = fix
	}
	if backupDir, err := cmd.Flags().GetString("backup-dir"); err == nil {
		cleanupConfig.BackupDir = backupDir
	}
	return cleanupConfig
}

func runCleanup(ctx context.Context, cfg *config.Config, opts *CleanupConfig) (*check.Report, error) {
	artifacts, err := cleanup.Find(ctx, cfg.Root, cfg.Cleanup.Patterns, cfg.Exclude)
	if err != nil {
		return nil, err
	}
	result, err := cleanup.Clean(ctx, cfg.Root, artifacts, cleanup.Options{
		DryRun:    !opts.Fix,
		BackupDir: opts.BackupDir,
	})
	if result == nil {
		return nil, err
	}
	if err != nil {
		presenter.Warning(fmt.Sprintf("Some artifacts could not be removed: %v", err))
	}

	verb := "Found"
	if opts.Fix {
		verb = "Cleaned"
	}
	presenter.Info(fmt.Sprintf("%s %d artifacts (%s)", verb, len(result.Artifacts), humanize.Bytes(uint64(result.Bytes))))
	return result.Report(cfg.Root), nil
}
