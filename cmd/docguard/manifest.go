package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/manifest"
	"github.com/jingkaihe/docguard/pkg/tokens"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// ManifestConfig holds configuration for the manifest command
type ManifestConfig struct {
	Input string
}

// NewManifestConfig creates a new ManifestConfig with default values
func NewManifestConfig() *ManifestConfig {
	return &ManifestConfig{}
}

var manifestCmd = &cobra.Command{
	Use:   "manifest",
	Short: "Validate MANIFEST.yaml against its schema and the tree",
	Long: `Validates the manifest structurally against its JSON schema, checks that
every entry's file exists, that versions and statuses are present, that
declared token counts are close to the estimate, and that every standard on
disk is listed. A missing manifest is a fatal error.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		manifestConfig := getManifestConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		if manifestConfig.Input != "" {
			env.cfg.Manifest.Path = manifestConfig.Input
		}

		r, err := runManifest(ctx, env.cfg)
		if err != nil {
			fatal(err, "Failed to validate manifest")
			return
		}
		exitCode = env.finish(ctx, "manifest", r)
	},
}

func init() {
	defaults := NewManifestConfig()
	manifestCmd.Flags().String("input", defaults.Input, "Manifest path (default manifest.path)")
}

// getManifestConfigFromFlags extracts manifest configuration from command flags
func getManifestConfigFromFlags(cmd *cobra.Command) *ManifestConfig {
	manifestConfig := NewManifestConfig()
	if input, err := cmd.Flags().GetString("input"); err == nil {
		manifestConfig.Input = input
	}
	return manifestConfig
}

// runManifest validates the configured manifest. It returns an error
// wrapping manifest.ErrNotFound when the file does not exist.
func runManifest(_ context.Context, cfg *config.Config) (*check.Report, error) {
	p := cfg.Path(cfg.Manifest.Path)
	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(manifest.ErrNotFound, "%s", p)
		}
		return nil, errors.Wrapf(err, "failed to read %s", p)
	}
	m, err := manifest.Parse(raw)
	if err != nil {
		return nil, err
	}

	est, err := tokens.ParseEstimator(cfg.Tokens.Estimator)
	if err != nil {
		return nil, err
	}
	rel := cfg.Manifest.Path
	if r, err := filepath.Rel(cfg.Root, p); err == nil {
		rel = filepath.ToSlash(r)
	}

	r := check.NewReport("manifest", cfg.Root)
	r.FilesScanned = 1
	r.Add(manifest.Check(m, raw, manifest.Options{
		Root:          cfg.Root,
		File:          rel,
		StandardsDir:  cfg.Manifest.StandardsDir,
		StandardsGlob: cfg.Manifest.StandardsGlob,
		TokenDrift:    cfg.Manifest.TokenDrift,
		Estimator:     est,
	})...)
	r.SetExtra("entries", len(m.Entries()))
	return r, nil
}
