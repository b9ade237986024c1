package main

import (
	"context"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/nist"
	"github.com/spf13/cobra"
)

// NISTConfig holds configuration for the nist command
type NISTConfig struct {
	Controls []string
}

// NewNISTConfig creates a new NISTConfig with default values
func NewNISTConfig() *NISTConfig {
	return &NISTConfig{}
}

var nistCmd = &cobra.Command{
	Use:   "nist",
	Short: "Scan for @nist control tags",
	Long: `Scans markdown and source files for @nist <control> "<title>" tags,
reports malformed control ids and tags without a title, and records which
files cover each control. With --controls, expected controls that no file
covers are reported too.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		nistConfig := getNISTConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		if len(nistConfig.Controls) > 0 {
			env.cfg.NIST.Controls = nistConfig.Controls
		}
		r, err := runNIST(ctx, env.cfg)
		if err != nil {
			fatal(err, "Failed to scan NIST tags")
			return
		}
		exitCode = env.finish(ctx, "nist", r)
	},
}

func init() {
	defaults := NewNISTConfig()
	nistCmd.Flags().StringSlice("controls", defaults.Controls, "Expected control ids, each must be tagged somewhere")
}

// getNISTConfigFromFlags extracts nist configuration from command flags
func getNISTConfigFromFlags(cmd *cobra.Command) *NISTConfig {
	nistConfig := NewNISTConfig()
	if controls, err := cmd.Flags().GetStringSlice("controls"); err == nil {
		nistConfig.Controls = controls
	}
	return nistConfig
}

func runNIST(ctx context.Context, cfg *config.Config) (*check.Report, error) {
	return nist.Run(ctx, cfg.Root, cfg.NIST.Controls,
		docs.WithInclude(cfg.NIST.Include...),
		docs.WithExclude(cfg.Exclude...),
	)
}
