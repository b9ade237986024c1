package main

import (
	"context"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/standards"
	"github.com/jingkaihe/docguard/pkg/tokens"
	"github.com/spf13/cobra"
)

// LintConfig holds configuration for the lint command
type LintConfig struct {
	Rules []string
}

// NewLintConfig creates a new LintConfig with default values
func NewLintConfig() *LintConfig {
	return &LintConfig{}
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Lint standards documents",
	Long: `Checks standards documents (standards.include) for metadata in their
first lines or frontmatter, a table of contents, an overview and a
checklist, [REQUIRED]/[RECOMMENDED] tags, formatting, fenced code without a
language, and token budgets.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		lintConfig := getLintConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		r, err := runLint(ctx, env.cfg, lintConfig.Rules)
		if err != nil {
			fatal(err, "Failed to lint standards")
			return
		}
		exitCode = env.finish(ctx, "lint", r)
	},
}

func init() {
	defaults := NewLintConfig()
	lintCmd.Flags().StringSlice("rules", defaults.Rules, "Only run these rule groups (metadata, structure, tags, format, code-language, tokens)")
}

// getLintConfigFromFlags extracts lint configuration from command flags
func getLintConfigFromFlags(cmd *cobra.Command) *LintConfig {
	lintConfig := NewLintConfig()
	if rules, err := cmd.Flags().GetStringSlice("rules"); err == nil {
		lintConfig.Rules = rules
	}
	return lintConfig
}

func runLint(ctx context.Context, cfg *config.Config, rules []string) (*check.Report, error) {
	est, err := tokens.ParseEstimator(cfg.Tokens.Estimator)
	if err != nil {
		return nil, err
	}
	registry := standards.Registry(standards.Options{
		MetadataLines: cfg.Standards.MetadataLines,
		TokenBudget:   cfg.Standards.TokenBudget,
		SectionBudget: cfg.Standards.SectionBudget,
		Estimator:     est,
	})
	if len(rules) > 0 {
		if registry, err = registry.Only(rules...); err != nil {
			return nil, err
		}
	}
	tree, err := loadTree(ctx, cfg, cfg.Standards.Include)
	if err != nil {
		return nil, err
	}
	return check.NewRunner("lint", registry).Run(ctx, tree), nil
}
