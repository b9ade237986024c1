package main

import (
	"context"
	"path/filepath"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/links"
	"github.com/spf13/cobra"
)

// LinksConfig holds configuration for the links command
type LinksConfig struct {
	Input string
}

// NewLinksConfig creates a new LinksConfig with default values
func NewLinksConfig() *LinksConfig {
	return &LinksConfig{}
}

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Check internal markdown links",
	Long: `Resolves every relative link in the markdown tree and reports the ones
that point nowhere. Links inside code are ignored; anchors, mailto links and
placeholder targets are skipped. External http(s) links are listed by domain
but never fetched.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		linksConfig := getLinksConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}

		tree, err := linksTree(ctx, env.cfg, linksConfig.Input)
		if err != nil {
			fatal(err, "Failed to load documents")
			return
		}
		r, err := runLinks(ctx, env.cfg, tree)
		if err != nil {
			fatal(err, "Failed to check links")
			return
		}
		exitCode = env.finish(ctx, "links", r)
	},
}

func init() {
	defaults := NewLinksConfig()
	linksCmd.Flags().String("input", defaults.Input, "Only check links in this file")
}

// getLinksConfigFromFlags extracts links configuration from command flags
func getLinksConfigFromFlags(cmd *cobra.Command) *LinksConfig {
	linksConfig := NewLinksConfig()
	if input, err := cmd.Flags().GetString("input"); err == nil {
		linksConfig.Input = input
	}
	return linksConfig
}

// linksTree loads either the single input file or the whole tree.
func linksTree(ctx context.Context, cfg *config.Config, input string) (*docs.Tree, error) {
	if input == "" {
		return loadTree(ctx, cfg, nil)
	}
	rel := input
	if filepath.IsAbs(input) {
		var err error
		if rel, err = filepath.Rel(cfg.Root, input); err != nil {
			return nil, err
		}
	}
	return docs.LoadFiles(ctx, cfg.Root, []string{filepath.ToSlash(rel)}), nil
}

// runLinks reports broken links and non-descriptive link text in tree.
func runLinks(ctx context.Context, cfg *config.Config, tree *docs.Tree) (*check.Report, error) {
	resolver, err := links.NewResolver(cfg.Root, cfg.Links.Placeholders, cfg.Links.Ignore)
	if err != nil {
		return nil, err
	}

	registry := check.NewRegistry().
		Register(links.RuleBroken, links.BrokenCheck(resolver, cfg.Links.ExcludeFiles)).
		Register(links.RuleText, links.TextCheck(cfg.Links.NonDescriptiveText))
	r := check.NewRunner("links", registry).Run(ctx, tree)

	external := links.Externals(tree, resolver, cfg.Links.ExcludeFiles)
	r.SetExtra("external_links", external)
	r.SetExtra("external_count", links.ExternalCount(external))
	r.SetExtra("external_domains", links.Domains(external))
	return r, nil
}
