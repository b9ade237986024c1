package main

import (
	"context"
	"fmt"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/links"
	"github.com/spf13/cobra"
)

// GraphConfig holds configuration for the graph command
type GraphConfig struct {
	DOT bool
}

// NewGraphConfig creates a new GraphConfig with default values
func NewGraphConfig() *GraphConfig {
	return &GraphConfig{}
}

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Check that cross references between standards are mutual",
	Long: `Reports links between files matching graph.files that are not linked
back. With --dot the cross-reference graph is printed in Graphviz DOT form
instead of a report.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		graphConfig := getGraphConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		tree, err := loadTree(ctx, env.cfg, nil)
		if err != nil {
			fatal(err, "Failed to load documents")
			return
		}
		r, graph, err := runGraph(ctx, env.cfg, tree)
		if err != nil {
			fatal(err, "Failed to build link graph")
			return
		}
		if graphConfig.DOT {
			fmt.Print(graph.DOT(func(p string) bool { return docs.MatchAny(env.cfg.Graph.Files, p) }))
			return
		}
		exitCode = env.finish(ctx, "graph", r)
	},
}

func init() {
	defaults := NewGraphConfig()
	graphCmd.Flags().Bool("dot", defaults.DOT, "Print the graph in Graphviz DOT form")
}

// getGraphConfigFromFlags extracts graph configuration from command flags
func getGraphConfigFromFlags(cmd *cobra.Command) *GraphConfig {
	graphConfig := NewGraphConfig()
	if dot, err := cmd.Flags().GetBool("dot"); err == nil {
		graphConfig.DOT = dot
	}
	return graphConfig
}

func runGraph(_ context.Context, cfg *config.Config, tree *docs.Tree) (*check.Report, *links.Graph, error) {
	resolver, err := links.NewResolver(cfg.Root, cfg.Links.Placeholders, cfg.Links.Ignore)
	if err != nil {
		return nil, nil, err
	}
	graph := links.BuildGraph(tree, resolver)

	r := check.NewReport("graph", tree.Root)
	r.FilesScanned = len(tree.Documents)
	r.Skipped = append(r.Skipped, tree.Skipped...)
	r.Add(links.Unidirectional(graph, cfg.Graph.Files)...)
	r.SetExtra("edges", len(graph.Edges()))
	return r, graph, nil
}
