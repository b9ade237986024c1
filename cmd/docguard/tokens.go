package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/jingkaihe/docguard/pkg/report"
	"github.com/jingkaihe/docguard/pkg/tokens"
	"github.com/spf13/cobra"
)

// TokensConfig holds configuration for the tokens command
type TokensConfig struct {
	Estimator string
	ByDir     bool
	Top       int
}

// NewTokensConfig creates a new TokensConfig with default values
func NewTokensConfig() *TokensConfig {
	return &TokensConfig{Top: 10}
}

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "Estimate token counts and check budgets",
	Long: `Estimates tokens per file with the chars (length/4) or words
(words x 0.75) estimator, aggregates them per directory, and reports files
and "##" sections over their budgets along with an efficiency score.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		tokensConfig := getTokensConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		if tokensConfig.Estimator != "" {
			env.cfg.Tokens.Estimator = tokensConfig.Estimator
		}

		r, stats, err := runTokens(ctx, env.cfg)
		if err != nil {
			fatal(err, "Failed to count tokens")
			return
		}
		if env.cfg.Format == report.FormatText && !presenter.IsQuiet() {
			printTokenTable(stats, tokensConfig)
		}
		exitCode = env.finish(ctx, "tokens", r)
	},
}

func init() {
	defaults := NewTokensConfig()
	tokensCmd.Flags().String("estimator", defaults.Estimator, "Token estimator: chars or words (default tokens.estimator)")
	tokensCmd.Flags().Bool("by-dir", defaults.ByDir, "Aggregate counts per directory")
	tokensCmd.Flags().Int("top", defaults.Top, "Number of entries to list")
}

// getTokensConfigFromFlags extracts tokens configuration from command flags
func getTokensConfigFromFlags(cmd *cobra.Command) *TokensConfig {
	tokensConfig := NewTokensConfig()
	if estimator, err := cmd.Flags().GetString("estimator"); err == nil {
		tokensConfig.Estimator = estimator
	}
	if byDir, err := cmd.Flags().GetBool("by-dir"); err == nil {
		tokensConfig.ByDir = byDir
	}
	if top, err := cmd.Flags().GetInt("top"); err == nil {
		tokensConfig.Top = top
	}
	return tokensConfig
}

// runTokens counts tokens, checks budgets and computes the average
// efficiency score of the markdown files.
func runTokens(ctx context.Context, cfg *config.Config) (*check.Report, []tokens.FileStats, error) {
	est, err := tokens.ParseEstimator(cfg.Tokens.Estimator)
	if err != nil {
		return nil, nil, err
	}
	opts := []docs.WalkOption{docs.WithInclude(cfg.Tokens.Include...), docs.WithExclude(cfg.Exclude...)}
	stats, skipped, err := tokens.Count(ctx, cfg.Root, est, opts...)
	if err != nil {
		return nil, nil, err
	}
	tree, err := docs.Load(ctx, cfg.Root, opts...)
	if err != nil {
		return nil, nil, err
	}

	registry := check.NewRegistry().
		Register("tokens", tokens.BudgetCheck(est, cfg.Tokens.FileBudget, cfg.Tokens.SectionBudget))
	r := check.NewRunner("tokens", registry).Run(ctx, tree)
	r.FilesScanned = len(stats)
	r.Skipped = mergeSkips(r.Skipped, skipped)

	scores := map[string]int{}
	total := 0
	for _, doc := range tree.Documents {
		score := tokens.EfficiencyScore(doc, est, cfg.Tokens.SectionBudget)
		scores[doc.RelPath] = score
		total += score
	}
	average := 0
	if len(scores) > 0 {
		average = total / len(scores)
	}

	r.SetExtra("estimator", string(est))
	r.SetExtra("total_tokens", tokens.Total(stats))
	r.SetExtra("files", stats)
	r.SetExtra("directories", tokens.ByDirectory(stats))
	r.SetExtra("efficiency", scores)
	r.SetExtra("efficiency_score", average)
	return r, stats, nil
}

func mergeSkips(a, b []docs.Skip) []docs.Skip {
	seen := map[string]bool{}
	out := make([]docs.Skip, 0, len(a)+len(b))
	for _, s := range append(append([]docs.Skip{}, a...), b...) {
		if !seen[s.File] {
			seen[s.File] = true
			out = append(out, s)
		}
	}
	return out
}

func printTokenTable(stats []tokens.FileStats, opts *TokensConfig) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	if opts.ByDir {
		dirs := tokens.ByDirectory(stats)
		if opts.Top > 0 && len(dirs) > opts.Top {
			dirs = dirs[:opts.Top]
		}
		fmt.Fprintln(w, "TOKENS\tFILES\tDIRECTORY\t")
		for _, d := range dirs {
			fmt.Fprintf(w, "%d\t%d\t%s\t\n", d.Tokens, d.Files, d.Dir)
		}
	} else {
		fmt.Fprintln(w, "TOKENS\tLINES\tTYPE\tFILE\t")
		for _, f := range tokens.Largest(stats, opts.Top) {
			fmt.Fprintf(w, "%d\t%d\t%s\t%s\t\n", f.Tokens, f.Lines, f.Type, f.Path)
		}
	}
	fmt.Fprintf(w, "%d\t\ttotal\t\t\n", tokens.Total(stats))
	w.Flush()
	fmt.Println()
}
