package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/directives"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/jingkaihe/docguard/pkg/report"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var directivesCmd = &cobra.Command{
	Use:   "directives",
	Short: "Parse, validate and expand @load directives",
	Long: `Tools for @load directives such as "@load product:api" or
"@load [CS:python + SEC:*]". Products and wildcards are resolved through the
product matrix (directives.product_matrix).`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var directivesParseCmd = &cobra.Command{
	Use:   "parse <directive>",
	Short: "Print the structured form of a directive",
	Long: `Parse a directive and print its type and components.

Examples:
  docguard directives parse "@load product:api"
  docguard directives parse "@load [CS:python + TS:pytest + SEC:*]" --format json`,
	Args: cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		d, err := directives.Parse(strings.Join(args, " "))
		if err != nil {
			presenter.Error(err, "")
			exitCode = exitBlocking
			return
		}
		if err := printStructured(d, outputFormat()); err != nil {
			fatal(err, "Failed to print directive")
		}
	},
}

var directivesExpandCmd = &cobra.Command{
	Use:   "expand <directive>",
	Short: "Expand products and wildcards into standard codes",
	Long: `Expand product:x and CATEGORY:* components through the product matrix.
Any SEC component pulls in the NIST implementation guide baseline.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		expanded, err := expandDirective(ctx, env.cfg, strings.Join(args, " "))
		if err != nil {
			if errors.Is(err, directives.ErrSyntax) {
				presenter.Error(err, "")
				exitCode = exitBlocking
				return
			}
			fatal(err, "Failed to expand directive")
			return
		}
		if env.cfg.Format == report.FormatJSON {
			if err := printStructured(expanded, env.cfg.Format); err != nil {
				fatal(err, "Failed to print expansion")
			}
			return
		}
		for _, code := range expanded {
			fmt.Println(code)
		}
	},
}

var directivesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every @load directive in the markdown tree",
	Long: `Finds @load directives in the markdown tree and reports malformed ones
and components that are not in the product matrix. Without a product matrix
only the syntax is checked.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		r, err := runDirectives(ctx, env.cfg)
		if err != nil {
			fatal(err, "Failed to validate directives")
			return
		}
		exitCode = env.finish(ctx, "directives", r)
	},
}

func init() {
	directivesCmd.AddCommand(directivesParseCmd)
	directivesCmd.AddCommand(directivesExpandCmd)
	directivesCmd.AddCommand(withTracing(directivesValidateCmd))
}

// outputFormat is the configured report format for commands that print
// without loading the full configuration.
func outputFormat() string {
	return viper.GetString("format")
}

// printStructured prints v as JSON for the json format and as YAML
// otherwise.
func printStructured(v any, format string) error {
	if format == report.FormatJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// loadMatrix loads the product matrix. A missing matrix yields nil, which
// accepts every component.
func loadMatrix(ctx context.Context, cfg *config.Config) (*directives.Matrix, error) {
	m, err := directives.LoadMatrix(cfg.Path(cfg.Directives.ProductMatrix))
	if err != nil {
		if errors.Is(err, directives.ErrMatrixNotFound) {
			logger.G(ctx).WithField("path", cfg.Directives.ProductMatrix).Warn("product matrix not found, checking syntax only")
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func expandDirective(ctx context.Context, cfg *config.Config, raw string) ([]string, error) {
	d, err := directives.Parse(raw)
	if err != nil {
		return nil, err
	}
	m, err := loadMatrix(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.Wrapf(directives.ErrMatrixNotFound, "%s", cfg.Directives.ProductMatrix)
	}
	return m.Expand(d.Components)
}

func runDirectives(ctx context.Context, cfg *config.Config) (*check.Report, error) {
	m, err := loadMatrix(ctx, cfg)
	if err != nil {
		return nil, err
	}
	tree, err := loadTree(ctx, cfg, nil)
	if err != nil {
		return nil, err
	}
	registry := check.NewRegistry().Register("directives", directives.Check(m))
	r := check.NewRunner("directives", registry).Run(ctx, tree)
	if m != nil {
		r.SetExtra("categories", m.Categories())
	}
	return r, nil
}
