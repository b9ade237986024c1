package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	exitOK       = 0
	exitBlocking = 1
	exitFatal    = 2
)

// exitCode is set by commands and returned by the process once traces are
// flushed.
var exitCode = exitOK

// shutdownTracing flushes the tracer installed by the root pre-run hook.
var shutdownTracing = func(context.Context) error { return nil }

// fatal reports an error that prevents the run from producing a verdict.
func fatal(err error, msg string) {
	presenter.Error(err, msg)
	exitCode = exitFatal
}

func init() {
	// Environment variables
	viper.SetEnvPrefix("DOCGUARD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
	viper.SetConfigType("yaml")
}

// configCandidates are tried in order when --config is not given.
func configCandidates() []string {
	candidates := []string{".docguard.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".docguard", "config.yaml"))
	}
	return candidates
}

// readConfigFile loads explicit, or the first existing candidate. An explicit
// file that cannot be read is an error; missing candidates are not.
func readConfigFile(v *viper.Viper, explicit string) (string, error) {
	if explicit != "" {
		v.SetConfigFile(explicit)
		if err := v.ReadInConfig(); err != nil {
			return "", errors.Wrapf(err, "failed to read config %s", explicit)
		}
		return explicit, nil
	}
	for _, p := range configCandidates() {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		v.SetConfigFile(p)
		if err := v.ReadInConfig(); err != nil {
			return "", errors.Wrapf(err, "failed to read config %s", p)
		}
		return p, nil
	}
	return "", nil
}

var rootCmd = &cobra.Command{
	Use:   "docguard",
	Short: "Documentation validators for standards repositories",
	Long: `docguard checks a markdown documentation tree: broken links, orphaned
files, manifest consistency, unverifiable claims, token budgets, skills,
standards structure, NIST control tags and @load directives.

Exit status is 0 when no blocking issue is found, 1 when blocking issues are
found and 2 on configuration or usage errors.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		presenter.SetDefault(presenter.NewWithOptions(os.Stdout, os.Stderr, presenter.ColorModeFromEnv()))
		presenter.SetQuiet(viper.GetBool("quiet"))

		explicit, _ := cmd.Flags().GetString("config")
		file, err := readConfigFile(viper.GetViper(), explicit)
		if err != nil {
			return err
		}
		if err := logger.Configure(viper.GetString("log_level"), viper.GetString("log_format")); err != nil {
			return err
		}
		if file != "" {
			logger.G(cmd.Context()).WithField("config", file).Debug("loaded config file")
		}

		shutdown, err := initTracing(cmd.Context())
		if err != nil {
			return errors.Wrap(err, "failed to initialise tracing")
		}
		shutdownTracing = shutdown
		return nil
	},
}

func main() {
	defaults := config.Default()

	// Add global flags
	rootCmd.PersistentFlags().String("root", defaults.Root, "Repository root to scan")
	rootCmd.PersistentFlags().String("config", "", "Config file (default .docguard.yaml, then $HOME/.docguard/config.yaml)")
	rootCmd.PersistentFlags().String("format", defaults.Format, "Report format: text, markdown or json")
	rootCmd.PersistentFlags().String("output", "", "Also write the report to this file")
	rootCmd.PersistentFlags().String("fail-on", defaults.FailOn, "Lowest severity that fails the run: error, warning or info")
	rootCmd.PersistentFlags().StringSlice("include", defaults.Include, "Doublestar globs of files to scan")
	rootCmd.PersistentFlags().StringSlice("exclude", defaults.Exclude, "Doublestar globs of files to skip")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: trace, debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "Only print the report and errors")
	rootCmd.PersistentFlags().Bool("record", false, "Store the run summary in the history database")

	// Bind flags to viper
	viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("fail_on", rootCmd.PersistentFlags().Lookup("fail-on"))
	viper.BindPFlag("include", rootCmd.PersistentFlags().Lookup("include"))
	viper.BindPFlag("exclude", rootCmd.PersistentFlags().Lookup("exclude"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	viper.BindPFlag("record", rootCmd.PersistentFlags().Lookup("record"))

	// Add subcommands
	rootCmd.AddCommand(withTracing(linksCmd))
	rootCmd.AddCommand(withTracing(auditCmd))
	rootCmd.AddCommand(withTracing(graphCmd))
	rootCmd.AddCommand(withTracing(manifestCmd))
	rootCmd.AddCommand(withTracing(accuracyCmd))
	rootCmd.AddCommand(withTracing(tokensCmd))
	rootCmd.AddCommand(skillsCmd)
	rootCmd.AddCommand(withTracing(lintCmd))
	rootCmd.AddCommand(withTracing(nistCmd))
	rootCmd.AddCommand(directivesCmd)
	rootCmd.AddCommand(withTracing(cleanupCmd))
	rootCmd.AddCommand(withTracing(checkCmd))
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)

	ctx := context.Background()
	err := rootCmd.ExecuteContext(ctx)
	if serr := shutdownTracing(ctx); serr != nil {
		logger.G(ctx).WithError(serr).Warn("failed to flush traces")
	}
	if err != nil {
		fatal(err, "")
	}
	os.Exit(exitCode)
}
