package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/history"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/jingkaihe/docguard/pkg/report"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// HistoryConfig holds configuration for the history command
type HistoryConfig struct {
	Limit   int
	Command string
	Trend   bool
}

// NewHistoryConfig creates a new HistoryConfig with default values
func NewHistoryConfig() *HistoryConfig {
	return &HistoryConfig{Limit: 20}
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long: `Lists runs recorded with --record, newest first, with their file and
issue counts. The history lives in $DOCGUARD_BASE_PATH/history.db or
~/.docguard/history.db unless history.path is set.

Examples:
  docguard history
  docguard history --command check --limit 5
  docguard history --command check --trend
  docguard history show 3f2a`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		historyConfig := getHistoryConfigFromFlags(cmd)

		store, err := history.Open(ctx, historyPath())
		if err != nil {
			fatal(err, "Failed to open history")
			return
		}
		defer store.Close()

		if historyConfig.Trend {
			counts, err := store.Trend(ctx, historyConfig.Command, historyConfig.Limit)
			if err != nil {
				fatal(err, "Failed to load trend")
				return
			}
			printTrend(os.Stdout, historyConfig.Command, counts)
			return
		}

		runs, err := store.List(ctx, history.ListOptions{Command: historyConfig.Command, Limit: historyConfig.Limit})
		if err != nil {
			fatal(err, "Failed to list runs")
			return
		}
		if outputFormat() == report.FormatJSON {
			if runs == nil {
				runs = []history.Run{}
			}
			if err := printJSON(os.Stdout, runs); err != nil {
				fatal(err, "Failed to print runs")
			}
			return
		}
		if len(runs) == 0 {
			presenter.Warning("No runs recorded yet, use --record")
			return
		}
		printRuns(os.Stdout, runs, time.Now())
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded run",
	Long:  `Show one recorded run, with its issue counts per rule. A unique prefix of the id is enough.`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		store, err := history.Open(ctx, historyPath())
		if err != nil {
			fatal(err, "Failed to open history")
			return
		}
		defer store.Close()

		run, err := store.Get(ctx, args[0])
		if err != nil {
			fatal(err, "Failed to load run")
			return
		}
		if outputFormat() == report.FormatJSON {
			if err := printJSON(os.Stdout, run); err != nil {
				fatal(err, "Failed to print run")
			}
			return
		}
		printRun(os.Stdout, run)
	},
}

func init() {
	defaults := NewHistoryConfig()
	historyCmd.Flags().Int("limit", defaults.Limit, "Maximum number of runs to list")
	historyCmd.Flags().String("command", defaults.Command, "Only list runs of this command")
	historyCmd.Flags().Bool("trend", defaults.Trend, "Print the error count of the last runs, oldest first")

	historyCmd.AddCommand(historyShowCmd)
}

// getHistoryConfigFromFlags extracts history configuration from command flags
func getHistoryConfigFromFlags(cmd *cobra.Command) *HistoryConfig {
	historyConfig := NewHistoryConfig()
	if limit, err := cmd.Flags().GetInt("limit"); err == nil {
		historyConfig.Limit = limit
	}
	if command, err := cmd.Flags().GetString("command"); err == nil {
		historyConfig.Command = command
	}
	if trend, err := cmd.Flags().GetBool("trend"); err == nil {
		historyConfig.Trend = trend
	}
	return historyConfig
}

// historyPath is history.path from the configuration, empty for the default.
func historyPath() string {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return viper.GetString("history.path")
	}
	return cfg.History.Path
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRuns(w io.Writer, runs []history.Run, now time.Time) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWHEN\tCOMMAND\tFILES\tERRORS\tWARNINGS\tINFO\tEXIT")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
			shortID(r.ID), humanize.RelTime(r.CreatedAt, now, "ago", "from now"), r.Command,
			r.FilesScanned, r.Errors, r.Warnings, r.Infos, r.ExitCode)
	}
	tw.Flush()
}

func printRun(w io.Writer, r *history.Run) {
	fmt.Fprintf(w, "ID:        %s\n", r.ID)
	fmt.Fprintf(w, "Command:   %s\n", r.Command)
	fmt.Fprintf(w, "Root:      %s\n", r.Root)
	fmt.Fprintf(w, "Recorded:  %s\n", r.CreatedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:  %s\n", time.Duration(r.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Files:     %d (%d skipped)\n", r.FilesScanned, r.Skipped)
	fmt.Fprintf(w, "Issues:    %d errors, %d warnings, %d info\n", r.Errors, r.Warnings, r.Infos)
	fmt.Fprintf(w, "Exit code: %d\n", r.ExitCode)
	if len(r.Rules) == 0 {
		return
	}

	rules := make([]string, 0, len(r.Rules))
	for rule := range r.Rules {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RULE\tCOUNT")
	for _, rule := range rules {
		fmt.Fprintf(tw, "%s\t%d\n", rule, r.Rules[rule])
	}
	tw.Flush()
}

// printTrend prints error counts oldest first, e.g. "check: 5 → 3 → 0".
func printTrend(w io.Writer, command string, counts []int) {
	if command == "" {
		command = "all commands"
	}
	if len(counts) == 0 {
		fmt.Fprintf(w, "%s: no runs recorded\n", command)
		return
	}
	parts := make([]string, len(counts))
	for i, c := range counts {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintf(w, "%s: %s\n", command, strings.Join(parts, " → "))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
