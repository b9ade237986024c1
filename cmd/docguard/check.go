package main

import (
	"context"
	"os"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/jingkaihe/docguard/pkg/notify"
	"github.com/jingkaihe/docguard/pkg/report"
	"github.com/jingkaihe/docguard/pkg/telemetry"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel/attribute"
)

// CheckConfig holds configuration for the check command
type CheckConfig struct {
	ReportDir string
	GitHub    bool
}

// NewCheckConfig creates a new CheckConfig with default values
func NewCheckConfig() *CheckConfig {
	return &CheckConfig{GitHub: true}
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run every validator and merge the reports",
	Long: `Runs links, audit, manifest (when the manifest exists), accuracy,
skills (when the skills directory exists), lint and directives over the
tree and writes one combined report.

In GitHub Actions the markdown report is appended to $GITHUB_STEP_SUMMARY
and the counts to $GITHUB_OUTPUT. When notify.webhook is set the summary is
posted there; notification failures are logged and never change the exit
status.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		checkConfig := getCheckConfigFromFlags(cmd)

		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		if checkConfig.ReportDir == "" {
			checkConfig.ReportDir = env.cfg.ReportDir
		}

		r, err := runCheck(ctx, env.cfg, checkConfig.ReportDir)
		if err != nil {
			fatal(err, "Failed to run checks")
			return
		}
		exitCode = env.finish(ctx, "check", r)
		if exitCode == exitFatal {
			return
		}

		blocking := r.Blocking(env.failOn)
		if checkConfig.GitHub {
			if wrote, err := report.PublishGitHub(r, blocking); err != nil {
				logger.G(ctx).WithError(err).Warn("failed to publish GitHub outputs")
			} else if wrote {
				logger.G(ctx).Debug("published GitHub step summary and outputs")
			}
		}
		notifyRun(ctx, env.cfg, r, blocking, exitCode)
	},
}

func init() {
	defaults := NewCheckConfig()
	checkCmd.Flags().String("report-dir", defaults.ReportDir, "Also write the audit report files to this directory")
	checkCmd.Flags().Bool("github", defaults.GitHub, "Publish to $GITHUB_STEP_SUMMARY and $GITHUB_OUTPUT when they are set")
	checkCmd.Flags().String("notify-webhook", "", "Post the run summary to this URL")

	viper.BindPFlag("notify.webhook", checkCmd.Flags().Lookup("notify-webhook"))
}

// getCheckConfigFromFlags extracts check configuration from command flags
func getCheckConfigFromFlags(cmd *cobra.Command) *CheckConfig {
	checkConfig := NewCheckConfig()
	if dir, err := cmd.Flags().GetString("report-dir"); err == nil {
		checkConfig.ReportDir = dir
	}
	if github, err := cmd.Flags().GetBool("github"); err == nil {
		checkConfig.GitHub = github
	}
	return checkConfig
}

type checkStep struct {
	name string
	run  func(ctx context.Context) (*check.Report, error)
}

// checkSteps lists the validators run by check. Optional steps whose input
// is absent are left out.
func checkSteps(ctx context.Context, cfg *config.Config, reportDir string) []checkStep {
	steps := []checkStep{
		{"links", func(ctx context.Context) (*check.Report, error) {
			tree, err := loadTree(ctx, cfg, nil)
			if err != nil {
				return nil, err
			}
			return runLinks(ctx, cfg, tree)
		}},
		{"audit", func(ctx context.Context) (*check.Report, error) {
			tree, err := loadTree(ctx, cfg, nil)
			if err != nil {
				return nil, err
			}
			return runAudit(ctx, cfg, tree, reportDir)
		}},
	}

	if _, err := os.Stat(cfg.Path(cfg.Manifest.Path)); err == nil {
		steps = append(steps, checkStep{"manifest", func(ctx context.Context) (*check.Report, error) {
			return runManifest(ctx, cfg)
		}})
	} else {
		logger.G(ctx).WithField("manifest", cfg.Manifest.Path).Info("no manifest, skipping manifest validation")
	}

	steps = append(steps, checkStep{"accuracy", func(ctx context.Context) (*check.Report, error) {
		r, _, err := runAccuracy(ctx, cfg, NewAccuracyConfig())
		return r, err
	}})

	if skillsDirExists(cfg) {
		steps = append(steps, checkStep{"skills", func(ctx context.Context) (*check.Report, error) {
			return runSkills(ctx, cfg)
		}})
	} else {
		logger.G(ctx).WithField("dir", cfg.Skills.Dir).Info("no skills directory, skipping skill validation")
	}

	return append(steps,
		checkStep{"lint", func(ctx context.Context) (*check.Report, error) {
			return runLint(ctx, cfg, nil)
		}},
		checkStep{"directives", func(ctx context.Context) (*check.Report, error) {
			return runDirectives(ctx, cfg)
		}},
	)
}

// runCheck runs every step and merges the reports into one.
func runCheck(ctx context.Context, cfg *config.Config, reportDir string) (*check.Report, error) {
	combined := check.NewReport("check", cfg.Root)
	steps := checkSteps(ctx, cfg, reportDir)
	ran := make([]string, 0, len(steps))

	for _, step := range steps {
		err := telemetry.WithSpan(ctx, "check.step", func(ctx context.Context) error {
			r, err := step.run(ctx)
			if err != nil {
				return errors.Wrapf(err, "%s", step.name)
			}
			telemetry.SetAttributes(ctx, attribute.Int("docguard.issues", len(r.Issues)))
			combined.Merge(r)
			return nil
		}, attribute.String("docguard.step", step.name))
		if err != nil {
			return nil, err
		}
		ran = append(ran, step.name)
	}

	combined.SetExtra("validators", ran)
	return combined, nil
}

// notifyRun posts the summary when a webhook is configured. Failures are
// only logged.
func notifyRun(ctx context.Context, cfg *config.Config, r *check.Report, blocking, code int) {
	if cfg.Notify.Webhook == "" {
		return
	}
	n := notify.New(cfg.Notify)
	if err := n.Send(ctx, notify.NewPayload(r, blocking, code)); err != nil {
		logger.G(ctx).WithError(err).Warn("webhook notification failed")
		return
	}
	logger.G(ctx).Debug("webhook notified")
}
