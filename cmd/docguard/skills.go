package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/config"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/jingkaihe/docguard/pkg/report"
	"github.com/jingkaihe/docguard/pkg/skills"
	"github.com/jingkaihe/docguard/pkg/tokens"
	"github.com/spf13/cobra"
)

type SkillListConfig struct {
	Keyword  string
	Category string
}

func NewSkillListConfig() *SkillListConfig {
	return &SkillListConfig{}
}

var skillsCmd = &cobra.Command{
	Use:   "skills",
	Short: "Validate and list SKILL.md skills",
	Long:  `Discover skills under skills.dir, validate their progressive-disclosure structure, or list them.`,
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Help()
	},
}

var skillsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate every discovered skill",
	Long: `Checks each SKILL.md for frontmatter with a name matching its directory
and a description, the Level 1/2/3 sections and their token budgets, the
recommended templates/, scripts/ and resources/ directories, and references
to other skills that do not exist.`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()
		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		r, err := runSkills(ctx, env.cfg)
		if err != nil {
			fatal(err, "Failed to validate skills")
			return
		}
		exitCode = env.finish(ctx, "skills", r)
	},
}

var skillsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered skills",
	Long: `List discovered skills with their category and description.

Examples:
  docguard skills list
  docguard skills list --keyword api --category backend
  docguard skills list --format json`,
	Run: func(cmd *cobra.Command, _ []string) {
		listConfig := getSkillListConfigFromFlags(cmd)
		env, err := newRunEnv(cmd)
		if err != nil {
			fatal(err, "Invalid configuration")
			return
		}
		found, err := discoverSkills(env.cfg)
		if err != nil {
			fatal(err, "Failed to discover skills")
			return
		}
		found = skills.Filter(found, listConfig.Keyword, listConfig.Category)
		if err := printSkills(found, env.cfg.Format); err != nil {
			fatal(err, "Failed to list skills")
		}
	},
}

func init() {
	defaults := NewSkillListConfig()
	skillsListCmd.Flags().String("keyword", defaults.Keyword, "Only list skills whose name or description contains this")
	skillsListCmd.Flags().String("category", defaults.Category, "Only list skills in this category")

	skillsCmd.AddCommand(withTracing(skillsValidateCmd))
	skillsCmd.AddCommand(skillsListCmd)
}

func getSkillListConfigFromFlags(cmd *cobra.Command) *SkillListConfig {
	listConfig := NewSkillListConfig()
	if keyword, err := cmd.Flags().GetString("keyword"); err == nil {
		listConfig.Keyword = keyword
	}
	if category, err := cmd.Flags().GetString("category"); err == nil {
		listConfig.Category = category
	}
	return listConfig
}

func discoverSkills(cfg *config.Config) ([]*skills.Skill, error) {
	discovery, err := skills.NewDiscovery(skills.WithRoot(cfg.Root), skills.WithSkillDirs(cfg.Skills.Dir))
	if err != nil {
		return nil, err
	}
	return discovery.Scan()
}

// skillsDirExists reports whether the configured skills directory exists.
func skillsDirExists(cfg *config.Config) bool {
	info, err := os.Stat(filepath.Join(cfg.Root, filepath.FromSlash(cfg.Skills.Dir)))
	return err == nil && info.IsDir()
}

func runSkills(ctx context.Context, cfg *config.Config) (*check.Report, error) {
	est, err := tokens.ParseEstimator(cfg.Tokens.Estimator)
	if err != nil {
		return nil, err
	}
	found, err := discoverSkills(cfg)
	if err != nil {
		return nil, err
	}
	validator := skills.NewValidator(skills.ValidatorOptions{
		Root:           cfg.Root,
		Level1Budget:   cfg.Skills.Level1Budget,
		Level2Budget:   cfg.Skills.Level2Budget,
		MinDescription: cfg.Skills.MinDescription,
		Estimator:      est,
	})
	r := validator.Run(ctx, found)
	r.SetExtra("skills", len(found))
	return r, nil
}

func printSkills(found []*skills.Skill, format string) error {
	if format == report.FormatJSON {
		if found == nil {
			found = []*skills.Skill{}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}
	if len(found) == 0 {
		presenter.Warning("No skills found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tCATEGORY\tDESCRIPTION")
	for _, s := range found {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Category, s.Description)
	}
	return w.Flush()
}
