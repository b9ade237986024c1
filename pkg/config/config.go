// Package config holds the typed docguard configuration. Values come from
// viper (flags, DOCGUARD_* environment, .docguard.yaml) on top of Default,
// optionally overlaid with a repository's audit-rules file.
package config

import (
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the effective configuration of a run.
type Config struct {
	Root      string   `mapstructure:"root" json:"root" yaml:"root" jsonschema:"description=Repository root to scan"`
	Format    string   `mapstructure:"format" json:"format" yaml:"format" jsonschema:"enum=text,enum=markdown,enum=json"`
	FailOn    string   `mapstructure:"fail_on" json:"fail_on" yaml:"fail_on" jsonschema:"enum=error,enum=warning,enum=info"`
	Include   []string `mapstructure:"include" json:"include" yaml:"include"`
	Exclude   []string `mapstructure:"exclude" json:"exclude" yaml:"exclude"`
	ReportDir string   `mapstructure:"report_dir" json:"report_dir,omitempty" yaml:"report_dir,omitempty"`

	Links      LinksConfig      `mapstructure:"links" json:"links" yaml:"links"`
	Audit      AuditConfig      `mapstructure:"audit" json:"audit" yaml:"audit"`
	Graph      GraphConfig      `mapstructure:"graph" json:"graph" yaml:"graph"`
	Manifest   ManifestConfig   `mapstructure:"manifest" json:"manifest" yaml:"manifest"`
	Accuracy   AccuracyConfig   `mapstructure:"accuracy" json:"accuracy" yaml:"accuracy"`
	Tokens     TokensConfig     `mapstructure:"tokens" json:"tokens" yaml:"tokens"`
	Skills     SkillsConfig     `mapstructure:"skills" json:"skills" yaml:"skills"`
	Standards  StandardsConfig  `mapstructure:"standards" json:"standards" yaml:"standards"`
	NIST       NISTConfig       `mapstructure:"nist" json:"nist" yaml:"nist"`
	Directives DirectivesConfig `mapstructure:"directives" json:"directives" yaml:"directives"`
	Cleanup    CleanupConfig    `mapstructure:"cleanup" json:"cleanup" yaml:"cleanup"`
	Notify     NotifyConfig     `mapstructure:"notify" json:"notify" yaml:"notify"`
	History    HistoryConfig    `mapstructure:"history" json:"history" yaml:"history"`
}

// LinksConfig controls the link checker.
type LinksConfig struct {
	// Ignore are gobwas globs matched against link targets.
	Ignore []string `mapstructure:"ignore" json:"ignore" yaml:"ignore"`
	// Placeholders are template targets such as "url" that are never checked.
	Placeholders []string `mapstructure:"placeholders" json:"placeholders" yaml:"placeholders"`
	// ExcludeFiles are doublestar globs of source files not scanned for links.
	ExcludeFiles       []string `mapstructure:"exclude_files" json:"exclude_files" yaml:"exclude_files"`
	NonDescriptiveText []string `mapstructure:"non_descriptive_text" json:"non_descriptive_text" yaml:"non_descriptive_text"`
}

// HubRule requires files matching Pattern to be linked from one of Hubs.
type HubRule struct {
	Pattern string   `mapstructure:"pattern" json:"pattern" yaml:"pattern"`
	Hubs    []string `mapstructure:"hubs" json:"hubs" yaml:"hubs"`
}

// OrphansConfig controls orphan detection and its gate.
type OrphansConfig struct {
	Tolerance int      `mapstructure:"tolerance" json:"tolerance" yaml:"tolerance" jsonschema:"minimum=0"`
	Exclude   []string `mapstructure:"exclude" json:"exclude" yaml:"exclude"`
	// HubNames are base names that never count as orphans.
	HubNames []string `mapstructure:"hub_names" json:"hub_names" yaml:"hub_names"`
}

// AuditConfig controls the structure audit.
type AuditConfig struct {
	RulesFile       string        `mapstructure:"rules_file" json:"rules_file" yaml:"rules_file"`
	Orphans         OrphansConfig `mapstructure:"orphans" json:"orphans" yaml:"orphans"`
	RequireLinkFrom []HubRule     `mapstructure:"require_link_from" json:"require_link_from" yaml:"require_link_from"`
	UpperSnakeDirs  []string      `mapstructure:"upper_snake_dirs" json:"upper_snake_dirs" yaml:"upper_snake_dirs"`
	ExpectedDirs    []string      `mapstructure:"expected_dirs" json:"expected_dirs" yaml:"expected_dirs"`
	ReadmeExclude   []string      `mapstructure:"readme_exclude" json:"readme_exclude" yaml:"readme_exclude"`
}

// GraphConfig selects the files whose cross references should be mutual.
type GraphConfig struct {
	Files []string `mapstructure:"files" json:"files" yaml:"files"`
}

// ManifestConfig locates and checks the manifest.
type ManifestConfig struct {
	Path          string  `mapstructure:"path" json:"path" yaml:"path"`
	StandardsDir  string  `mapstructure:"standards_dir" json:"standards_dir" yaml:"standards_dir"`
	StandardsGlob string  `mapstructure:"standards_glob" json:"standards_glob" yaml:"standards_glob"`
	TokenDrift    float64 `mapstructure:"token_drift" json:"token_drift" yaml:"token_drift" jsonschema:"minimum=0"`
}

// PatternConfig is one prohibited-language rule.
type PatternConfig struct {
	Name        string `mapstructure:"name" json:"name" yaml:"name"`
	Pattern     string `mapstructure:"pattern" json:"pattern" yaml:"pattern"`
	Description string `mapstructure:"description" json:"description" yaml:"description"`
	Strategy    string `mapstructure:"strategy" json:"strategy" yaml:"strategy"`
}

// EvidenceConfig is one claim that needs nearby evidence.
type EvidenceConfig struct {
	Name     string   `mapstructure:"name" json:"name" yaml:"name"`
	Pattern  string   `mapstructure:"pattern" json:"pattern" yaml:"pattern"`
	Keywords []string `mapstructure:"keywords" json:"keywords" yaml:"keywords"`
	Message  string   `mapstructure:"message" json:"message" yaml:"message"`
}

// ReplacementConfig is one safe rewrite applied by --fix.
type ReplacementConfig struct {
	Pattern     string `mapstructure:"pattern" json:"pattern" yaml:"pattern"`
	Replacement string `mapstructure:"replacement" json:"replacement" yaml:"replacement"`
}

// AccuracyConfig controls the accuracy linter and fixer.
type AccuracyConfig struct {
	Include        []string            `mapstructure:"include" json:"include" yaml:"include"`
	Patterns       []PatternConfig     `mapstructure:"patterns" json:"patterns" yaml:"patterns"`
	Evidence       []EvidenceConfig    `mapstructure:"evidence" json:"evidence" yaml:"evidence"`
	EvidenceWindow int                 `mapstructure:"evidence_window" json:"evidence_window" yaml:"evidence_window" jsonschema:"minimum=0"`
	Replacements   []ReplacementConfig `mapstructure:"replacements" json:"replacements" yaml:"replacements"`
}

// TokensConfig controls token estimation.
type TokensConfig struct {
	Estimator     string   `mapstructure:"estimator" json:"estimator" yaml:"estimator" jsonschema:"enum=chars,enum=words"`
	Include       []string `mapstructure:"include" json:"include" yaml:"include"`
	FileBudget    int      `mapstructure:"file_budget" json:"file_budget" yaml:"file_budget" jsonschema:"minimum=0"`
	SectionBudget int      `mapstructure:"section_budget" json:"section_budget" yaml:"section_budget" jsonschema:"minimum=0"`
}

// SkillsConfig controls skill validation.
type SkillsConfig struct {
	Dir            string `mapstructure:"dir" json:"dir" yaml:"dir"`
	Level1Budget   int    `mapstructure:"level1_budget" json:"level1_budget" yaml:"level1_budget" jsonschema:"minimum=0"`
	Level2Budget   int    `mapstructure:"level2_budget" json:"level2_budget" yaml:"level2_budget" jsonschema:"minimum=0"`
	MinDescription int    `mapstructure:"min_description" json:"min_description" yaml:"min_description" jsonschema:"minimum=0"`
}

// StandardsConfig controls the standards linter.
type StandardsConfig struct {
	Include       []string `mapstructure:"include" json:"include" yaml:"include"`
	MetadataLines int      `mapstructure:"metadata_lines" json:"metadata_lines" yaml:"metadata_lines" jsonschema:"minimum=1"`
	TokenBudget   int      `mapstructure:"token_budget" json:"token_budget" yaml:"token_budget" jsonschema:"minimum=0"`
	SectionBudget int      `mapstructure:"section_budget" json:"section_budget" yaml:"section_budget" jsonschema:"minimum=0"`
}

// NISTConfig controls the control-tag scanner.
type NISTConfig struct {
	Include  []string `mapstructure:"include" json:"include" yaml:"include"`
	Controls []string `mapstructure:"controls" json:"controls" yaml:"controls"`
}

// DirectivesConfig locates the product matrix.
type DirectivesConfig struct {
	ProductMatrix string `mapstructure:"product_matrix" json:"product_matrix" yaml:"product_matrix"`
}

// CleanupConfig lists artifacts removed by cleanup.
type CleanupConfig struct {
	Patterns []string `mapstructure:"patterns" json:"patterns" yaml:"patterns"`
}

// NotifyConfig configures the optional webhook.
type NotifyConfig struct {
	Webhook  string        `mapstructure:"webhook" json:"webhook,omitempty" yaml:"webhook,omitempty"`
	Attempts uint          `mapstructure:"attempts" json:"attempts" yaml:"attempts" jsonschema:"minimum=1"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout" yaml:"timeout"`
}

// HistoryConfig locates the run history database.
type HistoryConfig struct {
	Path string `mapstructure:"path" json:"path,omitempty" yaml:"path,omitempty"`
}

// Load decodes viper settings over Default and applies the audit rules file
// when it exists.
func Load(v *viper.Viper) (*Config, error) {
	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode configuration")
	}
	if err := cfg.ApplyRulesFile(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}
