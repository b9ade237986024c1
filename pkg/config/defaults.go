package config

import "time"

// DefaultOrphanExcludes are never reported as orphans.
var DefaultOrphanExcludes = []string{
	".claude/**",
	"subagents/**",
	"memory/**",
	"prompts/**",
	"reports/generated/**",
	".vscode/**",
	".git/**",
	"node_modules/**",
	"**/__pycache__/**",
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Root:    ".",
		Format:  "text",
		FailOn:  "error",
		Include: []string{"**/*.md"},
		Exclude: []string{"node_modules/**", "**/__pycache__/**", ".venv/**", "reports/generated/**"},
		Links: LinksConfig{
			Placeholders:       []string{"url", "(url)", "image-url", "(image-url)", "link", "(link)"},
			NonDescriptiveText: []string{"here", "click here", "this", "link", "read more"},
		},
		Audit: AuditConfig{
			RulesFile: "config/audit-rules.yaml",
			Orphans: OrphansConfig{
				Tolerance: 5,
				Exclude:   append([]string{}, DefaultOrphanExcludes...),
				HubNames:  []string{"README.md", "index.md", "_index.md", "CHANGELOG.md", "LICENSE.md"},
			},
			RequireLinkFrom: []HubRule{
				{Pattern: "docs/standards/**/*.md", Hubs: []string{"docs/standards/UNIFIED_STANDARDS.md"}},
			},
			UpperSnakeDirs: []string{"docs/standards"},
			ReadmeExclude:  append([]string{}, DefaultOrphanExcludes...),
		},
		Graph: GraphConfig{
			Files: []string{"docs/standards/**/*.md"},
		},
		Manifest: ManifestConfig{
			Path:          "MANIFEST.yaml",
			StandardsDir:  "docs/standards",
			StandardsGlob: "docs/standards/*_STANDARDS.md",
			TokenDrift:    0.5,
		},
		Accuracy: AccuracyConfig{
			Include:        []string{"**/*.md"},
			Patterns:       DefaultPatterns(),
			Evidence:       DefaultEvidence(),
			EvidenceWindow: 3,
			Replacements:   DefaultReplacements(),
		},
		Tokens: TokensConfig{
			Estimator:     "chars",
			Include:       []string{"**/*.md"},
			FileBudget:    15000,
			SectionBudget: 3000,
		},
		Skills: SkillsConfig{
			Dir:            "skills",
			Level1Budget:   2000,
			Level2Budget:   5000,
			MinDescription: 20,
		},
		Standards: StandardsConfig{
			Include:       []string{"docs/standards/**/*.md"},
			MetadataLines: 20,
			TokenBudget:   15000,
			SectionBudget: 3000,
		},
		NIST: NISTConfig{
			Include: []string{
				"**/*.md", "**/*.go", "**/*.py", "**/*.js", "**/*.ts",
				"**/*.java", "**/*.sh", "**/*.yaml", "**/*.yml",
			},
		},
		Directives: DirectivesConfig{
			ProductMatrix: "config/product-matrix.yaml",
		},
		Cleanup: CleanupConfig{
			Patterns: []string{"**/__pycache__", "**/.pytest_cache", "**/*.pyc", "**/*.pyo", "**/.DS_Store"},
		},
		Notify: NotifyConfig{
			Attempts: 3,
			Timeout:  10 * time.Second,
		},
	}
}

// DefaultPatterns is the prohibited-language catalogue. Patterns are
// matched case-insensitively.
func DefaultPatterns() []PatternConfig {
	return []PatternConfig{
		{Name: "vague-quantifier", Pattern: `\b(significantly|dramatically|vastly|substantially)\s+\w+`, Description: "Vague quantifier", Strategy: "Use specific metrics"},
		{Name: "vague-count", Pattern: `\b(numerous|many|several|various)\s+(agents?|tools?|features?)`, Description: "Vague count", Strategy: "Specify exact count with verification"},
		{Name: "superlative", Pattern: `\b(best|optimal|perfect|ideal)\s+`, Description: "Unverifiable superlative", Strategy: "Use qualified statements"},
		{Name: "marketing", Pattern: `\b(game-changer|revolutionary|cutting-edge|state-of-the-art)\b`, Description: "Marketing hyperbole", Strategy: "Use factual descriptions"},
		{Name: "oversimplification", Pattern: `\b(seamless|effortless|automatic)\b`, Description: "Oversimplification", Strategy: "Describe actual mechanism"},
		{Name: "impossible-claim", Pattern: `\b(unlimited|infinite|endless)\b`, Description: "Impossible claim", Strategy: "State actual limits"},
		{Name: "absolute-claim", Pattern: `\b(always|never|all|none)\s+(works?|succeeds?|fails?)`, Description: "Absolute claim", Strategy: "Add qualifying context"},
		{Name: "guarantee", Pattern: `\b(guaranteed|ensures?|promises?)\b`, Description: "Unverifiable guarantee", Strategy: "Use 'aims to' or 'designed to'"},
		{Name: "temporal-vagueness", Pattern: `\b(recently|soon|upcoming|planned)\b`, Description: "Temporal vagueness", Strategy: "Use specific dates/versions"},
		{Name: "relative-temporal", Pattern: `\b(latest|newest|modern)\b`, Description: "Relative temporal claim", Strategy: "Specify version or date"},
	}
}

// DefaultEvidence lists claims that need supporting evidence nearby.
func DefaultEvidence() []EvidenceConfig {
	return []EvidenceConfig{
		{
			Name:     "performance-claim",
			Pattern:  `(\d+)([%x])\s+(faster|slower|reduction|improvement|increase)`,
			Keywords: []string{"test", "benchmark", "measurement", "verified"},
			Message:  "Performance claim without evidence: add measurement method, test conditions and actual metrics",
		},
		{
			Name:     "count-claim",
			Pattern:  `(\d+)\s+(agents?|tools?|skills?|files?)\s+(available|exist|present)`,
			Keywords: []string{"verified", "see", "check", "run", "find"},
			Message:  "Count claim without verification: add a verification command or file path",
		},
	}
}

// DefaultReplacements are the conservative rewrites applied by --fix.
func DefaultReplacements() []ReplacementConfig {
	return []ReplacementConfig{
		{Pattern: `\b(game-changer|revolutionary)\b`, Replacement: "innovative"},
		{Pattern: `\bcutting-edge\b`, Replacement: "modern"},
		{Pattern: `\bseamless(ly)?\b`, Replacement: "integrated"},
		{Pattern: `\beffortless(ly)?\b`, Replacement: "streamlined"},
		{Pattern: `\bguaranteed?\b`, Replacement: "designed to"},
		{Pattern: `\balways\s+(works?|fails?|succeeds?)\b`, Replacement: "typically $1"},
		{Pattern: `\bnever\s+(works?|fails?|succeeds?)\b`, Replacement: "rarely $1"},
	}
}
