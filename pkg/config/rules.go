package config

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AuditRules is the shape of a repository's audit-rules.yaml.
type AuditRules struct {
	Orphans struct {
		Exclude         []string  `mapstructure:"exclude"`
		Tolerance       *int      `mapstructure:"tolerance"`
		RequireLinkFrom []HubRule `mapstructure:"require_link_from"`
	} `mapstructure:"orphans"`
	LinkCheck struct {
		ExcludeFiles []string `mapstructure:"exclude_files"`
		Ignore       []string `mapstructure:"ignore"`
	} `mapstructure:"link_check"`
	Limits struct {
		MaxOrphans *int `mapstructure:"max_orphans"`
	} `mapstructure:"limits"`
}

// Path resolves p against the configured root unless it is absolute.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, filepath.FromSlash(p))
}

// ApplyRulesFile overlays Audit.RulesFile when the file exists. A missing
// file is not an error; a malformed one is.
func (c *Config) ApplyRulesFile() error {
	if c.Audit.RulesFile == "" {
		return nil
	}
	raw, err := os.ReadFile(c.Path(c.Audit.RulesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "failed to read %s", c.Audit.RulesFile)
	}
	rules, err := ParseAuditRules(raw)
	if err != nil {
		return errors.Wrapf(err, "failed to parse %s", c.Audit.RulesFile)
	}
	c.ApplyAuditRules(rules)
	return nil
}

// ParseAuditRules decodes audit-rules YAML. Loose scalar types such as a
// quoted tolerance are accepted.
func ParseAuditRules(raw []byte) (*AuditRules, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Wrap(err, "invalid yaml")
	}

	rules := &AuditRules{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           rules,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, errors.Wrap(err, "invalid audit rules")
	}
	return rules, nil
}

// ApplyAuditRules merges rules into c. Exclusions are added to the defaults;
// hub requirements replace them when present.
func (c *Config) ApplyAuditRules(rules *AuditRules) {
	c.Audit.Orphans.Exclude = union(c.Audit.Orphans.Exclude, rules.Orphans.Exclude)
	if len(rules.Orphans.RequireLinkFrom) > 0 {
		c.Audit.RequireLinkFrom = rules.Orphans.RequireLinkFrom
	}
	if rules.Limits.MaxOrphans != nil {
		c.Audit.Orphans.Tolerance = *rules.Limits.MaxOrphans
	}
	if rules.Orphans.Tolerance != nil {
		c.Audit.Orphans.Tolerance = *rules.Orphans.Tolerance
	}
	c.Links.ExcludeFiles = union(c.Links.ExcludeFiles, rules.LinkCheck.ExcludeFiles)
	c.Links.Ignore = union(c.Links.Ignore, rules.LinkCheck.Ignore)
}

func union(base, extra []string) []string {
	seen := make(map[string]bool, len(base))
	out := make([]string, 0, len(base)+len(extra))
	for _, s := range append(append([]string{}, base...), extra...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
