package config

import (
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
)

// Validate checks enumerations, bounds, globs and regular expressions.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.Format, validation.Required, validation.In("text", "markdown", "json")),
		validation.Field(&c.FailOn, validation.Required, validation.In("error", "warning", "info")),
		validation.Field(&c.Include, validation.Each(validation.By(validGlob))),
		validation.Field(&c.Exclude, validation.Each(validation.By(validGlob))),
		validation.Field(&c.Audit),
		validation.Field(&c.Accuracy),
		validation.Field(&c.Tokens),
		validation.Field(&c.Skills),
		validation.Field(&c.Manifest),
		validation.Field(&c.Notify),
	)
}

func (a AuditConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Orphans),
		validation.Field(&a.RequireLinkFrom),
		validation.Field(&a.ExpectedDirs, validation.Each(validation.Required)),
	)
}

func (o OrphansConfig) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Tolerance, validation.Min(0)),
		validation.Field(&o.Exclude, validation.Each(validation.By(validGlob))),
	)
}

func (h HubRule) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Pattern, validation.Required, validation.By(validGlob)),
		validation.Field(&h.Hubs, validation.Required),
	)
}

func (a AccuracyConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Patterns),
		validation.Field(&a.Evidence),
		validation.Field(&a.Replacements),
		validation.Field(&a.EvidenceWindow, validation.Min(0)),
	)
}

func (p PatternConfig) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Pattern, validation.Required, validation.By(validRegexp)),
	)
}

func (e EvidenceConfig) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required),
		validation.Field(&e.Pattern, validation.Required, validation.By(validRegexp)),
		validation.Field(&e.Keywords, validation.Required),
	)
}

func (r ReplacementConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Pattern, validation.Required, validation.By(validRegexp)),
	)
}

func (t TokensConfig) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Estimator, validation.Required, validation.In("chars", "words")),
		validation.Field(&t.FileBudget, validation.Min(0)),
		validation.Field(&t.SectionBudget, validation.Min(0)),
	)
}

func (s SkillsConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Level1Budget, validation.Min(0)),
		validation.Field(&s.Level2Budget, validation.Min(0)),
		validation.Field(&s.MinDescription, validation.Min(0)),
	)
}

func (m ManifestConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.TokenDrift, validation.Min(0.0)),
	)
}

func (n NotifyConfig) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Attempts, validation.Min(uint(1))),
	)
}

func validGlob(value interface{}) error {
	s, _ := value.(string)
	if !doublestar.ValidatePattern(s) {
		return errors.Errorf("invalid glob %q", s)
	}
	return nil
}

func validRegexp(value interface{}) error {
	s, _ := value.(string)
	if _, err := regexp.Compile(s); err != nil {
		return errors.Wrap(err, "invalid regular expression")
	}
	return nil
}
