// Package directives parses, validates and expands @load directives such as
// "@load product:api" or "@load [CS:python + SEC:*]".
package directives

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const (
	TypeProduct     = "product"
	TypeStandard    = "standard"
	TypeCombination = "combination"
)

var componentPattern = regexp.MustCompile(`^(product|[A-Z]{2,7}(?:-[A-Z]+)?):([A-Za-z0-9*-]+)$`)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("invalid @load directive")

// Component is one CATEGORY:value reference.
type Component struct {
	Type     string `json:"type" yaml:"type"`
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	Value    string `json:"value" yaml:"value"`
	Wildcard bool   `json:"wildcard" yaml:"wildcard"`
}

// String renders the component as written.
func (c Component) String() string {
	if c.Type == TypeProduct {
		return TypeProduct + ":" + c.Value
	}
	return c.Category + ":" + c.Value
}

// Directive is a parsed @load line.
type Directive struct {
	Raw        string      `json:"raw" yaml:"raw"`
	Type       string      `json:"type" yaml:"type"`
	Components []Component `json:"components" yaml:"components"`
}

// ParseComponent parses CATEGORY:value.
func ParseComponent(s string) (Component, error) {
	m := componentPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Component{}, errors.Wrapf(ErrSyntax, "bad component %q", s)
	}
	c := Component{Value: m[2], Wildcard: strings.Contains(m[2], "*")}
	if m[1] == TypeProduct {
		c.Type = TypeProduct
	} else {
		c.Type = TypeStandard
		c.Category = m[1]
	}
	return c, nil
}

// Parse parses a full directive. A single component keeps its own type;
// a bracketed list is a combination.
func Parse(s string) (*Directive, error) {
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "@load") {
		return nil, errors.Wrap(ErrSyntax, "must start with @load")
	}
	body := strings.TrimPrefix(raw, "@load")
	if body == "" || (body[0] != ' ' && body[0] != '\t') {
		return nil, errors.Wrap(ErrSyntax, "missing component after @load")
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.Wrap(ErrSyntax, "missing component after @load")
	}

	d := &Directive{Raw: raw}
	if strings.HasPrefix(body, "[") {
		if !strings.HasSuffix(body, "]") {
			return nil, errors.Wrap(ErrSyntax, "unterminated component list")
		}
		parts := strings.Split(strings.TrimSuffix(strings.TrimPrefix(body, "["), "]"), "+")
		for _, p := range parts {
			c, err := ParseComponent(p)
			if err != nil {
				return nil, err
			}
			d.Components = append(d.Components, c)
		}
		d.Type = TypeCombination
		return d, nil
	}

	c, err := ParseComponent(body)
	if err != nil {
		return nil, err
	}
	d.Type = c.Type
	d.Components = []Component{c}
	return d, nil
}

// Valid reports whether s parses.
func Valid(s string) bool {
	_, err := Parse(s)
	return err == nil
}
