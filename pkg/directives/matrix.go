package directives

import (
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// NISTBaseline is added to every expansion that loads security standards.
const NISTBaseline = "NIST-IG:base"

// ErrMatrixNotFound is returned when the product matrix file does not exist.
var ErrMatrixNotFound = errors.New("product matrix not found")

// Product maps a product type to the standards it loads.
type Product struct {
	Description string   `yaml:"description" json:"description"`
	Standards   []string `yaml:"standards" json:"standards"`
}

// Wildcard maps CATEGORY:* to concrete components.
type Wildcard struct {
	Description string   `yaml:"description" json:"description"`
	ExpandsTo   []string `yaml:"expands_to" json:"expands_to"`
}

// Matrix is the product matrix file.
type Matrix struct {
	Version   string              `yaml:"version" json:"version"`
	Products  map[string]Product  `yaml:"products" json:"products"`
	Wildcards map[string]Wildcard `yaml:"wildcards" json:"wildcards"`
}

// LoadMatrix reads a product matrix.
func LoadMatrix(path string) (*Matrix, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrMatrixNotFound, "%s", path)
		}
		return nil, errors.Wrapf(err, "failed to read product matrix %s", path)
	}
	return ParseMatrix(raw)
}

// ParseMatrix decodes product matrix YAML.
func ParseMatrix(raw []byte) (*Matrix, error) {
	var m Matrix
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "failed to parse product matrix")
	}
	return &m, nil
}

// Categories lists every standard category the matrix mentions.
func (m *Matrix) Categories() []string {
	seen := map[string]bool{}
	add := func(ref string) {
		if cat, _, ok := strings.Cut(ref, ":"); ok && cat != TypeProduct {
			seen[cat] = true
		}
	}
	for _, p := range m.Products {
		for _, s := range p.Standards {
			add(s)
		}
	}
	for key, w := range m.Wildcards {
		add(key)
		for _, s := range w.ExpandsTo {
			add(s)
		}
	}
	add(NISTBaseline)
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Known reports whether the matrix can resolve c. A nil matrix knows
// everything.
func (m *Matrix) Known(c Component) bool {
	if m == nil {
		return true
	}
	switch {
	case c.Type == TypeProduct && c.Wildcard:
		return len(m.Products) > 0
	case c.Type == TypeProduct:
		_, ok := m.Products[c.Value]
		return ok
	case c.Wildcard:
		_, ok := m.Wildcards[c.String()]
		return ok
	}
	for _, cat := range m.Categories() {
		if cat == c.Category {
			return true
		}
	}
	return false
}

// Expand resolves products and wildcards into concrete components. Order is
// preserved and duplicates are dropped. Whenever a SEC component is present
// the NIST baseline is appended.
func (m *Matrix) Expand(components []Component) ([]string, error) {
	var (
		out  []string
		seen = map[string]bool{}
	)
	add := func(ref string) {
		if !seen[ref] {
			seen[ref] = true
			out = append(out, ref)
		}
	}

	var expand func(ref string, depth int) error
	expand = func(ref string, depth int) error {
		if depth > 4 {
			return errors.Errorf("expansion of %s is too deep", ref)
		}
		c, err := ParseComponent(ref)
		if err != nil {
			return err
		}
		switch {
		case c.Type == TypeProduct && c.Wildcard:
			names := make([]string, 0, len(m.Products))
			for name := range m.Products {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if err := expand(TypeProduct+":"+name, depth+1); err != nil {
					return err
				}
			}
		case c.Type == TypeProduct:
			p, ok := m.Products[c.Value]
			if !ok {
				return errors.Errorf("unknown product %q", c.Value)
			}
			for _, s := range p.Standards {
				if err := expand(s, depth+1); err != nil {
					return err
				}
			}
		case c.Wildcard:
			w, ok := m.Wildcards[c.String()]
			if !ok {
				return errors.Errorf("no expansion for wildcard %s", c)
			}
			for _, s := range w.ExpandsTo {
				if err := expand(s, depth+1); err != nil {
					return err
				}
			}
		default:
			add(c.String())
		}
		return nil
	}

	for _, c := range components {
		if err := expand(c.String(), 0); err != nil {
			return nil, err
		}
	}
	for _, ref := range out {
		if strings.HasPrefix(ref, "SEC:") {
			add(NISTBaseline)
			break
		}
	}
	return out, nil
}
