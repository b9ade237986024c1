// Package manifest loads MANIFEST.yaml and checks it against the tree: every
// entry must point at a file that exists and should carry version and status
// metadata.
package manifest

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON []byte

// Entry is one standard or skill listed in the manifest.
type Entry struct {
	Code          string   `yaml:"-" json:"code"`
	Section       string   `yaml:"-" json:"section"`
	Path          string   `yaml:"path" json:"path,omitempty"`
	FullName      string   `yaml:"full_name" json:"full_name,omitempty"`
	Filename      string   `yaml:"filename" json:"filename,omitempty"`
	Version       string   `yaml:"version" json:"version,omitempty"`
	Status        string   `yaml:"status" json:"status,omitempty"`
	TokenEstimate int      `yaml:"token_estimate" json:"token_estimate,omitempty"`
	Tags          []string `yaml:"tags" json:"tags,omitempty"`
}

// Manifest is the decoded MANIFEST.yaml.
type Manifest struct {
	Version   string           `yaml:"version"`
	Standards map[string]Entry `yaml:"standards"`
	Skills    map[string]Entry `yaml:"skills"`

	// SchemaIssues holds structural problems found while loading.
	SchemaIssues []SchemaIssue `yaml:"-"`
}

// SchemaIssue is one JSON-schema violation.
type SchemaIssue struct {
	Location string
	Message  string
}

func (s SchemaIssue) String() string {
	loc := s.Location
	if loc == "" {
		loc = "/"
	}
	return fmt.Sprintf("%s: %s", loc, s.Message)
}

// ErrNotFound is returned by Load when the manifest file does not exist.
var ErrNotFound = errors.New("manifest not found")

// Load reads and decodes a manifest. A missing file yields ErrNotFound
// wrapped with the path; structural problems do not fail the load and are
// reported through SchemaIssues instead.
func Load(p string) (*Manifest, error) {
	raw, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrNotFound, "%s", p)
		}
		return nil, errors.Wrapf(err, "failed to read %s", p)
	}
	return Parse(raw)
}

// Parse decodes manifest YAML.
func Parse(raw []byte) (*Manifest, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, errors.Wrap(err, "invalid manifest yaml")
	}
	issues, err := validateSchema(generic)
	if err != nil {
		return nil, err
	}

	m := &Manifest{}
	if err := yaml.Unmarshal(raw, m); err != nil {
		// Type mismatches are already in issues; keep the fields that decoded.
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			return nil, errors.Wrap(err, "invalid manifest")
		}
	}
	m.SchemaIssues = issues
	return m, nil
}

// Entries returns every entry sorted by section then code.
func (m *Manifest) Entries() []Entry {
	var out []Entry
	for _, section := range []struct {
		name    string
		entries map[string]Entry
	}{{"standards", m.Standards}, {"skills", m.Skills}} {
		for code, e := range section.entries {
			e.Code = code
			e.Section = section.name
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Section != out[j].Section {
			return out[i].Section > out[j].Section
		}
		return out[i].Code < out[j].Code
	})
	return out
}

// Resolve returns the slash path of the entry's file relative to the root.
// Entries with only a file name live under standardsDir.
func (e Entry) Resolve(standardsDir string) string {
	if e.Path != "" {
		return path.Clean(strings.TrimPrefix(e.Path, "./"))
	}
	name := e.FullName
	if name == "" {
		name = e.Filename
	}
	if name == "" {
		return ""
	}
	if strings.Contains(name, "/") {
		return path.Clean(name)
	}
	return path.Join(standardsDir, name)
}

// Files lists every resolved file path referenced by the manifest.
func (m *Manifest) Files(standardsDir string) map[string]bool {
	out := map[string]bool{}
	for _, e := range m.Entries() {
		if p := e.Resolve(standardsDir); p != "" {
			out[p] = true
		}
	}
	return out
}

// Names returns base names referenced by the manifest.
func (m *Manifest) Names(standardsDir string) map[string]bool {
	out := map[string]bool{}
	for p := range m.Files(standardsDir) {
		out[path.Base(p)] = true
	}
	return out
}

func validateSchema(doc any) ([]SchemaIssue, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("manifest.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, errors.Wrap(err, "failed to load manifest schema")
	}
	schema, err := compiler.Compile("manifest.schema.json")
	if err != nil {
		return nil, errors.Wrap(err, "failed to compile manifest schema")
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	encoded, err := json.Marshal(doc)
	if err != nil {
		return []SchemaIssue{{Message: "manifest is not representable as JSON: " + err.Error()}}, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	var payload any
	if err := decoder.Decode(&payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode manifest payload")
	}

	err = schema.Validate(payload)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return []SchemaIssue{{Message: err.Error()}}, nil
	}
	var issues []SchemaIssue
	var walk func(*jsonschema.ValidationError)
	walk = func(node *jsonschema.ValidationError) {
		if strings.HasSuffix(node.KeywordLocation, "/anyOf") && len(node.Causes) > 0 {
			alternatives := make([]string, 0, len(node.Causes))
			for _, c := range node.Causes {
				alternatives = append(alternatives, strings.TrimSpace(c.Message))
			}
			issues = append(issues, SchemaIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.Join(alternatives, " or "),
			})
			return
		}
		if len(node.Causes) == 0 {
			issues = append(issues, SchemaIssue{
				Location: strings.TrimSpace(node.InstanceLocation),
				Message:  strings.TrimSpace(node.Message),
			})
			return
		}
		for _, c := range node.Causes {
			walk(c)
		}
	}
	walk(verr)
	sort.Slice(issues, func(i, j int) bool { return issues[i].String() < issues[j].String() })
	return issues, nil
}
