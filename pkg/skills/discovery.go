package skills

import (
	"bytes"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
)

const skillFileName = "SKILL.md"

// Discovery finds skills under one or more directories of a repository.
type Discovery struct {
	root      string
	skillDirs []string
}

// Option configures a Discovery.
type Option func(*Discovery) error

// WithRoot sets the repository root that skill paths are reported against.
func WithRoot(root string) Option {
	return func(d *Discovery) error {
		d.root = root
		return nil
	}
}

// WithSkillDirs sets the skill directories, relative to the root. Earlier
// directories win when two skills share a name.
func WithSkillDirs(dirs ...string) Option {
	return func(d *Discovery) error {
		for _, dir := range dirs {
			if dir == "" {
				return errors.New("empty skill directory")
			}
		}
		d.skillDirs = dirs
		return nil
	}
}

// NewDiscovery creates a discovery rooted at the working directory that
// looks in ./skills unless configured otherwise.
func NewDiscovery(opts ...Option) (*Discovery, error) {
	d := &Discovery{root: ".", skillDirs: []string{"skills"}}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Scan returns every SKILL.md found, including ones whose frontmatter could
// not be loaded, sorted by file path.
func (d *Discovery) Scan() ([]*Skill, error) {
	var out []*Skill
	seen := map[string]bool{}
	for _, dir := range d.skillDirs {
		abs := filepath.Join(d.root, filepath.FromSlash(dir))
		if info, err := os.Stat(abs); err != nil || !info.IsDir() {
			continue
		}
		matches, err := doublestar.Glob(os.DirFS(abs), "**/"+skillFileName)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s", dir)
		}
		for _, m := range matches {
			file := path.Join(filepath.ToSlash(dir), m)
			if seen[file] {
				continue
			}
			seen[file] = true
			out = append(out, d.loadSkill(file, path.Dir(m)))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

// DiscoverSkills returns loadable skills keyed by name.
func (d *Discovery) DiscoverSkills() (map[string]*Skill, error) {
	all, err := d.Scan()
	if err != nil {
		return nil, err
	}
	skills := make(map[string]*Skill)
	for _, s := range all {
		if s.LoadErr != nil {
			continue
		}
		if _, exists := skills[s.Name]; !exists {
			skills[s.Name] = s
		}
	}
	return skills, nil
}

// GetSkill returns a specific skill by name.
func (d *Discovery) GetSkill(name string) (*Skill, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}
	skill, exists := skills[name]
	if !exists {
		return nil, errors.Errorf("skill '%s' not found", name)
	}
	return skill, nil
}

// ListSkillNames returns the sorted names of all loadable skills.
func (d *Discovery) ListSkillNames() ([]string, error) {
	skills, err := d.DiscoverSkills()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(skills))
	for name := range skills {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// loadSkill reads file (relative to the root). rel is the skill directory
// relative to its skills directory and supplies the default category.
func (d *Discovery) loadSkill(file, rel string) *Skill {
	dir := path.Dir(file)
	s := &Skill{File: file, Directory: dir, DirName: path.Base(dir)}
	if parent := path.Dir(rel); parent != "." {
		s.Category = path.Base(parent)
	}

	content, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(file)))
	if err != nil {
		s.LoadErr = errors.Wrap(err, "failed to read skill file")
		return s
	}
	s.Content = extractBodyContent(string(content))

	md := goldmark.New(goldmark.WithExtensions(meta.Meta))
	var buf bytes.Buffer
	pctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(pctx)); err != nil {
		s.LoadErr = errors.Wrap(err, "failed to parse markdown")
		return s
	}

	metaData, err := meta.TryGet(pctx)
	if err != nil {
		s.LoadErr = errors.Wrap(err, "invalid YAML frontmatter")
		return s
	}
	if len(metaData) == 0 {
		s.LoadErr = errors.New("missing frontmatter")
		return s
	}

	s.Name, _ = metaData["name"].(string)
	s.Description, _ = metaData["description"].(string)
	if category, _ := metaData["category"].(string); category != "" {
		s.Category = category
	}
	if s.Category == "" {
		s.Category = "general"
	}

	switch {
	case s.Name == "":
		s.LoadErr = errors.New("skill name is required in frontmatter")
	case s.Description == "":
		s.LoadErr = errors.New("skill description is required in frontmatter")
	}
	return s
}

// extractBodyContent removes YAML frontmatter and returns the body.
func extractBodyContent(content string) string {
	if !strings.HasPrefix(content, "---") {
		return content
	}

	lines := strings.Split(content, "\n")
	frontmatterEnd := -1

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			frontmatterEnd = i
			break
		}
	}

	if frontmatterEnd == -1 {
		return content
	}

	return strings.TrimLeft(strings.Join(lines[frontmatterEnd+1:], "\n"), "\n")
}

// Filter keeps skills whose name or description contains keyword
// (case-insensitive) and whose category matches. Empty filters and the
// category "all" match everything.
func Filter(skills []*Skill, keyword, category string) []*Skill {
	keyword = strings.ToLower(keyword)
	var out []*Skill
	for _, s := range skills {
		if keyword != "" &&
			!strings.Contains(strings.ToLower(s.Name), keyword) &&
			!strings.Contains(strings.ToLower(s.Description), keyword) {
			continue
		}
		if category != "" && category != "all" && s.Category != category {
			continue
		}
		out = append(out, s)
	}
	return out
}
