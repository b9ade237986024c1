// Package links resolves markdown links against the filesystem and builds
// the link graph used by the broken-link check, the structure audit and the
// cross-reference checks.
package links

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
)

// Kind classifies a link target.
type Kind int

const (
	// Skipped targets are anchors, mailto, placeholders or ignored.
	Skipped Kind = iota
	External
	Internal
	Broken
)

func (k Kind) String() string {
	switch k {
	case External:
		return "external"
	case Internal:
		return "internal"
	case Broken:
		return "broken"
	default:
		return "skipped"
	}
}

// Resolution is the outcome of resolving one target. Path is slash
// separated and relative to the root; for broken links it is the path that
// was looked for.
type Resolution struct {
	Kind Kind
	Path string
}

var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)

// Resolver resolves link targets relative to a root directory.
type Resolver struct {
	root         string
	placeholders map[string]bool
	ignore       []glob.Glob
}

// NewResolver compiles ignore globs (gobwas syntax, matched against the raw
// target). Placeholders are template targets matched exactly.
func NewResolver(root string, placeholders, ignore []string) (*Resolver, error) {
	r := &Resolver{root: root, placeholders: map[string]bool{}}
	for _, p := range placeholders {
		r.placeholders[strings.TrimSpace(p)] = true
	}
	for _, pattern := range ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, errors.Wrapf(err, "invalid link ignore pattern %q", pattern)
		}
		r.ignore = append(r.ignore, g)
	}
	return r, nil
}

// Root returns the directory links are resolved against.
func (r *Resolver) Root() string { return r.root }

// Resolve classifies target as written in the document at source (a slash
// path relative to the root).
//
// Internal targets are tried as: the path itself (a directory maps to its
// README.md when there is one), then the path with ".md" appended when it
// has no extension, then path/README.md. Targets climbing above the root are
// broken whether or not they exist on disk.
func (r *Resolver) Resolve(source, target string) Resolution {
	target = strings.TrimSpace(target)
	if target == "" || strings.HasPrefix(target, "#") || r.placeholders[target] {
		return Resolution{Kind: Skipped}
	}
	for _, g := range r.ignore {
		if g.Match(target) {
			return Resolution{Kind: Skipped}
		}
	}
	lower := strings.ToLower(target)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Resolution{Kind: External, Path: target}
	}
	if schemePattern.MatchString(target) {
		return Resolution{Kind: Skipped}
	}

	if i := strings.IndexAny(target, "#?"); i >= 0 {
		target = target[:i]
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return Resolution{Kind: Skipped}
	}

	var rel string
	if strings.HasPrefix(target, "/") {
		rel = path.Clean(strings.TrimLeft(target, "/"))
	} else {
		rel = path.Join(path.Dir(source), target)
	}
	if OutsideRoot(rel) {
		return Resolution{Kind: Broken, Path: rel}
	}

	if info, err := r.stat(rel); err == nil {
		if info.IsDir() {
			readme := path.Join(rel, "README.md")
			if r.exists(readme) {
				return Resolution{Kind: Internal, Path: readme}
			}
		}
		return Resolution{Kind: Internal, Path: rel}
	}
	if path.Ext(rel) == "" && r.exists(rel+".md") {
		return Resolution{Kind: Internal, Path: rel + ".md"}
	}
	if readme := path.Join(rel, "README.md"); r.exists(readme) {
		return Resolution{Kind: Internal, Path: readme}
	}
	return Resolution{Kind: Broken, Path: rel}
}

// OutsideRoot reports whether a resolved relative path climbs above the root.
func OutsideRoot(rel string) bool {
	return rel == ".." || strings.HasPrefix(rel, "../")
}

func (r *Resolver) stat(rel string) (os.FileInfo, error) {
	return os.Stat(filepath.Join(r.root, filepath.FromSlash(rel)))
}

func (r *Resolver) exists(rel string) bool {
	info, err := r.stat(rel)
	return err == nil && !info.IsDir()
}

// Domain returns the host of an external URL, or the URL itself when it
// cannot be parsed.
func Domain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return strings.ToLower(u.Host)
}
