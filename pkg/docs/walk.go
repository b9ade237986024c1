package docs

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

// DefaultInclude matches every markdown file.
var DefaultInclude = []string{"**/*.md"}

// DefaultExclude is always applied on top of configured excludes.
var DefaultExclude = []string{".git/**"}

// Walker lists files under a root that match include globs and no exclude
// glob. Globs use doublestar syntax against slash paths relative to root.
type Walker struct {
	root    string
	include []string
	exclude []string
}

// WalkOption configures a Walker.
type WalkOption func(*Walker)

// WithInclude replaces the include globs.
func WithInclude(patterns ...string) WalkOption {
	return func(w *Walker) {
		if len(patterns) > 0 {
			w.include = patterns
		}
	}
}

// WithExclude adds exclude globs.
func WithExclude(patterns ...string) WalkOption {
	return func(w *Walker) {
		w.exclude = append(w.exclude, patterns...)
	}
}

// NewWalker validates every glob up front.
func NewWalker(root string, opts ...WalkOption) (*Walker, error) {
	w := &Walker{
		root:    root,
		include: DefaultInclude,
		exclude: append([]string{}, DefaultExclude...),
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, p := range append(append([]string{}, w.include...), w.exclude...) {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid glob pattern %q", p)
		}
	}
	return w, nil
}

// Root returns the walked directory.
func (w *Walker) Root() string { return w.root }

// Walk returns matching files as sorted slash paths relative to the root.
// Excluded directories are pruned.
func (w *Walker) Walk(ctx context.Context) ([]string, error) {
	var out []string
	err := filepath.WalkDir(w.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == w.root {
				return err
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(w.root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if w.Excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if w.Included(rel) && !w.Excluded(rel) {
			out = append(out, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", w.root)
	}
	sort.Strings(out)
	return out, nil
}

// Included reports whether rel matches an include glob.
func (w *Walker) Included(rel string) bool {
	return MatchAny(w.include, rel)
}

// Excluded reports whether rel, or rel taken as a directory, matches an
// exclude glob. "a/**" therefore excludes the directory a itself.
func (w *Walker) Excluded(rel string) bool {
	return MatchAny(w.exclude, rel) || MatchAny(w.exclude, rel+"/")
}

// MatchAny reports whether the slash path matches any doublestar pattern.
func MatchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
