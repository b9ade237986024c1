package check

import (
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/pkg/errors"
)

// Func inspects one document. It must not touch the filesystem beyond
// read-only lookups.
type Func func(doc *docs.Document) []Issue

// TreeFunc inspects relationships across the whole tree.
type TreeFunc func(tree *docs.Tree) []Issue

type namedFunc struct {
	name string
	fn   Func
}

type namedTreeFunc struct {
	name string
	fn   TreeFunc
}

// Registry holds file and tree checks in registration order.
type Registry struct {
	files []namedFunc
	trees []namedTreeFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a per-file check.
func (r *Registry) Register(name string, fn Func) *Registry {
	r.files = append(r.files, namedFunc{name: name, fn: fn})
	return r
}

// RegisterTree adds a cross-file check.
func (r *Registry) RegisterTree(name string, fn TreeFunc) *Registry {
	r.trees = append(r.trees, namedTreeFunc{name: name, fn: fn})
	return r
}

// Names lists registered checks, file checks first.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.files)+len(r.trees))
	for _, f := range r.files {
		names = append(names, f.name)
	}
	for _, t := range r.trees {
		names = append(names, t.name)
	}
	return names
}

// Len is the number of registered checks.
func (r *Registry) Len() int {
	return len(r.files) + len(r.trees)
}

// Only returns a registry restricted to the named checks. Unknown names are
// an error so typos in --only do not silently disable everything.
func (r *Registry) Only(names ...string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}

	out := NewRegistry()
	for _, f := range r.files {
		if want[f.name] {
			out.files = append(out.files, f)
			delete(want, f.name)
		}
	}
	for _, t := range r.trees {
		if want[t.name] {
			out.trees = append(out.trees, t)
			delete(want, t.name)
		}
	}
	for n := range want {
		return nil, errors.Errorf("unknown check %q", n)
	}
	return out, nil
}
