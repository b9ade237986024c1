package docs

import (
	"context"
	"os"
	"path"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/docguard/pkg/logger"
)

// Skip records a file that could not be loaded.
type Skip struct {
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Tree is the set of parsed documents under a root.
type Tree struct {
	Root      string
	Documents []*Document
	Skipped   []Skip

	byPath map[string]*Document
}

// NewTree indexes documents that were parsed elsewhere.
func NewTree(root string, documents ...*Document) *Tree {
	t := &Tree{Root: root, byPath: map[string]*Document{}}
	for _, d := range documents {
		t.add(d)
	}
	return t
}

func (t *Tree) add(d *Document) {
	t.Documents = append(t.Documents, d)
	t.byPath[d.RelPath] = d
}

// Get returns the document at a slash path relative to the root.
func (t *Tree) Get(rel string) (*Document, bool) {
	d, ok := t.byPath[path.Clean(rel)]
	return d, ok
}

// Paths lists the relative paths of loaded documents in walk order.
func (t *Tree) Paths() []string {
	out := make([]string, 0, len(t.Documents))
	for _, d := range t.Documents {
		out = append(out, d.RelPath)
	}
	return out
}

// Stat looks a slash path up on disk, relative to the root.
func (t *Tree) Stat(rel string) (os.FileInfo, error) {
	return os.Stat(filepath.Join(t.Root, filepath.FromSlash(rel)))
}

// Load walks the root and parses every matching file. Files that cannot be
// read are recorded in Skipped and logged; only a walk failure of the root
// itself is returned as an error.
func Load(ctx context.Context, root string, opts ...WalkOption) (*Tree, error) {
	w, err := NewWalker(root, opts...)
	if err != nil {
		return nil, err
	}
	files, err := w.Walk(ctx)
	if err != nil {
		return nil, err
	}
	return LoadFiles(ctx, root, files), nil
}

// LoadFiles parses the given relative paths.
func LoadFiles(ctx context.Context, root string, files []string) *Tree {
	t := NewTree(root)
	var result *multierror.Error
	for _, rel := range files {
		doc, err := ParseFile(root, rel)
		if err != nil {
			result = multierror.Append(result, err)
			t.Skipped = append(t.Skipped, Skip{File: rel, Reason: err.Error()})
			logger.G(ctx).WithField("file", rel).WithError(err).Warn("skipping unreadable file")
			continue
		}
		t.add(doc)
	}
	if err := result.ErrorOrNil(); err != nil {
		logger.G(ctx).WithField("skipped", len(t.Skipped)).Debug(err.Error())
	}
	return t
}
