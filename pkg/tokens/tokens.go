// Package tokens estimates how many LLM tokens documentation costs to load
// and checks files and sections against budgets.
package tokens

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/fsutil"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/pkg/errors"
)

// Estimator turns text into an approximate token count.
type Estimator string

const (
	// Chars assumes four characters per token.
	Chars Estimator = "chars"
	// Words assumes three quarters of a token per word.
	Words Estimator = "words"
)

// ParseEstimator accepts chars or words; empty means chars.
func ParseEstimator(s string) (Estimator, error) {
	switch Estimator(strings.ToLower(strings.TrimSpace(s))) {
	case "", Chars:
		return Chars, nil
	case Words:
		return Words, nil
	}
	return "", errors.Errorf("unknown token estimator %q", s)
}

// Estimate returns the token estimate of text.
func (e Estimator) Estimate(text string) int {
	if e == Words {
		return int(float64(len(strings.Fields(text))) * 0.75)
	}
	return len(text) / 4
}

// FileStats describes one counted file.
type FileStats struct {
	Path   string `json:"path"`
	Type   string `json:"type"`
	Tokens int    `json:"tokens"`
	Chars  int    `json:"chars"`
	Words  int    `json:"words"`
	Lines  int    `json:"lines"`
}

// DirStats aggregates files per directory.
type DirStats struct {
	Dir    string `json:"dir"`
	Files  int    `json:"files"`
	Tokens int    `json:"tokens"`
}

// Stat computes statistics for one file's content.
func Stat(rel string, content []byte, est Estimator) FileStats {
	text := string(content)
	lines := strings.Count(text, "\n")
	if len(text) > 0 && !strings.HasSuffix(text, "\n") {
		lines++
	}
	typ := strings.TrimPrefix(path.Ext(rel), ".")
	if typ == "" {
		typ = "none"
	}
	return FileStats{
		Path:   rel,
		Type:   typ,
		Tokens: est.Estimate(text),
		Chars:  len(text),
		Words:  len(strings.Fields(text)),
		Lines:  lines,
	}
}

// Count walks the root and estimates every matching text file. Binary and
// unreadable files are skipped.
func Count(ctx context.Context, root string, est Estimator, opts ...docs.WalkOption) ([]FileStats, []docs.Skip, error) {
	w, err := docs.NewWalker(root, opts...)
	if err != nil {
		return nil, nil, err
	}
	files, err := w.Walk(ctx)
	if err != nil {
		return nil, nil, err
	}

	var (
		stats   []FileStats
		skipped []docs.Skip
	)
	for _, rel := range files {
		content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			logger.G(ctx).WithField("file", rel).WithError(err).Warn("skipping unreadable file")
			skipped = append(skipped, docs.Skip{File: rel, Reason: err.Error()})
			continue
		}
		if fsutil.IsBinary(content) {
			logger.G(ctx).WithField("file", rel).Debug("skipping binary file")
			continue
		}
		stats = append(stats, Stat(rel, content, est))
	}
	return stats, skipped, nil
}

// Total sums tokens.
func Total(stats []FileStats) int {
	n := 0
	for _, s := range stats {
		n += s.Tokens
	}
	return n
}

// ByDirectory aggregates stats per directory, largest first.
func ByDirectory(stats []FileStats) []DirStats {
	agg := map[string]*DirStats{}
	for _, s := range stats {
		dir := path.Dir(s.Path)
		d, ok := agg[dir]
		if !ok {
			d = &DirStats{Dir: dir}
			agg[dir] = d
		}
		d.Files++
		d.Tokens += s.Tokens
	}
	out := make([]DirStats, 0, len(agg))
	for _, d := range agg {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tokens != out[j].Tokens {
			return out[i].Tokens > out[j].Tokens
		}
		return out[i].Dir < out[j].Dir
	})
	return out
}

// Largest returns the n files with the most tokens; n <= 0 returns all.
func Largest(stats []FileStats, n int) []FileStats {
	out := append([]FileStats{}, stats...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Tokens != out[j].Tokens {
			return out[i].Tokens > out[j].Tokens
		}
		return out[i].Path < out[j].Path
	})
	if n > 0 && n < len(out) {
		out = out[:n]
	}
	return out
}
