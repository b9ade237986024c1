// Package cleanup finds build and editor artifacts in a repository and
// removes them, or moves them into a backup directory.
package cleanup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/hashicorp/go-multierror"
	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/docs"
	"github.com/jingkaihe/docguard/pkg/fsutil"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// RuleArtifact tags each artifact in the cleanup report.
const RuleArtifact = "cleanup-artifact"

// Artifact is a file or directory matched by a cleanup pattern.
type Artifact struct {
	Path string `json:"path"`
	Dir  bool   `json:"dir"`
	Size int64  `json:"size"`
}

// Options control Clean.
type Options struct {
	// DryRun lists artifacts without touching them.
	DryRun bool
	// BackupDir, when set, receives the artifacts instead of deleting them.
	BackupDir string
}

// Result describes what Clean did.
type Result struct {
	Artifacts []Artifact        `json:"artifacts"`
	Removed   []string          `json:"removed,omitempty"`
	Moved     map[string]string `json:"moved,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"`
	DryRun    bool              `json:"dry_run"`
	Bytes     int64             `json:"bytes"`
}

// Find walks root and returns artifacts matching any doublestar pattern. A
// matched directory is returned as a whole and not descended into.
func Find(ctx context.Context, root string, patterns, exclude []string) ([]Artifact, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, errors.Errorf("invalid cleanup pattern %q", p)
		}
	}
	exclude = append(append([]string{}, docs.DefaultExclude...), exclude...)

	var out []Artifact
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			logger.G(ctx).WithField("file", p).WithError(err).Warn("skipping unreadable path")
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if docs.MatchAny(exclude, rel) || (d.IsDir() && docs.MatchAny(exclude, rel+"/")) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !docs.MatchAny(patterns, rel) {
			return nil
		}
		out = append(out, Artifact{Path: rel, Dir: d.IsDir(), Size: size(p, d)})
		if d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", root)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func size(p string, d fs.DirEntry) int64 {
	if !d.IsDir() {
		if info, err := d.Info(); err == nil {
			return info.Size()
		}
		return 0
	}
	var total int64
	_ = filepath.WalkDir(p, func(_ string, e fs.DirEntry, err error) error {
		if err == nil && !e.IsDir() {
			if info, err := e.Info(); err == nil {
				total += info.Size()
			}
		}
		return nil
	})
	return total
}

// Clean removes or moves artifacts while holding the tree lock. Failures on
// single artifacts are collected and returned together after the rest have
// been processed.
func Clean(ctx context.Context, root string, artifacts []Artifact, opts Options) (*Result, error) {
	res := &Result{Artifacts: artifacts, DryRun: opts.DryRun}
	for _, a := range artifacts {
		res.Bytes += a.Size
	}
	if opts.DryRun || len(artifacts) == 0 {
		return res, nil
	}

	unlock, err := fsutil.LockTree(ctx, root)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var result *multierror.Error
	for _, a := range artifacts {
		log := logger.G(ctx).WithFields(logrus.Fields{"file": a.Path, "dir": a.Dir})
		if opts.BackupDir != "" {
			dst, err := fsutil.MoveToBackup(root, opts.BackupDir, a.Path)
			if err != nil {
				result = multierror.Append(result, err)
				res.fail(a.Path, err)
				continue
			}
			if res.Moved == nil {
				res.Moved = map[string]string{}
			}
			res.Moved[a.Path] = dst
			log.WithField("backup", dst).Info("moved artifact")
			continue
		}
		if err := os.RemoveAll(filepath.Join(root, filepath.FromSlash(a.Path))); err != nil {
			err = errors.Wrapf(err, "failed to remove %s", a.Path)
			result = multierror.Append(result, err)
			res.fail(a.Path, err)
			continue
		}
		res.Removed = append(res.Removed, a.Path)
		log.Info("removed artifact")
	}
	return res, result.ErrorOrNil()
}

func (r *Result) fail(p string, err error) {
	if r.Failed == nil {
		r.Failed = map[string]string{}
	}
	r.Failed[p] = err.Error()
}

// Report renders the result in the common report shape. Artifacts are info
// issues; failures are errors.
func (r *Result) Report(root string) *check.Report {
	report := check.NewReport("cleanup", root)
	for _, a := range r.Artifacts {
		msg := "removable artifact"
		switch {
		case r.Failed[a.Path] != "":
			report.Add(check.Issue{
				File:     a.Path,
				Rule:     RuleArtifact,
				Severity: check.SeverityError,
				Message:  r.Failed[a.Path],
			})
			continue
		case r.Moved[a.Path] != "":
			msg = fmt.Sprintf("moved to %s", r.Moved[a.Path])
		case !r.DryRun && slices.Contains(r.Removed, a.Path):
			msg = "removed"
		}
		report.Add(check.Issue{File: a.Path, Rule: RuleArtifact, Severity: check.SeverityInfo, Message: msg})
	}
	report.SetExtra("artifacts", len(r.Artifacts))
	report.SetExtra("bytes", r.Bytes)
	report.SetExtra("dry_run", r.DryRun)
	report.Sort()
	return report
}
