package accuracy

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aymanbagabas/go-udiff"
	"github.com/jingkaihe/docguard/pkg/fsutil"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FixOptions control how FixFile writes.
type FixOptions struct {
	// DryRun computes the diff and never writes.
	DryRun bool
	// BackupDir receives a copy of each file before it is rewritten.
	BackupDir string
}

// FileFix describes the fixes for one file.
type FileFix struct {
	File    string   `json:"file"`
	Changes []Change `json:"changes"`
	Diff    string   `json:"diff,omitempty"`
	Backup  string   `json:"backup,omitempty"`
	Written bool     `json:"written"`
}

// FixFile rewrites root/rel with the safe replacements. The caller holds the
// tree lock; the file itself is rewritten under its own lock so content that
// changed since it was read is never clobbered.
func (l *Linter) FixFile(ctx context.Context, root, rel string, opts FixOptions) (*FileFix, error) {
	p := filepath.Join(root, filepath.FromSlash(rel))
	log := logger.G(ctx).WithFields(logrus.Fields{"file": rel, "dry_run": opts.DryRun})

	content, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", rel)
	}
	updated, changes := l.Rewrite(rel, content)
	fix := &FileFix{File: rel, Changes: changes}
	if len(changes) == 0 {
		return fix, nil
	}
	fix.Diff = udiff.Unified("a/"+rel, "b/"+rel, string(content), string(updated))
	if opts.DryRun {
		log.WithField("changes", len(changes)).Info("would rewrite file")
		return fix, nil
	}

	if opts.BackupDir != "" {
		backup, err := fsutil.Backup(root, opts.BackupDir, rel)
		if err != nil {
			return nil, err
		}
		fix.Backup = backup
	}

	err = fsutil.Rewrite(p, func(current []byte) ([]byte, error) {
		out, _ := l.Rewrite(rel, current)
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	fix.Written = true
	log.WithField("changes", len(changes)).Info("rewrote file")
	return fix, nil
}
