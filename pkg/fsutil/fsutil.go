// Package fsutil holds the few filesystem writes docguard performs: the
// exclusive writer lock, backups before destructive edits, and locked
// in-place rewrites.
package fsutil

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jingkaihe/docguard/pkg/logger"
	"github.com/pkg/errors"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// LockDir is where writer locks live, under the system temp directory. Locks
// never go inside the tree they guard.
const LockDir = "docguard-locks"

// LockPath returns the writer lock of root. The name is a name-based UUID of
// the absolute root, so every spelling of one tree shares a lock.
func LockPath(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.ToSlash(filepath.Clean(abs))))
	return filepath.Join(os.TempDir(), LockDir, id.String()+".lock")
}

// LockTree takes the exclusive writer lock for root and returns its release
// function. Readers never take it.
func LockTree(ctx context.Context, root string) (func(), error) {
	p := LockPath(root)
	logger.G(ctx).WithField("lock", p).Debug("acquiring writer lock")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create lock directory for %s", root)
	}
	unlock, err := lockedfile.MutexAt(p).Lock()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to lock %s", root)
	}
	return unlock, nil
}

// Rewrite transforms a file under its own file lock. The transform sees the
// current content; returning it unchanged skips the write.
func Rewrite(p string, fn func([]byte) ([]byte, error)) error {
	err := lockedfile.Transform(p, func(old []byte) ([]byte, error) {
		updated, err := fn(old)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			return old, nil
		}
		return updated, nil
	})
	return errors.Wrapf(err, "failed to rewrite %s", p)
}

// WriteFile writes content under a file lock, creating parent directories.
func WriteFile(p string, content []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create directory for %s", p)
	}
	return errors.Wrapf(lockedfile.Write(p, bytes.NewReader(content), perm), "failed to write %s", p)
}

// Backup copies root/rel to backupDir/rel, keeping the relative layout.
func Backup(root, backupDir, rel string) (string, error) {
	src := filepath.Join(root, filepath.FromSlash(rel))
	dst := filepath.Join(backupDir, filepath.FromSlash(rel))
	if err := copyPath(src, dst); err != nil {
		return "", errors.Wrapf(err, "failed to back up %s", rel)
	}
	return dst, nil
}

// MoveToBackup moves root/rel under backupDir, falling back to copy and
// delete when a rename is not possible across filesystems.
func MoveToBackup(root, backupDir, rel string) (string, error) {
	src := filepath.Join(root, filepath.FromSlash(rel))
	dst := filepath.Join(backupDir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrapf(err, "failed to create backup directory for %s", rel)
	}
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}
	if err := copyPath(src, dst); err != nil {
		return "", errors.Wrapf(err, "failed to move %s", rel)
	}
	if err := os.RemoveAll(src); err != nil {
		return "", errors.Wrapf(err, "failed to remove %s after backup", rel)
	}
	return dst, nil
}

func copyPath(src, dst string) error {
	info, err := os.Lstat(src)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return copyFile(src, dst, info.Mode().Perm())
	}
	return filepath.Walk(src, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if fi.IsDir() {
			return os.MkdirAll(target, fi.Mode().Perm()|0o700)
		}
		if !fi.Mode().IsRegular() {
			return nil
		}
		return copyFile(p, target, fi.Mode().Perm())
	})
}

func copyFile(src, dst string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// IsBinary reports whether content looks binary: a NUL byte in the first
// 512 bytes.
func IsBinary(content []byte) bool {
	if len(content) > 512 {
		content = content[:512]
	}
	return bytes.IndexByte(content, 0) >= 0
}
