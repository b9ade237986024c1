package fsutil

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBinary(t *testing.T) {
	assert.False(t, IsBinary([]byte("# Title\n")))
	assert.True(t, IsBinary([]byte{'P', 'K', 0, 3}))
	assert.False(t, IsBinary(append([]byte(strings.Repeat("a", 600)), 0)))
	assert.False(t, IsBinary(nil))
}

func TestLockPath(t *testing.T) {
	root := t.TempDir()
	p := LockPath(root)

	assert.Equal(t, filepath.Join(os.TempDir(), LockDir), filepath.Dir(p))
	assert.False(t, strings.HasPrefix(p, root+string(filepath.Separator)))
	assert.Equal(t, p, LockPath(filepath.Join(root, "docs", "..")))
	assert.NotEqual(t, p, LockPath(t.TempDir()))
}

func TestLockTreeLeavesTreeUntouched(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# Repo\n"), 0o644))

	unlock, err := LockTree(context.Background(), root)
	require.NoError(t, err)
	unlock()

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "README.md", entries[0].Name())

	// The lock is reusable once released.
	unlock, err = LockTree(context.Background(), root)
	require.NoError(t, err)
	unlock()
}

func TestRewrite(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.md")
	require.NoError(t, os.WriteFile(p, []byte("old text\n"), 0o644))

	require.NoError(t, Rewrite(p, func(b []byte) ([]byte, error) {
		return []byte(strings.Replace(string(b), "old", "new", 1)), nil
	}))
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "new text\n", string(got))

	err = Rewrite(p, func([]byte) ([]byte, error) { return nil, errors.New("boom") })
	require.Error(t, err)
	got, _ = os.ReadFile(p)
	assert.Equal(t, "new text\n", string(got))
}

func TestWriteFileCreatesParents(t *testing.T) {
	p := filepath.Join(t.TempDir(), "reports", "nested", "out.md")
	require.NoError(t, WriteFile(p, []byte("report"), 0o644))
	got, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "report", string(got))
}

func TestBackupAndMove(t *testing.T) {
	root := t.TempDir()
	backup := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs", "__pycache__"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "a.md"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "__pycache__", "x.pyc"), []byte("x"), 0o644))

	dst, err := Backup(root, backup, "docs/a.md")
	require.NoError(t, err)
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a", string(got))
	assert.FileExists(t, filepath.Join(root, "docs", "a.md"))

	dst, err = MoveToBackup(root, backup, "docs/__pycache__")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dst, "x.pyc"))
	assert.NoDirExists(t, filepath.Join(root, "docs", "__pycache__"))

	_, err = Backup(root, backup, "missing.md")
	assert.Error(t, err)
}
