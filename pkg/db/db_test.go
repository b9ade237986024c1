package db

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// historySchema is a two-step schema shaped like the run history tables.
func historySchema() []Migration {
	return []Migration{
		{
			Version:     20250301090000,
			Description: "Create runs",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("CREATE TABLE runs (id TEXT PRIMARY KEY, command TEXT NOT NULL)")
				return err
			},
			Down: func(tx *sql.Tx) error {
				_, err := tx.Exec("DROP TABLE runs")
				return err
			},
		},
		{
			Version:     20250301090001,
			Description: "Add exit code",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec("ALTER TABLE runs ADD COLUMN exit_code INTEGER NOT NULL DEFAULT 0")
				return err
			},
			Down: func(tx *sql.Tx) error {
				_, err := tx.Exec("ALTER TABLE runs DROP COLUMN exit_code")
				return err
			},
		},
	}
}

func openTemp(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func hasTable(t *testing.T, conn *sqlx.DB, name string) bool {
	t.Helper()
	var n int
	require.NoError(t, conn.Get(&n, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name))
	return n > 0
}

func TestOpenConfiguresSQLite(t *testing.T) {
	conn := openTemp(t)
	require.NoError(t, VerifyConfiguration(conn))
}

func TestOpenCreatesParentDirectories(t *testing.T) {
	p := filepath.Join(t.TempDir(), "state", "docguard", "history.db")

	conn, err := Open(context.Background(), p)
	require.NoError(t, err)
	defer conn.Close()

	info, err := os.Stat(filepath.Dir(p))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestDefaultDBPath(t *testing.T) {
	t.Run("base path env wins", func(t *testing.T) {
		t.Setenv(BasePathEnv, "/var/lib/docguard")
		p, err := DefaultDBPath()
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/docguard/history.db", p)
	})

	t.Run("falls back to home", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		t.Setenv(BasePathEnv, "")
		p, err := DefaultDBPath()
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(home, ".docguard", "history.db"), p)
	})
}

func TestOpenMigratedReopensWithoutReapplying(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "history.db")

	conn, err := OpenMigrated(ctx, p, historySchema())
	require.NoError(t, err)
	_, err = conn.Exec("INSERT INTO runs (id, command, exit_code) VALUES ('r1', 'check', 1)")
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	conn, err = OpenMigrated(ctx, p, historySchema())
	require.NoError(t, err)
	defer conn.Close()

	var code int
	require.NoError(t, conn.Get(&code, "SELECT exit_code FROM runs WHERE id = 'r1'"))
	assert.Equal(t, 1, code)

	versions, err := NewMigrationRunner(conn).GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20250301090000, 20250301090001}, versions)
}

func TestMigrationRunnerOrdersByVersion(t *testing.T) {
	ctx := context.Background()
	conn := openTemp(t)

	schema := historySchema()
	reversed := []Migration{schema[1], schema[0]}

	runner := NewMigrationRunner(conn)
	require.NoError(t, runner.Run(ctx, reversed))
	assert.True(t, hasTable(t, conn, "runs"))

	versions, err := runner.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20250301090000, 20250301090001}, versions)
}

func TestMigrationRunnerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn := openTemp(t)
	runner := NewMigrationRunner(conn)

	for i := 0; i < 3; i++ {
		require.NoError(t, runner.Run(ctx, historySchema()))
	}

	var count int
	require.NoError(t, conn.Get(&count, "SELECT COUNT(*) FROM schema_migrations"))
	assert.Equal(t, 2, count)
}

func TestMigrationRunnerFailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	conn := openTemp(t)

	broken := append(historySchema(), Migration{
		Version:     20250301090002,
		Description: "Broken",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec("ALTER TABLE missing ADD COLUMN x TEXT")
			return err
		},
	})

	runner := NewMigrationRunner(conn)
	require.Error(t, runner.Run(ctx, broken))

	versions, err := runner.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.NotContains(t, versions, int64(20250301090002))
}

func TestMigrationRunnerRollbackUndoesLatest(t *testing.T) {
	ctx := context.Background()
	conn := openTemp(t)
	runner := NewMigrationRunner(conn)
	require.NoError(t, runner.Run(ctx, historySchema()))

	require.NoError(t, runner.Rollback(ctx, historySchema()))
	versions, err := runner.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{20250301090000}, versions)
	assert.True(t, hasTable(t, conn, "runs"))

	require.NoError(t, runner.Rollback(ctx, historySchema()))
	versions, err = runner.GetAppliedVersions(ctx)
	require.NoError(t, err)
	assert.Empty(t, versions)
	assert.False(t, hasTable(t, conn, "runs"))
}
