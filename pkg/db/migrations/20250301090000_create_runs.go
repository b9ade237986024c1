package migrations

import (
	"database/sql"

	"github.com/jingkaihe/docguard/pkg/db"
	"github.com/pkg/errors"
)

// Migration20250301090000CreateRuns creates the runs table.
func Migration20250301090000CreateRuns() db.Migration {
	return db.Migration{
		Version:     20250301090000,
		Description: "Create runs table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS runs (
					id TEXT PRIMARY KEY,
					command TEXT NOT NULL,
					root TEXT NOT NULL,
					files_scanned INTEGER NOT NULL,
					skipped INTEGER NOT NULL,
					errors INTEGER NOT NULL,
					warnings INTEGER NOT NULL,
					infos INTEGER NOT NULL,
					exit_code INTEGER NOT NULL,
					duration_ms INTEGER NOT NULL,
					created_at DATETIME NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create runs table")
			}
			if _, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)"); err != nil {
				return errors.Wrap(err, "failed to create runs index")
			}
			_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command)")
			return errors.Wrap(err, "failed to create runs index")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS runs")
			return errors.Wrap(err, "failed to drop runs table")
		},
	}
}
