package migrations

import (
	"database/sql"

	"github.com/jingkaihe/docguard/pkg/db"
	"github.com/pkg/errors"
)

// Migration20250301090001CreateRunIssues stores issue counts per rule for
// each run.
func Migration20250301090001CreateRunIssues() db.Migration {
	return db.Migration{
		Version:     20250301090001,
		Description: "Create run_issues table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS run_issues (
					run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
					rule TEXT NOT NULL,
					count INTEGER NOT NULL,
					PRIMARY KEY (run_id, rule)
				)
			`)
			return errors.Wrap(err, "failed to create run_issues table")
		},
		Down: func(tx *sql.Tx) error {
			_, err := tx.Exec("DROP TABLE IF EXISTS run_issues")
			return errors.Wrap(err, "failed to drop run_issues table")
		},
	}
}
