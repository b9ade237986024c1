// Package migrations holds the history database schema, one file per
// timestamp-versioned migration.
package migrations

import (
	"github.com/jingkaihe/docguard/pkg/db"
)

// All returns every migration. Append new ones at the end.
func All() []db.Migration {
	return []db.Migration{
		Migration20250301090000CreateRuns(),
		Migration20250301090001CreateRunIssues(),
	}
}
