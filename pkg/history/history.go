// Package history records a summary of each validator run in SQLite so
// issue counts can be followed over time.
package history

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jingkaihe/docguard/pkg/check"
	"github.com/jingkaihe/docguard/pkg/db"
	"github.com/jingkaihe/docguard/pkg/db/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Run is one recorded invocation.
type Run struct {
	ID           string         `db:"id" json:"id"`
	Command      string         `db:"command" json:"command"`
	Root         string         `db:"root" json:"root"`
	FilesScanned int            `db:"files_scanned" json:"files_scanned"`
	Skipped      int            `db:"skipped" json:"skipped"`
	Errors       int            `db:"errors" json:"errors"`
	Warnings     int            `db:"warnings" json:"warnings"`
	Infos        int            `db:"infos" json:"infos"`
	ExitCode     int            `db:"exit_code" json:"exit_code"`
	DurationMS   int64          `db:"duration_ms" json:"duration_ms"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	Rules        map[string]int `db:"-" json:"rules,omitempty"`
}

// FromReport summarises a report.
func FromReport(command string, r *check.Report, exitCode int, took time.Duration) *Run {
	s := r.Summary()
	return &Run{
		Command:      command,
		Root:         r.Root,
		FilesScanned: s.FilesScanned,
		Skipped:      s.Skipped,
		Errors:       s.BySeverity["error"],
		Warnings:     s.BySeverity["warning"],
		Infos:        s.BySeverity["info"],
		ExitCode:     exitCode,
		DurationMS:   took.Milliseconds(),
		Rules:        s.ByRule,
	}
}

// ListOptions filter List.
type ListOptions struct {
	Command string
	// Limit <= 0 means no limit.
	Limit int
}

// Store persists runs.
type Store struct {
	db *sqlx.DB
}

// Open opens the history database at path, or at the default location when
// path is empty, and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		p, err := db.DefaultDBPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	sqlDB, err := db.OpenMigrated(ctx, path, migrations.All())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open history database %s", path)
	}
	return &Store{db: sqlDB}, nil
}

// Record inserts a run and its per-rule counts. ID and CreatedAt are filled
// in when empty.
func (s *Store) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO runs (
			id, command, root, files_scanned, skipped, errors, warnings, infos,
			exit_code, duration_ms, created_at
		) VALUES (
			:id, :command, :root, :files_scanned, :skipped, :errors, :warnings, :infos,
			:exit_code, :duration_ms, :created_at
		)
	`, run)
	if err != nil {
		return errors.Wrap(err, "failed to record run")
	}

	for rule, count := range run.Rules {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO run_issues (run_id, rule, count) VALUES (?, ?, ?)", run.ID, rule, count); err != nil {
			return errors.Wrapf(err, "failed to record issue count for %s", rule)
		}
	}
	return tx.Commit()
}

// List returns runs newest first, each with its per-rule counts.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Run, error) {
	query := `SELECT id, command, root, files_scanned, skipped, errors, warnings, infos,
		exit_code, duration_ms, created_at FROM runs`
	args := map[string]any{}
	if opts.Command != "" {
		query += " WHERE command = :command"
		args["command"] = opts.Command
	}
	query += " ORDER BY created_at DESC, id"
	if opts.Limit > 0 {
		query += " LIMIT :limit"
		args["limit"] = opts.Limit
	}

	named, bound, err := sqlx.Named(query, args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build history query")
	}
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, s.db.Rebind(named), bound...); err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}
	if len(runs) == 0 {
		return runs, nil
	}

	ids := make([]string, len(runs))
	index := make(map[string]int, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
		index[r.ID] = i
	}
	in, inArgs, err := sqlx.In("SELECT run_id, rule, count FROM run_issues WHERE run_id IN (?)", ids)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build issue query")
	}
	rows, err := s.db.QueryxContext(ctx, s.db.Rebind(in), inArgs...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load issue counts")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id, rule string
			count    int
		)
		if err := rows.Scan(&id, &rule, &count); err != nil {
			return nil, errors.Wrap(err, "failed to scan issue count")
		}
		r := &runs[index[id]]
		if r.Rules == nil {
			r.Rules = map[string]int{}
		}
		r.Rules[rule] = count
	}
	return runs, errors.Wrap(rows.Err(), "failed to read issue counts")
}

// Get loads one run by ID or unique ID prefix.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.GetContext(ctx, &run, `SELECT id, command, root, files_scanned, skipped, errors, warnings,
		infos, exit_code, duration_ms, created_at FROM runs WHERE id LIKE ? ORDER BY id LIMIT 1`,
		strings.ReplaceAll(id, "%", "")+"%")
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Errorf("run not found: %s", id)
		}
		return nil, errors.Wrap(err, "failed to load run")
	}

	var counts []struct {
		Rule  string `db:"rule"`
		Count int    `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &counts, "SELECT rule, count FROM run_issues WHERE run_id = ?", run.ID); err != nil {
		return nil, errors.Wrap(err, "failed to load issue counts")
	}
	if len(counts) > 0 {
		run.Rules = make(map[string]int, len(counts))
		for _, c := range counts {
			run.Rules[c.Rule] = c.Count
		}
	}
	return &run, nil
}

// Trend returns the error counts of the last n runs of a command, oldest
// first.
func (s *Store) Trend(ctx context.Context, command string, n int) ([]int, error) {
	runs, err := s.List(ctx, ListOptions{Command: command, Limit: n})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].CreatedAt.Before(runs[j].CreatedAt) })
	out := make([]int, len(runs))
	for i, r := range runs {
		out[i] = r.Errors
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
