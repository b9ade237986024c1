package main

import (
	"fmt"

	"github.com/jingkaihe/docguard/pkg/db"
	"github.com/jingkaihe/docguard/pkg/db/migrations"
	"github.com/jingkaihe/docguard/pkg/presenter"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "History database management commands",
	Long:  `Commands for managing the run history database (migration status, rollback).`,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Long:  `Shows the applied and pending migrations of the history database.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, err := databasePath()
		if err != nil {
			return err
		}
		conn, err := db.Open(ctx, path)
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := db.NewMigrationRunner(conn).GetAppliedVersions(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}
		appliedMap := make(map[int64]bool, len(applied))
		for _, v := range applied {
			appliedMap[v] = true
		}

		all := migrations.All()
		fmt.Println("Database Migration Status")
		fmt.Println("=========================")
		fmt.Printf("Database: %s\n\n", path)

		appliedCount := 0
		for _, m := range all {
			status := "[ ]"
			if appliedMap[m.Version] {
				status = "[x]"
				appliedCount++
			}
			fmt.Printf("%s %d - %s\n", status, m.Version, m.Description)
		}
		fmt.Printf("\nApplied: %d/%d migrations\n", appliedCount, len(all))
		return nil
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last database migration",
	Long:  `Rolls back the most recently applied migration of the history database.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		path, err := databasePath()
		if err != nil {
			return err
		}
		conn, err := db.Open(ctx, path)
		if err != nil {
			return err
		}
		defer conn.Close()

		runner := db.NewMigrationRunner(conn)
		applied, err := runner.GetAppliedVersions(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get migration status")
		}
		if len(applied) == 0 {
			presenter.Warning("No migrations to rollback")
			return nil
		}

		lastVersion := applied[len(applied)-1]
		presenter.Info(fmt.Sprintf("Rolling back migration %d", lastVersion))
		if err := runner.Rollback(ctx, migrations.All()); err != nil {
			return errors.Wrap(err, "failed to rollback migration")
		}
		presenter.Success(fmt.Sprintf("Successfully rolled back migration %d", lastVersion))
		return nil
	},
}

// databasePath is the configured history path or the default one.
func databasePath() (string, error) {
	if p := historyPath(); p != "" {
		return p, nil
	}
	return db.DefaultDBPath()
}

func init() {
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
}
