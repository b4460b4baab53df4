package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgblueprint/runner"
)

var dryRunMigrate bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		r := runner.New(pool, dialect(), cfg.MigrationsPath, log)

		if dryRunMigrate {
			pending, err := r.Preview(ctx)
			if err != nil {
				return fmt.Errorf("dry run failed: %w", err)
			}
			if len(pending) == 0 {
				color.Green("✅ No pending migrations.")
				return nil
			}
			fmt.Println("\n================ DRY RUN: Migration Preview ================")
			for _, m := range pending {
				fmt.Printf("\n-- Migration: %s --\n", m.Name)
				fmt.Println("-- Up Migration SQL --")
				fmt.Println(m.Up)
				fmt.Println("\n-- Down Migration (Rollback) SQL --")
				fmt.Println(m.Down)
			}
			fmt.Println("============================================================")
			fmt.Println("(Dry run only. No migrations were applied.)")
			return nil
		}

		applied, err := r.Apply(ctx)
		for _, name := range applied {
			fmt.Println("Applied:", name)
		}
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if len(applied) == 0 {
			color.Green("✅ No pending migrations.")
			return nil
		}
		color.Green("✅ All migrations applied.")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&dryRunMigrate, "dry-run", false, "Preview the SQL that would be executed without applying migrations")
}
