package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgblueprint/runner"
)

var steps int

func init() {
	rollbackCmd.Flags().IntVarP(&steps, "steps", "s", 1, "Number of migrations to rollback")
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback migrations",
	Long: `Rollback the last migration or multiple migrations.

Examples:
  pgblueprint rollback           # Rollback the last migration
  pgblueprint rollback --steps=3 # Rollback the last 3 migrations
  pgblueprint rollback -s 5      # Rollback the last 5 migrations
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if steps < 1 {
			return fmt.Errorf("steps must be at least 1")
		}

		ctx := cmd.Context()
		pool, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		rolledBack, err := runner.New(pool, dialect(), cfg.MigrationsPath, log).Rollback(ctx, steps)
		for _, name := range rolledBack {
			fmt.Println("Rolled back:", name)
		}
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}

		switch len(rolledBack) {
		case 0:
			color.Green("✅ No migrations to rollback.")
		case 1:
			color.Green("✅ Rolled back 1 migration.")
		default:
			color.Green("✅ Rolled back %d migrations.", len(rolledBack))
		}
		return nil
	},
}
