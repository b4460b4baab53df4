package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgblueprint/runner"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := openDatabase(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		statuses, err := runner.New(pool, dialect(), cfg.MigrationsPath, log).Status(ctx)
		if err != nil {
			return fmt.Errorf("status error: %w", err)
		}
		if len(statuses) == 0 {
			fmt.Println("No migrations found in", cfg.MigrationsPath)
			return nil
		}

		green := color.New(color.FgGreen)
		yellow := color.New(color.FgYellow)
		red := color.New(color.FgRed, color.Bold)
		for _, s := range statuses {
			when := ""
			if !s.AppliedAt.IsZero() {
				when = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			switch s.State {
			case runner.StateApplied:
				green.Printf("  ✅ %-10s %-40s %s\n", s.State, s.Name, when)
			case runner.StatePending:
				yellow.Printf("  🕒 %-10s %s\n", s.State, s.Name)
			default:
				red.Printf("  ❌ %-10s %-40s %s %s\n", s.State, s.Name, when, s.Error)
			}
		}
		return nil
	},
}
