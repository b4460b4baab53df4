package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgblueprint/diff"
	"github.com/ridoystarlord/pgblueprint/generator"
	"github.com/ridoystarlord/pgblueprint/introspect"
	"github.com/ridoystarlord/pgblueprint/schema"
)

var (
	generateSource     blueprintSource
	generateLabel      string
	generatePrune      bool
	generateDropTables bool
	dryRunGenerate     bool
)

func init() {
	generateSource.register(generateCmd)
	generateCmd.Flags().StringVarP(&generateLabel, "label", "l", "migration", "Label used in the migration file name")
	generateCmd.Flags().BoolVar(&generatePrune, "prune", false, "Drop columns, indexes and foreign keys no longer declared")
	generateCmd.Flags().BoolVar(&generateDropTables, "drop-tables", false, "Drop prefixed tables no longer declared")
	generateCmd.Flags().BoolVar(&dryRunGenerate, "dry-run", false, "Preview the SQL that would be generated without writing files")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a migration file from the declared blueprints",
	Long: `Compare the declared blueprints with the database and write a
migration file with the statements that bring the database up to date,
together with their rollback.

Examples:
  pgblueprint generate                       # From the configured schema.yaml
  pgblueprint generate --tags -l "add posts" # From tagged Go structs
  pgblueprint generate --prune --dry-run     # Preview, including drops
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		changes, err := planChanges(cmd, &generateSource, diff.Options{Prune: generatePrune, DropTables: generateDropTables})
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			color.Green("✅ No changes detected.")
			return nil
		}

		m, err := generator.Build(dialect(), generateLabel, changes)
		if err != nil {
			return err
		}

		if dryRunGenerate {
			fmt.Println("\n================ DRY RUN: Migration Preview ================")
			printStatements("-- Up Migration SQL --", m.Up)
			printStatements("\n-- Down Migration (Rollback) SQL --", m.Down)
			fmt.Println("============================================================")
			fmt.Println("(Dry run only. No files were written.)")
			return nil
		}

		filename, err := generator.WriteMigrationFile(ctx, cfg.MigrationsPath, m, time.Now())
		if err != nil {
			return err
		}
		color.Green("✅ Migration generated: %s", filename)
		return nil
	},
}

// planChanges loads the blueprints, reads the database and returns the
// change blueprints.
func planChanges(cmd *cobra.Command, source *blueprintSource, opts diff.Options) ([]*schema.Blueprint, error) {
	ctx := cmd.Context()
	blueprints, err := source.load()
	if err != nil {
		return nil, err
	}

	pool, err := openDatabase(ctx)
	if err != nil {
		return nil, err
	}
	defer pool.Close()

	d := dialect()
	existing, err := introspect.New(pool, d, "").Tables(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspecting database: %w", err)
	}
	log.Debug().Int("declared", len(blueprints)).Int("existing", len(existing)).Msg("planning changes")
	return diff.Plan(d, blueprints, existing, opts)
}
