package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgblueprint/generator"
)

var (
	compileSource   blueprintSource
	compileRollback bool
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Print the DDL for the declared blueprints",
	Long: `Compile every declared blueprint into PostgreSQL statements and print
them. No database connection is needed.

Examples:
  pgblueprint compile                 # Compile the configured schema.yaml
  pgblueprint compile -f other.yaml   # Compile another schema file
  pgblueprint compile --tags          # Compile tagged structs from app/models
  pgblueprint compile --rollback      # Also print the rollback statements
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		blueprints, err := compileSource.load()
		if err != nil {
			return err
		}
		m, err := generator.Build(dialect(), "", blueprints)
		if err != nil {
			return err
		}

		printStatements("-- Up", m.Up)
		if compileRollback {
			printStatements("\n-- Down", m.Down)
		}
		return nil
	},
}

func init() {
	compileSource.register(compileCmd)
	compileCmd.Flags().BoolVar(&compileRollback, "rollback", false, "Also print the rollback statements")
}
