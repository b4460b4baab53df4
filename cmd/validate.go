package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgblueprint/introspect"
	"github.com/ridoystarlord/pgblueprint/validator"
)

var (
	validateSource blueprintSource
	validateFormat string
	validateOnline bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the declared blueprints",
	Long: `Validate the declared blueprints before generating migrations.

This command checks:
- Table and column names (length limit, reserved keywords, duplicates)
- Column types and modifiers (every blueprint must compile)
- Index definitions (declared columns, generated name collisions)
- Foreign key references (declared tables and columns)

With --online it also reads the database and notes tables that already exist.

Examples:
  pgblueprint validate                  # Validate schema.yaml (offline)
  pgblueprint validate --tags           # Validate tagged Go structs
  pgblueprint validate --format json    # Output validation results as JSON
  pgblueprint validate --online         # Also compare with the database
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		blueprints, err := validateSource.load()
		if err != nil {
			return err
		}

		var existing []introspect.ExistingTable
		if validateOnline {
			ctx := cmd.Context()
			pool, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if existing, err = introspect.New(pool, dialect(), "").Tables(ctx); err != nil {
				return fmt.Errorf("introspecting database: %w", err)
			}
		}

		result := validator.NewSchemaValidator(dialect()).Validate(blueprints, existing)
		if validateFormat == "json" {
			if err := outputJSON(result); err != nil {
				return err
			}
		} else {
			outputText(result)
		}
		if !result.Valid {
			return fmt.Errorf("schema validation failed with %d error(s)", len(result.Errors))
		}
		return nil
	},
}

func init() {
	validateSource.register(validateCmd)
	validateCmd.Flags().StringVar(&validateFormat, "format", "text", "Output format (text, json)")
	validateCmd.Flags().BoolVar(&validateOnline, "online", false, "Also check against the database")
}

func outputJSON(result *validator.ValidationResult) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputText(result *validator.ValidationResult) {
	if result.Valid {
		color.Green("✅ Schema validation passed!")
	} else {
		color.Red("❌ Schema validation failed!")
	}

	printFindings("\n🔴 Errors (%d):\n", result.Errors)
	printFindings("\n🟡 Warnings (%d):\n", result.Warnings)
	printFindings("\n🔵 Info (%d):\n", result.Info)

	fmt.Printf("\n📊 Summary:\n")
	fmt.Printf("  • Errors: %d\n", len(result.Errors))
	fmt.Printf("  • Warnings: %d\n", len(result.Warnings))
	fmt.Printf("  • Info: %d\n", len(result.Info))
}

func printFindings(header string, findings []validator.ValidationError) {
	if len(findings) == 0 {
		return
	}
	fmt.Printf(header, len(findings))
	for i, f := range findings {
		fmt.Printf("  %d. ", i+1)
		if f.Table != "" {
			fmt.Printf("[%s]", f.Table)
		}
		if f.Column != "" {
			fmt.Printf(".%s", f.Column)
		}
		if f.Index != "" {
			fmt.Printf(" (index: %s)", f.Index)
		}
		fmt.Printf(": %s\n", f.Message)
	}
}
