package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ridoystarlord/pgblueprint/diff"
	"github.com/ridoystarlord/pgblueprint/grammar"
	"github.com/ridoystarlord/pgblueprint/schema"
)

var (
	diffSource blueprintSource
	diffPrune  bool
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show differences between the blueprints and the database",
	Long: `Show, per table, the changes generate would write.

Examples:
  pgblueprint diff           # Show differences for the configured schema.yaml
  pgblueprint diff --prune   # Include drops of undeclared columns and indexes
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		changes, err := planChanges(cmd, &diffSource, diff.Options{Prune: diffPrune})
		if err != nil {
			return err
		}
		if len(changes) == 0 {
			color.Green("✅ No differences found between blueprints and database")
			return nil
		}
		showDiff(changes)
		return nil
	},
}

func init() {
	diffSource.register(diffCmd)
	diffCmd.Flags().BoolVar(&diffPrune, "prune", false, "Include drops of undeclared columns, indexes and foreign keys")
}

func showDiff(changes []*schema.Blueprint) {
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Println("🌳 Schema Changes")
	fmt.Println(strings.Repeat("=", 50))
	d := dialect()
	for _, b := range changes {
		switch {
		case b.Creating():
			green.Printf("+ %s\n", b.Table)
		case isTableDrop(b):
			red.Printf("- %s\n", b.Table)
		default:
			yellow.Printf("~ %s\n", b.Table)
		}

		for _, col := range b.Columns {
			if !b.Creating() {
				green.Printf("    + column %s (%s)\n", col.Name, col.Type)
			}
		}
		for _, c := range grammar.Commands(b) {
			line := describe(d, b, c)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "-") {
				red.Printf("    %s\n", line)
			} else {
				green.Printf("    %s\n", line)
			}
		}
	}
}

func isTableDrop(b *schema.Blueprint) bool {
	for _, c := range b.Commands {
		if c.Name == schema.CommandDrop || c.Name == schema.CommandDropIfExists {
			return true
		}
	}
	return false
}

// describe renders one command as a diff line, or "" for commands shown
// elsewhere.
func describe(d *grammar.Postgres, b *schema.Blueprint, c *schema.Command) string {
	switch c.Name {
	case schema.CommandCreate, schema.CommandAdd, schema.CommandDrop, schema.CommandDropIfExists:
		return ""
	case schema.CommandDropColumn:
		return "- columns " + strings.Join(c.Columns, ", ")
	case schema.CommandDropIndex, schema.CommandDropUnique, schema.CommandDropForeign, schema.CommandDropPrimary:
		name, err := d.IndexName(b, c)
		if err != nil {
			return "- " + string(c.Name)
		}
		return "- " + name
	case schema.CommandRename:
		return "~ rename to " + c.To
	default:
		name, err := d.IndexName(b, c)
		if err != nil {
			return "+ " + string(c.Name)
		}
		return fmt.Sprintf("+ %s %s (%s)", c.Name, name, strings.Join(c.Columns, ", "))
	}
}
