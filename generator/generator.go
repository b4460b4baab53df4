package generator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ridoystarlord/pgblueprint/grammar"
	"github.com/ridoystarlord/pgblueprint/schema"
)

// Migration is the compiled form of a set of blueprints.
type Migration struct {
	Label string
	Up    []string
	Down  []string
}

// Build compiles the blueprints into up statements and the rollback
// statements that undo them.
func Build(d grammar.Dialect, label string, blueprints []*schema.Blueprint) (*Migration, error) {
	up, err := GenerateSQL(d, blueprints)
	if err != nil {
		return nil, err
	}
	down, err := GenerateRollbackSQL(d, blueprints)
	if err != nil {
		return nil, err
	}
	return &Migration{Label: label, Up: up, Down: down}, nil
}

// GenerateSQL compiles every blueprint in order.
func GenerateSQL(sc grammar.StatementCompiler, blueprints []*schema.Blueprint) ([]string, error) {
	var statements []string
	for _, b := range blueprints {
		sql, err := grammar.ToSQL(sc, b)
		if err != nil {
			return nil, fmt.Errorf("compile %s: %w", tableOf(b), err)
		}
		statements = append(statements, sql...)
	}
	return statements, nil
}

// GenerateRollbackSQL returns the statements that undo GenerateSQL, last
// change first. Destructive commands cannot be undone and produce a comment.
func GenerateRollbackSQL(d grammar.Dialect, blueprints []*schema.Blueprint) ([]string, error) {
	var statements []string
	for i := len(blueprints) - 1; i >= 0; i-- {
		b := blueprints[i]
		if b == nil || b.Table == "" {
			return nil, fmt.Errorf("rollback: %w", &grammar.MalformedCommandError{Field: "table name"})
		}
		inverse, err := inverseCommands(d, b)
		if err != nil {
			return nil, fmt.Errorf("rollback %s: %w", b.Table, err)
		}
		for j := len(inverse) - 1; j >= 0; j-- {
			step := inverse[j]
			if step.comment != "" {
				statements = append(statements, step.comment)
				continue
			}
			sql, err := grammar.Compile(d, step.blueprint, step.command)
			if err != nil {
				return nil, fmt.Errorf("rollback %s: %w", b.Table, err)
			}
			statements = append(statements, sql)
		}
	}
	return statements, nil
}

type inverseStep struct {
	blueprint *schema.Blueprint
	command   *schema.Command
	comment   string
}

// inverseCommands lists the undo step of each command, in forward order.
// A created table is simply dropped, which also removes its indexes.
func inverseCommands(d grammar.Dialect, b *schema.Blueprint) ([]inverseStep, error) {
	target := schema.NewBlueprint(b.Table)
	if b.Creating() {
		return []inverseStep{{blueprint: target, command: &schema.Command{Name: schema.CommandDropIfExists}}}, nil
	}

	var steps []inverseStep
	for _, c := range grammar.Commands(b) {
		switch c.Name {
		case schema.CommandAdd:
			names := make([]string, 0, len(b.Columns))
			for _, col := range b.Columns {
				names = append(names, col.Name)
			}
			steps = append(steps, inverseStep{blueprint: target, command: &schema.Command{Name: schema.CommandDropColumn, Columns: names}})

		case schema.CommandPrimary:
			name, err := d.IndexName(b, c)
			if err != nil {
				return nil, err
			}
			steps = append(steps, inverseStep{blueprint: target, command: (&schema.Command{Name: schema.CommandDropPrimary}).Named(name)})

		case schema.CommandUnique:
			name, err := d.IndexName(b, c)
			if err != nil {
				return nil, err
			}
			steps = append(steps, inverseStep{blueprint: target, command: (&schema.Command{Name: schema.CommandDropUnique}).Named(name)})

		case schema.CommandIndex, schema.CommandIndexStringLower, schema.CommandIndexGin, schema.CommandIndexClean:
			name, err := d.IndexName(b, c)
			if err != nil {
				return nil, err
			}
			steps = append(steps, inverseStep{blueprint: target, command: (&schema.Command{Name: schema.CommandDropIndex}).Named(name)})

		case schema.CommandForeign:
			name, err := d.IndexName(b, c)
			if err != nil {
				return nil, err
			}
			steps = append(steps, inverseStep{blueprint: target, command: (&schema.Command{Name: schema.CommandDropForeign}).Named(name)})

		case schema.CommandRename:
			renamed := c.To
			if s := b.Schema(); s != "" && !strings.Contains(renamed, ".") {
				renamed = s + "." + renamed
			}
			original := b.Table[strings.LastIndex(b.Table, ".")+1:]
			steps = append(steps, inverseStep{
				blueprint: schema.NewBlueprint(renamed),
				command:   &schema.Command{Name: schema.CommandRename, To: original},
			})

		default:
			steps = append(steps, inverseStep{comment: fmt.Sprintf("-- irreversible: %s on %s", c.Name, b.Table)})
		}
	}
	return steps, nil
}

func tableOf(b *schema.Blueprint) string {
	if b == nil {
		return "<nil>"
	}
	return b.Table
}

var labelPattern = regexp.MustCompile(`[^a-z0-9_]+`)

// FileName returns "<timestamp>_<label>.sql" with the label reduced to
// lowercase letters, digits and underscores.
func FileName(label string, now time.Time) string {
	label = strings.Trim(labelPattern.ReplaceAllString(strings.ToLower(label), "_"), "_")
	if label == "" {
		label = "migration"
	}
	return fmt.Sprintf("%s_%s.sql", now.Format("20060102150405"), label)
}

// Render formats the migration file with up/down sections.
func Render(m *Migration, now time.Time) string {
	var sb strings.Builder
	sb.WriteString("-- Migration: " + now.Format("20060102150405") + "\n")
	if m.Label != "" {
		sb.WriteString("-- Description: " + m.Label + "\n")
	}
	sb.WriteString("\n-- Up Migration\n")
	sb.WriteString("-- ============\n")
	for _, stmt := range m.Up {
		sb.WriteString(terminate(stmt) + "\n")
	}

	sb.WriteString("\n-- Down Migration (Rollback)\n")
	sb.WriteString("-- =======================\n")
	for _, stmt := range m.Down {
		sb.WriteString(terminate(stmt) + "\n")
	}
	return sb.String()
}

func terminate(stmt string) string {
	if strings.HasPrefix(stmt, "--") || strings.HasSuffix(stmt, ";") {
		return stmt
	}
	return stmt + ";"
}

// WriteMigrationFile saves the migration into dir, creating it if needed,
// and returns the file path.
func WriteMigrationFile(ctx context.Context, dir string, m *Migration, now time.Time) (string, error) {
	if len(m.Up) == 0 {
		return "", fmt.Errorf("migration %q has no statements", m.Label)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations folder: %w", err)
	}

	path := filepath.Join(dir, FileName(m.Label, now))
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("migration file %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(Render(m, now)), 0o644); err != nil {
		return "", fmt.Errorf("writing migration file: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("file", path).
		Int("up", len(m.Up)).
		Int("down", len(m.Down)).
		Msg("migration written")
	return path, nil
}
