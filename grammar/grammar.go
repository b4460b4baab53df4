// Package grammar compiles schema blueprints into DDL statements.
//
// A dialect implements StatementCompiler. Shared behaviour such as quoting,
// column iteration and ordered modifier composition lives in Grammar, which
// dialects embed and override per operation.
package grammar

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/pgblueprint/schema"
)

// StatementCompiler renders one statement per command kind.
type StatementCompiler interface {
	CompileCreate(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileAdd(b *schema.Blueprint, c *schema.Command) (string, error)
	CompilePrimary(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileUnique(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileIndex(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileIndexStringLower(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileIndexGin(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileIndexClean(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileForeign(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileDrop(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileDropIfExists(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileDropColumn(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileDropPrimary(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileDropUnique(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileDropIndex(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileDropForeign(b *schema.Blueprint, c *schema.Command) (string, error)
	CompileRename(b *schema.Blueprint, c *schema.Command) (string, error)

	// CompileTableExists returns a query taking the table name as $1 and
	// its schema as $2.
	CompileTableExists() string
	// CompileColumnExists returns a query listing column names of table $1
	// in schema $2.
	CompileColumnExists() string
}

// IndexNamer derives the identifier an index-creating command produces.
type IndexNamer interface {
	IndexName(b *schema.Blueprint, c *schema.Command) (string, error)
}

// Dialect is a statement compiler that can also name what it creates.
type Dialect interface {
	StatementCompiler
	IndexNamer
}

// Modifier renders one trailing column clause, or "" when it does not apply.
type Modifier func(b *schema.Blueprint, col *schema.Column) (string, error)

// ColumnTyper maps columns to dialect types and lists the dialect modifiers
// in the order they must appear.
type ColumnTyper interface {
	TypeSQL(col *schema.Column) (string, error)
	Modifiers() []Modifier
}

// Grammar holds the dialect-independent helpers.
type Grammar struct {
	// TablePrefix is prepended to the unqualified part of every table name.
	TablePrefix string
}

// Wrap quotes an identifier, treating "." as a qualifier separator.
func (g Grammar) Wrap(value string) string {
	segments := strings.Split(value, ".")
	for i, s := range segments {
		segments[i] = wrapSegment(s)
	}
	return strings.Join(segments, ".")
}

func wrapSegment(s string) string {
	if s == "*" {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Table returns the prefixed table name, keeping any schema qualifier.
func (g Grammar) Table(table string) string {
	if g.TablePrefix == "" {
		return table
	}
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[:i+1] + g.TablePrefix + table[i+1:]
	}
	return g.TablePrefix + table
}

// Unprefixed reverses Table. It reports false when the unqualified part of
// table does not carry the prefix.
func (g Grammar) Unprefixed(table string) (string, bool) {
	qualifier, name := "", table
	if i := strings.LastIndex(table, "."); i >= 0 {
		qualifier, name = table[:i+1], table[i+1:]
	}
	if !strings.HasPrefix(name, g.TablePrefix) {
		return table, false
	}
	return qualifier + strings.TrimPrefix(name, g.TablePrefix), true
}

// WrapTable quotes the prefixed table name.
func (g Grammar) WrapTable(table string) string {
	return g.Wrap(g.Table(table))
}

func (g Grammar) WrapArray(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = g.Wrap(v)
	}
	return out
}

// Columnize quotes and comma-joins a column list.
func (g Grammar) Columnize(columns []string) string {
	return strings.Join(g.WrapArray(columns), ", ")
}

// PrefixArray prepends prefix and a space to every value.
func PrefixArray(prefix string, values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = prefix + " " + v
	}
	return out
}

// ColumnDefinitions renders every blueprint column as
// "<name> <type><modifiers...>", modifiers in typer order.
func (g Grammar) ColumnDefinitions(b *schema.Blueprint, typer ColumnTyper) ([]string, error) {
	defs := make([]string, 0, len(b.Columns))
	for _, col := range b.Columns {
		if col == nil || col.Name == "" {
			return nil, &MalformedCommandError{Table: b.Table, Field: "column name"}
		}
		typ, err := typer.TypeSQL(col)
		if err != nil {
			return nil, err
		}
		var sql strings.Builder
		sql.WriteString(g.Wrap(col.Name))
		sql.WriteByte(' ')
		sql.WriteString(typ)
		for _, modify := range typer.Modifiers() {
			clause, err := modify(b, col)
			if err != nil {
				return nil, err
			}
			sql.WriteString(clause)
		}
		defs = append(defs, sql.String())
	}
	return defs, nil
}

// DefaultValue formats a column default as a SQL literal. Expressions are
// emitted verbatim.
func (g Grammar) DefaultValue(v any) string {
	switch val := v.(type) {
	case schema.Expression:
		return string(val)
	case bool:
		if val {
			return "'1'"
		}
		return "'0'"
	case string:
		return quoteLiteral(val)
	default:
		return quoteLiteral(fmt.Sprint(val))
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Compile dispatches a single command to its compile method.
func Compile(sc StatementCompiler, b *schema.Blueprint, c *schema.Command) (string, error) {
	if b == nil || b.Table == "" {
		return "", malformed(b, c, "table name")
	}
	if c == nil {
		return "", malformed(b, nil, "command")
	}
	switch c.Name {
	case schema.CommandCreate:
		return sc.CompileCreate(b, c)
	case schema.CommandAdd:
		return sc.CompileAdd(b, c)
	case schema.CommandPrimary:
		return sc.CompilePrimary(b, c)
	case schema.CommandUnique:
		return sc.CompileUnique(b, c)
	case schema.CommandIndex:
		return sc.CompileIndex(b, c)
	case schema.CommandIndexStringLower:
		return sc.CompileIndexStringLower(b, c)
	case schema.CommandIndexGin:
		return sc.CompileIndexGin(b, c)
	case schema.CommandIndexClean:
		return sc.CompileIndexClean(b, c)
	case schema.CommandForeign:
		return sc.CompileForeign(b, c)
	case schema.CommandDrop:
		return sc.CompileDrop(b, c)
	case schema.CommandDropIfExists:
		return sc.CompileDropIfExists(b, c)
	case schema.CommandDropColumn:
		return sc.CompileDropColumn(b, c)
	case schema.CommandDropPrimary:
		return sc.CompileDropPrimary(b, c)
	case schema.CommandDropUnique:
		return sc.CompileDropUnique(b, c)
	case schema.CommandDropIndex:
		return sc.CompileDropIndex(b, c)
	case schema.CommandDropForeign:
		return sc.CompileDropForeign(b, c)
	case schema.CommandRename:
		return sc.CompileRename(b, c)
	default:
		return "", malformed(b, c, "known command name")
	}
}

// ToSQL compiles every command of the blueprint, including the implicit
// ones, in order. Nothing is returned unless all commands compile.
func ToSQL(sc StatementCompiler, b *schema.Blueprint) ([]string, error) {
	if b == nil || b.Table == "" {
		return nil, malformed(b, nil, "table name")
	}
	commands := Commands(b)
	statements := make([]string, 0, len(commands))
	for _, c := range commands {
		sql, err := Compile(sc, b, c)
		if err != nil {
			return nil, err
		}
		statements = append(statements, sql)
	}
	return statements, nil
}

// Commands returns the blueprint commands with the implicit ones added: an
// add command first when columns are added to an existing table, and one
// index command per fluent column flag at the end. The blueprint is not
// modified.
func Commands(b *schema.Blueprint) []*schema.Command {
	commands := make([]*schema.Command, 0, len(b.Commands)+1)
	if len(b.Columns) > 0 && !b.Creating() {
		commands = append(commands, &schema.Command{Name: schema.CommandAdd})
	}
	commands = append(commands, b.Commands...)

	for _, col := range b.Columns {
		if col == nil {
			continue
		}
		if col.PrimaryKey {
			commands = append(commands, &schema.Command{Name: schema.CommandPrimary, Columns: []string{col.Name}})
		}
		if col.UniqueKey {
			commands = append(commands, &schema.Command{Name: schema.CommandUnique, Columns: []string{col.Name}})
		}
		if col.IndexKey {
			commands = append(commands, &schema.Command{Name: schema.CommandIndex, Columns: []string{col.Name}})
		}
	}
	return commands
}
