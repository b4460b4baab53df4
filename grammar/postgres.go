package grammar

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/pgblueprint/schema"
)

// Fill factors for generated indexes. Primary keys are never updated in
// place; other indexes keep headroom for updates.
const (
	primaryFillFactor = 100
	indexFillFactor   = 70
)

// Postgres is the PostgreSQL statement compiler.
type Postgres struct {
	Grammar
}

var _ Dialect = (*Postgres)(nil)

// NewPostgres returns a PostgreSQL compiler prefixing tables with prefix.
func NewPostgres(prefix string) *Postgres {
	return &Postgres{Grammar: Grammar{TablePrefix: prefix}}
}

func (p *Postgres) CompileTableExists() string {
	return "select * from information_schema.tables where table_name = $1 and table_schema = $2"
}

func (p *Postgres) CompileColumnExists() string {
	return "select column_name from information_schema.columns where table_name = $1 and table_schema = $2"
}

func (p *Postgres) CompileCreate(b *schema.Blueprint, c *schema.Command) (string, error) {
	columns, err := p.columns(b, c)
	if err != nil {
		return "", err
	}

	sql := "create"
	if b.Temporary {
		sql = "create temporary"
	}
	return fmt.Sprintf("%s table %s (%s)", sql, p.WrapTable(b.Table), strings.Join(columns, ", ")), nil
}

func (p *Postgres) CompileAdd(b *schema.Blueprint, c *schema.Command) (string, error) {
	columns, err := p.columns(b, c)
	if err != nil {
		return "", err
	}
	return "alter table " + p.WrapTable(b.Table) + " " + strings.Join(PrefixArray("add column", columns), ", "), nil
}

func (p *Postgres) columns(b *schema.Blueprint, c *schema.Command) ([]string, error) {
	if len(b.Columns) == 0 {
		return nil, malformed(b, c, "columns")
	}
	return p.ColumnDefinitions(b, p)
}

func (p *Postgres) CompilePrimary(b *schema.Blueprint, c *schema.Command) (string, error) {
	if len(c.Columns) == 0 {
		return "", malformed(b, c, "columns")
	}
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s add CONSTRAINT %s primary key (%s) WITH (FILLFACTOR=%d)",
		p.WrapTable(b.Table), indexIdent(name), p.Columnize(c.Columns), primaryFillFactor), nil
}

func (p *Postgres) CompileUnique(b *schema.Blueprint, c *schema.Command) (string, error) {
	if len(c.Columns) == 0 {
		return "", malformed(b, c, "columns")
	}
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s) WITH (FILLFACTOR=%d)",
		indexIdent(name), p.WrapTable(b.Table), p.Columnize(c.Columns), indexFillFactor), nil
}

func (p *Postgres) CompileIndex(b *schema.Blueprint, c *schema.Command) (string, error) {
	if len(c.Columns) == 0 {
		return "", malformed(b, c, "columns")
	}
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s) WITH (FILLFACTOR=%d)",
		indexIdent(name), p.WrapTable(b.Table), p.Columnize(c.Columns), indexFillFactor), nil
}

// CompileIndexStringLower indexes lower(column) for case-insensitive lookups.
func (p *Postgres) CompileIndexStringLower(b *schema.Blueprint, c *schema.Command) (string, error) {
	if len(c.Columns) == 0 {
		return "", malformed(b, c, "columns")
	}
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}
	exprs := make([]string, len(c.Columns))
	for i, col := range c.Columns {
		exprs[i] = "lower(" + p.Wrap(col) + ")"
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s) WITH (FILLFACTOR=%d)",
		indexIdent(name), p.WrapTable(b.Table), strings.Join(exprs, ", "), indexFillFactor), nil
}

// CompileIndexGin creates a GIN index. GIN does not accept a fillfactor.
func (p *Postgres) CompileIndexGin(b *schema.Blueprint, c *schema.Command) (string, error) {
	if len(c.Columns) == 0 {
		return "", malformed(b, c, "columns")
	}
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s USING gin (%s)", indexIdent(name), p.WrapTable(b.Table), p.Columnize(c.Columns)), nil
}

// CompileIndexClean indexes the "<lang>_clean" field of a JSON column as
// text through a btree expression index.
func (p *Postgres) CompileIndexClean(b *schema.Blueprint, c *schema.Command) (string, error) {
	if len(c.Columns) != 1 {
		return "", malformed(b, c, "single json column")
	}
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}
	column := stripQuotes(c.Columns[0])
	if !bareIdentifier(column) {
		column = p.Wrap(column)
	}
	return fmt.Sprintf("CREATE INDEX %s ON %s USING btree (cast (%s->>'%s' as text))",
		indexIdent(name), p.WrapTable(b.Table), column, c.Language.CleanField()), nil
}

var referentialActions = map[string]struct{}{
	"cascade": {}, "restrict": {}, "set null": {}, "set default": {}, "no action": {},
}

func (p *Postgres) CompileForeign(b *schema.Blueprint, c *schema.Command) (string, error) {
	if len(c.Columns) == 0 {
		return "", malformed(b, c, "columns")
	}
	if c.ReferencedTable == "" {
		return "", malformed(b, c, "referenced table")
	}
	if len(c.ReferencedColumns) == 0 {
		return "", malformed(b, c, "referenced columns")
	}
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}

	sql := fmt.Sprintf("alter table %s add constraint %s foreign key (%s) references %s (%s)",
		p.WrapTable(b.Table), indexIdent(name), p.Columnize(c.Columns), p.WrapTable(c.ReferencedTable), p.Columnize(c.ReferencedColumns))

	for _, clause := range []struct{ keyword, action string }{
		{"on delete", c.OnDelete},
		{"on update", c.OnUpdate},
	} {
		if clause.action == "" {
			continue
		}
		action := strings.ToLower(strings.TrimSpace(clause.action))
		if _, ok := referentialActions[action]; !ok {
			return "", malformed(b, c, clause.keyword+" action")
		}
		sql += " " + clause.keyword + " " + action
	}
	return sql, nil
}

func (p *Postgres) CompileDrop(b *schema.Blueprint, c *schema.Command) (string, error) {
	return "drop table " + p.WrapTable(b.Table), nil
}

// CompileDropIfExists cascades so dependent foreign keys do not block the drop.
func (p *Postgres) CompileDropIfExists(b *schema.Blueprint, c *schema.Command) (string, error) {
	return "drop table if exists " + p.WrapTable(b.Table) + " CASCADE", nil
}

func (p *Postgres) CompileDropColumn(b *schema.Blueprint, c *schema.Command) (string, error) {
	if len(c.Columns) == 0 {
		return "", malformed(b, c, "columns")
	}
	columns := PrefixArray("drop column", p.WrapArray(c.Columns))
	return "alter table " + p.WrapTable(b.Table) + " " + strings.Join(columns, ", "), nil
}

// CompileDropPrimary drops the constraint CompilePrimary created.
func (p *Postgres) CompileDropPrimary(b *schema.Blueprint, c *schema.Command) (string, error) {
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s drop constraint %s", p.WrapTable(b.Table), wrapSegment(name)), nil
}

// CompileDropUnique drops the unique index CompileUnique created. Unique
// keys are built as indexes, so they are dropped as indexes.
func (p *Postgres) CompileDropUnique(b *schema.Blueprint, c *schema.Command) (string, error) {
	return p.dropIndex(b, c)
}

func (p *Postgres) CompileDropIndex(b *schema.Blueprint, c *schema.Command) (string, error) {
	return p.dropIndex(b, c)
}

func (p *Postgres) dropIndex(b *schema.Blueprint, c *schema.Command) (string, error) {
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}
	// Indexes live in the schema of their table.
	if s := b.Schema(); s != "" {
		return "drop index " + p.Wrap(s) + "." + wrapSegment(name), nil
	}
	return "drop index " + wrapSegment(name), nil
}

func (p *Postgres) CompileDropForeign(b *schema.Blueprint, c *schema.Command) (string, error) {
	name, err := p.IndexName(b, c)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("alter table %s drop constraint %s", p.WrapTable(b.Table), wrapSegment(name)), nil
}

// CompileRename renames the table within its schema.
func (p *Postgres) CompileRename(b *schema.Blueprint, c *schema.Command) (string, error) {
	if c.To == "" {
		return "", malformed(b, c, "target table name")
	}
	to := c.To
	if i := strings.LastIndex(to, "."); i >= 0 {
		if to[:i] != b.Schema() {
			return "", malformed(b, c, "target in the same schema")
		}
		to = to[i+1:]
	}
	return fmt.Sprintf("alter table %s rename to %s", p.WrapTable(b.Table), p.Wrap(p.Table(to))), nil
}

// indexIdent writes generated names bare and quotes anything else.
func indexIdent(name string) string {
	if bareIdentifier(name) {
		return name
	}
	return wrapSegment(name)
}

// IndexName returns the identifier an index, unique, foreign or primary
// command creates, or the explicit name set on the command.
func (p *Postgres) IndexName(b *schema.Blueprint, c *schema.Command) (string, error) {
	if c.Index != "" {
		return c.Index, nil
	}
	table := p.Table(b.Table)
	if c.Name == schema.CommandPrimary || c.Name == schema.CommandDropPrimary {
		return primaryKeyName(table), nil
	}
	if len(c.Columns) == 0 {
		return "", malformed(b, c, "columns")
	}

	switch c.Name {
	case schema.CommandUnique, schema.CommandDropUnique:
		return indexName("unique_", c.Columns, "", table), nil
	case schema.CommandIndex, schema.CommandDropIndex:
		return indexName("index_", c.Columns, "", table), nil
	case schema.CommandIndexStringLower:
		return indexName("index_", c.Columns, "_lower", table), nil
	case schema.CommandIndexGin:
		return indexName("index_", c.Columns, "_gin", table), nil
	case schema.CommandIndexClean:
		if !c.Language.Valid() {
			return "", malformed(b, c, "clean index language")
		}
		return indexName("index_", c.Columns, "__"+c.Language.CleanField(), table), nil
	case schema.CommandForeign, schema.CommandDropForeign:
		return indexName("foreign_", c.Columns, "", table), nil
	default:
		return "", malformed(b, c, "index-creating command")
	}
}
