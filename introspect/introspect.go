package introspect

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ridoystarlord/pgblueprint/database"
)

// DefaultSchema is inspected when no schema is given.
const DefaultSchema = "public"

// maxConcurrentReads bounds the per-table catalog queries in flight.
const maxConcurrentReads = 4

type ExistingTable struct {
	Schema      string
	TableName   string
	Columns     []ExistingColumn
	ForeignKeys []ExistingForeignKey
	Indexes     []ExistingIndex
}

// QualifiedName returns the table name as blueprints spell it: bare for the
// default schema, "schema.table" otherwise.
func (t ExistingTable) QualifiedName() string {
	return Qualify(t.Schema, t.TableName)
}

// Column returns the column named name, or nil.
func (t ExistingTable) Column(name string) *ExistingColumn {
	for i := range t.Columns {
		if t.Columns[i].ColumnName == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// Names returns every index and constraint name on the table.
func (t ExistingTable) Names() map[string]bool {
	names := make(map[string]bool, len(t.Indexes)+len(t.ForeignKeys))
	for _, idx := range t.Indexes {
		names[idx.IndexName] = true
	}
	for _, fk := range t.ForeignKeys {
		names[fk.ConstraintName] = true
	}
	return names
}

type ExistingColumn struct {
	ColumnName    string
	DataType      string
	IsNullable    bool
	ColumnDefault *string
}

type ExistingForeignKey struct {
	ConstraintName   string
	ColumnName       string
	ReferencesTable  string
	ReferencesColumn string
	OnDelete         string
	OnUpdate         string
}

type ExistingIndex struct {
	IndexName string
	TableName string
	Columns   []string
	IsUnique  bool
	IsPrimary bool
	IndexType string
}

// Qualify joins schema and table, omitting the default schema.
func Qualify(schemaName, table string) string {
	if schemaName == "" || schemaName == DefaultSchema {
		return table
	}
	return schemaName + "." + table
}

// Dialect supplies the existence queries and the table naming rules.
type Dialect interface {
	CompileTableExists() string
	CompileColumnExists() string
	Table(table string) string
}

// Inspector reads table structure from the database catalog. Tables issues
// queries concurrently, so db must be safe for concurrent use (a pool, not a
// transaction).
type Inspector struct {
	db      database.Querier
	dialect Dialect
	schema  string
}

func New(db database.Querier, dialect Dialect, schemaName string) *Inspector {
	if schemaName == "" {
		schemaName = DefaultSchema
	}
	return &Inspector{db: db, dialect: dialect, schema: schemaName}
}

// HasTable reports whether the (prefixed) table exists in its schema: the
// qualifier of table, or the inspected schema.
func (i *Inspector) HasTable(ctx context.Context, table string) (bool, error) {
	schemaName, name := i.split(i.dialect.Table(table))
	rows, err := i.db.Query(ctx, i.dialect.CompileTableExists(), name, schemaName)
	if err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	defer rows.Close()

	found := rows.Next()
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("checking table %s: %w", table, err)
	}
	return found, nil
}

// ColumnListing returns the column names of the (prefixed) table.
func (i *Inspector) ColumnListing(ctx context.Context, table string) ([]string, error) {
	schemaName, name := i.split(i.dialect.Table(table))
	rows, err := i.db.Query(ctx, i.dialect.CompileColumnExists(), name, schemaName)
	if err != nil {
		return nil, fmt.Errorf("listing columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column name: %w", err)
		}
		columns = append(columns, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating column rows: %w", err)
	}
	return columns, nil
}

// Tables reads every base table of the inspected schema.
func (i *Inspector) Tables(ctx context.Context) ([]ExistingTable, error) {
	rows, err := i.db.Query(ctx, `
	SELECT table_name
	FROM information_schema.tables
	WHERE table_schema = $1 AND table_type = 'BASE TABLE'
	ORDER BY table_name`, i.schema)
	if err != nil {
		return nil, fmt.Errorf("querying tables: %w", err)
	}
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning table name: %w", err)
		}
		names = append(names, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating table rows: %w", err)
	}

	tables := make([]ExistingTable, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReads)
	for n, name := range names {
		n, name := n, name
		g.Go(func() error {
			t, err := i.table(gctx, name)
			if err != nil {
				return fmt.Errorf("reading table %s: %w", name, err)
			}
			tables[n] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tables, nil
}

func (i *Inspector) table(ctx context.Context, name string) (ExistingTable, error) {
	t := ExistingTable{Schema: i.schema, TableName: name}
	var err error
	if t.Columns, err = i.columns(ctx, name); err != nil {
		return t, err
	}
	if t.ForeignKeys, err = i.foreignKeys(ctx, name); err != nil {
		return t, err
	}
	if t.Indexes, err = i.indexes(ctx, name); err != nil {
		return t, err
	}
	return t, nil
}

func (i *Inspector) columns(ctx context.Context, table string) ([]ExistingColumn, error) {
	rows, err := i.db.Query(ctx, `
	SELECT column_name, data_type, (is_nullable = 'YES'), column_default
	FROM information_schema.columns
	WHERE table_schema = $1 AND table_name = $2
	ORDER BY ordinal_position`, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	defer rows.Close()

	var columns []ExistingColumn
	for rows.Next() {
		var col ExistingColumn
		if err := rows.Scan(&col.ColumnName, &col.DataType, &col.IsNullable, &col.ColumnDefault); err != nil {
			return nil, fmt.Errorf("scanning column: %w", err)
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating column rows: %w", err)
	}
	return columns, nil
}

func (i *Inspector) foreignKeys(ctx context.Context, table string) ([]ExistingForeignKey, error) {
	rows, err := i.db.Query(ctx, `
	SELECT
		tc.constraint_name,
		kcu.column_name,
		ccu.table_name,
		ccu.column_name,
		lower(coalesce(rc.delete_rule, '')),
		lower(coalesce(rc.update_rule, ''))
	FROM information_schema.table_constraints AS tc
	JOIN information_schema.key_column_usage AS kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.constraint_column_usage AS ccu
		ON ccu.constraint_name = tc.constraint_name
		AND ccu.table_schema = tc.table_schema
	LEFT JOIN information_schema.referential_constraints AS rc
		ON tc.constraint_name = rc.constraint_name
		AND tc.table_schema = rc.constraint_schema
	WHERE tc.constraint_type = 'FOREIGN KEY'
		AND tc.table_schema = $1
		AND tc.table_name = $2
	ORDER BY tc.constraint_name`, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying foreign keys: %w", err)
	}
	defer rows.Close()

	var foreignKeys []ExistingForeignKey
	for rows.Next() {
		var fk ExistingForeignKey
		if err := rows.Scan(
			&fk.ConstraintName,
			&fk.ColumnName,
			&fk.ReferencesTable,
			&fk.ReferencesColumn,
			&fk.OnDelete,
			&fk.OnUpdate,
		); err != nil {
			return nil, fmt.Errorf("scanning foreign key: %w", err)
		}
		foreignKeys = append(foreignKeys, fk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating foreign key rows: %w", err)
	}
	return foreignKeys, nil
}

func (i *Inspector) indexes(ctx context.Context, table string) ([]ExistingIndex, error) {
	rows, err := i.db.Query(ctx, `
	SELECT
		ic.relname,
		tc.relname,
		coalesce(array_agg(a.attname ORDER BY a.attnum) FILTER (WHERE a.attname IS NOT NULL), '{}'),
		ix.indisunique,
		ix.indisprimary,
		am.amname
	FROM pg_class tc
	JOIN pg_namespace n ON n.oid = tc.relnamespace
	JOIN pg_index ix ON ix.indrelid = tc.oid
	JOIN pg_class ic ON ic.oid = ix.indexrelid
	JOIN pg_am am ON am.oid = ic.relam
	LEFT JOIN pg_attribute a ON a.attrelid = tc.oid AND a.attnum = ANY(ix.indkey)
	WHERE n.nspname = $1 AND tc.relname = $2
	GROUP BY ic.relname, tc.relname, ix.indisunique, ix.indisprimary, am.amname
	ORDER BY ic.relname`, i.schema, table)
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}
	defer rows.Close()

	var indexes []ExistingIndex
	for rows.Next() {
		var idx ExistingIndex
		if err := rows.Scan(
			&idx.IndexName,
			&idx.TableName,
			&idx.Columns,
			&idx.IsUnique,
			&idx.IsPrimary,
			&idx.IndexType,
		); err != nil {
			return nil, fmt.Errorf("scanning index: %w", err)
		}
		indexes = append(indexes, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index rows: %w", err)
	}
	return indexes, nil
}

// split returns the schema and bare name of table, defaulting to the
// inspected schema.
func (i *Inspector) split(table string) (string, string) {
	if at := strings.LastIndex(table, "."); at >= 0 {
		return table[:at], table[at+1:]
	}
	return i.schema, table
}
