package introspect

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pgblueprint/grammar"
)

func TestQualify(t *testing.T) {
	assert.Equal(t, "users", Qualify("", "users"))
	assert.Equal(t, "users", Qualify(DefaultSchema, "users"))
	assert.Equal(t, "billing.invoices", Qualify("billing", "invoices"))
}

func TestExistingTable(t *testing.T) {
	table := ExistingTable{
		Schema:    "billing",
		TableName: "invoices",
		Columns:   []ExistingColumn{{ColumnName: "id"}, {ColumnName: "number"}},
		Indexes: []ExistingIndex{
			{IndexName: "pk_billing_invoices", IsPrimary: true},
			{IndexName: "unique_number___billing_invoices", IsUnique: true},
		},
		ForeignKeys: []ExistingForeignKey{{ConstraintName: "foreign_customer_id___billing_invoices"}},
	}

	assert.Equal(t, "billing.invoices", table.QualifiedName())

	col := table.Column("number")
	require.NotNil(t, col)
	assert.Equal(t, "number", col.ColumnName)
	assert.Nil(t, table.Column("missing"))

	assert.Equal(t, map[string]bool{
		"pk_billing_invoices":                    true,
		"unique_number___billing_invoices":       true,
		"foreign_customer_id___billing_invoices": true,
	}, table.Names())
}

func TestNewDefaultsSchema(t *testing.T) {
	assert.Equal(t, DefaultSchema, New(nil, nil, "").schema)
	assert.Equal(t, "crm", New(nil, nil, "crm").schema)
}

// recordingDB answers every query with found rows of one column.
type recordingDB struct {
	found int
	sql   string
	args  []any
}

func (db *recordingDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (db *recordingDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.sql, db.args = sql, args
	return &fakeRows{left: db.found}, nil
}

func (db *recordingDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &fakeRows{}
}

type fakeRows struct {
	left int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.left == 0 {
		return false
	}
	r.left--
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	for _, d := range dest {
		if s, ok := d.(*string); ok {
			*s = "id"
		}
	}
	return nil
}

func TestHasTableFiltersBySchema(t *testing.T) {
	ctx := context.Background()
	p := grammar.NewPostgres("app_")

	db := &recordingDB{found: 1}
	found, err := New(db, p, "").HasTable(ctx, "schema_migrations")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, p.CompileTableExists(), db.sql)
	assert.Equal(t, []any{"app_schema_migrations", DefaultSchema}, db.args)

	db = &recordingDB{}
	found, err = New(db, p, "crm").HasTable(ctx, "billing.invoices")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []any{"app_invoices", "billing"}, db.args)
}

func TestColumnListingFiltersBySchema(t *testing.T) {
	db := &recordingDB{found: 2}
	columns, err := New(db, grammar.NewPostgres(""), "crm").ColumnListing(context.Background(), "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "id"}, columns)
	assert.Equal(t, []any{"users", "crm"}, db.args)
}
