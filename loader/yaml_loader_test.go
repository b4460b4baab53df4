package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ridoystarlord/pgblueprint/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ordersYAML = `
tables:
  - name: shop.orders
    columns:
      - name: id
        type: bigInteger
        auto_increment: true
      - name: code
        type: string
        length: 32
        unique: true
      - name: amount
        type: decimal
        total: 10
        places: 2
      - name: status
        type: enum
        allowed: [open, closed]
        default: open
      - name: meta
        type: jsonb
        nullable: true
      - name: placed_at
        type: timestampTz
        default_expression: now()
    primary: [id]
    indexes:
      - type: lower
        columns: [code]
      - type: clean
        language: ko
        columns: [meta]
    foreign:
      - columns: [user_id]
        references: [id]
        on: users
        on_delete: cascade
`

func TestParseYAML(t *testing.T) {
	blueprints, err := ParseYAML([]byte(ordersYAML))
	require.NoError(t, err)
	require.Len(t, blueprints, 1)

	b := blueprints[0]
	assert.Equal(t, "shop.orders", b.Table)
	assert.True(t, b.Creating())
	require.Len(t, b.Columns, 6)

	id := b.Column("id")
	require.NotNil(t, id)
	assert.Equal(t, schema.TypeBigInteger, id.Type)
	assert.True(t, id.AutoIncrement)

	code := b.Column("code")
	assert.Equal(t, 32, code.Length)
	assert.True(t, code.UniqueKey)

	amount := b.Column("amount")
	assert.Equal(t, 10, amount.Total)
	assert.Equal(t, 2, amount.Places)

	status := b.Column("status")
	assert.Equal(t, []string{"open", "closed"}, status.Allowed)
	assert.Equal(t, "open", status.Default)

	assert.True(t, b.Column("meta").IsNullable)
	assert.Equal(t, schema.Expression("now()"), b.Column("placed_at").Default)

	var names []schema.CommandName
	for _, c := range b.Commands {
		names = append(names, c.Name)
	}
	assert.Equal(t, []schema.CommandName{
		schema.CommandCreate,
		schema.CommandPrimary,
		schema.CommandIndexStringLower,
		schema.CommandIndexClean,
		schema.CommandForeign,
	}, names)

	clean := b.Commands[3]
	assert.Equal(t, schema.LanguageKO, clean.Language)
	fk := b.Commands[4]
	assert.Equal(t, "users", fk.ReferencedTable)
	assert.Equal(t, "cascade", fk.OnDelete)
}

func TestParseYAMLDecimalDefaults(t *testing.T) {
	blueprints, err := ParseYAML([]byte(`
tables:
  - name: prices
    columns:
      - name: value
        type: decimal
`))
	require.NoError(t, err)
	col := blueprints[0].Column("value")
	assert.Equal(t, 8, col.Total)
	assert.Equal(t, 2, col.Places)
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"missing table name", "tables:\n  - columns: []\n", "table name is required"},
		{"unknown type", "tables:\n  - name: t\n    columns:\n      - name: c\n        type: money\n", `unknown column type "money"`},
		{"unknown index", "tables:\n  - name: t\n    indexes:\n      - type: hash\n        columns: [a]\n", `unknown index type "hash"`},
		{"bad language", "tables:\n  - name: t\n    indexes:\n      - type: clean\n        language: xx\n        columns: [a]\n", "xx"},
		{"empty index", "tables:\n  - name: t\n    indexes:\n      - type: gin\n", "has no columns"},
		{"bad yaml", "tables: [", "unmarshalling YAML"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadBlueprintsFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ordersYAML), 0o644))

	blueprints, err := LoadBlueprintsFromYAML(path)
	require.NoError(t, err)
	assert.Len(t, blueprints, 1)

	_, err = LoadBlueprintsFromYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
