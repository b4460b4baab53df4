package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pgblueprint/schema"
)

func TestBlueprintColumns(t *testing.T) {
	b := schema.NewBlueprint("users")
	b.Increments("id")
	b.String("email", 0).Unique()
	b.Char("country", 0)
	b.Decimal("balance", 0, -1)
	b.Enum("role", "admin", "member")
	b.Timestamps()

	require.Len(t, b.Columns, 7)

	id := b.Column("id")
	require.NotNil(t, id)
	assert.Equal(t, schema.TypeInteger, id.Type)
	assert.True(t, id.AutoIncrement)

	email := b.Column("email")
	assert.Equal(t, schema.DefaultStringLength, email.Length)
	assert.True(t, email.UniqueKey)

	assert.Equal(t, schema.DefaultStringLength, b.Column("country").Length)

	balance := b.Column("balance")
	assert.Equal(t, 8, balance.Total)
	assert.Equal(t, 2, balance.Places)

	assert.Equal(t, []string{"admin", "member"}, b.Column("role").Allowed)

	created := b.Column("created_at")
	assert.Equal(t, schema.TypeTimestamp, created.Type)
	assert.True(t, created.IsNullable)

	assert.Nil(t, b.Column("missing"))
}

func TestBlueprintCommands(t *testing.T) {
	b := schema.NewBlueprint("posts")
	assert.False(t, b.Creating())

	b.Create()
	b.Foreign("user_id").References("id").On("users").OnDeleteAction("cascade")
	b.IndexClean(schema.LanguageJA, "title")
	b.Rename("articles")

	assert.True(t, b.Creating())
	require.Len(t, b.Commands, 4)

	fk := b.Commands[1]
	assert.Equal(t, schema.CommandForeign, fk.Name)
	assert.Equal(t, []string{"user_id"}, fk.Columns)
	assert.Equal(t, []string{"id"}, fk.ReferencedColumns)
	assert.Equal(t, "users", fk.ReferencedTable)
	assert.Equal(t, "cascade", fk.OnDelete)

	clean := b.Commands[2]
	assert.Equal(t, schema.LanguageJA, clean.Language)
	assert.Equal(t, []string{"title"}, clean.Columns)

	assert.Equal(t, "articles", b.Commands[3].To)
}

func TestBlueprintSchema(t *testing.T) {
	assert.Equal(t, "", schema.NewBlueprint("users").Schema())
	assert.Equal(t, "billing", schema.NewBlueprint("billing.invoices").Schema())
}

func TestColumnDefault(t *testing.T) {
	c := &schema.Column{Name: "n"}
	assert.False(t, c.HasDefault())

	c.WithDefault(0)
	assert.True(t, c.HasDefault())

	c.WithDefault(schema.Expression("now()"))
	assert.Equal(t, schema.Expression("now()"), c.Default)
}

func TestColumnTypeKnown(t *testing.T) {
	assert.True(t, schema.TypeJSONB.Known())
	assert.True(t, schema.TypeTimestampTz.Known())
	assert.False(t, schema.ColumnType("money").Known())
}

func TestLanguages(t *testing.T) {
	langs := schema.Languages()
	require.Len(t, langs, 10)
	assert.Equal(t, schema.LanguageCN, langs[0])
	assert.Equal(t, schema.LanguagePT, langs[9])

	langs[0] = "zz"
	assert.Equal(t, schema.LanguageCN, schema.Languages()[0])

	for _, l := range schema.Languages() {
		assert.True(t, l.Valid())
		assert.Equal(t, string(l)+"_clean", l.CleanField())
	}

	l, err := schema.ParseLanguage("fr")
	require.NoError(t, err)
	assert.Equal(t, schema.LanguageFR, l)

	_, err = schema.ParseLanguage("nl")
	assert.Error(t, err)
}
