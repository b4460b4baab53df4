package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pgblueprint/grammar"
	"github.com/ridoystarlord/pgblueprint/introspect"
	"github.com/ridoystarlord/pgblueprint/schema"
)

func newValidator() *SchemaValidator {
	return NewSchemaValidator(grammar.NewPostgres(""))
}

func types(errs []ValidationError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Type)
	}
	return out
}

func TestValidateCleanSchema(t *testing.T) {
	users := schema.NewBlueprint("users")
	users.Create()
	users.Increments("id")
	users.String("email", 0).Unique()

	posts := schema.NewBlueprint("posts")
	posts.Create()
	posts.Increments("id")
	posts.Integer("user_id")
	posts.JSONB("meta")
	posts.IndexClean(schema.LanguageJA, "meta")
	posts.Foreign("user_id").References("id").On("users").OnDeleteAction("cascade")

	result := newValidator().Validate([]*schema.Blueprint{users, posts}, nil)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
}

func TestValidateReportsProblems(t *testing.T) {
	orders := schema.NewBlueprint("order")
	orders.Create()
	orders.Integer("id")
	orders.Integer("id")
	orders.AddColumn(schema.ColumnType("money"), "total")
	orders.Index("missing")
	orders.Foreign("customer_id").References("id").On("customers")
	orders.Foreign("id").References("nope").On("order")

	result := newValidator().Validate([]*schema.Blueprint{orders}, nil)
	require.False(t, result.Valid)
	assert.ElementsMatch(t, []string{"duplicate_column", "unsupported_type", "index_column", "index_column", "foreign_key"}, types(result.Errors))
	assert.ElementsMatch(t, []string{"reserved_keyword", "foreign_key"}, types(result.Warnings))
	for _, e := range result.Errors {
		assert.Equal(t, "error", e.Severity)
	}
}

func TestValidateDetectsNameCollisions(t *testing.T) {
	first := schema.NewBlueprint("a_b")
	first.Create()
	first.Integer("x").Index()

	second := schema.NewBlueprint("c")
	second.Integer("x")
	second.Index("x").Named("index_x___a_b")

	result := newValidator().Validate([]*schema.Blueprint{first, second}, nil)
	assert.Contains(t, types(result.Errors), "index_name")
}

func TestValidateDuplicateTableAndExisting(t *testing.T) {
	a := schema.NewBlueprint("accounts")
	a.Create()
	a.Increments("id")
	b := schema.NewBlueprint("accounts")
	b.Create()
	b.Increments("id")

	existing := []introspect.ExistingTable{{Schema: "public", TableName: "accounts"}}
	result := newValidator().Validate([]*schema.Blueprint{a, b}, existing)
	assert.Contains(t, types(result.Errors), "duplicate_table")
	assert.Contains(t, types(result.Info), "table_exists")
}

func TestValidateAlterWarnsOnNotNullWithoutDefault(t *testing.T) {
	b := schema.NewBlueprint("users")
	b.Integer("age")
	b.Integer("score").WithDefault(0)

	result := newValidator().Validate([]*schema.Blueprint{b}, nil)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, "age", result.Warnings[0].Column)
}
