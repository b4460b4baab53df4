package grammar_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridoystarlord/pgblueprint/grammar"
	"github.com/ridoystarlord/pgblueprint/schema"
)

func compileOne(t *testing.T, b *schema.Blueprint, c *schema.Command) string {
	t.Helper()
	sql, err := grammar.Compile(grammar.NewPostgres(""), b, c)
	require.NoError(t, err)
	return sql
}

func TestCompileCreate(t *testing.T) {
	b := schema.NewBlueprint("users")
	b.Create()
	b.Increments("id")
	b.String("email", 0)
	b.Boolean("active").WithDefault(true)
	b.TimestampTz("created_at").CurrentTimestamp()

	sql := compileOne(t, b, b.Commands[0])
	assert.Equal(t, `create table "users" (`+
		`"id" serial primary key not null, `+
		`"email" varchar(255) not null, `+
		`"active" boolean not null default '1', `+
		`"created_at" timestamp(0) with time zone default CURRENT_TIMESTAMP(0) not null)`, sql)
}

func TestCompileCreateTemporary(t *testing.T) {
	b := schema.NewBlueprint("scratch").Temp()
	b.Create()
	b.Text("body").Nullable()

	assert.Equal(t, `create temporary table "scratch" ("body" text null)`, compileOne(t, b, b.Commands[0]))
}

func TestCompileCreateRequiresColumns(t *testing.T) {
	b := schema.NewBlueprint("empty")
	cmd := b.Create()

	_, err := grammar.Compile(grammar.NewPostgres(""), b, cmd)
	require.Error(t, err)
	assert.True(t, grammar.IsMalformedCommand(err))
}

func TestCompileAdd(t *testing.T) {
	b := schema.NewBlueprint("users")
	b.String("nickname", 40).Nullable()
	b.Integer("age").WithDefault(0)

	stmts, err := grammar.ToSQL(grammar.NewPostgres(""), b)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`alter table "users" add column "nickname" varchar(40) null, add column "age" integer not null default '0'`,
	}, stmts)
}

func TestCompilePrimary(t *testing.T) {
	b := schema.NewBlueprint("orders")
	cmd := b.Primary("id")

	assert.Equal(t,
		`alter table "orders" add CONSTRAINT pk_orders primary key ("id") WITH (FILLFACTOR=100)`,
		compileOne(t, b, cmd))
}

func TestCompilePrimarySchemaQualified(t *testing.T) {
	b := schema.NewBlueprint("billing.invoices")
	cmd := b.Primary("id", "line")

	assert.Equal(t,
		`alter table "billing"."invoices" add CONSTRAINT pk_billing_invoices primary key ("id", "line") WITH (FILLFACTOR=100)`,
		compileOne(t, b, cmd))
}

func TestCompileUnique(t *testing.T) {
	b := schema.NewBlueprint("users")
	sql := compileOne(t, b, b.Unique("email"))

	assert.Equal(t, `CREATE UNIQUE INDEX unique_email___users ON "users" ("email") WITH (FILLFACTOR=70)`, sql)

	name := strings.Fields(sql)[3]
	assert.True(t, strings.HasPrefix(name, "unique_"))
	assert.True(t, strings.HasSuffix(name, "___users"))
}

func TestCompileIndexVariants(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *schema.Blueprint) *schema.Command
		want  string
	}{
		{
			name:  "plain",
			build: func(b *schema.Blueprint) *schema.Command { return b.Index("title") },
			want:  `CREATE INDEX index_title___posts ON "posts" ("title") WITH (FILLFACTOR=70)`,
		},
		{
			name:  "multiple columns",
			build: func(b *schema.Blueprint) *schema.Command { return b.Index("author_id", "created_at") },
			want:  `CREATE INDEX index_author_id__created_at___posts ON "posts" ("author_id", "created_at") WITH (FILLFACTOR=70)`,
		},
		{
			name:  "lower",
			build: func(b *schema.Blueprint) *schema.Command { return b.IndexStringLower("slug") },
			want:  `CREATE INDEX index_slug_lower___posts ON "posts" (lower("slug")) WITH (FILLFACTOR=70)`,
		},
		{
			name:  "gin",
			build: func(b *schema.Blueprint) *schema.Command { return b.IndexGin("tags") },
			want:  `CREATE INDEX index_tags_gin___posts ON "posts" USING gin ("tags")`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := schema.NewBlueprint("posts")
			assert.Equal(t, tt.want, compileOne(t, b, tt.build(b)))
		})
	}
}

func TestCompileIndexClean(t *testing.T) {
	b := schema.NewBlueprint("docs")
	sql := compileOne(t, b, b.IndexClean(schema.LanguageKO, "meta"))

	assert.Equal(t, `CREATE INDEX index_meta__ko_clean___docs ON "docs" USING btree (cast (meta->>'ko_clean' as text))`, sql)
	assert.Contains(t, sql, "cast (meta->>'ko_clean' as text)")
	assert.Contains(t, sql, "__ko_clean___docs")
}

func TestCompileIndexCleanEveryLanguage(t *testing.T) {
	for _, lang := range schema.Languages() {
		t.Run(string(lang), func(t *testing.T) {
			b := schema.NewBlueprint("docs")
			sql := compileOne(t, b, b.IndexClean(lang, "meta"))

			assert.Contains(t, sql, "index_meta__"+string(lang)+"_clean___docs")
			assert.Contains(t, sql, "USING btree (cast (meta->>'"+string(lang)+"_clean' as text))")
		})
	}
}

func TestCompileIndexCleanQuotesUnsafeColumn(t *testing.T) {
	b := schema.NewBlueprint("docs")
	sql := compileOne(t, b, b.IndexClean(schema.LanguageEN, "Meta"))

	assert.Contains(t, sql, `cast ("Meta"->>'en_clean' as text)`)
	assert.Contains(t, sql, "CREATE INDEX index_meta_")
	assert.Contains(t, sql, "__en_clean___docs")
	// "Meta" and "meta" are different columns and get different names.
	assert.NotContains(t, sql, "index_meta__en_clean___docs")
}

func TestCompileIndexCleanRejectsBadInput(t *testing.T) {
	p := grammar.NewPostgres("")

	b := schema.NewBlueprint("docs")
	_, err := grammar.Compile(p, b, b.IndexClean(schema.Language("xx"), "meta"))
	assert.True(t, grammar.IsMalformedCommand(err))

	b = schema.NewBlueprint("docs")
	_, err = grammar.Compile(p, b, &schema.Command{Name: schema.CommandIndexClean, Language: schema.LanguageEN})
	assert.True(t, grammar.IsMalformedCommand(err))
}

func TestCompileForeign(t *testing.T) {
	b := schema.NewBlueprint("posts")
	cmd := b.Foreign("user_id").References("id").On("users").OnDeleteAction("CASCADE")

	assert.Equal(t,
		`alter table "posts" add constraint foreign_user_id___posts foreign key ("user_id") references "users" ("id") on delete cascade`,
		compileOne(t, b, cmd))
}

func TestCompileForeignRejectsUnknownAction(t *testing.T) {
	b := schema.NewBlueprint("posts")
	cmd := b.Foreign("user_id").References("id").On("users").OnUpdateAction("drop everything")

	_, err := grammar.Compile(grammar.NewPostgres(""), b, cmd)
	assert.True(t, grammar.IsMalformedCommand(err))
}

func TestCompileDropFamily(t *testing.T) {
	tests := []struct {
		name  string
		table string
		build func(b *schema.Blueprint) *schema.Command
		want  string
	}{
		{"drop", "users", func(b *schema.Blueprint) *schema.Command { return b.Drop() },
			`drop table "users"`},
		{"drop if exists", "users", func(b *schema.Blueprint) *schema.Command { return b.DropIfExists() },
			`drop table if exists "users" CASCADE`},
		{"drop column", "users", func(b *schema.Blueprint) *schema.Command { return b.DropColumn("a", "b") },
			`alter table "users" drop column "a", drop column "b"`},
		{"drop primary", "orders", func(b *schema.Blueprint) *schema.Command { return b.DropPrimary() },
			`alter table "orders" drop constraint "pk_orders"`},
		{"drop unique by columns", "users", func(b *schema.Blueprint) *schema.Command { return b.DropUnique("email") },
			`drop index "unique_email___users"`},
		{"drop index by name", "users", func(b *schema.Blueprint) *schema.Command { return b.DropIndex().Named("legacy_idx") },
			`drop index "legacy_idx"`},
		{"drop index qualified", "billing.invoices", func(b *schema.Blueprint) *schema.Command { return b.DropIndex("number") },
			`drop index "billing"."index_number___billing_invoices"`},
		{"drop foreign", "posts", func(b *schema.Blueprint) *schema.Command { return b.DropForeign("user_id") },
			`alter table "posts" drop constraint "foreign_user_id___posts"`},
		{"rename", "users", func(b *schema.Blueprint) *schema.Command { return b.Rename("members") },
			`alter table "users" rename to "members"`},
		{"rename qualified", "app.users", func(b *schema.Blueprint) *schema.Command { return b.Rename("app.members") },
			`alter table "app"."users" rename to "members"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := schema.NewBlueprint(tt.table)
			assert.Equal(t, tt.want, compileOne(t, b, tt.build(b)))
		})
	}
}

func TestCompileDropIfExistsAlwaysCascades(t *testing.T) {
	for _, table := range []string{"users", "billing.invoices", `we"ird`} {
		b := schema.NewBlueprint(table)
		assert.True(t, strings.HasSuffix(compileOne(t, b, b.DropIfExists()), " CASCADE"), table)
	}
}

func TestCompileDropRequiresTarget(t *testing.T) {
	p := grammar.NewPostgres("")
	for _, build := range []func(b *schema.Blueprint) *schema.Command{
		func(b *schema.Blueprint) *schema.Command { return b.DropIndex() },
		func(b *schema.Blueprint) *schema.Command { return b.DropUnique() },
		func(b *schema.Blueprint) *schema.Command { return b.DropForeign() },
		func(b *schema.Blueprint) *schema.Command { return b.DropColumn() },
		func(b *schema.Blueprint) *schema.Command { return b.Rename("") },
	} {
		b := schema.NewBlueprint("users")
		_, err := grammar.Compile(p, b, build(b))
		assert.True(t, grammar.IsMalformedCommand(err), "%v", err)
	}
}

func TestCompileNamedIndexRequiresColumns(t *testing.T) {
	p := grammar.NewPostgres("")
	for _, build := range []func(b *schema.Blueprint) *schema.Command{
		func(b *schema.Blueprint) *schema.Command { return b.Unique().Named("u1") },
		func(b *schema.Blueprint) *schema.Command { return b.Index().Named("i1") },
		func(b *schema.Blueprint) *schema.Command { return b.IndexStringLower().Named("l1") },
		func(b *schema.Blueprint) *schema.Command { return b.IndexGin().Named("g1") },
		func(b *schema.Blueprint) *schema.Command { return b.Foreign().Named("f1").References("id").On("teams") },
	} {
		b := schema.NewBlueprint("users")
		cmd := build(b)
		sql, err := grammar.Compile(p, b, cmd)
		assert.True(t, grammar.IsMalformedCommand(err), "%s: %v", cmd.Name, err)
		assert.Empty(t, sql, cmd.Name)
	}
}

func TestCompileRenameAcrossSchemas(t *testing.T) {
	b := schema.NewBlueprint("app.users")
	_, err := grammar.Compile(grammar.NewPostgres(""), b, b.Rename("other.users"))
	assert.True(t, grammar.IsMalformedCommand(err))
}

func TestDropLocatesCreatedNames(t *testing.T) {
	p := grammar.NewPostgres("")
	b := schema.NewBlueprint("shop.orders")

	created := []*schema.Command{b.Primary("id"), b.Unique("code"), b.Index("placed_at"), b.Foreign("user_id")}
	dropped := []*schema.Command{b.DropPrimary(), b.DropUnique("code"), b.DropIndex("placed_at"), b.DropForeign("user_id")}

	for i := range created {
		createName, err := p.IndexName(b, created[i])
		require.NoError(t, err)
		dropName, err := p.IndexName(b, dropped[i])
		require.NoError(t, err)
		assert.Equal(t, createName, dropName)
	}
}

func TestTablePrefix(t *testing.T) {
	p := grammar.NewPostgres("app_")

	b := schema.NewBlueprint("crm.users")
	sql, err := grammar.Compile(p, b, b.Unique("email"))
	require.NoError(t, err)
	assert.Equal(t, `CREATE UNIQUE INDEX unique_email___crm_app_users ON "crm"."app_users" ("email") WITH (FILLFACTOR=70)`, sql)

	b = schema.NewBlueprint("users")
	sql, err = grammar.Compile(p, b, b.Rename("members"))
	require.NoError(t, err)
	assert.Equal(t, `alter table "app_users" rename to "app_members"`, sql)
}

func TestUnprefixed(t *testing.T) {
	p := grammar.NewPostgres("app_")

	name, ok := p.Unprefixed("crm.app_users")
	assert.True(t, ok)
	assert.Equal(t, "crm.users", name)

	_, ok = p.Unprefixed("audit_log")
	assert.False(t, ok)

	name, ok = grammar.NewPostgres("").Unprefixed("users")
	assert.True(t, ok)
	assert.Equal(t, "users", name)
}

func TestToSQLAddsFluentIndexes(t *testing.T) {
	b := schema.NewBlueprint("users")
	b.Create()
	b.UUID("id").Primary()
	b.String("email", 120).Unique()
	b.JSONB("profile").Nullable()
	b.IndexClean(schema.LanguageEN, "profile")

	stmts, err := grammar.ToSQL(grammar.NewPostgres(""), b)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`create table "users" ("id" uuid not null, "email" varchar(120) not null, "profile" jsonb null)`,
		`CREATE INDEX index_profile__en_clean___users ON "users" USING btree (cast (profile->>'en_clean' as text))`,
		`alter table "users" add CONSTRAINT pk_users primary key ("id") WITH (FILLFACTOR=100)`,
		`CREATE UNIQUE INDEX unique_email___users ON "users" ("email") WITH (FILLFACTOR=70)`,
	}, stmts)

	// The blueprint itself is left untouched.
	assert.Len(t, b.Commands, 2)
}

func TestToSQLIsDeterministic(t *testing.T) {
	build := func() *schema.Blueprint {
		b := schema.NewBlueprint("catalog.products")
		b.Create()
		b.BigIncrements("id")
		b.String("sku", 64).Unique()
		b.Decimal("price", 10, 2)
		b.TextArray("tags")
		b.JSONB("names")
		b.IndexGin("tags")
		b.IndexStringLower("sku")
		for _, lang := range schema.Languages() {
			b.IndexClean(lang, "names")
		}
		return b
	}

	p := grammar.NewPostgres("")
	first, err := grammar.ToSQL(p, build())
	require.NoError(t, err)
	second, err := grammar.ToSQL(p, build())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestToSQLNoPartialOutput(t *testing.T) {
	b := schema.NewBlueprint("users")
	b.Create()
	b.Integer("id")
	b.Index("id")
	b.DropIndex() // no columns, no name

	stmts, err := grammar.ToSQL(grammar.NewPostgres(""), b)
	require.Error(t, err)
	assert.Nil(t, stmts)
}

func TestToSQLRequiresTable(t *testing.T) {
	_, err := grammar.ToSQL(grammar.NewPostgres(""), schema.NewBlueprint(""))
	assert.True(t, grammar.IsMalformedCommand(err))

	_, err = grammar.ToSQL(grammar.NewPostgres(""), nil)
	assert.True(t, grammar.IsMalformedCommand(err))
}

func TestCompileUnknownCommand(t *testing.T) {
	b := schema.NewBlueprint("users")
	_, err := grammar.Compile(grammar.NewPostgres(""), b, &schema.Command{Name: "truncate"})
	assert.True(t, grammar.IsMalformedCommand(err))
}

func TestExistenceQueriesAreParameterised(t *testing.T) {
	p := grammar.NewPostgres("")
	assert.Equal(t, "select * from information_schema.tables where table_name = $1 and table_schema = $2", p.CompileTableExists())
	assert.Equal(t, "select column_name from information_schema.columns where table_name = $1 and table_schema = $2", p.CompileColumnExists())
}
