package validator

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/pgblueprint/grammar"
	"github.com/ridoystarlord/pgblueprint/introspect"
	"github.com/ridoystarlord/pgblueprint/schema"
)

// ValidationError represents a validation error with details
type ValidationError struct {
	Type     string `json:"type"`
	Table    string `json:"table,omitempty"`
	Column   string `json:"column,omitempty"`
	Index    string `json:"index,omitempty"`
	Message  string `json:"message"`
	Severity string `json:"severity"` // "error", "warning", "info"
}

// ValidationResult contains all validation results
type ValidationResult struct {
	Valid    bool              `json:"valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
	Info     []ValidationError `json:"info"`
}

func (r *ValidationResult) addError(e ValidationError) {
	e.Severity = "error"
	r.Errors = append(r.Errors, e)
}

func (r *ValidationResult) addWarning(e ValidationError) {
	e.Severity = "warning"
	r.Warnings = append(r.Warnings, e)
}

func (r *ValidationResult) addInfo(e ValidationError) {
	e.Severity = "info"
	r.Info = append(r.Info, e)
}

// Dialect compiles blueprints and names what they create.
type Dialect interface {
	grammar.Dialect
	Table(table string) string
}

// SchemaValidator checks blueprints before any migration is generated.
type SchemaValidator struct {
	dialect Dialect
}

func NewSchemaValidator(d Dialect) *SchemaValidator {
	return &SchemaValidator{dialect: d}
}

var reservedKeywords = map[string]bool{
	"user": true, "order": true, "group": true, "table": true,
	"index": true, "view": true, "schema": true, "select": true,
}

// Validate checks the blueprints on their own and, when existing is not
// nil, notes tables that are already present in the database.
func (v *SchemaValidator) Validate(blueprints []*schema.Blueprint, existing []introspect.ExistingTable) *ValidationResult {
	result := &ValidationResult{
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
		Info:     []ValidationError{},
	}

	declared := map[string]*schema.Blueprint{}
	for _, b := range blueprints {
		if b == nil {
			continue
		}
		if _, dup := declared[b.Table]; dup {
			result.addError(ValidationError{Type: "duplicate_table", Table: b.Table, Message: fmt.Sprintf("table '%s' is declared more than once", b.Table)})
			continue
		}
		declared[b.Table] = b
	}

	existingTables := map[string]bool{}
	for _, t := range existing {
		existingTables[t.QualifiedName()] = true
	}

	names := map[string]string{}
	for _, b := range blueprints {
		if b == nil {
			continue
		}
		v.validateTableName(b, result)
		v.validateColumns(b, result)
		v.validateCompile(b, result)
		v.validateIndexes(b, names, result)
		v.validateForeignKeys(b, declared, result)

		if existingTables[strings.TrimPrefix(v.dialect.Table(b.Table), introspect.DefaultSchema+".")] {
			result.addInfo(ValidationError{Type: "table_exists", Table: b.Table, Message: fmt.Sprintf("table '%s' already exists in database", b.Table)})
		}
	}

	result.Valid = len(result.Errors) == 0
	return result
}

// validateTableName checks every segment of the (prefixed) table name.
func (v *SchemaValidator) validateTableName(b *schema.Blueprint, result *ValidationResult) {
	if b.Table == "" {
		result.addError(ValidationError{Type: "table_name", Message: "table name cannot be empty"})
		return
	}
	for _, segment := range strings.Split(v.dialect.Table(b.Table), ".") {
		if segment == "" {
			result.addError(ValidationError{Type: "table_name", Table: b.Table, Message: fmt.Sprintf("table name '%s' has an empty segment", b.Table)})
			continue
		}
		if len(segment) > grammar.MaxIdentifierLength {
			result.addError(ValidationError{Type: "table_name", Table: b.Table, Message: fmt.Sprintf("'%s' is too long (max %d bytes)", segment, grammar.MaxIdentifierLength)})
		}
		if reservedKeywords[strings.ToLower(segment)] {
			result.addWarning(ValidationError{Type: "reserved_keyword", Table: b.Table, Message: fmt.Sprintf("'%s' is a reserved keyword and will always need quoting", segment)})
		}
	}
}

func (v *SchemaValidator) validateColumns(b *schema.Blueprint, result *ValidationResult) {
	seen := map[string]bool{}
	for _, col := range b.Columns {
		if col == nil {
			continue
		}
		if seen[col.Name] {
			result.addError(ValidationError{Type: "duplicate_column", Table: b.Table, Column: col.Name, Message: fmt.Sprintf("column '%s' is declared more than once", col.Name)})
		}
		seen[col.Name] = true

		if len(col.Name) > grammar.MaxIdentifierLength {
			result.addError(ValidationError{Type: "column_name", Table: b.Table, Column: col.Name, Message: fmt.Sprintf("column name is too long (max %d bytes)", grammar.MaxIdentifierLength)})
		}
		if col.Type == schema.TypeFloat {
			result.addInfo(ValidationError{Type: "column_type", Table: b.Table, Column: col.Name, Message: "float columns are stored as double precision"})
		}
		if !col.IsNullable && !col.HasDefault() && !col.AutoIncrement && !col.UseCurrent && !b.Creating() {
			result.addWarning(ValidationError{Type: "not_null_without_default", Table: b.Table, Column: col.Name, Message: "adding a not null column without a default fails on tables that already have rows"})
		}
	}
}

// validateCompile reports the first compile error of the blueprint.
func (v *SchemaValidator) validateCompile(b *schema.Blueprint, result *ValidationResult) {
	if _, err := grammar.ToSQL(v.dialect, b); err != nil {
		typ := "compile"
		switch {
		case grammar.IsUnsupportedType(err):
			typ = "unsupported_type"
		case grammar.IsUnsupportedModifier(err):
			typ = "unsupported_modifier"
		case grammar.IsMalformedCommand(err):
			typ = "malformed_command"
		}
		result.addError(ValidationError{Type: typ, Table: b.Table, Message: err.Error()})
	}
}

// validateIndexes checks index columns and that generated names do not
// collide within a schema.
func (v *SchemaValidator) validateIndexes(b *schema.Blueprint, names map[string]string, result *ValidationResult) {
	for _, c := range grammar.Commands(b) {
		if !createsIndex(c.Name) {
			continue
		}
		if b.Creating() {
			for _, colName := range c.Columns {
				if b.Column(colName) == nil {
					result.addError(ValidationError{Type: "index_column", Table: b.Table, Column: colName, Message: fmt.Sprintf("%s references undeclared column '%s'", c.Name, colName)})
				}
			}
		}
		if c.Name == schema.CommandIndexClean && len(c.Columns) == 1 {
			if col := b.Column(c.Columns[0]); col != nil && col.Type != schema.TypeJSON && col.Type != schema.TypeJSONB {
				result.addWarning(ValidationError{Type: "clean_index", Table: b.Table, Column: col.Name, Message: "clean indexes read a JSON field; the column is not json or jsonb"})
			}
		}

		name, err := v.dialect.IndexName(b, c)
		if err != nil {
			continue // reported by validateCompile
		}
		key := b.Schema() + "." + name
		if owner, dup := names[key]; dup {
			result.addError(ValidationError{Type: "index_name", Table: b.Table, Index: name, Message: fmt.Sprintf("generated name collides with one on '%s'", owner)})
			continue
		}
		names[key] = b.Table
	}
}

func (v *SchemaValidator) validateForeignKeys(b *schema.Blueprint, declared map[string]*schema.Blueprint, result *ValidationResult) {
	for _, c := range b.Commands {
		if c.Name != schema.CommandForeign {
			continue
		}
		if len(c.Columns) != len(c.ReferencedColumns) {
			result.addError(ValidationError{Type: "foreign_key", Table: b.Table, Message: fmt.Sprintf("foreign key has %d columns but references %d", len(c.Columns), len(c.ReferencedColumns))})
		}
		target, ok := declared[c.ReferencedTable]
		if !ok {
			result.addWarning(ValidationError{Type: "foreign_key", Table: b.Table, Message: fmt.Sprintf("referenced table '%s' is not declared in this schema", c.ReferencedTable)})
			continue
		}
		for _, colName := range c.ReferencedColumns {
			if target.Column(colName) == nil {
				result.addError(ValidationError{Type: "foreign_key", Table: b.Table, Column: colName, Message: fmt.Sprintf("referenced column '%s.%s' is not declared", c.ReferencedTable, colName)})
			}
		}
	}
}

func createsIndex(name schema.CommandName) bool {
	switch name {
	case schema.CommandPrimary, schema.CommandUnique, schema.CommandIndex,
		schema.CommandIndexStringLower, schema.CommandIndexGin, schema.CommandIndexClean,
		schema.CommandForeign:
		return true
	}
	return false
}
