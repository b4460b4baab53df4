package grammar

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/pgblueprint/schema"
)

// serials are the types that become serial columns when auto-incrementing.
var serials = map[schema.ColumnType]string{
	schema.TypeBigInteger:    "bigserial",
	schema.TypeInteger:       "serial",
	schema.TypeMediumInteger: "serial",
	schema.TypeSmallInteger:  "smallserial",
	schema.TypeTinyInteger:   "smallserial",
}

var plainTypes = map[schema.ColumnType]string{
	schema.TypeText:          "text",
	schema.TypeTsvector:      "tsvector",
	schema.TypeDateDiff:      "interval second",
	schema.TypeIntArray:      "bigint[]",
	schema.TypeTextArray:     "text[]",
	schema.TypeIP:            "cidr",
	schema.TypeMediumText:    "text",
	schema.TypeLongText:      "text",
	schema.TypeBigInteger:    "bigint",
	schema.TypeInteger:       "integer",
	schema.TypeMediumInteger: "integer",
	schema.TypeSmallInteger:  "smallint",
	schema.TypeTinyInteger:   "smallint",
	schema.TypeFloat:         "double precision",
	schema.TypeDouble:        "double precision",
	schema.TypeBoolean:       "boolean",
	schema.TypeJSON:          "json",
	schema.TypeJSONB:         "jsonb",
	schema.TypeDate:          "date",
	schema.TypeDateTime:      "timestamp(0) without time zone",
	schema.TypeDateTimeTz:    "timestamp(0) with time zone",
	schema.TypeTime:          "time(0) without time zone",
	schema.TypeTimeTz:        "time(0) with time zone",
	schema.TypeTimestamp:     "timestamp(0) without time zone",
	schema.TypeTimestampTz:   "timestamp(0) with time zone",
	schema.TypeBinary:        "bytea",
	schema.TypeUUID:          "uuid",
}

// TypeSQL maps a column to its PostgreSQL type expression.
func (p *Postgres) TypeSQL(col *schema.Column) (string, error) {
	if col.UseCurrent {
		if col.Type != schema.TypeTimestamp && col.Type != schema.TypeTimestampTz {
			return "", &UnsupportedModifierError{Column: col.Name, Type: col.Type, Modifier: "useCurrent"}
		}
		if col.HasDefault() {
			return "", &UnsupportedModifierError{Column: col.Name, Type: col.Type, Modifier: "useCurrent with default"}
		}
	}

	switch col.Type {
	case schema.TypeChar:
		if col.Length <= 0 {
			return "", &MalformedCommandError{Column: col.Name, Field: "char length"}
		}
		return fmt.Sprintf("char(%d)", col.Length), nil
	case schema.TypeString:
		if col.Length <= 0 {
			return "", &MalformedCommandError{Column: col.Name, Field: "string length"}
		}
		return fmt.Sprintf("varchar(%d)", col.Length), nil
	case schema.TypeDecimal:
		if col.Total <= 0 || col.Places < 0 || col.Places > col.Total {
			return "", &MalformedCommandError{Column: col.Name, Field: "decimal precision"}
		}
		return fmt.Sprintf("decimal(%d, %d)", col.Total, col.Places), nil
	case schema.TypeEnum:
		return p.typeEnum(col)
	case schema.TypeTimestamp, schema.TypeTimestampTz:
		if col.UseCurrent {
			return plainTypes[col.Type] + " default CURRENT_TIMESTAMP(0)", nil
		}
	}

	if col.AutoIncrement {
		if serial, ok := serials[col.Type]; ok {
			return serial, nil
		}
	}
	if typ, ok := plainTypes[col.Type]; ok {
		return typ, nil
	}
	return "", &UnsupportedTypeError{Column: col.Name, Type: col.Type}
}

// typeEnum renders a varchar with an inline check constraint.
func (p *Postgres) typeEnum(col *schema.Column) (string, error) {
	if len(col.Allowed) == 0 {
		return "", &MalformedCommandError{Column: col.Name, Field: "enum values"}
	}
	allowed := make([]string, len(col.Allowed))
	for i, v := range col.Allowed {
		allowed[i] = quoteLiteral(v)
	}
	return fmt.Sprintf("varchar(255) check (%s in (%s))", p.Wrap(col.Name), strings.Join(allowed, ", ")), nil
}

// Modifiers returns increment, nullable and default, in that order: the
// serial primary key must follow the type directly.
func (p *Postgres) Modifiers() []Modifier {
	return []Modifier{p.modifyIncrement, p.modifyNullable, p.modifyDefault}
}

func (p *Postgres) modifyIncrement(_ *schema.Blueprint, col *schema.Column) (string, error) {
	if !col.AutoIncrement {
		return "", nil
	}
	if _, ok := serials[col.Type]; !ok {
		return "", &UnsupportedModifierError{Column: col.Name, Type: col.Type, Modifier: "autoIncrement"}
	}
	return " primary key", nil
}

func (p *Postgres) modifyNullable(_ *schema.Blueprint, col *schema.Column) (string, error) {
	if col.IsNullable {
		return " null", nil
	}
	return " not null", nil
}

func (p *Postgres) modifyDefault(_ *schema.Blueprint, col *schema.Column) (string, error) {
	if !col.HasDefault() {
		return "", nil
	}
	return " default " + p.DefaultValue(col.Default), nil
}
