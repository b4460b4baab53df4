package grammar

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/zeebo/xxh3"
)

// MaxIdentifierLength is the PostgreSQL limit (NAMEDATALEN-1) in bytes.
const MaxIdentifierLength = 63

// stripQuotes removes every double and single quote.
func stripQuotes(s string) string {
	return strings.NewReplacer(`"`, "", `'`, "").Replace(s)
}

// normalizeTable turns a possibly qualified table name into an identifier
// fragment: quotes removed, "." replaced with "_".
func normalizeTable(table string) string {
	return strings.ReplaceAll(stripQuotes(table), ".", "_")
}

// identifier lower-cases name and replaces anything that cannot appear in
// an unquoted identifier with "_". Names over MaxIdentifierLength are
// truncated and suffixed with a hash of the full name so distinct inputs
// stay distinct.
func identifier(name string) string {
	return truncateIdentifier(sanitize(name))
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '_', unicode.IsDigit(r):
			return r
		case unicode.IsLetter(r):
			return unicode.ToLower(r)
		default:
			return '_'
		}
	}, name)
}

func truncateIdentifier(name string) string {
	if len(name) <= MaxIdentifierLength {
		return name
	}
	suffix := fmt.Sprintf("_%016x", xxh3.HashString(name))
	cut := MaxIdentifierLength - len(suffix)
	for cut > 0 && !utf8.RuneStart(name[cut]) {
		cut--
	}
	return name[:cut] + suffix
}

// variantSuffixes end the column part of generated names. A column ending
// in one of them could pass for another index variant.
var variantSuffixes = []string{"_lower", "_gin", "_clean"}

// indexName builds "<prefix><cols><suffix>___<table>" with columns joined by
// "__". When a column or the table would not read back exactly (case or
// unsafe characters folded, "_" runs, a variant suffix) a hash of the exact
// input follows the columns, so distinct column lists never share a name.
func indexName(prefix string, columns []string, suffix, table string) string {
	parts := make([]string, len(columns))
	exact := plainTable(table)
	for i, c := range columns {
		parts[i] = stripQuotes(c)
		exact = exact && plainColumn(parts[i])
	}

	cols := strings.Join(parts, "__")
	if !exact {
		cols += "_" + inputHash(prefix+suffix, parts, table)
	}
	return identifier(prefix + cols + suffix + "___" + normalizeTable(table))
}

// primaryKeyName builds "pk_<table>".
func primaryKeyName(table string) string {
	if !plainTable(table) {
		return identifier("pk_" + normalizeTable(table) + "_" + inputHash("pk_", nil, table))
	}
	return identifier("pk_" + normalizeTable(table))
}

func inputHash(kind string, columns []string, table string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(kind+"\x00"+strings.Join(columns, "\x00")+"\x00"+stripQuotes(table)))
}

// plainColumn reports whether column appears unchanged and unambiguous
// inside a generated name.
func plainColumn(column string) bool {
	if column == "" || sanitize(column) != column || strings.Contains(column, "__") ||
		strings.HasPrefix(column, "_") || strings.HasSuffix(column, "_") {
		return false
	}
	for _, suffix := range variantSuffixes {
		if strings.HasSuffix(column, suffix) {
			return false
		}
	}
	return true
}

func plainTable(table string) bool {
	for _, segment := range strings.Split(stripQuotes(table), ".") {
		if segment == "" || sanitize(segment) != segment {
			return false
		}
	}
	return true
}

// reservedWords are keywords that stay quoted even when lower-case.
var reservedWords = map[string]struct{}{
	"all": {}, "analyse": {}, "analyze": {}, "and": {}, "any": {}, "array": {}, "as": {},
	"asc": {}, "both": {}, "case": {}, "cast": {}, "check": {}, "collate": {}, "column": {},
	"constraint": {}, "create": {}, "default": {}, "desc": {}, "distinct": {}, "do": {},
	"else": {}, "end": {}, "false": {}, "for": {}, "foreign": {}, "from": {}, "grant": {},
	"group": {}, "having": {}, "in": {}, "into": {}, "is": {}, "join": {}, "key": {},
	"limit": {}, "not": {}, "null": {}, "offset": {}, "on": {}, "only": {}, "or": {},
	"order": {}, "primary": {}, "references": {}, "select": {}, "table": {}, "then": {},
	"to": {}, "true": {}, "union": {}, "unique": {}, "user": {}, "using": {}, "when": {},
	"where": {}, "with": {},
}

// bareIdentifier reports whether name can be written unquoted and still
// refer to itself after PostgreSQL case folding.
func bareIdentifier(name string) bool {
	if name == "" {
		return false
	}
	if _, ok := reservedWords[name]; ok {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z':
		case i > 0 && (r >= '0' && r <= '9' || r == '$'):
		default:
			return false
		}
	}
	return true
}
