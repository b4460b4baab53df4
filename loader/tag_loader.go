package loader

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-openapi/inflect"
	"github.com/ridoystarlord/pgblueprint/schema"
)

// TagKey is the struct tag read by the tag loader.
const TagKey = "blueprint"

// TagLoader builds create blueprints from Go structs carrying blueprint tags.
type TagLoader struct {
	modelsDir string
}

// NewTagLoader creates a new tag loader
func NewTagLoader(modelsDir string) *TagLoader {
	return &TagLoader{
		modelsDir: modelsDir,
	}
}

// LoadBlueprintsFromTags loads blueprints from the Go files under modelsDir.
func LoadBlueprintsFromTags(modelsDir string) ([]*schema.Blueprint, error) {
	return NewTagLoader(modelsDir).Load()
}

// Load walks the models directory. Structs without any tagged field are skipped.
func (tl *TagLoader) Load() ([]*schema.Blueprint, error) {
	if _, err := os.Stat(tl.modelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("models directory '%s' does not exist", tl.modelsDir)
	}

	var blueprints []*schema.Blueprint
	err := filepath.WalkDir(tl.modelsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		fileBlueprints, err := tl.parseGoFile(path)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		blueprints = append(blueprints, fileBlueprints...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load models: %w", err)
	}
	return blueprints, nil
}

func (tl *TagLoader) parseGoFile(filePath string) ([]*schema.Blueprint, error) {
	fset := token.NewFileSet()
	node, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Go file: %w", err)
	}

	var (
		blueprints []*schema.Blueprint
		parseErr   error
	)
	ast.Inspect(node, func(n ast.Node) bool {
		if parseErr != nil {
			return false
		}
		spec, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}
		structType, ok := spec.Type.(*ast.StructType)
		if !ok {
			return true
		}
		b, err := tl.parseStruct(spec.Name.Name, structType)
		if err != nil {
			parseErr = fmt.Errorf("struct %s: %w", spec.Name.Name, err)
			return false
		}
		if b != nil {
			blueprints = append(blueprints, b)
		}
		return true
	})
	return blueprints, parseErr
}

// parseStruct returns nil when no field carries a blueprint tag.
func (tl *TagLoader) parseStruct(structName string, structType *ast.StructType) (*schema.Blueprint, error) {
	b := schema.NewBlueprint(tableName(structName))
	b.Create()

	for _, field := range structType.Fields.List {
		if len(field.Names) == 0 || !ast.IsExported(field.Names[0].Name) || field.Tag == nil {
			continue
		}
		raw, err := strconv.Unquote(field.Tag.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: bad tag: %w", field.Names[0].Name, err)
		}
		tag, ok := reflect.StructTag(raw).Lookup(TagKey)
		if !ok || tag == "-" {
			continue
		}
		if err := tl.parseField(b, field.Names[0].Name, fieldType(field.Type), tag); err != nil {
			return nil, fmt.Errorf("field %s: %w", field.Names[0].Name, err)
		}
	}

	if len(b.Columns) == 0 {
		return nil, nil
	}
	return b, nil
}

// parseField reads a tag such as
//
//	column:email;type:string;length:120;nullable;unique;clean:en;default:x
func (tl *TagLoader) parseField(b *schema.Blueprint, fieldName, goType, tag string) error {
	col := &schema.Column{Name: snake(fieldName)}
	var post []func()

	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, hasValue := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case key == "column" && hasValue:
			col.Name = value
		case key == "type" && hasValue:
			col.Type = schema.ColumnType(value)
		case key == "length" && hasValue:
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("length %q: %w", value, err)
			}
			col.Length = n
		case key == "precision" && hasValue:
			total, places, _ := strings.Cut(value, ",")
			var err error
			if col.Total, err = strconv.Atoi(strings.TrimSpace(total)); err != nil {
				return fmt.Errorf("precision %q: %w", value, err)
			}
			if col.Places, err = strconv.Atoi(strings.TrimSpace(places)); err != nil {
				return fmt.Errorf("precision %q: %w", value, err)
			}
		case key == "enum" && hasValue:
			col.Type = schema.TypeEnum
			col.Allowed = strings.Split(value, ",")
		case key == "default" && hasValue:
			col.Default = value
		case key == "default_expr" && hasValue:
			col.Default = schema.Expression(value)
		case key == "fk" && hasValue:
			fk, err := parseForeignKey(value)
			if err != nil {
				return err
			}
			post = append(post, func() {
				b.Foreign(col.Name).References(fk.column).On(fk.table).
					OnDeleteAction(fk.onDelete).OnUpdateAction(fk.onUpdate)
			})
		case key == "clean" && hasValue:
			lang, err := schema.ParseLanguage(value)
			if err != nil {
				return err
			}
			post = append(post, func() { b.IndexClean(lang, col.Name) })
		case key == "primary":
			col.PrimaryKey = true
		case key == "unique":
			col.UniqueKey = true
		case key == "index":
			col.IndexKey = true
		case key == "lower":
			post = append(post, func() { b.IndexStringLower(col.Name) })
		case key == "gin":
			post = append(post, func() { b.IndexGin(col.Name) })
		case key == "nullable":
			col.IsNullable = true
		case key == "increments":
			col.AutoIncrement = true
		case key == "use_current":
			col.UseCurrent = true
		default:
			return fmt.Errorf("unknown tag option %q", part)
		}
	}

	if col.Type == "" {
		col.Type = inferColumnType(goType)
	}
	if (col.Type == schema.TypeString || col.Type == schema.TypeChar) && col.Length == 0 {
		col.Length = schema.DefaultStringLength
	}
	if col.Type == schema.TypeDecimal && col.Total == 0 {
		col.Total, col.Places = 8, 2
	}
	if strings.HasPrefix(goType, "*") {
		col.IsNullable = true
	}

	b.Columns = append(b.Columns, col)
	for _, fn := range post {
		fn()
	}
	return nil
}

type foreignKey struct {
	table, column      string
	onDelete, onUpdate string
}

// parseForeignKey reads "table.column[:on_delete[:on_update]]".
func parseForeignKey(spec string) (foreignKey, error) {
	parts := strings.Split(spec, ":")
	i := strings.LastIndex(parts[0], ".")
	if i <= 0 || i == len(parts[0])-1 {
		return foreignKey{}, fmt.Errorf("foreign key %q must be table.column", spec)
	}
	fk := foreignKey{table: parts[0][:i], column: parts[0][i+1:]}
	if len(parts) > 1 {
		fk.onDelete = parts[1]
	}
	if len(parts) > 2 {
		fk.onUpdate = parts[2]
	}
	return fk, nil
}

func fieldType(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return "*" + fieldType(t.X)
	case *ast.ArrayType:
		return "[]" + fieldType(t.Elt)
	case *ast.SelectorExpr:
		if x, ok := t.X.(*ast.Ident); ok {
			return x.Name + "." + t.Sel.Name
		}
	}
	return ""
}

var rules = inflect.NewDefaultRuleset()

// tableName converts a struct name to a plural snake_case table name.
func tableName(structName string) string {
	return snake(rules.Pluralize(structName))
}

// snake converts Go identifiers such as "HTTPCode" or "UserID" to snake_case.
func snake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// inferColumnType maps a Go type to the closest column type.
func inferColumnType(goType string) schema.ColumnType {
	switch strings.TrimPrefix(goType, "*") {
	case "int", "int32", "uint32":
		return schema.TypeInteger
	case "int64", "uint64":
		return schema.TypeBigInteger
	case "int16", "int8", "uint16", "uint8":
		return schema.TypeSmallInteger
	case "string":
		return schema.TypeString
	case "bool":
		return schema.TypeBoolean
	case "float32", "float64":
		return schema.TypeDouble
	case "time.Time":
		return schema.TypeTimestampTz
	case "time.Duration":
		return schema.TypeDateDiff
	case "uuid.UUID":
		return schema.TypeUUID
	case "net.IP", "net.IPNet", "netip.Prefix":
		return schema.TypeIP
	case "[]byte":
		return schema.TypeBinary
	case "[]string":
		return schema.TypeTextArray
	case "[]int", "[]int64":
		return schema.TypeIntArray
	default:
		// json.RawMessage, nested structs and maps
		return schema.TypeJSONB
	}
}
