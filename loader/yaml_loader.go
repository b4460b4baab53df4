package loader

import (
	"fmt"
	"os"

	"github.com/ridoystarlord/pgblueprint/schema"
	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name      string        `yaml:"name"`
	Temporary bool          `yaml:"temporary"`
	Columns   []yamlColumn  `yaml:"columns"`
	Primary   []string      `yaml:"primary"`
	Indexes   []yamlIndex   `yaml:"indexes"`
	Foreign   []yamlForeign `yaml:"foreign"`
}

type yamlColumn struct {
	Name          string   `yaml:"name"`
	Type          string   `yaml:"type"`
	Length        int      `yaml:"length"`
	Total         int      `yaml:"total"`
	Places        *int     `yaml:"places"`
	Allowed       []string `yaml:"allowed"`
	Nullable      bool     `yaml:"nullable"`
	Default       any      `yaml:"default"`
	Expression    string   `yaml:"default_expression"`
	AutoIncrement bool     `yaml:"auto_increment"`
	UseCurrent    bool     `yaml:"use_current"`
	Primary       bool     `yaml:"primary"`
	Unique        bool     `yaml:"unique"`
	Index         bool     `yaml:"index"`
}

type yamlIndex struct {
	Type     string   `yaml:"type"` // index, unique, lower, gin, clean
	Columns  []string `yaml:"columns"`
	Language string   `yaml:"language"`
}

type yamlForeign struct {
	Columns    []string `yaml:"columns"`
	References []string `yaml:"references"`
	On         string   `yaml:"on"`
	OnDelete   string   `yaml:"on_delete"`
	OnUpdate   string   `yaml:"on_update"`
}

// LoadBlueprintsFromYAML reads a schema file and returns one create
// blueprint per table, in file order.
func LoadBlueprintsFromYAML(filename string) ([]*schema.Blueprint, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading schema file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML decodes schema YAML into create blueprints.
func ParseYAML(data []byte) ([]*schema.Blueprint, error) {
	var yf yamlFile
	if err := yaml.Unmarshal(data, &yf); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}

	blueprints := make([]*schema.Blueprint, 0, len(yf.Tables))
	for _, t := range yf.Tables {
		b, err := t.blueprint()
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", t.Name, err)
		}
		blueprints = append(blueprints, b)
	}
	return blueprints, nil
}

func (t yamlTable) blueprint() (*schema.Blueprint, error) {
	if t.Name == "" {
		return nil, fmt.Errorf("table name is required")
	}
	b := schema.NewBlueprint(t.Name)
	b.Temporary = t.Temporary
	b.Create()

	for _, c := range t.Columns {
		if err := c.add(b); err != nil {
			return nil, fmt.Errorf("column %q: %w", c.Name, err)
		}
	}

	if len(t.Primary) > 0 {
		b.Primary(t.Primary...)
	}
	for _, idx := range t.Indexes {
		if err := idx.add(b); err != nil {
			return nil, err
		}
	}
	for _, fk := range t.Foreign {
		b.Foreign(fk.Columns...).References(fk.References...).On(fk.On).
			OnDeleteAction(fk.OnDelete).OnUpdateAction(fk.OnUpdate)
	}
	return b, nil
}

func (c yamlColumn) add(b *schema.Blueprint) error {
	if c.Name == "" {
		return fmt.Errorf("column name is required")
	}
	typ := schema.ColumnType(c.Type)
	if !typ.Known() {
		return fmt.Errorf("unknown column type %q", c.Type)
	}

	var col *schema.Column
	switch typ {
	case schema.TypeString:
		col = b.String(c.Name, c.Length)
	case schema.TypeChar:
		col = b.Char(c.Name, c.Length)
	case schema.TypeDecimal:
		places := -1
		if c.Places != nil {
			places = *c.Places
		}
		col = b.Decimal(c.Name, c.Total, places)
	case schema.TypeEnum:
		col = b.Enum(c.Name, c.Allowed...)
	default:
		col = b.AddColumn(typ, c.Name)
	}

	col.IsNullable = c.Nullable
	col.AutoIncrement = c.AutoIncrement
	col.UseCurrent = c.UseCurrent
	col.PrimaryKey = c.Primary
	col.UniqueKey = c.Unique
	col.IndexKey = c.Index
	switch {
	case c.Expression != "":
		col.Default = schema.Expression(c.Expression)
	case c.Default != nil:
		col.Default = c.Default
	}
	return nil
}

func (i yamlIndex) add(b *schema.Blueprint) error {
	if len(i.Columns) == 0 {
		return fmt.Errorf("index of type %q has no columns", i.Type)
	}
	switch i.Type {
	case "", "index", "btree":
		b.Index(i.Columns...)
	case "unique":
		b.Unique(i.Columns...)
	case "lower":
		b.IndexStringLower(i.Columns...)
	case "gin":
		b.IndexGin(i.Columns...)
	case "clean":
		lang, err := schema.ParseLanguage(i.Language)
		if err != nil {
			return err
		}
		for _, col := range i.Columns {
			b.IndexClean(lang, col)
		}
	default:
		return fmt.Errorf("unknown index type %q", i.Type)
	}
	return nil
}
