package schema

// ColumnType is the dialect-neutral type tag of a column.
type ColumnType string

const (
	TypeChar          ColumnType = "char"
	TypeString        ColumnType = "string"
	TypeText          ColumnType = "text"
	TypeTsvector      ColumnType = "tsvector"
	TypeDateDiff      ColumnType = "dateDiff"
	TypeIntArray      ColumnType = "intarr"
	TypeTextArray     ColumnType = "textarr"
	TypeIP            ColumnType = "ip"
	TypeMediumText    ColumnType = "mediumText"
	TypeLongText      ColumnType = "longText"
	TypeInteger       ColumnType = "integer"
	TypeBigInteger    ColumnType = "bigInteger"
	TypeMediumInteger ColumnType = "mediumInteger"
	TypeTinyInteger   ColumnType = "tinyInteger"
	TypeSmallInteger  ColumnType = "smallInteger"
	TypeFloat         ColumnType = "float"
	TypeDouble        ColumnType = "double"
	TypeDecimal       ColumnType = "decimal"
	TypeBoolean       ColumnType = "boolean"
	TypeEnum          ColumnType = "enum"
	TypeJSON          ColumnType = "json"
	TypeJSONB         ColumnType = "jsonb"
	TypeDate          ColumnType = "date"
	TypeDateTime      ColumnType = "dateTime"
	TypeDateTimeTz    ColumnType = "dateTimeTz"
	TypeTime          ColumnType = "time"
	TypeTimeTz        ColumnType = "timeTz"
	TypeTimestamp     ColumnType = "timestamp"
	TypeTimestampTz   ColumnType = "timestampTz"
	TypeBinary        ColumnType = "binary"
	TypeUUID          ColumnType = "uuid"
)

// Expression is a default value rendered verbatim instead of as a quoted literal.
type Expression string

// Column describes one column of a blueprint.
type Column struct {
	Name    string
	Type    ColumnType
	Length  int      // char, string
	Total   int      // decimal precision
	Places  int      // decimal scale
	Allowed []string // enum values

	IsNullable    bool
	AutoIncrement bool
	UseCurrent    bool
	Default       any // nil when the column has no default

	// Fluent index flags, expanded into commands at compile time.
	PrimaryKey bool
	UniqueKey  bool
	IndexKey   bool
}

// Nullable allows NULL values in the column.
func (c *Column) Nullable() *Column {
	c.IsNullable = true
	return c
}

// WithDefault sets the column default. Pass an Expression for raw SQL.
func (c *Column) WithDefault(v any) *Column {
	c.Default = v
	return c
}

// Increment marks the column as auto-incrementing.
func (c *Column) Increment() *Column {
	c.AutoIncrement = true
	return c
}

// CurrentTimestamp makes a timestamp column default to the current time.
func (c *Column) CurrentTimestamp() *Column {
	c.UseCurrent = true
	return c
}

func (c *Column) Primary() *Column {
	c.PrimaryKey = true
	return c
}

func (c *Column) Unique() *Column {
	c.UniqueKey = true
	return c
}

func (c *Column) Index() *Column {
	c.IndexKey = true
	return c
}

// HasDefault reports whether a default value was set.
func (c *Column) HasDefault() bool {
	return c.Default != nil
}

// CommandName identifies the DDL operation a command describes.
type CommandName string

const (
	CommandCreate           CommandName = "create"
	CommandAdd              CommandName = "add"
	CommandPrimary          CommandName = "primary"
	CommandUnique           CommandName = "unique"
	CommandIndex            CommandName = "index"
	CommandIndexStringLower CommandName = "indexStringLower"
	CommandIndexGin         CommandName = "indexGin"
	CommandIndexClean       CommandName = "indexClean"
	CommandForeign          CommandName = "foreign"
	CommandDrop             CommandName = "drop"
	CommandDropIfExists     CommandName = "dropIfExists"
	CommandDropColumn       CommandName = "dropColumn"
	CommandDropPrimary      CommandName = "dropPrimary"
	CommandDropUnique       CommandName = "dropUnique"
	CommandDropIndex        CommandName = "dropIndex"
	CommandDropForeign      CommandName = "dropForeign"
	CommandRename           CommandName = "rename"
)

// Command is one DDL operation on a blueprint. Which fields are read
// depends on Name.
type Command struct {
	Name     CommandName
	Columns  []string
	Index    string   // explicit index or constraint name
	Language Language // indexClean
	To       string   // rename target

	// foreign
	ReferencedColumns []string
	ReferencedTable   string
	OnDelete          string
	OnUpdate          string
}

// References sets the referenced columns of a foreign key command.
func (c *Command) References(columns ...string) *Command {
	c.ReferencedColumns = columns
	return c
}

// On sets the referenced table of a foreign key command.
func (c *Command) On(table string) *Command {
	c.ReferencedTable = table
	return c
}

func (c *Command) OnDeleteAction(action string) *Command {
	c.OnDelete = action
	return c
}

func (c *Command) OnUpdateAction(action string) *Command {
	c.OnUpdate = action
	return c
}

// Named overrides the generated index name for drop commands.
func (c *Command) Named(index string) *Command {
	c.Index = index
	return c
}
