package schema

import "strings"

// DefaultStringLength is the length used by String and Char when none is given.
const DefaultStringLength = 255

// Blueprint describes one table and the changes to apply to it.
type Blueprint struct {
	Table     string
	Temporary bool
	Columns   []*Column
	Commands  []*Command
}

// NewBlueprint returns an empty blueprint for table. The name may carry a
// schema qualifier, e.g. "billing.invoices".
func NewBlueprint(table string) *Blueprint {
	return &Blueprint{Table: table}
}

// Schema returns the schema qualifier of the table, or "" when unqualified.
func (b *Blueprint) Schema() string {
	if i := strings.LastIndex(b.Table, "."); i >= 0 {
		return b.Table[:i]
	}
	return ""
}

// Creating reports whether the blueprint creates its table.
func (b *Blueprint) Creating() bool {
	for _, c := range b.Commands {
		if c.Name == CommandCreate {
			return true
		}
	}
	return false
}

// AddedColumns returns the columns declared on the blueprint.
func (b *Blueprint) AddedColumns() []*Column {
	return b.Columns
}

// Column returns the column named name, or nil.
func (b *Blueprint) Column(name string) *Column {
	for _, c := range b.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func (b *Blueprint) addCommand(name CommandName, columns ...string) *Command {
	cmd := &Command{Name: name, Columns: columns}
	b.Commands = append(b.Commands, cmd)
	return cmd
}

func (b *Blueprint) Create() *Command {
	return b.addCommand(CommandCreate)
}

// Temp marks the table as temporary.
func (b *Blueprint) Temp() *Blueprint {
	b.Temporary = true
	return b
}

func (b *Blueprint) Drop() *Command {
	return b.addCommand(CommandDrop)
}

func (b *Blueprint) DropIfExists() *Command {
	return b.addCommand(CommandDropIfExists)
}

func (b *Blueprint) DropColumn(columns ...string) *Command {
	return b.addCommand(CommandDropColumn, columns...)
}

func (b *Blueprint) DropPrimary() *Command {
	return b.addCommand(CommandDropPrimary)
}

// DropUnique drops the unique index created over columns. Use Named on the
// returned command to drop an index by explicit name.
func (b *Blueprint) DropUnique(columns ...string) *Command {
	return b.addCommand(CommandDropUnique, columns...)
}

func (b *Blueprint) DropIndex(columns ...string) *Command {
	return b.addCommand(CommandDropIndex, columns...)
}

func (b *Blueprint) DropForeign(columns ...string) *Command {
	return b.addCommand(CommandDropForeign, columns...)
}

// Rename renames the table to to.
func (b *Blueprint) Rename(to string) *Command {
	cmd := b.addCommand(CommandRename)
	cmd.To = to
	return cmd
}

func (b *Blueprint) Primary(columns ...string) *Command {
	return b.addCommand(CommandPrimary, columns...)
}

func (b *Blueprint) Unique(columns ...string) *Command {
	return b.addCommand(CommandUnique, columns...)
}

func (b *Blueprint) Index(columns ...string) *Command {
	return b.addCommand(CommandIndex, columns...)
}

// IndexStringLower adds a case-insensitive index over lower(column).
func (b *Blueprint) IndexStringLower(columns ...string) *Command {
	return b.addCommand(CommandIndexStringLower, columns...)
}

func (b *Blueprint) IndexGin(columns ...string) *Command {
	return b.addCommand(CommandIndexGin, columns...)
}

// IndexClean indexes the "<lang>_clean" text field of a JSON column.
func (b *Blueprint) IndexClean(lang Language, column string) *Command {
	cmd := b.addCommand(CommandIndexClean, column)
	cmd.Language = lang
	return cmd
}

func (b *Blueprint) Foreign(columns ...string) *Command {
	return b.addCommand(CommandForeign, columns...)
}

// AddColumn appends a column of type typ and returns it for further tweaking.
func (b *Blueprint) AddColumn(typ ColumnType, name string) *Column {
	col := &Column{Name: name, Type: typ}
	b.Columns = append(b.Columns, col)
	return col
}

// Increments adds an auto-incrementing integer primary key.
func (b *Blueprint) Increments(name string) *Column {
	return b.AddColumn(TypeInteger, name).Increment()
}

func (b *Blueprint) BigIncrements(name string) *Column {
	return b.AddColumn(TypeBigInteger, name).Increment()
}

func (b *Blueprint) SmallIncrements(name string) *Column {
	return b.AddColumn(TypeSmallInteger, name).Increment()
}

func (b *Blueprint) Char(name string, length int) *Column {
	if length <= 0 {
		length = DefaultStringLength
	}
	col := b.AddColumn(TypeChar, name)
	col.Length = length
	return col
}

func (b *Blueprint) String(name string, length int) *Column {
	if length <= 0 {
		length = DefaultStringLength
	}
	col := b.AddColumn(TypeString, name)
	col.Length = length
	return col
}

func (b *Blueprint) Text(name string) *Column       { return b.AddColumn(TypeText, name) }
func (b *Blueprint) Tsvector(name string) *Column   { return b.AddColumn(TypeTsvector, name) }
func (b *Blueprint) DateDiff(name string) *Column   { return b.AddColumn(TypeDateDiff, name) }
func (b *Blueprint) IntArray(name string) *Column   { return b.AddColumn(TypeIntArray, name) }
func (b *Blueprint) TextArray(name string) *Column  { return b.AddColumn(TypeTextArray, name) }
func (b *Blueprint) IP(name string) *Column         { return b.AddColumn(TypeIP, name) }
func (b *Blueprint) MediumText(name string) *Column { return b.AddColumn(TypeMediumText, name) }
func (b *Blueprint) LongText(name string) *Column   { return b.AddColumn(TypeLongText, name) }

func (b *Blueprint) Integer(name string) *Column       { return b.AddColumn(TypeInteger, name) }
func (b *Blueprint) BigInteger(name string) *Column    { return b.AddColumn(TypeBigInteger, name) }
func (b *Blueprint) MediumInteger(name string) *Column { return b.AddColumn(TypeMediumInteger, name) }
func (b *Blueprint) TinyInteger(name string) *Column   { return b.AddColumn(TypeTinyInteger, name) }
func (b *Blueprint) SmallInteger(name string) *Column  { return b.AddColumn(TypeSmallInteger, name) }

func (b *Blueprint) Float(name string) *Column  { return b.AddColumn(TypeFloat, name) }
func (b *Blueprint) Double(name string) *Column { return b.AddColumn(TypeDouble, name) }

// Decimal adds a fixed-point column. A total of zero becomes 8 and negative
// places become 2.
func (b *Blueprint) Decimal(name string, total, places int) *Column {
	if total <= 0 {
		total = 8
	}
	if places < 0 {
		places = 2
	}
	col := b.AddColumn(TypeDecimal, name)
	col.Total = total
	col.Places = places
	return col
}

func (b *Blueprint) Boolean(name string) *Column { return b.AddColumn(TypeBoolean, name) }

func (b *Blueprint) Enum(name string, allowed ...string) *Column {
	col := b.AddColumn(TypeEnum, name)
	col.Allowed = allowed
	return col
}

func (b *Blueprint) JSON(name string) *Column  { return b.AddColumn(TypeJSON, name) }
func (b *Blueprint) JSONB(name string) *Column { return b.AddColumn(TypeJSONB, name) }

func (b *Blueprint) Date(name string) *Column        { return b.AddColumn(TypeDate, name) }
func (b *Blueprint) DateTime(name string) *Column    { return b.AddColumn(TypeDateTime, name) }
func (b *Blueprint) DateTimeTz(name string) *Column  { return b.AddColumn(TypeDateTimeTz, name) }
func (b *Blueprint) Time(name string) *Column        { return b.AddColumn(TypeTime, name) }
func (b *Blueprint) TimeTz(name string) *Column      { return b.AddColumn(TypeTimeTz, name) }
func (b *Blueprint) Timestamp(name string) *Column   { return b.AddColumn(TypeTimestamp, name) }
func (b *Blueprint) TimestampTz(name string) *Column { return b.AddColumn(TypeTimestampTz, name) }

// Timestamps adds nullable created_at and updated_at columns.
func (b *Blueprint) Timestamps() {
	b.Timestamp("created_at").Nullable()
	b.Timestamp("updated_at").Nullable()
}

func (b *Blueprint) Binary(name string) *Column { return b.AddColumn(TypeBinary, name) }
func (b *Blueprint) UUID(name string) *Column   { return b.AddColumn(TypeUUID, name) }

var columnTypes = map[ColumnType]struct{}{
	TypeChar: {}, TypeString: {}, TypeText: {}, TypeTsvector: {}, TypeDateDiff: {},
	TypeIntArray: {}, TypeTextArray: {}, TypeIP: {}, TypeMediumText: {}, TypeLongText: {},
	TypeInteger: {}, TypeBigInteger: {}, TypeMediumInteger: {}, TypeTinyInteger: {},
	TypeSmallInteger: {}, TypeFloat: {}, TypeDouble: {}, TypeDecimal: {}, TypeBoolean: {},
	TypeEnum: {}, TypeJSON: {}, TypeJSONB: {}, TypeDate: {}, TypeDateTime: {},
	TypeDateTimeTz: {}, TypeTime: {}, TypeTimeTz: {}, TypeTimestamp: {}, TypeTimestampTz: {},
	TypeBinary: {}, TypeUUID: {},
}

// Known reports whether t is one of the defined column types.
func (t ColumnType) Known() bool {
	_, ok := columnTypes[t]
	return ok
}
