package grammar

import (
	"errors"
	"fmt"

	"github.com/ridoystarlord/pgblueprint/schema"
)

// Sentinel errors matched by the typed compile errors below.
var (
	// ErrMalformedCommand is returned when a field the statement needs is
	// absent from the command or blueprint.
	ErrMalformedCommand = errors.New("grammar: malformed command")

	// ErrUnsupportedType is returned for a column type the dialect cannot map.
	ErrUnsupportedType = errors.New("grammar: unsupported column type")

	// ErrUnsupportedModifier is returned when a modifier is requested on a
	// column type that cannot carry it.
	ErrUnsupportedModifier = errors.New("grammar: unsupported modifier")
)

// MalformedCommandError reports a structurally incomplete command.
type MalformedCommandError struct {
	Command schema.CommandName
	Table   string
	Column  string
	Field   string
}

func (e *MalformedCommandError) Error() string {
	switch {
	case e.Column != "":
		return fmt.Sprintf("grammar: malformed column %q: missing %s", e.Column, e.Field)
	case e.Command == "":
		return fmt.Sprintf("grammar: malformed blueprint for table %q: missing %s", e.Table, e.Field)
	default:
		return fmt.Sprintf("grammar: malformed %s command on table %q: missing %s", e.Command, e.Table, e.Field)
	}
}

// Is reports whether target is ErrMalformedCommand.
func (e *MalformedCommandError) Is(target error) bool {
	return target == ErrMalformedCommand
}

// UnsupportedTypeError reports a column whose type has no mapping.
type UnsupportedTypeError struct {
	Column string
	Type   schema.ColumnType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("grammar: column %q has unsupported type %q", e.Column, e.Type)
}

func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// UnsupportedModifierError reports a modifier the column type cannot carry.
type UnsupportedModifierError struct {
	Column   string
	Type     schema.ColumnType
	Modifier string
}

func (e *UnsupportedModifierError) Error() string {
	return fmt.Sprintf("grammar: modifier %s is not supported on column %q of type %q", e.Modifier, e.Column, e.Type)
}

func (e *UnsupportedModifierError) Is(target error) bool {
	return target == ErrUnsupportedModifier
}

// IsMalformedCommand reports whether err is or wraps a MalformedCommandError.
func IsMalformedCommand(err error) bool {
	return errors.Is(err, ErrMalformedCommand)
}

// IsUnsupportedType reports whether err is or wraps an UnsupportedTypeError.
func IsUnsupportedType(err error) bool {
	return errors.Is(err, ErrUnsupportedType)
}

// IsUnsupportedModifier reports whether err is or wraps an UnsupportedModifierError.
func IsUnsupportedModifier(err error) bool {
	return errors.Is(err, ErrUnsupportedModifier)
}

func malformed(b *schema.Blueprint, c *schema.Command, field string) error {
	e := &MalformedCommandError{Field: field}
	if b != nil {
		e.Table = b.Table
	}
	if c != nil {
		e.Command = c.Name
	}
	return e
}
