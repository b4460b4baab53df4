package diff

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/pgblueprint/grammar"
	"github.com/ridoystarlord/pgblueprint/introspect"
	"github.com/ridoystarlord/pgblueprint/runner"
	"github.com/ridoystarlord/pgblueprint/schema"
)

// Namer resolves the names the grammar gives to tables and indexes.
type Namer interface {
	grammar.IndexNamer
	Table(table string) string
	Unprefixed(table string) (string, bool)
}

// Options controls which destructive changes are planned.
type Options struct {
	// Prune drops columns, indexes and foreign keys the blueprints no
	// longer declare.
	Prune bool
	// DropTables drops tables (carrying the table prefix) that no
	// blueprint declares. The migrations table is never dropped.
	DropTables bool
}

// Plan compares the desired blueprints with the existing tables and returns
// the blueprints that bring the database to the desired state. Creates come
// first in declaration order, then alterations, then table drops.
func Plan(namer Namer, desired []*schema.Blueprint, existing []introspect.ExistingTable, opts Options) ([]*schema.Blueprint, error) {
	existingTables := make(map[string]introspect.ExistingTable, len(existing))
	for _, t := range existing {
		existingTables[t.QualifiedName()] = t
	}

	declared := make(map[string]bool, len(desired))
	var creates, alters []*schema.Blueprint
	for _, b := range desired {
		if b == nil || b.Table == "" {
			return nil, fmt.Errorf("plan: %w", &grammar.MalformedCommandError{Field: "table name"})
		}
		key := tableKey(namer.Table(b.Table))
		if declared[key] {
			return nil, fmt.Errorf("plan: table %s is declared twice", b.Table)
		}
		declared[key] = true

		table, exists := existingTables[key]
		if !exists {
			creates = append(creates, creating(b))
			continue
		}
		change, err := alter(namer, b, table, opts)
		if err != nil {
			return nil, err
		}
		if change != nil {
			alters = append(alters, change)
		}
	}

	plan := append(creates, alters...)
	if opts.DropTables {
		for _, t := range existing {
			if declared[t.QualifiedName()] {
				continue
			}
			name, ok := namer.Unprefixed(t.QualifiedName())
			if !ok || name == runner.MigrationsTable {
				continue
			}
			drop := schema.NewBlueprint(name)
			drop.DropIfExists()
			plan = append(plan, drop)
		}
	}
	return plan, nil
}

// creating returns b with a create command, copying it when one is missing.
func creating(b *schema.Blueprint) *schema.Blueprint {
	if b.Creating() {
		return b
	}
	cp := *b
	cp.Commands = append([]*schema.Command{{Name: schema.CommandCreate}}, b.Commands...)
	return &cp
}

// alter returns a blueprint holding the changes to table, or nil when the
// table already matches.
func alter(namer Namer, b *schema.Blueprint, table introspect.ExistingTable, opts Options) (*schema.Blueprint, error) {
	change := schema.NewBlueprint(b.Table)
	existingNames := table.Names()
	wanted := map[string]bool{}

	for _, col := range b.Columns {
		if table.Column(col.Name) == nil {
			change.Columns = append(change.Columns, col)
			continue
		}
		for _, c := range fluentCommands(col) {
			name, err := namer.IndexName(b, c)
			if err != nil {
				return nil, err
			}
			wanted[name] = true
			if !existingNames[name] {
				change.Commands = append(change.Commands, c)
			}
		}
	}
	// Fluent flags on added columns compile to index commands of their own.
	for _, col := range change.Columns {
		for _, c := range fluentCommands(col) {
			name, err := namer.IndexName(b, c)
			if err != nil {
				return nil, err
			}
			wanted[name] = true
		}
	}

	for _, c := range b.Commands {
		if !createsName(c.Name) {
			continue
		}
		name, err := namer.IndexName(b, c)
		if err != nil {
			return nil, err
		}
		wanted[name] = true
		if !existingNames[name] {
			change.Commands = append(change.Commands, c)
		}
	}

	if opts.Prune {
		var dropped []string
		for _, col := range table.Columns {
			if b.Column(col.ColumnName) == nil {
				dropped = append(dropped, col.ColumnName)
			}
		}
		for _, fk := range table.ForeignKeys {
			if !wanted[fk.ConstraintName] {
				change.DropForeign().Named(fk.ConstraintName)
				wanted[fk.ConstraintName] = true
			}
		}
		for _, idx := range table.Indexes {
			if idx.IsPrimary || wanted[idx.IndexName] {
				continue
			}
			change.DropIndex().Named(idx.IndexName)
		}
		if len(dropped) > 0 {
			change.DropColumn(dropped...)
		}
	}

	if len(change.Columns) == 0 && len(change.Commands) == 0 {
		return nil, nil
	}
	return change, nil
}

// fluentCommands mirrors the implicit commands grammar.Commands derives
// from column flags.
func fluentCommands(col *schema.Column) []*schema.Command {
	var out []*schema.Command
	if col.PrimaryKey {
		out = append(out, &schema.Command{Name: schema.CommandPrimary, Columns: []string{col.Name}})
	}
	if col.UniqueKey {
		out = append(out, &schema.Command{Name: schema.CommandUnique, Columns: []string{col.Name}})
	}
	if col.IndexKey {
		out = append(out, &schema.Command{Name: schema.CommandIndex, Columns: []string{col.Name}})
	}
	return out
}

func createsName(name schema.CommandName) bool {
	switch name {
	case schema.CommandPrimary, schema.CommandUnique, schema.CommandIndex,
		schema.CommandIndexStringLower, schema.CommandIndexGin, schema.CommandIndexClean,
		schema.CommandForeign:
		return true
	}
	return false
}

func tableKey(table string) string {
	return strings.TrimPrefix(table, introspect.DefaultSchema+".")
}
