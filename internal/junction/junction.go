// Package junction recognizes join tables: tables whose rows only link two
// other tables. Pure join tables carry nothing but the two foreign key
// columns and are inferred as many-to-many relations; attribute join tables
// carry extra columns and stay types of their own.
package junction

import (
	"sort"

	"opencrud-gen/internal/introspection"
)

// Kind classifies a table.
type Kind int

const (
	NotJunction Kind = iota
	Pure
	WithAttributes
)

func (k Kind) String() string {
	switch k {
	case NotJunction:
		return "not-junction"
	case Pure:
		return "pure"
	case WithAttributes:
		return "with-attributes"
	default:
		return "unknown"
	}
}

// Side is one foreign key of a join table.
type Side struct {
	Column           string
	ReferencedTable  string
	ReferencedColumn string
}

// Info describes a join table. Left references the alphabetically smaller
// table.
type Info struct {
	Table      string
	Kind       Kind
	Left       Side
	Right      Side
	Attributes []string
}

// Map is keyed by join table name.
type Map map[string]Info

// Pure returns the pure join tables ordered by name.
func (m Map) Pure() []Info {
	var out []Info
	for _, info := range m {
		if info.Kind == Pure {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })
	return out
}

// IsPure reports whether table is a pure join table.
func (m Map) IsPure(table string) bool {
	return m[table].Kind == Pure
}

// Classify inspects every table of schema. A table is a join table when
//   - it has exactly two single-column foreign keys to two different tables,
//   - both foreign key columns are NOT NULL,
//   - the primary key or a unique index covers both columns,
//   - both referenced tables are part of schema.
func Classify(schema *introspection.Schema) Map {
	result := make(Map)
	for i := range schema.Tables {
		if info, ok := classify(schema, &schema.Tables[i]); ok {
			result[info.Table] = info
		}
	}
	return result
}

func classify(schema *introspection.Schema, table *introspection.Table) (Info, bool) {
	constraints := table.ForeignKeyConstraints()
	if len(constraints) != 2 || !constraints[0].IsSingleColumn() || !constraints[1].IsSingleColumn() {
		return Info{}, false
	}

	left, right := side(constraints[0]), side(constraints[1])
	if left.ReferencedTable == right.ReferencedTable {
		return Info{}, false
	}
	if schema.Table(left.ReferencedTable) == nil || schema.Table(right.ReferencedTable) == nil {
		return Info{}, false
	}

	keyColumns := map[string]bool{left.Column: true, right.Column: true}
	for _, name := range []string{left.Column, right.Column} {
		col := table.Column(name)
		if col == nil || col.IsNullable {
			return Info{}, false
		}
	}
	if !covered(table, keyColumns) {
		return Info{}, false
	}

	var attributes []string
	for _, col := range table.Columns {
		if !keyColumns[col.Name] {
			attributes = append(attributes, col.Name)
		}
	}
	kind := Pure
	if len(attributes) > 0 {
		kind = WithAttributes
	}

	if left.ReferencedTable > right.ReferencedTable {
		left, right = right, left
	}
	return Info{Table: table.Name, Kind: kind, Left: left, Right: right, Attributes: attributes}, true
}

func side(c introspection.ForeignKeyConstraint) Side {
	return Side{Column: c.Columns[0], ReferencedTable: c.ReferencedTable, ReferencedColumn: c.ReferencedColumns[0]}
}

// covered reports whether the primary key or a unique index contains all of
// cols.
func covered(table *introspection.Table, cols map[string]bool) bool {
	candidates := [][]string{table.PrimaryKey}
	for _, idx := range table.Indexes {
		if idx.Unique {
			candidates = append(candidates, idx.Columns)
		}
	}
	for _, candidate := range candidates {
		found := 0
		for _, col := range candidate {
			if cols[col] {
				found++
			}
		}
		if found == len(cols) {
			return true
		}
	}
	return false
}
