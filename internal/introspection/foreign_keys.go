package introspection

import (
	"fmt"
	"slices"
	"sort"
)

// ForeignKeyConstraint is a foreign key with its column pairs in
// declaration order.
type ForeignKeyConstraint struct {
	Name              string
	ReferencedTable   string
	Columns           []string
	ReferencedColumns []string
}

// IsSingleColumn reports whether the constraint spans one column.
func (c ForeignKeyConstraint) IsSingleColumn() bool {
	return len(c.Columns) == 1
}

// ForeignKeyConstraints groups the per-column foreign key rows of the table
// by constraint. Constraints are ordered by name; unnamed rows each form
// their own constraint.
func (t *Table) ForeignKeyConstraints() []ForeignKeyConstraint {
	if len(t.ForeignKeys) == 0 {
		return nil
	}

	keyed := make(map[string][]ForeignKey)
	for i, fk := range t.ForeignKeys {
		key := fk.ConstraintName
		if key == "" {
			key = fmt.Sprintf("\x00%06d", i)
		}
		keyed[key] = append(keyed[key], fk)
	}

	keys := make([]string, 0, len(keyed))
	for key := range keyed {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	result := make([]ForeignKeyConstraint, 0, len(keys))
	for _, key := range keys {
		rows := keyed[key]
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].OrdinalPosition < rows[j].OrdinalPosition
		})
		c := ForeignKeyConstraint{Name: rows[0].ConstraintName, ReferencedTable: rows[0].ReferencedTable}
		for _, fk := range rows {
			c.Columns = append(c.Columns, fk.ColumnName)
			c.ReferencedColumns = append(c.ReferencedColumns, fk.ReferencedColumn)
		}
		result = append(result, c)
	}
	return result
}
