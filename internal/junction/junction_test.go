package junction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"opencrud-gen/internal/introspection"
)

func keyTable(name string) introspection.Table {
	return introspection.Table{
		Name:       name,
		Columns:    []introspection.Column{{Name: "id", IsPrimaryKey: true}},
		PrimaryKey: []string{"id"},
	}
}

func linkTable(name string, mutate func(*introspection.Table)) introspection.Table {
	t := introspection.Table{
		Name: name,
		Columns: []introspection.Column{
			{Name: "user_id"},
			{Name: "role_id"},
		},
		PrimaryKey: []string{"user_id", "role_id"},
		ForeignKeys: []introspection.ForeignKey{
			{ConstraintName: "fk_user", ColumnName: "user_id", ReferencedTable: "users", ReferencedColumn: "id"},
			{ConstraintName: "fk_role", ColumnName: "role_id", ReferencedTable: "roles", ReferencedColumn: "id"},
		},
	}
	if mutate != nil {
		mutate(&t)
	}
	return t
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		link  introspection.Table
		want  Kind
		attrs []string
	}{
		{
			name: "pure",
			link: linkTable("user_roles", nil),
			want: Pure,
		},
		{
			name: "extra columns",
			link: linkTable("user_roles", func(t *introspection.Table) {
				t.Columns = append(t.Columns, introspection.Column{Name: "granted_at"})
			}),
			want:  WithAttributes,
			attrs: []string{"granted_at"},
		},
		{
			name: "covered by unique index",
			link: linkTable("user_roles", func(t *introspection.Table) {
				t.Columns = append(t.Columns, introspection.Column{Name: "id", IsPrimaryKey: true})
				t.PrimaryKey = []string{"id"}
				t.Indexes = []introspection.Index{{Name: "uq", Unique: true, Columns: []string{"role_id", "user_id"}}}
			}),
			want:  WithAttributes,
			attrs: []string{"id"},
		},
		{
			name: "not covered",
			link: linkTable("user_roles", func(t *introspection.Table) {
				t.PrimaryKey = nil
			}),
			want: NotJunction,
		},
		{
			name: "nullable key column",
			link: linkTable("user_roles", func(t *introspection.Table) {
				t.Columns[1].IsNullable = true
			}),
			want: NotJunction,
		},
		{
			name: "single foreign key",
			link: linkTable("user_roles", func(t *introspection.Table) {
				t.ForeignKeys = t.ForeignKeys[:1]
			}),
			want: NotJunction,
		},
		{
			name: "same table twice",
			link: linkTable("user_roles", func(t *introspection.Table) {
				t.ForeignKeys[1].ReferencedTable = "users"
			}),
			want: NotJunction,
		},
		{
			name: "unknown referenced table",
			link: linkTable("user_roles", func(t *introspection.Table) {
				t.ForeignKeys[1].ReferencedTable = "groups"
			}),
			want: NotJunction,
		},
		{
			name: "composite foreign key",
			link: linkTable("user_roles", func(t *introspection.Table) {
				t.ForeignKeys[1].ConstraintName = "fk_user"
				t.ForeignKeys[1].OrdinalPosition = 2
				t.ForeignKeys[1].ReferencedTable = "users"
			}),
			want: NotJunction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			schema := &introspection.Schema{Tables: []introspection.Table{keyTable("roles"), tt.link, keyTable("users")}}
			got := Classify(schema)

			info, ok := got[tt.link.Name]
			if tt.want == NotJunction {
				assert.False(t, ok)
				assert.False(t, got.IsPure(tt.link.Name))
				return
			}
			assert.True(t, ok)
			assert.Equal(t, tt.want, info.Kind)
			assert.Equal(t, tt.attrs, info.Attributes)
			assert.Equal(t, Side{Column: "role_id", ReferencedTable: "roles", ReferencedColumn: "id"}, info.Left)
			assert.Equal(t, Side{Column: "user_id", ReferencedTable: "users", ReferencedColumn: "id"}, info.Right)
			assert.Equal(t, tt.want == Pure, got.IsPure(tt.link.Name))
		})
	}
}

func TestMapPure(t *testing.T) {
	m := Map{
		"b_links": {Table: "b_links", Kind: Pure},
		"a_links": {Table: "a_links", Kind: Pure},
		"graded":  {Table: "graded", Kind: WithAttributes},
	}
	pure := m.Pure()
	assert.Len(t, pure, 2)
	assert.Equal(t, "a_links", pure[0].Table)
	assert.Equal(t, "b_links", pure[1].Table)
	assert.Equal(t, "with-attributes", WithAttributes.String())
}
