// Package datamodel holds the parsed application model the schema generator
// consumes: types, their ordered fields and the relations between them.
package datamodel

// Scalar type identifiers understood by the generator.
const (
	ScalarString   = "String"
	ScalarInt      = "Int"
	ScalarFloat    = "Float"
	ScalarBoolean  = "Boolean"
	ScalarID       = "ID"
	ScalarLong     = "Long"
	ScalarDateTime = "DateTime"
	ScalarJSON     = "Json"
	ScalarUUID     = "UUID"
)

var scalarTypes = map[string]bool{
	ScalarString:   true,
	ScalarInt:      true,
	ScalarFloat:    true,
	ScalarBoolean:  true,
	ScalarID:       true,
	ScalarLong:     true,
	ScalarDateTime: true,
	ScalarJSON:     true,
	ScalarUUID:     true,
}

// IsScalar reports whether name is one of the supported scalar identifiers.
func IsScalar(name string) bool {
	return scalarTypes[name]
}

// IDStrategy controls how identity values are assigned.
type IDStrategy string

const (
	IDStrategyAuto     IDStrategy = "AUTO"
	IDStrategyNone     IDStrategy = "NONE"
	IDStrategySequence IDStrategy = "SEQUENCE"
)

// EnumLiteral is a default value naming an enum member.
type EnumLiteral string

// Field is a single field of a datamodel type.
type Field struct {
	Name string
	// Type is a scalar identifier, an enum name or the name of the related type.
	Type string

	IsRequired bool
	IsList     bool
	IsUnique   bool
	IsID       bool
	IsReadOnly bool

	IDStrategy  IDStrategy
	IsCreatedAt bool
	IsUpdatedAt bool

	// DefaultValue is nil, a string, int64, float64, bool or EnumLiteral.
	DefaultValue any

	// RelationName disambiguates multiple relations between the same types.
	RelationName string
	// RelatedField is the opposite field of a two-sided relation. It is a
	// navigation link only.
	RelatedField *Field

	DatabaseName string
	Description  string

	// target is the resolved enum or object type, nil for scalars.
	target *Type
}

// Target returns the resolved type of a relation or enum field.
func (f *Field) Target() *Type {
	return f.target
}

// IsRelation reports whether the field points at another object type.
func (f *Field) IsRelation() bool {
	return f.target != nil && !f.target.IsEnum
}

// IsEnum reports whether the field holds a value of a datamodel enum.
func (f *Field) IsEnum() bool {
	return f.target != nil && f.target.IsEnum
}

// IsScalar reports whether the field holds a built-in scalar.
func (f *Field) IsScalar() bool {
	return f.target == nil
}

// IsTwoSided reports whether the relation has a connected back field.
func (f *Field) IsTwoSided() bool {
	return f.RelatedField != nil
}

// Type is a datamodel object or enum type.
type Type struct {
	Name       string
	IsEmbedded bool
	IsEnum     bool
	// Fields are in declaration order. For enums they are the enum values.
	Fields []*Field

	DatabaseName string
	Description  string
}

// Field returns the field called name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// IDField returns the identity field of the type, or nil.
func (t *Type) IDField() *Field {
	for _, f := range t.Fields {
		if f.IsID {
			return f
		}
	}
	return nil
}

// EnumValues returns the member names of an enum type.
func (t *Type) EnumValues() []string {
	values := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		values = append(values, f.Name)
	}
	return values
}

// Model is the ordered set of types of one datamodel.
type Model struct {
	Types []*Type

	byName   map[string]*Type
	resolved bool
}

// New builds a model from types. Call Resolve before generating from it.
func New(types ...*Type) *Model {
	return &Model{Types: types}
}

// Type returns the type called name, or nil.
func (m *Model) Type(name string) *Type {
	if m.byName == nil {
		m.index()
	}
	return m.byName[name]
}

// Resolved reports whether Resolve completed successfully.
func (m *Model) Resolved() bool {
	return m.resolved
}

func (m *Model) index() {
	m.byName = make(map[string]*Type, len(m.Types))
	for _, t := range m.Types {
		if _, exists := m.byName[t.Name]; !exists {
			m.byName[t.Name] = t
		}
	}
}
