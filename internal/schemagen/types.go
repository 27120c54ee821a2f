package schemagen

import "strings"

// Kind is the GraphQL kind of a generated type.
type Kind int

const (
	KindObject Kind = iota
	KindInputObject
	KindEnum
	KindScalar
	KindInterface
)

func (k Kind) String() string {
	switch k {
	case KindObject:
		return "type"
	case KindInputObject:
		return "input"
	case KindEnum:
		return "enum"
	case KindScalar:
		return "scalar"
	case KindInterface:
		return "interface"
	default:
		return "unknown"
	}
}

// TypeRef references a named type, possibly wrapped in list and non-null
// modifiers.
type TypeRef struct {
	// Name is set for named references.
	Name string
	// Elem is set for list references.
	Elem    *TypeRef
	NonNull bool
}

// Named references the type called name.
func Named(name string) TypeRef {
	return TypeRef{Name: name}
}

// NonNull marks t as required.
func NonNull(t TypeRef) TypeRef {
	t.NonNull = true
	return t
}

// List wraps t in a nullable list.
func List(t TypeRef) TypeRef {
	elem := t
	return TypeRef{Elem: &elem}
}

// NamedType returns the innermost type name.
func (t TypeRef) NamedType() string {
	for t.Elem != nil {
		t = *t.Elem
	}
	return t.Name
}

// IsList reports whether t is a list reference.
func (t TypeRef) IsList() bool {
	return t.Elem != nil
}

// String renders t in SDL notation, such as "[Post!]!".
func (t TypeRef) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t TypeRef) write(b *strings.Builder) {
	if t.Elem != nil {
		b.WriteByte('[')
		t.Elem.write(b)
		b.WriteByte(']')
	} else {
		b.WriteString(t.Name)
	}
	if t.NonNull {
		b.WriteByte('!')
	}
}

// requiredIf returns t as non-null when cond holds.
func requiredIf(cond bool, t TypeRef) TypeRef {
	if cond {
		return NonNull(t)
	}
	return t
}

// listOf is [name!].
func listOf(t TypeRef) TypeRef {
	return List(NonNull(t))
}

// TypeDef is a generated named type.
type TypeDef struct {
	Name        string
	Kind        Kind
	Description string
	// Fields are in generation order. Unused for enums and scalars.
	Fields []*FieldDef
	// Values are the members of an enum.
	Values     []string
	Interfaces []string
}

// Field returns the field called name, or nil.
func (d *TypeDef) Field(name string) *FieldDef {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// FieldNames returns the names of all fields in order.
func (d *TypeDef) FieldNames() []string {
	names := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		names = append(names, f.Name)
	}
	return names
}

// IsEmpty reports whether the type has no members.
func (d *TypeDef) IsEmpty() bool {
	if d.Kind == KindEnum {
		return len(d.Values) == 0
	}
	if d.Kind == KindScalar {
		return false
	}
	return len(d.Fields) == 0
}

// FieldDef is a field of an object, interface or input object.
type FieldDef struct {
	Name string
	Type TypeRef
	Args []*ArgDef
}

// Arg returns the argument called name, or nil.
func (f *FieldDef) Arg(name string) *ArgDef {
	for _, a := range f.Args {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// ArgDef is an argument of an output field.
type ArgDef struct {
	Name string
	Type TypeRef
}
