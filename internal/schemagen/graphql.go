package schemagen

import (
	"fmt"

	"github.com/graphql-go/graphql"

	"opencrud-gen/internal/scalars"
)

// GraphQL materializes s as an executable graphql-go schema. Fields have no
// resolvers; the schema serves introspection.
func (s *Schema) GraphQL() (graphql.Schema, error) {
	m := &materializer{
		defs:  make(map[string]*TypeDef, len(s.Types)),
		types: make(map[string]graphql.Type, len(s.Types)),
	}
	for _, def := range s.Types {
		m.defs[def.Name] = def
	}
	if err := m.checkReferences(); err != nil {
		return graphql.Schema{}, err
	}

	// Interfaces come first so objects can list them directly.
	for _, def := range s.Types {
		if def.Kind == KindInterface {
			m.types[def.Name] = m.newInterface(def)
		}
	}
	for _, def := range s.Types {
		switch def.Kind {
		case KindScalar:
			scalar, ok := scalars.Lookup(def.Name)
			if !ok {
				return graphql.Schema{}, fmt.Errorf("%s is not a scalar type", def.Name)
			}
			m.types[def.Name] = scalar
		case KindEnum:
			m.types[def.Name] = newEnum(def)
		case KindObject:
			m.types[def.Name] = m.newObject(def)
		case KindInputObject:
			m.types[def.Name] = m.newInputObject(def)
		}
	}

	cfg := graphql.SchemaConfig{Query: m.object(s.Query)}
	if s.Mutation != nil {
		cfg.Mutation = m.object(s.Mutation)
	}
	if s.Subscription != nil {
		cfg.Subscription = m.object(s.Subscription)
	}
	for _, def := range s.Types {
		cfg.Types = append(cfg.Types, m.types[def.Name])
	}

	schema, err := graphql.NewSchema(cfg)
	if err != nil {
		return graphql.Schema{}, fmt.Errorf("materialize schema: %w", err)
	}
	return schema, nil
}

type materializer struct {
	defs  map[string]*TypeDef
	types map[string]graphql.Type
}

// checkReferences makes sure every referenced name is defined, since the
// field thunks run inside graphql-go and cannot report errors.
func (m *materializer) checkReferences() error {
	known := func(name string) bool {
		if _, ok := m.defs[name]; ok {
			return true
		}
		return scalars.IsBuiltin(name)
	}
	for _, def := range m.defs {
		for _, i := range def.Interfaces {
			if !known(i) {
				return fmt.Errorf("type %s implements undefined interface %s", def.Name, i)
			}
		}
		for _, f := range def.Fields {
			if name := f.Type.NamedType(); !known(name) {
				return fmt.Errorf("field %s.%s references undefined type %s", def.Name, f.Name, name)
			}
			for _, a := range f.Args {
				if name := a.Type.NamedType(); !known(name) {
					return fmt.Errorf("argument %s.%s(%s) references undefined type %s", def.Name, f.Name, a.Name, name)
				}
			}
		}
	}
	return nil
}

func (m *materializer) object(def *TypeDef) *graphql.Object {
	obj, _ := m.types[def.Name].(*graphql.Object)
	return obj
}

func (m *materializer) typeOf(ref TypeRef) graphql.Type {
	var t graphql.Type
	if ref.Elem != nil {
		t = graphql.NewList(m.typeOf(*ref.Elem))
	} else if named, ok := m.types[ref.Name]; ok {
		t = named
	} else {
		t, _ = scalars.Lookup(ref.Name)
	}
	if ref.NonNull {
		return graphql.NewNonNull(t)
	}
	return t
}

func (m *materializer) fields(def *TypeDef) graphql.Fields {
	fields := make(graphql.Fields, len(def.Fields))
	for _, f := range def.Fields {
		field := &graphql.Field{Name: f.Name, Type: m.typeOf(f.Type)}
		if len(f.Args) > 0 {
			field.Args = make(graphql.FieldConfigArgument, len(f.Args))
			for _, a := range f.Args {
				field.Args[a.Name] = &graphql.ArgumentConfig{Type: m.typeOf(a.Type)}
			}
		}
		fields[f.Name] = field
	}
	return fields
}

func (m *materializer) newObject(def *TypeDef) *graphql.Object {
	var interfaces []*graphql.Interface
	for _, name := range def.Interfaces {
		if iface, ok := m.types[name].(*graphql.Interface); ok {
			interfaces = append(interfaces, iface)
		}
	}
	return graphql.NewObject(graphql.ObjectConfig{
		Name:        def.Name,
		Description: def.Description,
		Interfaces:  interfaces,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return m.fields(def)
		}),
	})
}

func (m *materializer) newInterface(def *TypeDef) *graphql.Interface {
	return graphql.NewInterface(graphql.InterfaceConfig{
		Name:        def.Name,
		Description: def.Description,
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return m.fields(def)
		}),
		ResolveType: func(graphql.ResolveTypeParams) *graphql.Object {
			return nil
		},
	})
}

func (m *materializer) newInputObject(def *TypeDef) *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name:        def.Name,
		Description: def.Description,
		Fields: graphql.InputObjectConfigFieldMapThunk(func() graphql.InputObjectConfigFieldMap {
			fields := make(graphql.InputObjectConfigFieldMap, len(def.Fields))
			for _, f := range def.Fields {
				fields[f.Name] = &graphql.InputObjectFieldConfig{Type: m.typeOf(f.Type)}
			}
			return fields
		}),
	})
}

func newEnum(def *TypeDef) *graphql.Enum {
	values := make(graphql.EnumValueConfigMap, len(def.Values))
	for _, v := range def.Values {
		values[v] = &graphql.EnumValueConfig{Value: v}
	}
	return graphql.NewEnum(graphql.EnumConfig{
		Name:        def.Name,
		Description: def.Description,
		Values:      values,
	})
}
