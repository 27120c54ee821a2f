package datamodel

import (
	"fmt"
	"strconv"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// Directive names of the datamodel grammar.
const (
	directiveID        = "id"
	directiveUnique    = "unique"
	directiveDefault   = "default"
	directiveRelation  = "relation"
	directiveEmbedded  = "embedded"
	directiveCreatedAt = "createdAt"
	directiveUpdatedAt = "updatedAt"
	directiveDB        = "db"
)

// Parse reads a datamodel written in schema definition language and returns
// the resolved model. name is used in error positions.
func Parse(name, source string) (*Model, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: name, Input: source})
	if err != nil {
		return nil, fmt.Errorf("parse datamodel: %w", err)
	}

	model := New()
	for _, def := range doc.Definitions {
		t, err := convertDefinition(def)
		if err != nil {
			return nil, err
		}
		model.Types = append(model.Types, t)
	}
	if len(doc.Extensions) > 0 {
		return nil, fmt.Errorf("parse datamodel: type extensions are not supported (%s)", doc.Extensions[0].Name)
	}

	if err := model.Resolve(); err != nil {
		return nil, err
	}
	return model, nil
}

func convertDefinition(def *ast.Definition) (*Type, error) {
	t := &Type{
		Name:        def.Name,
		Description: def.Description,
	}
	if d := def.Directives.ForName(directiveDB); d != nil {
		t.DatabaseName = stringArgument(d, "name")
	}

	switch def.Kind {
	case ast.Enum:
		t.IsEnum = true
		for _, v := range def.EnumValues {
			t.Fields = append(t.Fields, &Field{Name: v.Name, Description: v.Description})
		}
		return t, nil
	case ast.Object:
		t.IsEmbedded = def.Directives.ForName(directiveEmbedded) != nil
		for _, fd := range def.Fields {
			f, err := convertField(def.Name, fd)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, f)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("%s %s: only type and enum definitions are supported in a datamodel",
			positionOf(def.Position), def.Name)
	}
}

func convertField(typeName string, fd *ast.FieldDefinition) (*Field, error) {
	f := &Field{
		Name:        fd.Name,
		Description: fd.Description,
	}

	switch {
	case fd.Type.Elem == nil:
		f.Type = fd.Type.NamedType
		f.IsRequired = fd.Type.NonNull
	case fd.Type.Elem.Elem == nil:
		f.Type = fd.Type.Elem.NamedType
		f.IsList = true
	default:
		return nil, &DefinitionError{Type: typeName, Field: fd.Name, Message: "nested lists are not supported"}
	}

	for _, d := range fd.Directives {
		switch d.Name {
		case directiveID:
			f.IsID = true
			f.IDStrategy = IDStrategyAuto
			if arg := d.Arguments.ForName("strategy"); arg != nil && arg.Value != nil {
				strategy := IDStrategy(arg.Value.Raw)
				switch strategy {
				case IDStrategyAuto, IDStrategyNone, IDStrategySequence:
					f.IDStrategy = strategy
				default:
					return nil, &DefinitionError{Type: typeName, Field: fd.Name,
						Message: fmt.Sprintf("unknown id strategy %q", arg.Value.Raw)}
				}
			}
		case directiveUnique:
			f.IsUnique = true
		case directiveDefault:
			arg := d.Arguments.ForName("value")
			if arg == nil || arg.Value == nil {
				return nil, &DefinitionError{Type: typeName, Field: fd.Name, Message: "@default requires a value argument"}
			}
			value, err := literalValue(arg.Value)
			if err != nil {
				return nil, &DefinitionError{Type: typeName, Field: fd.Name, Message: err.Error()}
			}
			f.DefaultValue = value
		case directiveRelation:
			f.RelationName = stringArgument(d, "name")
		case directiveCreatedAt:
			f.IsCreatedAt = true
		case directiveUpdatedAt:
			f.IsUpdatedAt = true
		case directiveDB:
			f.DatabaseName = stringArgument(d, "name")
		}
	}

	f.IsUnique = f.IsUnique || f.IsID
	f.IsReadOnly = (f.IsID && f.IDStrategy != IDStrategyNone) || f.IsCreatedAt || f.IsUpdatedAt
	return f, nil
}

func stringArgument(d *ast.Directive, name string) string {
	arg := d.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return ""
	}
	return arg.Value.Raw
}

func literalValue(v *ast.Value) (any, error) {
	switch v.Kind {
	case ast.StringValue, ast.BlockValue:
		return v.Raw, nil
	case ast.IntValue:
		n, err := strconv.ParseInt(v.Raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer default %s: %w", v.Raw, err)
		}
		return n, nil
	case ast.FloatValue:
		n, err := strconv.ParseFloat(v.Raw, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid float default %s: %w", v.Raw, err)
		}
		return n, nil
	case ast.BooleanValue:
		return v.Raw == "true", nil
	case ast.EnumValue:
		return EnumLiteral(v.Raw), nil
	case ast.NullValue:
		return nil, nil
	default:
		return nil, fmt.Errorf("default value %s must be a scalar literal", v.String())
	}
}

func positionOf(pos *ast.Position) string {
	if pos == nil {
		return "datamodel:"
	}
	name := "datamodel"
	if pos.Src != nil && pos.Src.Name != "" {
		name = pos.Src.Name
	}
	return fmt.Sprintf("%s:%d:%d:", name, pos.Line, pos.Column)
}
