package datamodel

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"
)

// Render prints the model as datamodel SDL. Parsing the output yields an
// equivalent model.
func Render(m *Model) (string, error) {
	doc := &ast.SchemaDocument{}
	for _, t := range m.Types {
		def, err := renderType(t)
		if err != nil {
			return "", err
		}
		doc.Definitions = append(doc.Definitions, def)
	}

	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String(), nil
}

func renderType(t *Type) (*ast.Definition, error) {
	def := &ast.Definition{
		Name:        t.Name,
		Description: t.Description,
	}
	if t.DatabaseName != "" {
		def.Directives = append(def.Directives, directive(directiveDB, stringArg("name", t.DatabaseName)))
	}

	if t.IsEnum {
		def.Kind = ast.Enum
		for _, f := range t.Fields {
			def.EnumValues = append(def.EnumValues, &ast.EnumValueDefinition{Name: f.Name, Description: f.Description})
		}
		return def, nil
	}

	def.Kind = ast.Object
	if t.IsEmbedded {
		def.Directives = append(def.Directives, directive(directiveEmbedded))
	}
	for _, f := range t.Fields {
		fd, err := renderField(t, f)
		if err != nil {
			return nil, err
		}
		def.Fields = append(def.Fields, fd)
	}
	return def, nil
}

func renderField(t *Type, f *Field) (*ast.FieldDefinition, error) {
	fd := &ast.FieldDefinition{
		Name:        f.Name,
		Description: f.Description,
	}
	switch {
	case f.IsList:
		fd.Type = ast.NonNullListType(ast.NonNullNamedType(f.Type, nil), nil)
	case f.IsRequired:
		fd.Type = ast.NonNullNamedType(f.Type, nil)
	default:
		fd.Type = ast.NamedType(f.Type, nil)
	}

	if f.IsID {
		if f.IDStrategy != "" && f.IDStrategy != IDStrategyAuto {
			fd.Directives = append(fd.Directives, directive(directiveID, enumArg("strategy", string(f.IDStrategy))))
		} else {
			fd.Directives = append(fd.Directives, directive(directiveID))
		}
	} else if f.IsUnique {
		fd.Directives = append(fd.Directives, directive(directiveUnique))
	}
	if f.IsCreatedAt {
		fd.Directives = append(fd.Directives, directive(directiveCreatedAt))
	}
	if f.IsUpdatedAt {
		fd.Directives = append(fd.Directives, directive(directiveUpdatedAt))
	}
	if f.DefaultValue != nil {
		value, err := literalAST(f.DefaultValue)
		if err != nil {
			return nil, &DefinitionError{Type: t.Name, Field: f.Name, Message: err.Error()}
		}
		fd.Directives = append(fd.Directives, directive(directiveDefault, &ast.Argument{Name: "value", Value: value}))
	}
	if f.RelationName != "" {
		fd.Directives = append(fd.Directives, directive(directiveRelation, stringArg("name", f.RelationName)))
	}
	if f.DatabaseName != "" {
		fd.Directives = append(fd.Directives, directive(directiveDB, stringArg("name", f.DatabaseName)))
	}
	return fd, nil
}

func directive(name string, args ...*ast.Argument) *ast.Directive {
	return &ast.Directive{Name: name, Arguments: args}
}

func stringArg(name, value string) *ast.Argument {
	return &ast.Argument{Name: name, Value: &ast.Value{Kind: ast.StringValue, Raw: value}}
}

func enumArg(name, value string) *ast.Argument {
	return &ast.Argument{Name: name, Value: &ast.Value{Kind: ast.EnumValue, Raw: value}}
}

func literalAST(v any) (*ast.Value, error) {
	switch v := v.(type) {
	case string:
		return &ast.Value{Kind: ast.StringValue, Raw: v}, nil
	case EnumLiteral:
		return &ast.Value{Kind: ast.EnumValue, Raw: string(v)}, nil
	case int64:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.FormatInt(v, 10)}, nil
	case int:
		return &ast.Value{Kind: ast.IntValue, Raw: strconv.Itoa(v)}, nil
	case float64:
		raw := strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(raw, ".eE") {
			raw += ".0"
		}
		return &ast.Value{Kind: ast.FloatValue, Raw: raw}, nil
	case bool:
		return &ast.Value{Kind: ast.BooleanValue, Raw: strconv.FormatBool(v)}, nil
	default:
		return nil, fmt.Errorf("unsupported default value %v (%T)", v, v)
	}
}
