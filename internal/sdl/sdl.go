// Package sdl prints generated schemas as GraphQL SDL and checks that the
// printed text loads as a valid schema.
package sdl

import (
	"bytes"
	"fmt"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"opencrud-gen/internal/schemagen"
)

// SourceName is the source name used when loading printed schemas.
const SourceName = "schema.graphql"

var kinds = map[schemagen.Kind]ast.DefinitionKind{
	schemagen.KindObject:      ast.Object,
	schemagen.KindInputObject: ast.InputObject,
	schemagen.KindEnum:        ast.Enum,
	schemagen.KindScalar:      ast.Scalar,
	schemagen.KindInterface:   ast.Interface,
}

// Print renders schema as SDL: a schema block followed by every generated
// type in name order. Built-in scalars are not printed.
func Print(schema *schemagen.Schema) (string, error) {
	doc, err := Document(schema)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	formatter.NewFormatter(&buf).FormatSchemaDocument(doc)
	return buf.String(), nil
}

// Document converts schema to a gqlparser schema document.
func Document(schema *schemagen.Schema) (*ast.SchemaDocument, error) {
	if schema == nil || schema.Query == nil {
		return nil, fmt.Errorf("sdl: schema has no query root")
	}

	operations := ast.OperationTypeDefinitionList{
		{Operation: ast.Query, Type: schema.Query.Name},
	}
	if schema.Mutation != nil {
		operations = append(operations, &ast.OperationTypeDefinition{Operation: ast.Mutation, Type: schema.Mutation.Name})
	}
	if schema.Subscription != nil {
		operations = append(operations, &ast.OperationTypeDefinition{Operation: ast.Subscription, Type: schema.Subscription.Name})
	}

	doc := &ast.SchemaDocument{
		Schema: ast.SchemaDefinitionList{{OperationTypes: operations}},
	}
	for _, def := range schema.Types {
		d, err := definition(def)
		if err != nil {
			return nil, err
		}
		doc.Definitions = append(doc.Definitions, d)
	}
	return doc, nil
}

func definition(def *schemagen.TypeDef) (*ast.Definition, error) {
	kind, ok := kinds[def.Kind]
	if !ok {
		return nil, fmt.Errorf("sdl: type %s has unknown kind %s", def.Name, def.Kind)
	}
	d := &ast.Definition{
		Kind:        kind,
		Name:        def.Name,
		Description: def.Description,
		Interfaces:  def.Interfaces,
	}
	for _, v := range def.Values {
		d.EnumValues = append(d.EnumValues, &ast.EnumValueDefinition{Name: v})
	}
	for _, f := range def.Fields {
		fd := &ast.FieldDefinition{Name: f.Name, Type: typeOf(f.Type)}
		for _, a := range f.Args {
			fd.Arguments = append(fd.Arguments, &ast.ArgumentDefinition{Name: a.Name, Type: typeOf(a.Type)})
		}
		d.Fields = append(d.Fields, fd)
	}
	return d, nil
}

func typeOf(ref schemagen.TypeRef) *ast.Type {
	if ref.Elem != nil {
		return &ast.Type{Elem: typeOf(*ref.Elem), NonNull: ref.NonNull}
	}
	return &ast.Type{NamedType: ref.Name, NonNull: ref.NonNull}
}

// Load parses and validates sdl as a complete schema.
func Load(sdl string) (*ast.Schema, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: SourceName, Input: sdl})
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	return schema, nil
}

// Validate reports whether sdl loads as a valid schema.
func Validate(sdl string) error {
	_, err := Load(sdl)
	return err
}
