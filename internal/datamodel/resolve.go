package datamodel

import (
	"errors"
	"fmt"

	"opencrud-gen/internal/naming"
)

// Resolve validates the model and links relation fields. It resolves every
// field type, connects named relations to their counterparts and
// auto-connects unambiguous unnamed pairs. All problems found are returned
// together. Resolve is idempotent.
func (m *Model) Resolve() error {
	m.index()
	m.resolved = false

	if err := m.validateDeclarations(); err != nil {
		return err
	}
	if err := m.resolveTargets(); err != nil {
		return err
	}
	m.clearConnections()
	if err := m.connectNamedRelations(); err != nil {
		return err
	}
	m.connectUnnamedRelations()

	m.resolved = true
	return nil
}

func (m *Model) validateDeclarations() error {
	var errs []error
	seenTypes := make(map[string]bool, len(m.Types))
	for _, t := range m.Types {
		if seenTypes[t.Name] {
			errs = append(errs, &DefinitionError{Type: t.Name, Message: "type is declared more than once"})
		}
		seenTypes[t.Name] = true
		if naming.IsReservedTypeName(t.Name) {
			errs = append(errs, &DefinitionError{Type: t.Name, Message: "type name is reserved by the generated schema"})
		}
		if t.IsEnum && len(t.Fields) == 0 {
			errs = append(errs, &DefinitionError{Type: t.Name, Message: "enum must declare at least one value"})
		}
		if !t.IsEnum && len(t.Fields) == 0 {
			errs = append(errs, &DefinitionError{Type: t.Name, Message: "type must declare at least one field"})
		}

		seenFields := make(map[string]bool, len(t.Fields))
		ids := 0
		for _, f := range t.Fields {
			if seenFields[f.Name] {
				errs = append(errs, &DefinitionError{Type: t.Name, Field: f.Name, Message: "field is declared more than once"})
			}
			seenFields[f.Name] = true
			if f.IsID {
				ids++
			}
		}
		if ids > 1 {
			errs = append(errs, &DefinitionError{Type: t.Name, Message: "at most one field may be marked @id"})
		}
	}
	return errors.Join(errs...)
}

func (m *Model) resolveTargets() error {
	var errs []error
	for _, t := range m.Types {
		if t.IsEnum {
			continue
		}
		for _, f := range t.Fields {
			f.target = nil
			switch {
			case IsScalar(f.Type):
			case m.Type(f.Type) != nil:
				f.target = m.Type(f.Type)
			default:
				errs = append(errs, &UnknownTypeError{Type: t.Name, Field: f.Name, Name: f.Type})
				continue
			}
			errs = append(errs, checkField(t, f)...)
		}
	}
	return errors.Join(errs...)
}

func checkField(t *Type, f *Field) []error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, &DefinitionError{Type: t.Name, Field: f.Name, Message: fmt.Sprintf(format, args...)})
	}
	if f.IsRelation() {
		if f.IsID || f.IsUnique {
			invalid("relation fields cannot be @id or @unique")
		}
		if f.DefaultValue != nil {
			invalid("relation fields cannot have a default value")
		}
		if f.IsCreatedAt || f.IsUpdatedAt {
			invalid("relation fields cannot be @createdAt or @updatedAt")
		}
		return errs
	}
	if f.RelationName != "" {
		invalid("@relation is only allowed on relation fields")
	}
	if (f.IsCreatedAt || f.IsUpdatedAt) && f.Type != ScalarDateTime {
		invalid("@createdAt and @updatedAt require type DateTime")
	}
	if f.IsID && f.IsList {
		invalid("@id fields cannot be lists")
	}
	if lit, ok := f.DefaultValue.(EnumLiteral); ok && f.IsEnum() && f.target.Field(string(lit)) == nil {
		invalid("default value %s is not a member of enum %s", lit, f.Type)
	}
	return errs
}

func (m *Model) clearConnections() {
	for _, t := range m.Types {
		for _, f := range t.Fields {
			f.RelatedField = nil
		}
	}
}

// connectNamedRelations pairs fields sharing a relation name. A named field
// without a counterpart stays one-sided.
func (m *Model) connectNamedRelations() error {
	var errs []error
	for _, owner := range m.Types {
		for _, f := range owner.Fields {
			if !f.IsRelation() || f.RelationName == "" || f.RelatedField != nil {
				continue
			}
			target := f.target
			var counterparts []*Field
			for _, g := range target.Fields {
				if g != f && g.RelationName == f.RelationName {
					counterparts = append(counterparts, g)
				}
			}
			switch len(counterparts) {
			case 0:
				continue
			case 1:
			default:
				errs = append(errs, &DefinitionError{
					Type:    owner.Name,
					Field:   f.Name,
					Message: fmt.Sprintf("relation %s is declared by more than two fields", f.RelationName),
				})
				continue
			}
			g := counterparts[0]
			if g.target != owner {
				errs = append(errs, &RelationMismatchError{
					Relation:        f.RelationName,
					Type:            owner.Name,
					Field:           f.Name,
					Target:          target.Name,
					TargetField:     g.Name,
					TargetFieldType: g.Type,
				})
				continue
			}
			if g.RelatedField != nil {
				continue
			}
			f.RelatedField = g
			g.RelatedField = f
		}
	}
	return errors.Join(errs...)
}

// connectUnnamedRelations links A.f and B.g when f is the only open unnamed
// field of A typed B and g the only open unnamed field of B typed A.
// Self relations are never auto-connected.
func (m *Model) connectUnnamedRelations() {
	for _, owner := range m.Types {
		for _, f := range owner.Fields {
			if !isOpenUnnamed(f) || f.target == owner {
				continue
			}
			target := f.target
			if len(openUnnamedFields(owner, target)) != 1 {
				continue
			}
			candidates := openUnnamedFields(target, owner)
			if len(candidates) != 1 {
				continue
			}
			g := candidates[0]
			f.RelatedField = g
			g.RelatedField = f
		}
	}
}

func isOpenUnnamed(f *Field) bool {
	return f.IsRelation() && f.RelationName == "" && f.RelatedField == nil
}

func openUnnamedFields(owner, target *Type) []*Field {
	var out []*Field
	for _, f := range owner.Fields {
		if isOpenUnnamed(f) && f.target == target {
			out = append(out, f)
		}
	}
	return out
}
