package datamodel

import "fmt"

// UnknownTypeError reports a field whose type is neither a supported scalar
// nor a type declared in the datamodel.
type UnknownTypeError struct {
	Type  string
	Field string
	Name  string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("field %s.%s: %s is not a scalar type or a type of the datamodel", e.Type, e.Field, e.Name)
}

// RelationMismatchError reports a named relation whose counterpart field
// does not point back at the declaring type.
type RelationMismatchError struct {
	Relation string
	// Type and Field identify the declaring side.
	Type  string
	Field string
	// Target and TargetField identify the counterpart, which points at
	// TargetFieldType instead of Type.
	Target          string
	TargetField     string
	TargetFieldType string
}

func (e *RelationMismatchError) Error() string {
	return fmt.Sprintf("relation type mismatch for relation %s: %s.%s points at %s but %s.%s points at %s",
		e.Relation, e.Type, e.Field, e.Target, e.Target, e.TargetField, e.TargetFieldType)
}

// DefinitionError reports an invalid declaration in the datamodel.
type DefinitionError struct {
	Type    string
	Field   string
	Message string
}

func (e *DefinitionError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("type %s: %s", e.Type, e.Message)
	}
	return fmt.Sprintf("field %s.%s: %s", e.Type, e.Field, e.Message)
}
