package schemagen

import "fmt"

// TypeConflictError reports two different generator requests computing the
// same type name.
type TypeConflictError struct {
	Name      string
	Existing  string
	Requested string
}

func (e *TypeConflictError) Error() string {
	return fmt.Sprintf("type name conflict: %s is generated both as %s and as %s", e.Name, e.Existing, e.Requested)
}

// DuplicateFieldError reports two contributions of the same field name to
// one type.
type DuplicateFieldError struct {
	Type   string
	Field  string
	First  string
	Second string
}

func (e *DuplicateFieldError) Error() string {
	return fmt.Sprintf("duplicate field %s.%s: contributed by %s and by %s", e.Type, e.Field, e.First, e.Second)
}
