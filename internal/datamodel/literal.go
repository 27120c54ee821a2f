package datamodel

import (
	"fmt"
	"strconv"
)

// LiteralFor converts the textual default raw to the typed literal stored in
// Field.DefaultValue for a field of the given scalar type. Enum fields get an
// EnumLiteral.
func LiteralFor(scalar, raw string) (any, error) {
	switch scalar {
	case ScalarString, ScalarID, ScalarUUID, ScalarDateTime, ScalarJSON:
		return raw, nil
	case ScalarInt, ScalarLong:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("default %q is not a valid %s: %w", raw, scalar, err)
		}
		return n, nil
	case ScalarFloat:
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("default %q is not a valid %s: %w", raw, scalar, err)
		}
		return n, nil
	case ScalarBoolean:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("default %q is not a valid %s: %w", raw, scalar, err)
		}
		return b, nil
	default:
		return EnumLiteral(raw), nil
	}
}
