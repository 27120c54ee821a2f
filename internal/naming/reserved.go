package naming

import "strings"

// reservedTypeNames are names the generated schema defines itself, so a
// datamodel type may not use them.
var reservedTypeNames = map[string]bool{
	// Roots
	"Query":        true,
	"Mutation":     true,
	"Subscription": true,

	// Shared generated types
	"Node":         true,
	"PageInfo":     true,
	"BatchPayload": true,
	"MutationType": true,

	// Scalars
	"Int":      true,
	"Float":    true,
	"String":   true,
	"Boolean":  true,
	"ID":       true,
	"Long":     true,
	"DateTime": true,
	"Json":     true,
	"UUID":     true,
}

// IsReservedTypeName checks if a type name is reserved.
func IsReservedTypeName(name string) bool {
	if strings.HasPrefix(name, "__") {
		return true
	}
	return reservedTypeNames[name]
}

// IsReservedFieldName checks if a field name is reserved.
func IsReservedFieldName(name string) bool {
	return strings.HasPrefix(name, "__")
}
