// Package scalars provides the graphql-go scalar types of the generated API.
package scalars

import (
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// Custom scalar instances. graphql-go requires one instance per name within
// a schema, so every schema built by this module shares these.
var (
	Long     = newLong()
	DateTime = newDateTime()
	JSON     = newJSON()
	UUID     = newUUID()
)

var byName = map[string]*graphql.Scalar{
	"String":   graphql.String,
	"Int":      graphql.Int,
	"Float":    graphql.Float,
	"Boolean":  graphql.Boolean,
	"ID":       graphql.ID,
	"Long":     Long,
	"DateTime": DateTime,
	"Json":     JSON,
	"UUID":     UUID,
}

// Lookup returns the scalar type for a datamodel scalar identifier.
func Lookup(name string) (*graphql.Scalar, bool) {
	s, ok := byName[name]
	return s, ok
}

// IsBuiltin reports whether name is a scalar every GraphQL schema defines.
func IsBuiltin(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID":
		return true
	}
	return false
}

func newLong() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Long",
		Description: "64-bit integer value serialized as a string.",
		Serialize: func(value interface{}) interface{} {
			if parsed, ok := coerceInt64(value); ok {
				return strconv.FormatInt(parsed, 10)
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			if parsed, ok := coerceInt64(value); ok {
				return parsed
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			switch v := valueAST.(type) {
			case *ast.IntValue:
				if parsed, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
					return parsed
				}
			case *ast.StringValue:
				if parsed, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
					return parsed
				}
			}
			return nil
		},
	})
}

func newDateTime() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "DateTime",
		Description: "Timestamp serialized as an RFC 3339 string.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v.UTC().Format(time.RFC3339Nano)
			case *time.Time:
				if v == nil {
					return nil
				}
				return v.UTC().Format(time.RFC3339Nano)
			case string:
				if parsed, ok := parseTimestamp(v); ok {
					return parsed.UTC().Format(time.RFC3339Nano)
				}
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			switch v := value.(type) {
			case time.Time:
				return v
			case string:
				if parsed, ok := parseTimestamp(v); ok {
					return parsed
				}
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				if parsed, ok := parseTimestamp(sv.Value); ok {
					return parsed
				}
			}
			return nil
		},
	})
}

func newJSON() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "Json",
		Description: "Arbitrary JSON value.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case []byte:
				return decodeJSON(string(v))
			case json.RawMessage:
				return decodeJSON(string(v))
			default:
				return v
			}
		},
		ParseValue: func(value interface{}) interface{} {
			return value
		},
		ParseLiteral: parseJSONLiteral,
	})
}

func newUUID() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:        "UUID",
		Description: "RFC 4122 UUID serialized in canonical string form.",
		Serialize: func(value interface{}) interface{} {
			switch v := value.(type) {
			case uuid.UUID:
				return v.String()
			case string:
				if parsed, err := uuid.Parse(v); err == nil {
					return parsed.String()
				}
			case []byte:
				if parsed, err := uuid.FromBytes(v); err == nil {
					return parsed.String()
				}
			}
			return nil
		},
		ParseValue: func(value interface{}) interface{} {
			if s, ok := value.(string); ok {
				if parsed, err := uuid.Parse(s); err == nil {
					return parsed
				}
			}
			return nil
		},
		ParseLiteral: func(valueAST ast.Value) interface{} {
			if sv, ok := valueAST.(*ast.StringValue); ok {
				if parsed, err := uuid.Parse(sv.Value); err == nil {
					return parsed
				}
			}
			return nil
		},
	})
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func decodeJSON(raw string) interface{} {
	var out interface{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		slog.Default().Warn("failed to decode Json scalar", slog.String("error", err.Error()))
		return nil
	}
	return out
}

func parseJSONLiteral(valueAST ast.Value) interface{} {
	switch v := valueAST.(type) {
	case *ast.StringValue:
		return v.Value
	case *ast.BooleanValue:
		return v.Value
	case *ast.IntValue:
		if parsed, err := strconv.ParseInt(v.Value, 10, 64); err == nil {
			return parsed
		}
		return nil
	case *ast.FloatValue:
		if parsed, err := strconv.ParseFloat(v.Value, 64); err == nil {
			return parsed
		}
		return nil
	case *ast.ListValue:
		out := make([]interface{}, 0, len(v.Values))
		for _, item := range v.Values {
			out = append(out, parseJSONLiteral(item))
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(v.Fields))
		for _, field := range v.Fields {
			out[field.Name.Value] = parseJSONLiteral(field.Value)
		}
		return out
	default:
		return nil
	}
}

func coerceInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint32:
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if v != math.Trunc(v) || v >= math.MaxInt64 || v < math.MinInt64 {
			return 0, false
		}
		return int64(v), true
	case string:
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	case []byte:
		parsed, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
