package introspection

import (
	"fmt"
	"strings"
)

// parseEnumValues reads the labels of a MySQL column type such as
// enum('draft','published'). Labels keep their declaration order.
func parseEnumValues(columnType string) ([]string, error) {
	trimmed := strings.TrimSpace(columnType)
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "enum(") || !strings.HasSuffix(lower, ")") {
		return nil, fmt.Errorf("not an enum definition: %q", columnType)
	}

	body := trimmed[len("enum(") : len(trimmed)-1]
	var values []string
	for pos := 0; pos < len(body); {
		switch body[pos] {
		case ' ', ',':
			pos++
			continue
		case '\'':
		default:
			return nil, fmt.Errorf("expected quote at offset %d of %q", pos, body)
		}
		label, next, err := readQuoted(body, pos)
		if err != nil {
			return nil, err
		}
		values = append(values, label)
		pos = next
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("enum %q has no values", columnType)
	}
	return values, nil
}

// readQuoted reads the single-quoted literal starting at s[start]. Doubled
// quotes and backslash escapes are unescaped. It returns the offset just
// past the closing quote.
func readQuoted(s string, start int) (string, int, error) {
	var sb strings.Builder
	for i := start + 1; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '\\':
			if i+1 >= len(s) {
				return "", 0, fmt.Errorf("unterminated escape in %q", s)
			}
			i++
			sb.WriteByte(s[i])
		case '\'':
			if i+1 < len(s) && s[i+1] == '\'' {
				sb.WriteByte('\'')
				i++
				continue
			}
			return sb.String(), i + 1, nil
		default:
			sb.WriteByte(ch)
		}
	}
	return "", 0, fmt.Errorf("unterminated quote in %q", s)
}
