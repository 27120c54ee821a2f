package introspection

import (
	"strconv"
	"strings"
)

// columnDefault is a catalog default after normalization.
type columnDefault struct {
	value string
	expr  bool
	ok    bool
}

// cleanDefault normalizes a PostgreSQL or SQLite default clause. Quoted
// strings are unquoted, trailing casts are dropped and NULL means no
// default. Anything that is not a string, number or boolean literal is
// reported as an expression.
func cleanDefault(raw string) columnDefault {
	s := strings.TrimSpace(raw)
	for len(s) >= 2 && s[0] == '(' && s[len(s)-1] == ')' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if s == "" {
		return columnDefault{}
	}

	if s[0] == '\'' {
		value, next, err := readQuoted(s, 0)
		if err != nil {
			return columnDefault{value: s, expr: true, ok: true}
		}
		rest := strings.TrimSpace(s[next:])
		if rest != "" && !strings.HasPrefix(rest, "::") {
			return columnDefault{value: s, expr: true, ok: true}
		}
		return columnDefault{value: value, ok: true}
	}

	if idx := strings.Index(s, "::"); idx > 0 && !strings.Contains(s[:idx], "(") {
		s = strings.TrimSpace(s[:idx])
	}
	if strings.EqualFold(s, "null") {
		return columnDefault{}
	}
	if isLiteral(s) {
		return columnDefault{value: s, ok: true}
	}
	return columnDefault{value: s, expr: true, ok: true}
}

// mysqlDefault normalizes INFORMATION_SCHEMA.COLUMNS.COLUMN_DEFAULT. MySQL
// reports string defaults unquoted; MariaDB quotes them and spells a
// missing default as NULL.
func mysqlDefault(raw string, extra string) columnDefault {
	s := strings.TrimSpace(raw)
	lowerExtra := strings.ToLower(extra)
	switch {
	case strings.Contains(lowerExtra, "default_generated"),
		strings.HasPrefix(strings.ToUpper(s), "CURRENT_TIMESTAMP"):
		return columnDefault{value: s, expr: true, ok: true}
	case strings.EqualFold(s, "null"):
		return columnDefault{}
	case len(s) >= 2 && s[0] == '\'':
		if value, next, err := readQuoted(s, 0); err == nil && next == len(s) {
			return columnDefault{value: value, ok: true}
		}
	}
	return columnDefault{value: raw, ok: true}
}

func isLiteral(s string) bool {
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return true
	}
	return strings.EqualFold(s, "true") || strings.EqualFold(s, "false")
}

func (d columnDefault) apply(col *Column) {
	if !d.ok {
		return
	}
	col.HasDefault = true
	col.ColumnDefault = d.value
	col.DefaultIsExpression = d.expr
}
