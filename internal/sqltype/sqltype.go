// Package sqltype maps SQL column types of the supported dialects to
// datamodel scalar identifiers.
package sqltype

import (
	"fmt"
	"strings"

	"opencrud-gen/internal/datamodel"
)

// Dialect identifies a SQL database family.
type Dialect string

const (
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// ParseDialect resolves a configured driver name.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "mysql", "tidb", "mariadb":
		return MySQL, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q (use mysql, postgres or sqlite)", driver)
	}
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	return string(d)
}

// Scalar maps a column type to a scalar identifier. dataType is the base
// type name; columnType is the full declaration when the dialect reports
// one, such as "tinyint(1)". ok is false for types with no scalar.
func Scalar(d Dialect, dataType, columnType string) (scalar string, ok bool) {
	switch d {
	case MySQL:
		return mysqlScalar(baseType(dataType), strings.ToLower(strings.TrimSpace(columnType)))
	case Postgres:
		return postgresScalar(strings.ToLower(strings.TrimSpace(dataType)))
	case SQLite:
		return sqliteScalar(strings.ToUpper(strings.TrimSpace(dataType)))
	default:
		return "", false
	}
}

// baseType strips size specifiers like (10,2) and lower-cases.
func baseType(sqlType string) string {
	if idx := strings.Index(sqlType, "("); idx != -1 {
		sqlType = sqlType[:idx]
	}
	return strings.ToLower(strings.TrimSpace(sqlType))
}

func mysqlScalar(dataType, columnType string) (string, bool) {
	switch dataType {
	case "tinyint":
		if strings.HasPrefix(columnType, "tinyint(1)") {
			return datamodel.ScalarBoolean, true
		}
		return datamodel.ScalarInt, true
	case "smallint", "mediumint", "int", "integer", "bit", "year":
		return datamodel.ScalarInt, true
	case "bigint", "serial":
		return datamodel.ScalarLong, true
	case "float", "double", "real", "decimal", "numeric":
		return datamodel.ScalarFloat, true
	case "bool", "boolean":
		return datamodel.ScalarBoolean, true
	case "json":
		return datamodel.ScalarJSON, true
	case "date", "datetime", "timestamp":
		return datamodel.ScalarDateTime, true
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "time", "set":
		return datamodel.ScalarString, true
	default:
		return "", false
	}
}

func postgresScalar(dataType string) (string, bool) {
	switch dataType {
	case "smallint", "integer", "int", "int2", "int4", "smallserial", "serial":
		return datamodel.ScalarInt, true
	case "bigint", "int8", "bigserial":
		return datamodel.ScalarLong, true
	case "real", "double precision", "numeric", "decimal", "float4", "float8":
		return datamodel.ScalarFloat, true
	case "boolean", "bool":
		return datamodel.ScalarBoolean, true
	case "json", "jsonb":
		return datamodel.ScalarJSON, true
	case "uuid":
		return datamodel.ScalarUUID, true
	case "date", "timestamp", "timestamp without time zone", "timestamp with time zone", "timestamptz":
		return datamodel.ScalarDateTime, true
	case "text", "character varying", "varchar", "character", "char", "citext",
		"time", "time without time zone", "time with time zone", "interval":
		return datamodel.ScalarString, true
	default:
		return "", false
	}
}

// sqliteScalar follows SQLite's type affinity rules on the declared type,
// with extra cases for the common boolean, date and JSON spellings.
func sqliteScalar(declared string) (string, bool) {
	switch {
	case declared == "":
		return "", false
	case strings.Contains(declared, "BOOL"):
		return datamodel.ScalarBoolean, true
	case strings.Contains(declared, "BIGINT"):
		return datamodel.ScalarLong, true
	case strings.Contains(declared, "INT"):
		return datamodel.ScalarInt, true
	case strings.Contains(declared, "DATE"), strings.Contains(declared, "TIMESTAMP"):
		return datamodel.ScalarDateTime, true
	case strings.Contains(declared, "JSON"):
		return datamodel.ScalarJSON, true
	case strings.Contains(declared, "UUID"):
		return datamodel.ScalarUUID, true
	case strings.Contains(declared, "CHAR"), strings.Contains(declared, "CLOB"), strings.Contains(declared, "TEXT"):
		return datamodel.ScalarString, true
	case strings.Contains(declared, "REAL"), strings.Contains(declared, "FLOA"), strings.Contains(declared, "DOUB"),
		strings.Contains(declared, "NUMERIC"), strings.Contains(declared, "DECIMAL"):
		return datamodel.ScalarFloat, true
	default:
		return "", false
	}
}
