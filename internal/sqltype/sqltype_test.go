package sqltype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalar(t *testing.T) {
	tests := []struct {
		dialect    Dialect
		dataType   string
		columnType string
		want       string
		ok         bool
	}{
		{MySQL, "tinyint", "tinyint(1)", "Boolean", true},
		{MySQL, "tinyint", "tinyint(4)", "Int", true},
		{MySQL, "INT", "int(11)", "Int", true},
		{MySQL, "bigint", "bigint unsigned", "Long", true},
		{MySQL, "decimal", "decimal(10,2)", "Float", true},
		{MySQL, "json", "json", "Json", true},
		{MySQL, "datetime", "datetime", "DateTime", true},
		{MySQL, "varchar", "varchar(255)", "String", true},
		{MySQL, "blob", "blob", "", false},
		{Postgres, "integer", "", "Int", true},
		{Postgres, "bigint", "", "Long", true},
		{Postgres, "double precision", "", "Float", true},
		{Postgres, "uuid", "", "UUID", true},
		{Postgres, "jsonb", "", "Json", true},
		{Postgres, "timestamp with time zone", "", "DateTime", true},
		{Postgres, "character varying", "", "String", true},
		{Postgres, "bytea", "", "", false},
		{SQLite, "INTEGER", "", "Int", true},
		{SQLite, "bigint", "", "Long", true},
		{SQLite, "VARCHAR(40)", "", "String", true},
		{SQLite, "boolean", "", "Boolean", true},
		{SQLite, "DATETIME", "", "DateTime", true},
		{SQLite, "REAL", "", "Float", true},
		{SQLite, "BLOB", "", "", false},
		{SQLite, "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect)+"/"+tt.dataType, func(t *testing.T) {
			got, ok := Scalar(tt.dialect, tt.dataType, tt.columnType)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDialect(t *testing.T) {
	for input, want := range map[string]Dialect{
		"mysql":      MySQL,
		"TiDB":       MySQL,
		"postgresql": Postgres,
		"postgres":   Postgres,
		"sqlite3":    SQLite,
	} {
		got, err := ParseDialect(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got)
	}

	_, err := ParseDialect("oracle")
	assert.Error(t, err)
}
