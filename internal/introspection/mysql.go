package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"

	"opencrud-gen/internal/sqltype"
)

// MySQL introspects MySQL, MariaDB and TiDB through INFORMATION_SCHEMA.
// Each catalog view is read once for the whole schema.
type MySQL struct {
	db     Queryer
	logger *slog.Logger
}

// Introspect reads the base tables of schemaName, or of the connection's
// current database when schemaName is empty.
func (m *MySQL) Introspect(ctx context.Context, schemaName string) (*Schema, error) {
	ctx, span := startSpan(ctx, "introspection.mysql",
		attribute.String("db.system", "mysql"),
		attribute.String("db.name", schemaName),
	)
	defer span.End()

	names, comments, err := m.tables(ctx, schemaName)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}
	cat := newCatalog(names, comments, m.logger)

	steps := []struct {
		what string
		read func(context.Context, string, *catalog) error
	}{
		{"columns", m.columns},
		{"key columns", m.keyColumns},
		{"indexes", m.indexes},
	}
	for _, step := range steps {
		if err := step.read(ctx, schemaName, cat); err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to get %s: %w", step.what, err)
		}
	}

	schema := cat.schema(schemaName, sqltype.MySQL)
	span.SetAttributes(attribute.Int("db.table_count", len(schema.Tables)))
	return schema, nil
}

func mysqlSchemaFilter(schemaName string) sq.Sqlizer {
	if schemaName == "" {
		return sq.Expr("TABLE_SCHEMA = DATABASE()")
	}
	return sq.Eq{"TABLE_SCHEMA": schemaName}
}

func (m *MySQL) tables(ctx context.Context, schemaName string) ([]string, map[string]string, error) {
	query, args, err := sq.Select("TABLE_NAME", "TABLE_COMMENT").
		From("INFORMATION_SCHEMA.TABLES").
		Where(mysqlSchemaFilter(schemaName)).
		Where(sq.Eq{"TABLE_TYPE": "BASE TABLE"}).
		OrderBy("TABLE_NAME").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, nil, err
	}

	var names []string
	comments := make(map[string]string)
	err = scanRows(ctx, m.db, query, args, func(rows *sql.Rows) error {
		var name string
		var comment sql.NullString
		if err := rows.Scan(&name, &comment); err != nil {
			return err
		}
		names = append(names, name)
		comments[name] = strings.TrimSpace(comment.String)
		return nil
	})
	return names, comments, err
}

func (m *MySQL) columns(ctx context.Context, schemaName string, cat *catalog) error {
	query, args, err := sq.Select(
		"TABLE_NAME", "COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE",
		"IS_NULLABLE", "COLUMN_DEFAULT", "EXTRA", "COLUMN_COMMENT",
	).
		From("INFORMATION_SCHEMA.COLUMNS").
		Where(mysqlSchemaFilter(schemaName)).
		OrderBy("TABLE_NAME", "ORDINAL_POSITION").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}

	return scanRows(ctx, m.db, query, args, func(rows *sql.Rows) error {
		var tableName, isNullable, extra string
		var col Column
		var columnDefault, comment sql.NullString
		if err := rows.Scan(&tableName, &col.Name, &col.DataType, &col.ColumnType,
			&isNullable, &columnDefault, &extra, &comment); err != nil {
			return err
		}
		col.IsNullable = strings.EqualFold(isNullable, "YES")
		col.IsAutoIncrement = strings.Contains(strings.ToLower(extra), "auto_increment")
		col.Comment = strings.TrimSpace(comment.String)
		if columnDefault.Valid {
			mysqlDefault(columnDefault.String, extra).apply(&col)
		}

		if strings.EqualFold(col.DataType, "enum") {
			values, err := parseEnumValues(col.ColumnType)
			if err != nil {
				m.logger.Warn("failed to parse enum values",
					slog.String("table", tableName),
					slog.String("column", col.Name),
					slog.String("error", err.Error()),
				)
			}
			col.EnumValues = values
		} else {
			col.Scalar, _ = sqltype.Scalar(sqltype.MySQL, col.DataType, col.ColumnType)
		}
		cat.addColumn(tableName, col)
		return nil
	})
}

// keyColumns reads primary key and foreign key columns. Rows of unique
// constraints carry no referenced table and are covered by indexes.
func (m *MySQL) keyColumns(ctx context.Context, schemaName string, cat *catalog) error {
	query, args, err := sq.Select(
		"TABLE_NAME", "CONSTRAINT_NAME", "COLUMN_NAME", "ORDINAL_POSITION",
		"REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME",
	).
		From("INFORMATION_SCHEMA.KEY_COLUMN_USAGE").
		Where(mysqlSchemaFilter(schemaName)).
		OrderBy("TABLE_NAME", "CONSTRAINT_NAME", "ORDINAL_POSITION").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}

	return scanRows(ctx, m.db, query, args, func(rows *sql.Rows) error {
		var tableName, constraintName, columnName string
		var position int
		var refTable, refColumn sql.NullString
		if err := rows.Scan(&tableName, &constraintName, &columnName, &position, &refTable, &refColumn); err != nil {
			return err
		}
		t := cat.table(tableName)
		switch {
		case t == nil:
		case constraintName == "PRIMARY":
			t.PrimaryKey = append(t.PrimaryKey, columnName)
		case refTable.Valid && refTable.String != "":
			t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
				ConstraintName:   constraintName,
				ColumnName:       columnName,
				ReferencedTable:  refTable.String,
				ReferencedColumn: refColumn.String,
				OrdinalPosition:  position,
			})
		}
		return nil
	})
}

func (m *MySQL) indexes(ctx context.Context, schemaName string, cat *catalog) error {
	query, args, err := sq.Select("TABLE_NAME", "INDEX_NAME", "NON_UNIQUE", "COLUMN_NAME").
		From("INFORMATION_SCHEMA.STATISTICS").
		Where(mysqlSchemaFilter(schemaName)).
		Where(sq.NotEq{"INDEX_NAME": "PRIMARY"}).
		OrderBy("TABLE_NAME", "INDEX_NAME", "SEQ_IN_INDEX").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return err
	}

	return scanRows(ctx, m.db, query, args, func(rows *sql.Rows) error {
		var tableName, indexName string
		var nonUnique int
		var columnName sql.NullString
		if err := rows.Scan(&tableName, &indexName, &nonUnique, &columnName); err != nil {
			return err
		}
		// Functional index parts have no column.
		if !columnName.Valid {
			return nil
		}
		cat.addIndexColumn(tableName, indexName, nonUnique == 0, columnName.String)
		return nil
	})
}
