package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"opencrud-gen/internal/sqltype"
)

// DefaultPostgresSchema is read when no schema name is given.
const DefaultPostgresSchema = "public"

// Postgres introspects PostgreSQL through information_schema and pg_enum.
// After the table list is known, the column, constraint and enum reads run
// concurrently.
type Postgres struct {
	db     Queryer
	logger *slog.Logger
}

type pgColumn struct {
	table        string
	column       Column
	udtName      string
	defaultValue sql.NullString
	identity     bool
}

type pgConstraint struct {
	table, name, kind, column string
	position                  int
	refTable, refColumn       string
}

// Introspect reads the base tables of schemaName.
func (p *Postgres) Introspect(ctx context.Context, schemaName string) (*Schema, error) {
	if schemaName == "" {
		schemaName = DefaultPostgresSchema
	}
	ctx, span := startSpan(ctx, "introspection.postgres",
		attribute.String("db.system", "postgresql"),
		attribute.String("db.name", schemaName),
	)
	defer span.End()

	names, err := p.tables(ctx, schemaName)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	var (
		columns     []pgColumn
		constraints []pgConstraint
		enums       map[string][]string
	)
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		columns, err = p.columns(gctx, schemaName)
		if err != nil {
			return fmt.Errorf("failed to get columns: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		constraints, err = p.constraints(gctx, schemaName)
		if err != nil {
			return fmt.Errorf("failed to get constraints: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var err error
		enums, err = p.enums(gctx, schemaName)
		if err != nil {
			return fmt.Errorf("failed to get enum types: %w", err)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	cat := newCatalog(names, nil, p.logger)
	for _, c := range columns {
		col := c.column
		if labels, ok := enums[c.udtName]; ok {
			col.EnumName = c.udtName
			col.EnumValues = labels
		} else {
			dataType := col.DataType
			if strings.EqualFold(dataType, "USER-DEFINED") {
				dataType = c.udtName
			}
			col.Scalar, _ = sqltype.Scalar(sqltype.Postgres, dataType, col.ColumnType)
		}
		if c.identity || strings.HasPrefix(strings.ToLower(c.defaultValue.String), "nextval(") {
			col.IsAutoIncrement = true
		} else if c.defaultValue.Valid {
			cleanDefault(c.defaultValue.String).apply(&col)
		}
		cat.addColumn(c.table, col)
	}

	for _, c := range constraints {
		t := cat.table(c.table)
		if t == nil {
			continue
		}
		switch c.kind {
		case "PRIMARY KEY":
			t.PrimaryKey = append(t.PrimaryKey, c.column)
		case "FOREIGN KEY":
			t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
				ConstraintName:   c.name,
				ColumnName:       c.column,
				ReferencedTable:  c.refTable,
				ReferencedColumn: c.refColumn,
				OrdinalPosition:  c.position,
			})
		case "UNIQUE":
			cat.addIndexColumn(c.table, c.name, true, c.column)
		}
	}

	schema := cat.schema(schemaName, sqltype.Postgres)
	span.SetAttributes(attribute.Int("db.table_count", len(schema.Tables)))
	return schema, nil
}

func (p *Postgres) tables(ctx context.Context, schemaName string) ([]string, error) {
	query, args, err := sq.Select("table_name").
		From("information_schema.tables").
		Where(sq.Eq{"table_schema": schemaName}).
		Where(sq.Eq{"table_type": "BASE TABLE"}).
		OrderBy("table_name").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var names []string
	err = scanRows(ctx, p.db, query, args, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	return names, err
}

func (p *Postgres) columns(ctx context.Context, schemaName string) ([]pgColumn, error) {
	query, args, err := sq.Select(
		"table_name", "column_name", "data_type", "udt_name",
		"is_nullable", "column_default", "is_identity",
	).
		From("information_schema.columns").
		Where(sq.Eq{"table_schema": schemaName}).
		OrderBy("table_name", "ordinal_position").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var result []pgColumn
	err = scanRows(ctx, p.db, query, args, func(rows *sql.Rows) error {
		var c pgColumn
		var isNullable, isIdentity string
		if err := rows.Scan(&c.table, &c.column.Name, &c.column.DataType, &c.udtName,
			&isNullable, &c.defaultValue, &isIdentity); err != nil {
			return err
		}
		c.column.ColumnType = c.udtName
		c.column.IsNullable = strings.EqualFold(isNullable, "YES")
		c.identity = strings.EqualFold(isIdentity, "YES")
		result = append(result, c)
		return nil
	})
	return result, err
}

// constraints reads primary key, unique and foreign key columns. Foreign key
// columns are paired with the referenced key column at the same position.
func (p *Postgres) constraints(ctx context.Context, schemaName string) ([]pgConstraint, error) {
	query, args, err := sq.Select(
		"kcu.table_name", "kcu.constraint_name", "tc.constraint_type",
		"kcu.column_name", "kcu.ordinal_position",
		"COALESCE(rk.table_name, '')", "COALESCE(rk.column_name, '')",
	).
		From("information_schema.table_constraints tc").
		Join("information_schema.key_column_usage kcu ON kcu.constraint_schema = tc.constraint_schema" +
			" AND kcu.constraint_name = tc.constraint_name AND kcu.table_name = tc.table_name").
		LeftJoin("information_schema.referential_constraints rc ON rc.constraint_schema = tc.constraint_schema" +
			" AND rc.constraint_name = tc.constraint_name").
		LeftJoin("information_schema.key_column_usage rk ON rk.constraint_schema = rc.unique_constraint_schema" +
			" AND rk.constraint_name = rc.unique_constraint_name" +
			" AND rk.ordinal_position = kcu.position_in_unique_constraint").
		Where(sq.Eq{"tc.table_schema": schemaName}).
		Where(sq.Eq{"tc.constraint_type": []string{"PRIMARY KEY", "UNIQUE", "FOREIGN KEY"}}).
		OrderBy("kcu.table_name", "kcu.constraint_name", "kcu.ordinal_position").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var result []pgConstraint
	err = scanRows(ctx, p.db, query, args, func(rows *sql.Rows) error {
		var c pgConstraint
		if err := rows.Scan(&c.table, &c.name, &c.kind, &c.column, &c.position, &c.refTable, &c.refColumn); err != nil {
			return err
		}
		result = append(result, c)
		return nil
	})
	return result, err
}

func (p *Postgres) enums(ctx context.Context, schemaName string) (map[string][]string, error) {
	query, args, err := sq.Select("t.typname", "e.enumlabel").
		From("pg_type t").
		Join("pg_enum e ON e.enumtypid = t.oid").
		Join("pg_namespace n ON n.oid = t.typnamespace").
		Where(sq.Eq{"n.nspname": schemaName}).
		OrderBy("t.typname", "e.enumsortorder").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	enums := make(map[string][]string)
	err = scanRows(ctx, p.db, query, args, func(rows *sql.Rows) error {
		var typeName, label string
		if err := rows.Scan(&typeName, &label); err != nil {
			return err
		}
		enums[typeName] = append(enums[typeName], label)
		return nil
	})
	return enums, err
}
