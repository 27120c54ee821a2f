// Package introspection reads table metadata from a live database catalog:
// tables, columns, primary keys, foreign keys and unique indexes. It supports
// MySQL (and TiDB), PostgreSQL and SQLite.
package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"opencrud-gen/internal/sqltype"
)

// Column is a table column.
type Column struct {
	Name string
	// DataType is the base type reported by the catalog.
	DataType string
	// ColumnType is the full declaration where the dialect reports one.
	ColumnType string
	// Scalar is the datamodel scalar of the column. It is empty for enums.
	Scalar     string
	EnumName   string
	EnumValues []string

	IsNullable      bool
	IsPrimaryKey    bool
	IsAutoIncrement bool

	HasDefault bool
	// ColumnDefault is the default with quoting and casts removed.
	ColumnDefault string
	// DefaultIsExpression marks defaults computed by the database, such as
	// CURRENT_TIMESTAMP or now().
	DefaultIsExpression bool

	Comment string
}

// IsEnum reports whether the column holds one of a fixed set of labels.
func (c Column) IsEnum() bool {
	return len(c.EnumValues) > 0
}

// ForeignKey is one column of a foreign key constraint.
type ForeignKey struct {
	ConstraintName   string
	ColumnName       string
	ReferencedTable  string
	ReferencedColumn string
	OrdinalPosition  int
}

// Index is a unique or non-unique index with ordered columns.
type Index struct {
	Name    string
	Unique  bool
	Columns []string
}

// Table is a base table of the introspected schema.
type Table struct {
	Name        string
	Comment     string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
	Indexes     []Index
}

// Column returns the column called name, or nil.
func (t *Table) Column(name string) *Column {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i]
		}
	}
	return nil
}

// IsUniqueColumn reports whether name alone is a primary key or carries a
// single-column unique index.
func (t *Table) IsUniqueColumn(name string) bool {
	if len(t.PrimaryKey) == 1 && t.PrimaryKey[0] == name {
		return true
	}
	for _, idx := range t.Indexes {
		if idx.Unique && len(idx.Columns) == 1 && idx.Columns[0] == name {
			return true
		}
	}
	return false
}

// Schema is the introspected set of tables, ordered by name.
type Schema struct {
	Name    string
	Dialect sqltype.Dialect
	Tables  []Table
}

// Table returns the table called name, or nil.
func (s *Schema) Table(name string) *Table {
	for i := range s.Tables {
		if s.Tables[i].Name == name {
			return &s.Tables[i]
		}
	}
	return nil
}

// Queryer provides query access for schema introspection.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Introspector reads the catalog of one database.
type Introspector interface {
	Introspect(ctx context.Context, schemaName string) (*Schema, error)
}

// New returns the introspector for dialect d.
func New(d sqltype.Dialect, db Queryer, logger *slog.Logger) (Introspector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "introspection"), slog.String("dialect", string(d)))
	switch d {
	case sqltype.MySQL:
		return &MySQL{db: db, logger: logger}, nil
	case sqltype.Postgres:
		return &Postgres{db: db, logger: logger}, nil
	case sqltype.SQLite:
		return &SQLite{db: db, logger: logger}, nil
	default:
		return nil, fmt.Errorf("introspection: unsupported dialect %q", d)
	}
}

// catalog assembles tables from per-schema catalog reads. Rows for tables
// outside the base table list are ignored.
type catalog struct {
	tables []*Table
	byName map[string]*Table
	logger *slog.Logger
}

func newCatalog(names []string, comments map[string]string, logger *slog.Logger) *catalog {
	c := &catalog{byName: make(map[string]*Table, len(names)), logger: logger}
	for _, name := range names {
		t := &Table{Name: name, Comment: comments[name]}
		c.tables = append(c.tables, t)
		c.byName[name] = t
	}
	return c
}

func (c *catalog) table(name string) *Table {
	return c.byName[name]
}

// addColumn keeps col when it maps to a scalar or an enum and reports it
// otherwise.
func (c *catalog) addColumn(tableName string, col Column) {
	t := c.table(tableName)
	if t == nil {
		return
	}
	if col.Scalar == "" && !col.IsEnum() {
		c.logger.Warn("skipping column with unsupported type",
			slog.String("table", tableName),
			slog.String("column", col.Name),
			slog.String("type", col.DataType),
		)
		return
	}
	t.Columns = append(t.Columns, col)
}

func (c *catalog) addIndexColumn(tableName, indexName string, unique bool, column string) {
	t := c.table(tableName)
	if t == nil {
		return
	}
	for i := range t.Indexes {
		if t.Indexes[i].Name == indexName {
			t.Indexes[i].Columns = append(t.Indexes[i].Columns, column)
			return
		}
	}
	t.Indexes = append(t.Indexes, Index{Name: indexName, Unique: unique, Columns: []string{column}})
}

// schema marks primary key columns as required keys and returns the assembled schema.
func (c *catalog) schema(name string, d sqltype.Dialect) *Schema {
	s := &Schema{Name: name, Dialect: d, Tables: make([]Table, 0, len(c.tables))}
	for _, t := range c.tables {
		for _, pk := range t.PrimaryKey {
			if col := t.Column(pk); col != nil {
				col.IsPrimaryKey = true
				col.IsNullable = false
			}
		}
		s.Tables = append(s.Tables, *t)
	}
	return s
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.Tracer("opencrud-gen/introspection")
	ctx, span := tracer.Start(ctx, name)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

func recordSpanError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// scanRows runs query and calls scan for every row.
func scanRows(ctx context.Context, db Queryer, query string, args []any, scan func(*sql.Rows) error) error {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
