package introspection

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel/attribute"

	"opencrud-gen/internal/sqltype"
)

// SQLite introspects a SQLite database through sqlite_master and the
// table-valued pragma functions. The schema name is ignored.
type SQLite struct {
	db     Queryer
	logger *slog.Logger
}

const (
	sqliteTableInfo   = `SELECT name, type, "notnull", dflt_value, pk FROM pragma_table_info(?) ORDER BY cid`
	sqliteForeignKeys = `SELECT id, seq, "table", "from", "to" FROM pragma_foreign_key_list(?) ORDER BY id, seq`
	sqliteIndexList   = `SELECT name, "unique", origin FROM pragma_index_list(?)`
	sqliteIndexInfo   = `SELECT name FROM pragma_index_info(?) ORDER BY seqno`
)

// Introspect reads every user table of the database.
func (s *SQLite) Introspect(ctx context.Context, schemaName string) (*Schema, error) {
	ctx, span := startSpan(ctx, "introspection.sqlite", attribute.String("db.system", "sqlite"))
	defer span.End()

	names, err := s.tables(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("failed to get tables: %w", err)
	}

	cat := newCatalog(names, nil, s.logger)
	for _, name := range names {
		if err := s.readTable(ctx, cat, name); err != nil {
			recordSpanError(span, err)
			return nil, fmt.Errorf("failed to read table %s: %w", name, err)
		}
	}
	resolveImplicitReferences(cat)

	schema := cat.schema(schemaName, sqltype.SQLite)
	span.SetAttributes(attribute.Int("db.table_count", len(schema.Tables)))
	return schema, nil
}

func (s *SQLite) tables(ctx context.Context) ([]string, error) {
	query, args, err := sq.Select("name").
		From("sqlite_master").
		Where(sq.Eq{"type": "table"}).
		Where(sq.NotLike{"name": "sqlite_%"}).
		OrderBy("name").
		PlaceholderFormat(sq.Question).
		ToSql()
	if err != nil {
		return nil, err
	}

	var names []string
	err = scanRows(ctx, s.db, query, args, func(rows *sql.Rows) error {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
		return nil
	})
	return names, err
}

func (s *SQLite) readTable(ctx context.Context, cat *catalog, name string) error {
	t := cat.table(name)

	type pkPart struct {
		column   string
		position int
	}
	var pk []pkPart
	var columns []Column
	err := scanRows(ctx, s.db, sqliteTableInfo, []any{name}, func(rows *sql.Rows) error {
		var col Column
		var notNull, pkPosition int
		var dflt sql.NullString
		if err := rows.Scan(&col.Name, &col.DataType, &notNull, &dflt, &pkPosition); err != nil {
			return err
		}
		col.ColumnType = col.DataType
		col.IsNullable = notNull == 0
		col.Scalar, _ = sqltype.Scalar(sqltype.SQLite, col.DataType, "")
		if dflt.Valid {
			cleanDefault(dflt.String).apply(&col)
		}
		if pkPosition > 0 {
			pk = append(pk, pkPart{column: col.Name, position: pkPosition})
		}
		columns = append(columns, col)
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(pk, func(i, j int) bool { return pk[i].position < pk[j].position })
	for _, part := range pk {
		t.PrimaryKey = append(t.PrimaryKey, part.column)
	}
	for _, col := range columns {
		// An INTEGER PRIMARY KEY aliases the rowid.
		if len(pk) == 1 && col.Name == pk[0].column && strings.EqualFold(col.DataType, "INTEGER") {
			col.IsAutoIncrement = true
			col.IsNullable = false
		}
		cat.addColumn(name, col)
	}

	err = scanRows(ctx, s.db, sqliteForeignKeys, []any{name}, func(rows *sql.Rows) error {
		var id, seq int
		var refTable, from string
		var to sql.NullString
		if err := rows.Scan(&id, &seq, &refTable, &from, &to); err != nil {
			return err
		}
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			ConstraintName:   fmt.Sprintf("fk_%s_%d", name, id),
			ColumnName:       from,
			ReferencedTable:  refTable,
			ReferencedColumn: to.String,
			OrdinalPosition:  seq + 1,
		})
		return nil
	})
	if err != nil {
		return err
	}

	return s.readIndexes(ctx, cat, name)
}

func (s *SQLite) readIndexes(ctx context.Context, cat *catalog, table string) error {
	type indexInfo struct {
		name   string
		unique bool
	}
	var indexes []indexInfo
	err := scanRows(ctx, s.db, sqliteIndexList, []any{table}, func(rows *sql.Rows) error {
		var name, origin string
		var unique int
		if err := rows.Scan(&name, &unique, &origin); err != nil {
			return err
		}
		if origin != "pk" {
			indexes = append(indexes, indexInfo{name: name, unique: unique == 1})
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(indexes, func(i, j int) bool { return indexes[i].name < indexes[j].name })
	for _, idx := range indexes {
		err := scanRows(ctx, s.db, sqliteIndexInfo, []any{idx.name}, func(rows *sql.Rows) error {
			var column sql.NullString
			if err := rows.Scan(&column); err != nil {
				return err
			}
			if column.Valid {
				cat.addIndexColumn(table, idx.name, idx.unique, column.String)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// resolveImplicitReferences fills in referenced columns of foreign keys that
// name only the parent table, which then refer to its primary key.
func resolveImplicitReferences(cat *catalog) {
	for _, t := range cat.tables {
		for i := range t.ForeignKeys {
			fk := &t.ForeignKeys[i]
			if fk.ReferencedColumn != "" {
				continue
			}
			parent := cat.table(fk.ReferencedTable)
			if parent == nil {
				continue
			}
			if pos := fk.OrdinalPosition - 1; pos >= 0 && pos < len(parent.PrimaryKey) {
				fk.ReferencedColumn = parent.PrimaryKey[pos]
			}
		}
	}
}
