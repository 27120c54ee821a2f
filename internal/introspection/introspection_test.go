package introspection

import (
	"bytes"
	"context"
	"database/sql"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"opencrud-gen/internal/datamodel"
	"opencrud-gen/internal/sqltype"
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestNew(t *testing.T) {
	tests := []struct {
		dialect sqltype.Dialect
		want    any
	}{
		{sqltype.MySQL, &MySQL{}},
		{sqltype.Postgres, &Postgres{}},
		{sqltype.SQLite, &SQLite{}},
	}
	for _, tt := range tests {
		t.Run(string(tt.dialect), func(t *testing.T) {
			in, err := New(tt.dialect, nil, nil)
			require.NoError(t, err)
			assert.IsType(t, tt.want, in)
		})
	}

	_, err := New(sqltype.Dialect("oracle"), nil, nil)
	assert.Error(t, err)
}

func TestMySQLIntrospect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("FROM INFORMATION_SCHEMA.TABLES")).
		WithArgs("blog", "BASE TABLE").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}).
			AddRow("posts", "Blog posts").
			AddRow("users", ""))

	mock.ExpectQuery(regexp.QuoteMeta("FROM INFORMATION_SCHEMA.COLUMNS")).
		WithArgs("blog").
		WillReturnRows(sqlmock.NewRows([]string{
			"TABLE_NAME", "COLUMN_NAME", "DATA_TYPE", "COLUMN_TYPE",
			"IS_NULLABLE", "COLUMN_DEFAULT", "EXTRA", "COLUMN_COMMENT",
		}).
			AddRow("posts", "id", "bigint", "bigint", "NO", nil, "auto_increment", "").
			AddRow("posts", "title", "varchar", "varchar(255)", "NO", nil, "", "Headline").
			AddRow("posts", "status", "enum", "enum('draft','published')", "NO", "draft", "", "").
			AddRow("posts", "published", "tinyint", "tinyint(1)", "NO", "0", "", "").
			AddRow("posts", "created_at", "timestamp", "timestamp", "NO", "CURRENT_TIMESTAMP", "DEFAULT_GENERATED", "").
			AddRow("posts", "author_id", "int", "int", "YES", nil, "", "").
			AddRow("posts", "cover", "blob", "blob", "YES", nil, "", "").
			AddRow("users", "id", "int", "int", "NO", nil, "auto_increment", "").
			AddRow("users", "email", "varchar", "varchar(255)", "NO", nil, "", "").
			AddRow("audit", "id", "int", "int", "NO", nil, "", ""))

	mock.ExpectQuery(regexp.QuoteMeta("FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE")).
		WithArgs("blog").
		WillReturnRows(sqlmock.NewRows([]string{
			"TABLE_NAME", "CONSTRAINT_NAME", "COLUMN_NAME", "ORDINAL_POSITION",
			"REFERENCED_TABLE_NAME", "REFERENCED_COLUMN_NAME",
		}).
			AddRow("posts", "PRIMARY", "id", 1, nil, nil).
			AddRow("posts", "fk_posts_author", "author_id", 1, "users", "id").
			AddRow("users", "PRIMARY", "id", 1, nil, nil).
			AddRow("users", "uq_email", "email", 1, nil, nil))

	mock.ExpectQuery(regexp.QuoteMeta("FROM INFORMATION_SCHEMA.STATISTICS")).
		WithArgs("blog", "PRIMARY").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "INDEX_NAME", "NON_UNIQUE", "COLUMN_NAME"}).
			AddRow("posts", "idx_author", 1, "author_id").
			AddRow("users", "uq_email", 0, "email"))

	logger, logs := newTestLogger()
	in, err := New(sqltype.MySQL, db, logger)
	require.NoError(t, err)

	schema, err := in.Introspect(context.Background(), "blog")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, schema.Tables, 2)
	assert.Equal(t, sqltype.MySQL, schema.Dialect)

	posts := schema.Table("posts")
	require.NotNil(t, posts)
	assert.Equal(t, "Blog posts", posts.Comment)
	assert.Equal(t, []string{"id"}, posts.PrimaryKey)
	assert.Nil(t, posts.Column("cover"), "unsupported column types are skipped")
	assert.Contains(t, logs.String(), "column=cover")

	id := posts.Column("id")
	require.NotNil(t, id)
	assert.True(t, id.IsPrimaryKey)
	assert.True(t, id.IsAutoIncrement)
	assert.Equal(t, datamodel.ScalarLong, id.Scalar)

	title := posts.Column("title")
	require.NotNil(t, title)
	assert.Equal(t, datamodel.ScalarString, title.Scalar)
	assert.Equal(t, "Headline", title.Comment)
	assert.False(t, title.HasDefault)

	status := posts.Column("status")
	require.NotNil(t, status)
	assert.True(t, status.IsEnum())
	assert.Equal(t, []string{"draft", "published"}, status.EnumValues)
	assert.Equal(t, "draft", status.ColumnDefault)

	published := posts.Column("published")
	require.NotNil(t, published)
	assert.Equal(t, datamodel.ScalarBoolean, published.Scalar)
	assert.Equal(t, "0", published.ColumnDefault)
	assert.False(t, published.DefaultIsExpression)

	createdAt := posts.Column("created_at")
	require.NotNil(t, createdAt)
	assert.Equal(t, datamodel.ScalarDateTime, createdAt.Scalar)
	assert.True(t, createdAt.DefaultIsExpression)

	require.Len(t, posts.ForeignKeys, 1)
	assert.Equal(t, ForeignKey{
		ConstraintName:   "fk_posts_author",
		ColumnName:       "author_id",
		ReferencedTable:  "users",
		ReferencedColumn: "id",
		OrdinalPosition:  1,
	}, posts.ForeignKeys[0])
	assert.Equal(t, []Index{{Name: "idx_author", Columns: []string{"author_id"}}}, posts.Indexes)
	assert.False(t, posts.IsUniqueColumn("author_id"))

	users := schema.Table("users")
	require.NotNil(t, users)
	assert.True(t, users.IsUniqueColumn("email"))
	assert.True(t, users.IsUniqueColumn("id"))
	assert.Nil(t, schema.Table("audit"))
}

func TestMySQLIntrospectCurrentDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE TABLE_SCHEMA = DATABASE() AND TABLE_TYPE = ?")).
		WithArgs("BASE TABLE").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}))
	mock.ExpectQuery("INFORMATION_SCHEMA.COLUMNS").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}))
	mock.ExpectQuery("INFORMATION_SCHEMA.KEY_COLUMN_USAGE").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}))
	mock.ExpectQuery("INFORMATION_SCHEMA.STATISTICS").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME"}))

	in, err := New(sqltype.MySQL, db, nil)
	require.NoError(t, err)
	schema, err := in.Introspect(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, schema.Tables)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLIntrospectError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("INFORMATION_SCHEMA.TABLES").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "TABLE_COMMENT"}).AddRow("users", ""))
	mock.ExpectQuery("INFORMATION_SCHEMA.COLUMNS").
		WillReturnError(sql.ErrConnDone)

	in, err := New(sqltype.MySQL, db, nil)
	require.NoError(t, err)
	_, err = in.Introspect(context.Background(), "blog")
	require.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "failed to get columns")
}

func TestPostgresIntrospect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	mock.MatchExpectationsInOrder(false)

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.tables WHERE table_schema = $1 AND table_type = $2")).
		WithArgs("public", "BASE TABLE").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).
			AddRow("post_tags").
			AddRow("posts").
			AddRow("tags"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.columns")).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_name", "column_name", "data_type", "udt_name",
			"is_nullable", "column_default", "is_identity",
		}).
			AddRow("post_tags", "post_id", "uuid", "uuid", "NO", nil, "NO").
			AddRow("post_tags", "tag_id", "integer", "int4", "NO", nil, "NO").
			AddRow("posts", "id", "uuid", "uuid", "NO", "gen_random_uuid()", "NO").
			AddRow("posts", "title", "text", "text", "NO", "'Untitled'::text", "NO").
			AddRow("posts", "state", "USER-DEFINED", "post_state", "NO", "'draft'::post_state", "NO").
			AddRow("posts", "meta", "jsonb", "jsonb", "YES", nil, "NO").
			AddRow("posts", "tags_cache", "ARRAY", "_text", "YES", nil, "NO").
			AddRow("tags", "id", "integer", "int4", "NO", "nextval('tags_id_seq'::regclass)", "NO").
			AddRow("tags", "label", "character varying", "varchar", "NO", nil, "NO"))

	mock.ExpectQuery(regexp.QuoteMeta("FROM information_schema.table_constraints tc")).
		WithArgs("public", "PRIMARY KEY", "UNIQUE", "FOREIGN KEY").
		WillReturnRows(sqlmock.NewRows([]string{
			"table_name", "constraint_name", "constraint_type", "column_name",
			"ordinal_position", "ref_table", "ref_column",
		}).
			AddRow("post_tags", "post_tags_pkey", "PRIMARY KEY", "post_id", 1, "", "").
			AddRow("post_tags", "post_tags_pkey", "PRIMARY KEY", "tag_id", 2, "", "").
			AddRow("post_tags", "post_tags_post_fk", "FOREIGN KEY", "post_id", 1, "posts", "id").
			AddRow("post_tags", "post_tags_tag_fk", "FOREIGN KEY", "tag_id", 1, "tags", "id").
			AddRow("posts", "posts_pkey", "PRIMARY KEY", "id", 1, "", "").
			AddRow("tags", "tags_label_key", "UNIQUE", "label", 1, "", "").
			AddRow("tags", "tags_pkey", "PRIMARY KEY", "id", 1, "", ""))

	mock.ExpectQuery(regexp.QuoteMeta("FROM pg_type t")).
		WithArgs("public").
		WillReturnRows(sqlmock.NewRows([]string{"typname", "enumlabel"}).
			AddRow("post_state", "draft").
			AddRow("post_state", "live"))

	in, err := New(sqltype.Postgres, db, nil)
	require.NoError(t, err)
	schema, err := in.Introspect(context.Background(), "")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, DefaultPostgresSchema, schema.Name)
	require.Len(t, schema.Tables, 3)

	joins := schema.Table("post_tags")
	require.NotNil(t, joins)
	assert.Equal(t, []string{"post_id", "tag_id"}, joins.PrimaryKey)
	constraints := joins.ForeignKeyConstraints()
	require.Len(t, constraints, 2)
	assert.Equal(t, "posts", constraints[0].ReferencedTable)
	assert.Equal(t, "tags", constraints[1].ReferencedTable)

	posts := schema.Table("posts")
	require.NotNil(t, posts)
	id := posts.Column("id")
	require.NotNil(t, id)
	assert.Equal(t, datamodel.ScalarUUID, id.Scalar)
	assert.True(t, id.DefaultIsExpression)
	assert.False(t, id.IsAutoIncrement)

	title := posts.Column("title")
	require.NotNil(t, title)
	assert.Equal(t, "Untitled", title.ColumnDefault)
	assert.False(t, title.DefaultIsExpression)

	state := posts.Column("state")
	require.NotNil(t, state)
	assert.Equal(t, "post_state", state.EnumName)
	assert.Equal(t, []string{"draft", "live"}, state.EnumValues)
	assert.Equal(t, "draft", state.ColumnDefault)

	meta := posts.Column("meta")
	require.NotNil(t, meta)
	assert.Equal(t, datamodel.ScalarJSON, meta.Scalar)
	assert.True(t, meta.IsNullable)
	assert.Nil(t, posts.Column("tags_cache"))

	tags := schema.Table("tags")
	require.NotNil(t, tags)
	tagID := tags.Column("id")
	require.NotNil(t, tagID)
	assert.True(t, tagID.IsAutoIncrement)
	assert.False(t, tagID.HasDefault)
	assert.True(t, tags.IsUniqueColumn("label"))
}

func TestSQLiteIntrospect(t *testing.T) {
	db, err := sql.Open(sqltype.SQLite.DriverName(), "file:introspect?mode=memory")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	ddl := []string{
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			active BOOLEAN NOT NULL DEFAULT 1,
			joined DATETIME DEFAULT CURRENT_TIMESTAMP,
			nickname VARCHAR(40) DEFAULT 'anon',
			avatar BLOB
		)`,
		`CREATE TABLE posts (
			id INTEGER PRIMARY KEY,
			title TEXT NOT NULL,
			author_id INTEGER NOT NULL REFERENCES users,
			editor_id INTEGER REFERENCES users(id)
		)`,
		`CREATE UNIQUE INDEX posts_title_author ON posts(title, author_id)`,
	}
	for _, stmt := range ddl {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}

	in, err := New(sqltype.SQLite, db, nil)
	require.NoError(t, err)
	schema, err := in.Introspect(context.Background(), "")
	require.NoError(t, err)

	require.Len(t, schema.Tables, 2)
	assert.Equal(t, "posts", schema.Tables[0].Name)
	assert.Equal(t, "users", schema.Tables[1].Name)

	users := schema.Table("users")
	require.NotNil(t, users)
	assert.Equal(t, []string{"id"}, users.PrimaryKey)
	id := users.Column("id")
	require.NotNil(t, id)
	assert.True(t, id.IsAutoIncrement)
	assert.False(t, id.IsNullable)
	assert.Equal(t, datamodel.ScalarInt, id.Scalar)
	assert.True(t, users.IsUniqueColumn("email"))

	active := users.Column("active")
	require.NotNil(t, active)
	assert.Equal(t, datamodel.ScalarBoolean, active.Scalar)
	assert.Equal(t, "1", active.ColumnDefault)

	joined := users.Column("joined")
	require.NotNil(t, joined)
	assert.Equal(t, datamodel.ScalarDateTime, joined.Scalar)
	assert.True(t, joined.DefaultIsExpression)

	nickname := users.Column("nickname")
	require.NotNil(t, nickname)
	assert.Equal(t, "anon", nickname.ColumnDefault)
	assert.Nil(t, users.Column("avatar"))

	posts := schema.Table("posts")
	require.NotNil(t, posts)
	constraints := posts.ForeignKeyConstraints()
	require.Len(t, constraints, 2)
	for _, c := range constraints {
		assert.Equal(t, "users", c.ReferencedTable)
		assert.Equal(t, []string{"id"}, c.ReferencedColumns)
	}
	assert.False(t, posts.IsUniqueColumn("title"))
	require.Len(t, posts.Indexes, 1)
	assert.Equal(t, Index{Name: "posts_title_author", Unique: true, Columns: []string{"title", "author_id"}}, posts.Indexes[0])
}
