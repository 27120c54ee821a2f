package naming

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Namer applies the naming rules of the generated API and keeps the names
// handed out during one inference run unique.
type Namer struct {
	config Config
	logger *slog.Logger
	names  *collisions
}

// New creates a Namer with the given configuration
func New(cfg Config, logger *slog.Logger) *Namer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Namer{
		config: cfg,
		logger: logger,
		names:  newCollisions(logger),
	}
}

// Default returns a Namer with default configuration
func Default() *Namer {
	return New(DefaultConfig(), nil)
}

// Reset forgets every registered name so the namer can serve a new
// inference run.
func (n *Namer) Reset() {
	n.names = newCollisions(n.logger)
}

// Capitalize upper-cases the first letter of s.
// Example: "posts" -> "Posts"
func Capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// CamelCase lower-cases the first letter of s.
// Example: "UserProfile" -> "userProfile"
func CamelCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}

// WithoutName builds the name of a nested input that leaves out the
// relation's back field.
// Example: ("Post", "CreateManyWithout", "author", "Input") -> "PostCreateManyWithoutAuthorInput"
func WithoutName(typeName, prefix, relatedField, suffix string) string {
	return typeName + prefix + "Without" + Capitalize(relatedField) + suffix
}

// FindOneField is the query field selecting a single record: "user".
func (n *Namer) FindOneField(typeName string) string {
	return CamelCase(typeName)
}

// FindManyField is the query field listing records: "users".
func (n *Namer) FindManyField(typeName string) string {
	return n.Pluralize(CamelCase(typeName))
}

// ConnectionField is the paginated query field: "usersConnection".
func (n *Namer) ConnectionField(typeName string) string {
	return n.FindManyField(typeName) + "Connection"
}

// CreateField is the create mutation name: "createUser".
func (n *Namer) CreateField(typeName string) string { return "create" + typeName }

// UpdateField is the single-record update mutation name: "updateUser".
func (n *Namer) UpdateField(typeName string) string { return "update" + typeName }

// UpsertField is the upsert mutation name: "upsertUser".
func (n *Namer) UpsertField(typeName string) string { return "upsert" + typeName }

// DeleteField is the single-record delete mutation name: "deleteUser".
func (n *Namer) DeleteField(typeName string) string { return "delete" + typeName }

// UpdateManyField is the batch update mutation name: "updateManyUsers".
func (n *Namer) UpdateManyField(typeName string) string {
	return "updateMany" + n.Pluralize(typeName)
}

// DeleteManyField is the batch delete mutation name: "deleteManyUsers".
func (n *Namer) DeleteManyField(typeName string) string {
	return "deleteMany" + n.Pluralize(typeName)
}

// SubscriptionField is the subscription field name: "user".
func (n *Namer) SubscriptionField(typeName string) string {
	return CamelCase(typeName)
}

// TypeName converts a table name to a datamodel type name by upper-casing
// its first letter. Reserved names get a trailing underscore.
// Example: "post_tags" -> "Post_tags"
func (n *Namer) TypeName(tableName string) string {
	return n.validateTypeAndSuffix(Capitalize(tableName))
}

// RelationFieldName derives an inline relation field name from its foreign
// key column by stripping the "Id", "_id" and "_ID" suffixes.
// Example: "author_id" -> "author", "ownerId" -> "owner"
func RelationFieldName(column string) string {
	name := column
	for _, suffix := range []string{"Id", "_id", "_ID"} {
		if len(name) > len(suffix) && strings.HasSuffix(name, suffix) {
			name = name[:len(name)-len(suffix)]
		}
	}
	return name
}

// BackRelationFieldName names the list field a referenced table gets for a
// foreign key pointing at it. When the source table references the same
// target more than once the column is appended for disambiguation.
// Example: ("post", "author_id", false) -> "posts"
// Example: ("post", "editor_id", true) -> "posts_editors"
func (n *Namer) BackRelationFieldName(sourceTable, fkColumn string, ambiguous bool) string {
	name := n.Pluralize(sourceTable)
	if ambiguous {
		name += "_" + n.Pluralize(RelationFieldName(fkColumn))
	}
	return name
}

// ManyToManyFieldName names the list field generated through a join table.
// Example: "tag" -> "tags"
func (n *Namer) ManyToManyFieldName(targetTable string) string {
	return n.Pluralize(targetTable)
}

// RegisterType registers a table name and returns the resolved type name.
// If a collision occurs, returns a suffixed name and logs a warning.
func (n *Namer) RegisterType(tableName string) string {
	return n.names.typeName(n.TypeName(tableName), tableName)
}

// RegisterField registers a field of typeName and returns the resolved name.
// Columns are registered first so they keep their names; later relation
// fields are suffixed on collision.
func (n *Namer) RegisterField(typeName, fieldName, source string) string {
	return n.names.fieldName(typeName, n.validateFieldAndSuffix(fieldName), source)
}

// FieldExists reports whether typeName already has a field called fieldName.
func (n *Namer) FieldExists(typeName, fieldName string) bool {
	return n.names.hasField(typeName, fieldName)
}

func (n *Namer) validateTypeAndSuffix(name string) string {
	if IsReservedTypeName(name) {
		safeName := name + "_"
		n.logger.Warn("GraphQL name conflicts with reserved word, auto-suffixed",
			slog.String("original", name),
			slog.String("renamed", safeName),
		)
		return safeName
	}
	return name
}

func (n *Namer) validateFieldAndSuffix(name string) string {
	if IsReservedFieldName(name) {
		safeName := name + "_"
		n.logger.Warn("GraphQL name conflicts with reserved word, auto-suffixed",
			slog.String("original", name),
			slog.String("renamed", safeName),
		)
		return safeName
	}
	return name
}
