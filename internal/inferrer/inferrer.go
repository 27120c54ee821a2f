// Package inferrer turns an introspected database catalog into a datamodel.
//
// Every table except pure join tables becomes a type. Columns become scalar
// or enum fields, single-column foreign keys become inline relations with a
// back relation on the referenced type, and pure join tables become list
// relations on both of the tables they link.
package inferrer

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"opencrud-gen/internal/datamodel"
	"opencrud-gen/internal/introspection"
	"opencrud-gen/internal/junction"
	"opencrud-gen/internal/naming"
)

var graphQLName = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

// Option configures an inference run.
type Option func(*inferrer)

// WithLogger sets the logger used for skipped columns and relations.
func WithLogger(logger *slog.Logger) Option {
	return func(in *inferrer) {
		if logger != nil {
			in.logger = logger
		}
	}
}

type inferrer struct {
	schema    *introspection.Schema
	namer     *naming.Namer
	logger    *slog.Logger
	junctions junction.Map

	types map[string]*tableType
	order []*tableType
	enums map[string]*datamodel.Type
	model *datamodel.Model
}

// tableType is the type inferred for one table.
type tableType struct {
	table *introspection.Table
	typ   *datamodel.Type
	// idColumn is the column mapped to the id field, if any.
	idColumn string
	// relations holds the inline relation field of each foreign key column.
	relations map[string]*datamodel.Field
}

// Infer builds a resolved datamodel from schema. namer decides type and
// field names; pass naming.Default() for the standard rules.
func Infer(schema *introspection.Schema, namer *naming.Namer, opts ...Option) (*datamodel.Model, error) {
	if schema == nil {
		return nil, fmt.Errorf("inferrer: nil schema")
	}
	if namer == nil {
		namer = naming.Default()
	}
	in := &inferrer{
		schema:    schema,
		namer:     namer,
		logger:    slog.Default(),
		junctions: junction.Classify(schema),
		types:     make(map[string]*tableType),
		enums:     make(map[string]*datamodel.Type),
		model:     datamodel.New(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = in.logger.With(slog.String("component", "inferrer"))

	in.declareTypes()
	in.addColumns()
	in.addInlineRelations()
	in.addJoinRelations()

	for _, tt := range in.order {
		if len(tt.typ.Fields) == 0 {
			return nil, fmt.Errorf("inferrer: table %s has no usable columns", tt.table.Name)
		}
	}
	if len(in.model.Types) == 0 {
		return nil, fmt.Errorf("inferrer: schema %q has no tables", schema.Name)
	}
	if err := in.model.Resolve(); err != nil {
		return nil, fmt.Errorf("inferrer: %w", err)
	}
	return in.model, nil
}

func (in *inferrer) declareTypes() {
	tables := make([]*introspection.Table, 0, len(in.schema.Tables))
	for i := range in.schema.Tables {
		tables = append(tables, &in.schema.Tables[i])
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	for _, table := range tables {
		if in.junctions.IsPure(table.Name) {
			in.logger.Debug("join table inferred as relation", slog.String("table", table.Name))
			continue
		}
		if len(table.Columns) == 0 {
			in.logger.Warn("skipping table without supported columns", slog.String("table", table.Name))
			continue
		}
		name := in.namer.RegisterType(table.Name)
		typ := &datamodel.Type{Name: name, Description: table.Comment}
		if name != table.Name {
			typ.DatabaseName = table.Name
		}
		tt := &tableType{table: table, typ: typ, relations: make(map[string]*datamodel.Field)}
		if len(table.PrimaryKey) == 1 && table.Column(table.PrimaryKey[0]) != nil {
			tt.idColumn = table.PrimaryKey[0]
		}
		in.types[table.Name] = tt
		in.order = append(in.order, tt)
		in.model.Types = append(in.model.Types, typ)
	}
}

// addColumns adds scalar and enum fields in column order. Foreign key
// columns that become relations get an empty placeholder field so the
// relation keeps the column's position.
func (in *inferrer) addColumns() {
	for _, tt := range in.order {
		relationColumns := in.relationColumns(tt)
		for i := range tt.table.Columns {
			col := &tt.table.Columns[i]
			if relationColumns[col.Name] {
				f := &datamodel.Field{}
				tt.relations[col.Name] = f
				tt.typ.Fields = append(tt.typ.Fields, f)
				continue
			}
			if f := in.columnField(tt, col); f != nil {
				tt.typ.Fields = append(tt.typ.Fields, f)
			}
		}
	}
}

// relationColumns returns the foreign key columns of tt that can be mapped
// to relation fields: single-column keys referencing the id column of an
// inferred type.
func (in *inferrer) relationColumns(tt *tableType) map[string]bool {
	cols := make(map[string]bool)
	for _, c := range tt.table.ForeignKeyConstraints() {
		if !c.IsSingleColumn() || c.Columns[0] == tt.idColumn {
			continue
		}
		target := in.types[c.ReferencedTable]
		if target == nil || target.idColumn == "" || target.idColumn != c.ReferencedColumns[0] {
			in.logger.Info("foreign key kept as scalar column",
				slog.String("table", tt.table.Name),
				slog.String("constraint", c.Name),
			)
			continue
		}
		cols[c.Columns[0]] = true
	}
	return cols
}

func (in *inferrer) columnField(tt *tableType, col *introspection.Column) *datamodel.Field {
	f := &datamodel.Field{
		Name:        col.Name,
		Type:        col.Scalar,
		IsRequired:  !col.IsNullable,
		Description: col.Comment,
	}

	if col.IsEnum() {
		if enum := in.enumType(tt, col); enum != nil {
			f.Type = enum.Name
		} else {
			f.Type = datamodel.ScalarString
		}
	}

	if col.Name == tt.idColumn {
		in.makeID(tt, col, f)
	} else {
		f.IsUnique = tt.table.IsUniqueColumn(col.Name)
		markTimestamps(f)
	}

	if col.HasDefault && !col.DefaultIsExpression && !f.IsID {
		scalar := f.Type
		if col.IsEnum() && f.Type != datamodel.ScalarString {
			scalar = ""
		}
		value, err := datamodel.LiteralFor(scalar, col.ColumnDefault)
		if err != nil {
			in.logger.Warn("ignoring column default",
				slog.String("table", tt.table.Name),
				slog.String("column", col.Name),
				slog.String("error", err.Error()),
			)
		} else {
			f.DefaultValue = value
		}
	}

	name := in.namer.RegisterField(tt.typ.Name, f.Name, "column:"+col.Name)
	if name != col.Name {
		f.DatabaseName = col.Name
	}
	f.Name = name
	f.IsReadOnly = (f.IsID && f.IDStrategy != datamodel.IDStrategyNone) || f.IsCreatedAt || f.IsUpdatedAt
	return f
}

// makeID turns the single primary key column into the id field. The field
// keeps the column name when another column is already called id.
func (in *inferrer) makeID(tt *tableType, col *introspection.Column, f *datamodel.Field) {
	f.IsID = true
	f.IsUnique = true
	f.IsRequired = true
	if f.Type != datamodel.ScalarUUID {
		f.Type = datamodel.ScalarID
	}
	f.IDStrategy = datamodel.IDStrategyNone
	if col.IsAutoIncrement || (col.HasDefault && col.DefaultIsExpression) {
		f.IDStrategy = datamodel.IDStrategyAuto
	}
	if col.Name != "id" && tt.table.Column("id") == nil {
		f.Name = "id"
	}
}

// markTimestamps recognizes the conventional creation and update columns.
func markTimestamps(f *datamodel.Field) {
	if f.Type != datamodel.ScalarDateTime {
		return
	}
	switch f.Name {
	case "createdAt", "created_at":
		f.IsCreatedAt = true
	case "updatedAt", "updated_at":
		f.IsUpdatedAt = true
	}
}

// enumType returns the enum inferred for col, or nil when its labels are
// not valid enum value names. PostgreSQL enum types are shared between
// columns; MySQL enums are per column.
func (in *inferrer) enumType(tt *tableType, col *introspection.Column) *datamodel.Type {
	key := col.EnumName
	if key == "" {
		key = tt.table.Name + "_" + col.Name
	}
	if enum, ok := in.enums[key]; ok {
		return enum
	}

	for _, label := range col.EnumValues {
		if !graphQLName.MatchString(label) || label == "true" || label == "false" || label == "null" {
			in.logger.Warn("enum label is not a valid name, using String",
				slog.String("table", tt.table.Name),
				slog.String("column", col.Name),
				slog.String("label", label),
			)
			in.enums[key] = nil
			return nil
		}
	}

	enum := &datamodel.Type{Name: in.namer.RegisterType(key), IsEnum: true}
	for _, label := range col.EnumValues {
		enum.Fields = append(enum.Fields, &datamodel.Field{Name: label})
	}
	in.enums[key] = enum
	in.model.Types = append(in.model.Types, enum)
	return enum
}

// pairKey identifies the unordered pair of tables a relation connects.
func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "\x00" + b
}

// addInlineRelations names and types the placeholder relation fields and
// adds the back relation on each referenced type. Relations are named when
// they are self relations or when two tables are linked more than once.
func (in *inferrer) addInlineRelations() {
	pairs := make(map[string]int)
	for _, tt := range in.order {
		for _, c := range tt.table.ForeignKeyConstraints() {
			if _, ok := tt.relations[c.Columns[0]]; c.IsSingleColumn() && ok {
				pairs[pairKey(tt.table.Name, c.ReferencedTable)]++
			}
		}
	}

	for _, tt := range in.order {
		perTarget := make(map[string]int)
		constraints := tt.table.ForeignKeyConstraints()
		for _, c := range constraints {
			if _, ok := tt.relations[c.Columns[0]]; c.IsSingleColumn() && ok {
				perTarget[c.ReferencedTable]++
			}
		}

		for _, c := range constraints {
			if !c.IsSingleColumn() {
				continue
			}
			column := c.Columns[0]
			f, ok := tt.relations[column]
			if !ok || f.Name != "" {
				continue
			}
			target := in.types[c.ReferencedTable]
			col := tt.table.Column(column)

			f.Name = in.namer.RegisterField(tt.typ.Name, naming.RelationFieldName(column), "foreign key:"+c.Name)
			f.Type = target.typ.Name
			f.IsRequired = !col.IsNullable
			f.Description = col.Comment
			if f.Name != column {
				f.DatabaseName = column
			}

			self := target == tt
			if self || pairs[pairKey(tt.table.Name, c.ReferencedTable)] > 1 {
				f.RelationName = tt.typ.Name + naming.Capitalize(f.Name)
			}

			back := &datamodel.Field{
				Type:         tt.typ.Name,
				RelationName: f.RelationName,
				IsList:       true,
				IsRequired:   true,
			}
			if tt.table.IsUniqueColumn(column) {
				back.IsList = false
				back.IsRequired = false
			}
			backName := in.namer.BackRelationFieldName(tt.table.Name, column, perTarget[c.ReferencedTable] > 1)
			if !back.IsList {
				backName = naming.CamelCase(tt.typ.Name)
			}
			back.Name = in.namer.RegisterField(target.typ.Name, backName, "back relation:"+c.Name)
			target.typ.Fields = append(target.typ.Fields, back)
		}
	}
}

// addJoinRelations adds a list field on both tables linked by each pure
// join table. The relation is named after the join table.
func (in *inferrer) addJoinRelations() {
	for _, info := range in.junctions.Pure() {
		left, right := in.types[info.Left.ReferencedTable], in.types[info.Right.ReferencedTable]
		if left == nil || right == nil ||
			left.idColumn != info.Left.ReferencedColumn || right.idColumn != info.Right.ReferencedColumn {
			in.logger.Warn("join table does not link two identified types, skipping",
				slog.String("table", info.Table),
			)
			continue
		}
		relation := in.namer.TypeName(info.Table)
		source := "join table:" + info.Table
		left.typ.Fields = append(left.typ.Fields, &datamodel.Field{
			Name:         in.namer.RegisterField(left.typ.Name, in.namer.ManyToManyFieldName(right.table.Name), source),
			Type:         right.typ.Name,
			IsList:       true,
			IsRequired:   true,
			RelationName: relation,
		})
		right.typ.Fields = append(right.typ.Fields, &datamodel.Field{
			Name:         in.namer.RegisterField(right.typ.Name, in.namer.ManyToManyFieldName(left.table.Name), source),
			Type:         left.typ.Name,
			IsList:       true,
			IsRequired:   true,
			RelationName: relation,
		})
	}
}
