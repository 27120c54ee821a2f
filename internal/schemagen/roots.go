package schemagen

import (
	"fmt"

	"opencrud-gen/internal/datamodel"
)

// Root type names.
const (
	QueryRoot        = "Query"
	MutationRoot     = "Mutation"
	SubscriptionRoot = "Subscription"
)

// rootTypes returns the types that get root fields: no enums and no
// embedded types.
func (g *Generator) rootTypes() []*datamodel.Type {
	var out []*datamodel.Type
	for _, t := range g.model.Types {
		if t.IsEnum || t.IsEmbedded {
			continue
		}
		out = append(out, t)
	}
	return out
}

// buildRoot collects the fields contribute adds for every root type and
// registers the root when it has any.
func (g *Generator) buildRoot(name string, contribute func(*datamodel.Type, *fieldSet) error) (*TypeDef, error) {
	fields := newFieldSet(name)
	for _, t := range g.rootTypes() {
		if err := contribute(t, fields); err != nil {
			return nil, err
		}
	}
	if name == QueryRoot {
		if err := g.addNodeQuery(fields); err != nil {
			return nil, err
		}
	}
	if len(fields.fields) == 0 {
		return nil, nil
	}

	k := typeKey{purpose: purposeRoot, field: name}
	if e, ok := g.registry.lookup(name); ok {
		return nil, &TypeConflictError{Name: name, Existing: e.key.String(), Requested: k.String()}
	}
	def := &TypeDef{Name: name, Kind: KindObject, Fields: fields.list()}
	g.registry.begin(def, k)
	g.registry.complete(name)
	return def, nil
}

func rootSource(field string, t *datamodel.Type) string {
	return field + " for " + t.Name
}

func (g *Generator) queryFields(t *datamodel.Type, fields *fieldSet) error {
	model, err := g.ref(key(PurposeModel, t))
	if err != nil {
		return err
	}

	if unique := key(PurposeWhereUniqueInput, t); g.nonEmpty(unique) {
		where, err := g.ref(unique)
		if err != nil {
			return err
		}
		name := g.namer.FindOneField(t.Name)
		f := &FieldDef{Name: name, Type: model, Args: []*ArgDef{{Name: "where", Type: NonNull(where)}}}
		if err := fields.add(f, rootSource(name, t)); err != nil {
			return err
		}
	}

	args, err := g.listArgs(t)
	if err != nil {
		return err
	}
	many := g.namer.FindManyField(t.Name)
	if err := fields.add(&FieldDef{Name: many, Type: NonNull(List(model)), Args: args}, rootSource(many, t)); err != nil {
		return err
	}

	connection, err := g.ref(key(PurposeConnection, t))
	if err != nil {
		return err
	}
	name := g.namer.ConnectionField(t.Name)
	return fields.add(&FieldDef{Name: name, Type: NonNull(connection), Args: args}, rootSource(name, t))
}

// addNodeQuery adds node(id: ID!): Node once some model implements Node.
func (g *Generator) addNodeQuery(fields *fieldSet) error {
	node, ok := g.registry.Lookup("Node")
	if !ok {
		return nil
	}
	f := &FieldDef{
		Name: "node",
		Type: Named(node.Name),
		Args: []*ArgDef{{Name: "id", Type: NonNull(Named(datamodel.ScalarID))}},
	}
	return fields.add(f, "node interface lookup")
}

func (g *Generator) mutationFields(t *datamodel.Type, fields *fieldSet) error {
	model, err := g.ref(key(PurposeModel, t))
	if err != nil {
		return err
	}

	unique := key(PurposeWhereUniqueInput, t)
	create := key(PurposeCreateInput, t)
	update := key(PurposeUpdateInput, t)
	updateMany := key(PurposeUpdateManyMutationInput, t)
	where := key(PurposeWhereInput, t)

	hasUnique := g.nonEmpty(unique)
	hasCreate := g.nonEmpty(create)
	hasUpdate := g.nonEmpty(update)

	batch, err := g.ref(typeKey{purpose: PurposeBatchPayload})
	if err != nil {
		return err
	}

	add := func(name string, typ TypeRef, args ...argSpec) error {
		f := &FieldDef{Name: name, Type: typ}
		for _, a := range args {
			ref, err := g.ref(a.key)
			if err != nil {
				return err
			}
			f.Args = append(f.Args, &ArgDef{Name: a.name, Type: a.wrap(ref)})
		}
		return fields.add(f, rootSource(name, t))
	}

	var createArgs []argSpec
	if hasCreate {
		createArgs = append(createArgs, argSpec{"data", create, NonNull})
	}
	if err := add(g.namer.CreateField(t.Name), NonNull(model), createArgs...); err != nil {
		return err
	}

	if hasUpdate && hasUnique {
		err := add(g.namer.UpdateField(t.Name), model,
			argSpec{"data", update, NonNull},
			argSpec{"where", unique, NonNull},
		)
		if err != nil {
			return err
		}
	}

	if g.nonEmpty(updateMany) {
		err := add(g.namer.UpdateManyField(t.Name), NonNull(batch),
			argSpec{"data", updateMany, NonNull},
			argSpec{"where", where, same},
		)
		if err != nil {
			return err
		}
	}

	if hasCreate && hasUpdate && hasUnique {
		err := add(g.namer.UpsertField(t.Name), NonNull(model),
			argSpec{"where", unique, NonNull},
			argSpec{"create", create, NonNull},
			argSpec{"update", update, NonNull},
		)
		if err != nil {
			return err
		}
	}

	if hasUnique {
		if err := add(g.namer.DeleteField(t.Name), model, argSpec{"where", unique, NonNull}); err != nil {
			return err
		}
	}

	return add(g.namer.DeleteManyField(t.Name), NonNull(batch), argSpec{"where", where, same})
}

// argSpec is an argument typed by a generated type.
type argSpec struct {
	name string
	key  typeKey
	wrap func(TypeRef) TypeRef
}

func (g *Generator) subscriptionFields(t *datamodel.Type, fields *fieldSet) error {
	where, err := g.ref(key(PurposeSubscriptionWhereInput, t))
	if err != nil {
		return err
	}
	payload, err := g.ref(key(PurposeSubscriptionPayload, t))
	if err != nil {
		return err
	}
	name := g.namer.SubscriptionField(t.Name)
	f := &FieldDef{Name: name, Type: payload, Args: []*ArgDef{{Name: "where", Type: where}}}
	return fields.add(f, rootSource(name, t))
}

// buildRoots generates the three roots. Query must not be empty.
func (g *Generator) buildRoots() (query, mutation, subscription *TypeDef, err error) {
	query, err = g.buildRoot(QueryRoot, g.queryFields)
	if err != nil {
		return nil, nil, nil, err
	}
	if query == nil {
		return nil, nil, nil, fmt.Errorf("schemagen: datamodel has no queryable types")
	}
	mutation, err = g.buildRoot(MutationRoot, g.mutationFields)
	if err != nil {
		return nil, nil, nil, err
	}
	subscription, err = g.buildRoot(SubscriptionRoot, g.subscriptionFields)
	if err != nil {
		return nil, nil, nil, err
	}
	return query, mutation, subscription, nil
}
