package schemagen

import "opencrud-gen/internal/datamodel"

// planModel plans the object type of a datamodel type. To-many relations
// take the filtering and pagination arguments of find-many queries.
func (g *Generator) planModel(k typeKey) []fieldPlan {
	var plans []fieldPlan
	for _, f := range k.model.Fields {
		src := fieldSource(k.model, f)
		switch {
		case f.IsRelation() && f.IsList:
			plans = append(plans, g.relationListPlan(f, src))
		case f.IsRelation():
			plans = append(plans, g.refPlan(f.Name, src, key(PurposeModel, f.Target()), requiredWrap(f.IsRequired)))
		case f.IsList:
			plans = append(plans, g.scalarPlan(f.Name, src, f, requiredList))
		default:
			plans = append(plans, g.scalarPlan(f.Name, src, f, requiredWrap(f.IsRequired)))
		}
	}
	return plans
}

func (g *Generator) relationListPlan(f *datamodel.Field, src string) fieldPlan {
	target := f.Target()
	return fieldPlan{name: f.Name, source: src, build: func() (*FieldDef, error) {
		t, err := g.ref(key(PurposeModel, target))
		if err != nil {
			return nil, err
		}
		args, err := g.listArgs(target)
		if err != nil {
			return nil, err
		}
		return &FieldDef{Name: f.Name, Type: listOf(t), Args: args}, nil
	}}
}

// listArgs builds where, orderBy and the pagination arguments of t.
func (g *Generator) listArgs(t *datamodel.Type) ([]*ArgDef, error) {
	where, err := g.ref(key(PurposeWhereInput, t))
	if err != nil {
		return nil, err
	}
	orderBy, err := g.ref(key(PurposeOrderByInput, t))
	if err != nil {
		return nil, err
	}
	return []*ArgDef{
		{Name: "where", Type: where},
		{Name: "orderBy", Type: orderBy},
		{Name: "skip", Type: Named(datamodel.ScalarInt)},
		{Name: "after", Type: Named(datamodel.ScalarString)},
		{Name: "before", Type: Named(datamodel.ScalarString)},
		{Name: "first", Type: Named(datamodel.ScalarInt)},
		{Name: "last", Type: Named(datamodel.ScalarInt)},
	}, nil
}

// implementsNode reports whether t has the required ID identity the Node
// interface demands.
func implementsNode(t *datamodel.Type) bool {
	if t.IsEmbedded {
		return false
	}
	id := t.Field("id")
	return id != nil && id.IsID && id.IsRequired && !id.IsList && id.Type == datamodel.ScalarID
}

func (g *Generator) modelInterfaces(k typeKey) ([]string, error) {
	if !implementsNode(k.model) {
		return nil, nil
	}
	node, err := g.generate(typeKey{purpose: PurposeNode})
	if err != nil {
		return nil, err
	}
	return []string{node.Name}, nil
}

func (g *Generator) planEnum(k typeKey) []fieldPlan {
	var plans []fieldPlan
	for _, v := range k.model.EnumValues() {
		plans = append(plans, valuePlan(v, "enum "+k.model.Name))
	}
	return plans
}

func (g *Generator) planConnection(k typeKey) []fieldPlan {
	src := k.String()
	return []fieldPlan{
		g.refPlan("pageInfo", src, typeKey{purpose: PurposePageInfo}, NonNull),
		g.refPlan("edges", src, key(PurposeEdge, k.model), func(t TypeRef) TypeRef { return NonNull(List(t)) }),
		g.refPlan("aggregate", src, key(PurposeAggregate, k.model), NonNull),
	}
}

func (g *Generator) planEdge(k typeKey) []fieldPlan {
	src := k.String()
	return []fieldPlan{
		g.refPlan("node", src, key(PurposeModel, k.model), NonNull),
		fixedPlan("cursor", src, NonNull(Named(datamodel.ScalarString))),
	}
}

func (g *Generator) planAggregate(k typeKey) []fieldPlan {
	return []fieldPlan{fixedPlan("count", k.String(), NonNull(Named(datamodel.ScalarInt)))}
}

func (g *Generator) planPageInfo(k typeKey) []fieldPlan {
	src := k.String()
	return []fieldPlan{
		fixedPlan("hasNextPage", src, NonNull(Named(datamodel.ScalarBoolean))),
		fixedPlan("hasPreviousPage", src, NonNull(Named(datamodel.ScalarBoolean))),
		fixedPlan("startCursor", src, Named(datamodel.ScalarString)),
		fixedPlan("endCursor", src, Named(datamodel.ScalarString)),
	}
}

func (g *Generator) planBatchPayload(k typeKey) []fieldPlan {
	return []fieldPlan{{name: "count", source: k.String(), build: func() (*FieldDef, error) {
		long, err := g.scalarNamed(datamodel.ScalarLong)
		if err != nil {
			return nil, err
		}
		return &FieldDef{Name: "count", Type: NonNull(long)}, nil
	}}}
}

func (g *Generator) planNode(k typeKey) []fieldPlan {
	return []fieldPlan{fixedPlan("id", k.String(), NonNull(Named(datamodel.ScalarID)))}
}
