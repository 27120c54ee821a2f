package schemagen

import "opencrud-gen/internal/datamodel"

// planCreateInput plans <T>CreateInput and, when k.field is set,
// <T>CreateWithout<F>Input, which leaves out the back field F.
func (g *Generator) planCreateInput(k typeKey) []fieldPlan {
	var plans []fieldPlan
	for _, f := range k.model.Fields {
		if k.field != "" && f.Name == k.field {
			continue
		}
		src := fieldSource(k.model, f)

		if f.IsRelation() {
			sub := createRelationKey(f)
			if g.nonEmpty(sub) {
				plans = append(plans, g.refPlan(f.Name, src, sub, requiredWrap(f.IsRequired)))
			}
			continue
		}

		if f.IsReadOnly {
			continue
		}
		if f.IsList {
			plans = append(plans, g.refPlan(f.Name, src, relatedKey(PurposeCreateScalarListInput, k.model, f.Name), same))
			continue
		}
		plans = append(plans, g.scalarPlan(f.Name, src, f, requiredWrap(createRequired(f))))
	}
	return plans
}

// createRequired reports whether a writable scalar must be supplied on
// create. Ids without a generation strategy are always caller supplied.
func createRequired(f *datamodel.Field) bool {
	if f.IsID {
		return f.IDStrategy == datamodel.IDStrategyNone
	}
	return f.IsRequired && f.DefaultValue == nil
}

// createRelationKey selects the nested create input for relation f from its
// cardinality and whether the relation is two-sided.
func createRelationKey(f *datamodel.Field) typeKey {
	target := f.Target()
	switch {
	case f.IsTwoSided() && f.IsList:
		return relatedKey(PurposeCreateManyWithoutInput, target, f.RelatedField.Name)
	case f.IsTwoSided():
		return relatedKey(PurposeCreateOneWithoutInput, target, f.RelatedField.Name)
	case f.IsList:
		return key(PurposeCreateManyInput, target)
	default:
		return key(PurposeCreateOneInput, target)
	}
}

// planCreateNested plans the create-one and create-many inputs used inside
// a parent create. Embedded targets cannot be connected.
func (g *Generator) planCreateNested(k typeKey) []fieldPlan {
	src := k.String()
	many := k.purpose == PurposeCreateManyInput || k.purpose == PurposeCreateManyWithoutInput
	wrap := same
	if many {
		wrap = listOf
	}

	var plans []fieldPlan
	if create := createDataKey(k); g.nonEmpty(create) {
		plans = append(plans, g.refPlan("create", src, create, wrap))
	}
	if unique := key(PurposeWhereUniqueInput, k.model); g.connectable(k.model) {
		plans = append(plans, g.refPlan("connect", src, unique, wrap))
	}
	return plans
}

// createDataKey is the create input nested inputs of k embed: the plain
// create input, or the one without the back field when k has one.
func createDataKey(k typeKey) typeKey {
	if k.field == "" {
		return key(PurposeCreateInput, k.model)
	}
	return relatedKey(PurposeCreateWithoutInput, k.model, k.field)
}

// connectable reports whether records of t can be selected by a unique
// field from a nested input.
func (g *Generator) connectable(t *datamodel.Type) bool {
	return !t.IsEmbedded && g.nonEmpty(key(PurposeWhereUniqueInput, t))
}

// planScalarList plans the set wrapper of a scalar list field, shared by the
// create and update variants.
func (g *Generator) planScalarList(k typeKey) []fieldPlan {
	f := k.model.Field(k.field)
	if f == nil {
		return nil
	}
	return []fieldPlan{g.scalarPlan("set", fieldSource(k.model, f), f, listOf)}
}
