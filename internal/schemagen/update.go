package schemagen

import "opencrud-gen/internal/datamodel"

// planUpdateInput plans <T>UpdateInput, <T>UpdateDataInput and
// <T>UpdateWithout<F>DataInput. All fields are optional.
func (g *Generator) planUpdateInput(k typeKey) []fieldPlan {
	var plans []fieldPlan
	for _, f := range k.model.Fields {
		if k.field != "" && f.Name == k.field {
			continue
		}
		if f.IsRelation() {
			sub := updateRelationKey(f)
			if g.nonEmpty(sub) {
				plans = append(plans, g.refPlan(f.Name, fieldSource(k.model, f), sub, same))
			}
			continue
		}
		if p, ok := g.updateScalarPlan(k.model, f); ok {
			plans = append(plans, p)
		}
	}
	return plans
}

// planUpdateScalars plans the scalar-only update inputs used by updateMany.
func (g *Generator) planUpdateScalars(k typeKey) []fieldPlan {
	var plans []fieldPlan
	for _, f := range k.model.Fields {
		if f.IsRelation() {
			continue
		}
		if p, ok := g.updateScalarPlan(k.model, f); ok {
			plans = append(plans, p)
		}
	}
	return plans
}

func (g *Generator) updateScalarPlan(t *datamodel.Type, f *datamodel.Field) (fieldPlan, bool) {
	if f.IsReadOnly || f.IsID {
		return fieldPlan{}, false
	}
	src := fieldSource(t, f)
	if f.IsList {
		return g.refPlan(f.Name, src, relatedKey(PurposeUpdateScalarListInput, t, f.Name), same), true
	}
	return g.scalarPlan(f.Name, src, f, same), true
}

// updateRelationKey selects the nested update input for relation f.
// Required to-one relations cannot be deleted or disconnected.
func updateRelationKey(f *datamodel.Field) typeKey {
	target := f.Target()
	if f.IsTwoSided() {
		back := f.RelatedField.Name
		switch {
		case f.IsList:
			return relatedKey(PurposeUpdateManyWithoutInput, target, back)
		case f.IsRequired:
			return relatedKey(PurposeUpdateOneRequiredWithoutInput, target, back)
		default:
			return relatedKey(PurposeUpdateOneWithoutInput, target, back)
		}
	}
	switch {
	case f.IsList:
		return key(PurposeUpdateManyInput, target)
	case f.IsRequired:
		return key(PurposeUpdateOneRequiredInput, target)
	default:
		return key(PurposeUpdateOneInput, target)
	}
}

// updateDataKey is the data input a nested update of k carries.
func updateDataKey(k typeKey) typeKey {
	if k.field == "" {
		return key(PurposeUpdateDataInput, k.model)
	}
	return relatedKey(PurposeUpdateWithoutDataInput, k.model, k.field)
}

// planUpdateNested plans the update-one, update-one-required and
// update-many inputs used inside a parent update.
func (g *Generator) planUpdateNested(k typeKey) []fieldPlan {
	switch k.purpose {
	case PurposeUpdateManyInput, PurposeUpdateManyWithoutInput:
		return g.planUpdateMany(k)
	}

	src := k.String()
	required := k.purpose == PurposeUpdateOneRequiredInput || k.purpose == PurposeUpdateOneRequiredWithoutInput
	t := k.model

	var plans []fieldPlan
	if create := createDataKey(k); g.nonEmpty(create) {
		plans = append(plans, g.refPlan("create", src, create, same))
	}
	if data := updateDataKey(k); g.nonEmpty(data) {
		plans = append(plans, g.refPlan("update", src, data, same))
	}
	if upsert := nestedUpsertKey(k); g.nonEmpty(upsert) {
		plans = append(plans, g.refPlan("upsert", src, upsert, same))
	}
	if !required && !t.IsEmbedded {
		plans = append(plans,
			fixedPlan("delete", src, Named(datamodel.ScalarBoolean)),
			fixedPlan("disconnect", src, Named(datamodel.ScalarBoolean)),
		)
	}
	if g.connectable(t) {
		plans = append(plans, g.refPlan("connect", src, key(PurposeWhereUniqueInput, t), same))
	}
	return plans
}

func (g *Generator) planUpdateMany(k typeKey) []fieldPlan {
	src := k.String()
	t := k.model

	var plans []fieldPlan
	if create := createDataKey(k); g.nonEmpty(create) {
		plans = append(plans, g.refPlan("create", src, create, listOf))
	}
	if g.connectable(t) {
		unique := key(PurposeWhereUniqueInput, t)
		for _, name := range []string{"delete", "connect", "set", "disconnect"} {
			plans = append(plans, g.refPlan(name, src, unique, listOf))
		}
	}

	update := key(PurposeUpdateWithWhereUniqueNestedInput, t)
	upsert := key(PurposeUpsertWithWhereUniqueNestedInput, t)
	if k.field != "" {
		update = relatedKey(PurposeUpdateWithWhereUniqueWithoutInput, t, k.field)
		upsert = relatedKey(PurposeUpsertWithWhereUniqueWithoutInput, t, k.field)
	}
	if g.nonEmpty(update) {
		plans = append(plans, g.refPlan("update", src, update, listOf))
	}
	if g.nonEmpty(upsert) {
		plans = append(plans, g.refPlan("upsert", src, upsert, listOf))
	}

	plans = append(plans, g.refPlan("deleteMany", src, key(PurposeScalarWhereInput, t), listOf))
	if updateMany := key(PurposeUpdateManyWithWhereNestedInput, t); g.nonEmpty(updateMany) {
		plans = append(plans, g.refPlan("updateMany", src, updateMany, listOf))
	}
	return plans
}

// planUpdateWithWhereUnique plans the selector plus data pair of a to-many
// nested update. It is empty unless both halves exist.
func (g *Generator) planUpdateWithWhereUnique(k typeKey) []fieldPlan {
	unique := key(PurposeWhereUniqueInput, k.model)
	data := updateDataKey(k)
	if !g.nonEmpty(unique) || !g.nonEmpty(data) {
		return nil
	}
	src := k.String()
	return []fieldPlan{
		g.refPlan("where", src, unique, NonNull),
		g.refPlan("data", src, data, NonNull),
	}
}

func (g *Generator) planUpdateManyWithWhere(k typeKey) []fieldPlan {
	data := key(PurposeUpdateManyDataInput, k.model)
	if !g.nonEmpty(data) {
		return nil
	}
	src := k.String()
	return []fieldPlan{
		g.refPlan("where", src, key(PurposeScalarWhereInput, k.model), NonNull),
		g.refPlan("data", src, data, NonNull),
	}
}
