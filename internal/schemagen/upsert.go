package schemagen

// nestedUpsertKey is the upsert input of a to-one nested update k.
func nestedUpsertKey(k typeKey) typeKey {
	if k.field == "" {
		return key(PurposeUpsertNestedInput, k.model)
	}
	return relatedKey(PurposeUpsertWithoutInput, k.model, k.field)
}

// planUpsert plans the nested upsert inputs. An upsert needs both an update
// and a create half; the with-where variants also need a unique selector.
func (g *Generator) planUpsert(k typeKey) []fieldPlan {
	withWhere := k.purpose == PurposeUpsertWithWhereUniqueNestedInput ||
		k.purpose == PurposeUpsertWithWhereUniqueWithoutInput

	update := updateDataKey(k)
	create := createDataKey(k)
	unique := key(PurposeWhereUniqueInput, k.model)
	if !g.nonEmpty(update) || !g.nonEmpty(create) {
		return nil
	}
	if withWhere && !g.nonEmpty(unique) {
		return nil
	}

	src := k.String()
	var plans []fieldPlan
	if withWhere {
		plans = append(plans, g.refPlan("where", src, unique, NonNull))
	}
	return append(plans,
		g.refPlan("update", src, update, NonNull),
		g.refPlan("create", src, create, NonNull),
	)
}
