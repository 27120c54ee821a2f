package schemagen

import "opencrud-gen/internal/datamodel"

var mutationTypes = []string{"CREATED", "UPDATED", "DELETED"}

func (g *Generator) planMutationType(k typeKey) []fieldPlan {
	plans := make([]fieldPlan, 0, len(mutationTypes))
	for _, v := range mutationTypes {
		plans = append(plans, valuePlan(v, k.String()))
	}
	return plans
}

// planPreviousValues plans the scalar snapshot sent with update and delete
// events. It follows the object type rules for scalars.
func (g *Generator) planPreviousValues(k typeKey) []fieldPlan {
	var plans []fieldPlan
	for _, f := range k.model.Fields {
		if f.IsRelation() {
			continue
		}
		wrap := requiredWrap(f.IsRequired)
		if f.IsList {
			wrap = requiredList
		}
		plans = append(plans, g.scalarPlan(f.Name, fieldSource(k.model, f), f, wrap))
	}
	return plans
}

func (g *Generator) planSubscriptionPayload(k typeKey) []fieldPlan {
	src := k.String()
	plans := []fieldPlan{
		g.refPlan("mutation", src, typeKey{purpose: PurposeMutationType}, NonNull),
		g.refPlan("node", src, key(PurposeModel, k.model), same),
		fixedPlan("updatedFields", src, listOf(Named(datamodel.ScalarString))),
	}
	if previous := key(PurposePreviousValues, k.model); g.nonEmpty(previous) {
		plans = append(plans, g.refPlan("previousValues", src, previous, same))
	}
	return plans
}

func (g *Generator) planSubscriptionWhere(k typeKey) []fieldPlan {
	src := k.String()
	plans := []fieldPlan{
		g.refPlan("mutation_in", src, typeKey{purpose: PurposeMutationType}, listOf),
		fixedPlan("updatedFields_contains", src, Named(datamodel.ScalarString)),
		fixedPlan("updatedFields_contains_every", src, listOf(Named(datamodel.ScalarString))),
		fixedPlan("updatedFields_contains_some", src, listOf(Named(datamodel.ScalarString))),
		g.refPlan("node", src, key(PurposeWhereInput, k.model), same),
	}
	for _, op := range []string{"AND", "OR", "NOT"} {
		plans = append(plans, g.refPlan(op, src, k, listOf))
	}
	return plans
}
