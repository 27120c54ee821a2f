package schemagen

import "opencrud-gen/internal/datamodel"

var (
	equalityFilters  = []string{"", "_not"}
	inclusionFilters = []string{"_in", "_not_in"}
	orderingFilters  = []string{"_lt", "_lte", "_gt", "_gte"}
	textFilters      = []string{
		"_contains", "_not_contains",
		"_starts_with", "_not_starts_with",
		"_ends_with", "_not_ends_with",
	}
)

// filterSuffixes returns the filter family of a scalar or enum field in
// output order. Lists and Json fields cannot be filtered.
func filterSuffixes(f *datamodel.Field) []string {
	if f.IsList {
		return nil
	}
	if f.IsEnum() {
		return concat(equalityFilters, inclusionFilters)
	}
	switch f.Type {
	case datamodel.ScalarString, datamodel.ScalarID, datamodel.ScalarUUID:
		return concat(equalityFilters, inclusionFilters, orderingFilters, textFilters)
	case datamodel.ScalarInt, datamodel.ScalarLong, datamodel.ScalarFloat, datamodel.ScalarDateTime:
		return concat(equalityFilters, inclusionFilters, orderingFilters)
	case datamodel.ScalarBoolean:
		return equalityFilters
	default:
		return nil
	}
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

func isInclusion(suffix string) bool {
	return suffix == "_in" || suffix == "_not_in"
}

// planWhere plans <T>WhereInput and <T>ScalarWhereInput. The scalar variant
// skips relation filters.
func (g *Generator) planWhere(k typeKey) []fieldPlan {
	scalarOnly := k.purpose == PurposeScalarWhereInput

	var plans []fieldPlan
	for _, f := range k.model.Fields {
		src := fieldSource(k.model, f)
		if f.IsRelation() {
			if scalarOnly {
				continue
			}
			target := key(PurposeWhereInput, f.Target())
			if f.IsList {
				for _, suffix := range []string{"_every", "_some", "_none"} {
					plans = append(plans, g.refPlan(f.Name+suffix, src, target, same))
				}
			} else {
				plans = append(plans, g.refPlan(f.Name, src, target, same))
			}
			continue
		}
		for _, suffix := range filterSuffixes(f) {
			wrap := same
			if isInclusion(suffix) {
				wrap = listOf
			}
			plans = append(plans, g.scalarPlan(f.Name+suffix, src, f, wrap))
		}
	}

	src := k.String()
	for _, op := range []string{"AND", "OR", "NOT"} {
		plans = append(plans, g.refPlan(op, src, k, listOf))
	}
	return plans
}

// planWhereUnique plans <T>WhereUniqueInput from the unique scalar fields.
func (g *Generator) planWhereUnique(k typeKey) []fieldPlan {
	var plans []fieldPlan
	for _, f := range k.model.Fields {
		if !f.IsUnique || f.IsList || f.IsRelation() {
			continue
		}
		plans = append(plans, g.scalarPlan(f.Name, fieldSource(k.model, f), f, same))
	}
	return plans
}

// implicitOrderFields are offered for ordering even when not declared.
var implicitOrderFields = []string{"id", "createdAt", "updatedAt"}

// planOrderBy plans the <T>OrderByInput enum values.
func (g *Generator) planOrderBy(k typeKey) []fieldPlan {
	var plans []fieldPlan
	for _, f := range k.model.Fields {
		if f.IsList || f.IsRelation() {
			continue
		}
		src := fieldSource(k.model, f)
		plans = append(plans, valuePlan(f.Name+"_ASC", src), valuePlan(f.Name+"_DESC", src))
	}
	for _, name := range implicitOrderFields {
		if k.model.Field(name) != nil {
			continue
		}
		src := "implicit field " + name
		plans = append(plans, valuePlan(name+"_ASC", src), valuePlan(name+"_DESC", src))
	}
	return plans
}
