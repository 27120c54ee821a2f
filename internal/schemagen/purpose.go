package schemagen

import "opencrud-gen/internal/naming"

// Purpose selects which generated type is derived from a datamodel type.
type Purpose int

const (
	PurposeModel Purpose = iota
	PurposeEnum
	PurposeScalar

	PurposeCreateInput
	PurposeCreateWithoutInput
	PurposeCreateOneInput
	PurposeCreateManyInput
	PurposeCreateOneWithoutInput
	PurposeCreateManyWithoutInput
	PurposeCreateScalarListInput

	PurposeUpdateInput
	PurposeUpdateDataInput
	PurposeUpdateWithoutDataInput
	PurposeUpdateManyMutationInput
	PurposeUpdateManyDataInput
	PurposeUpdateOneInput
	PurposeUpdateOneRequiredInput
	PurposeUpdateManyInput
	PurposeUpdateOneWithoutInput
	PurposeUpdateOneRequiredWithoutInput
	PurposeUpdateManyWithoutInput
	PurposeUpdateWithWhereUniqueNestedInput
	PurposeUpdateWithWhereUniqueWithoutInput
	PurposeUpdateManyWithWhereNestedInput
	PurposeUpdateScalarListInput

	PurposeUpsertNestedInput
	PurposeUpsertWithoutInput
	PurposeUpsertWithWhereUniqueNestedInput
	PurposeUpsertWithWhereUniqueWithoutInput

	PurposeWhereInput
	PurposeScalarWhereInput
	PurposeWhereUniqueInput
	PurposeOrderByInput

	PurposeConnection
	PurposeEdge
	PurposeAggregate
	PurposePageInfo
	PurposeBatchPayload
	PurposeNode

	PurposeSubscriptionPayload
	PurposePreviousValues
	PurposeSubscriptionWhereInput
	PurposeMutationType

	purposeRoot
	purposeCount
)

var purposeNames = [purposeCount]string{
	PurposeModel:                             "model",
	PurposeEnum:                              "enum",
	PurposeScalar:                            "scalar",
	PurposeCreateInput:                       "create input",
	PurposeCreateWithoutInput:                "create input without related field",
	PurposeCreateOneInput:                    "nested create-one input",
	PurposeCreateManyInput:                   "nested create-many input",
	PurposeCreateOneWithoutInput:             "nested create-one input without related field",
	PurposeCreateManyWithoutInput:            "nested create-many input without related field",
	PurposeCreateScalarListInput:             "scalar list create input",
	PurposeUpdateInput:                       "update input",
	PurposeUpdateDataInput:                   "nested update data input",
	PurposeUpdateWithoutDataInput:            "nested update data input without related field",
	PurposeUpdateManyMutationInput:           "update-many mutation input",
	PurposeUpdateManyDataInput:               "nested update-many data input",
	PurposeUpdateOneInput:                    "nested update-one input",
	PurposeUpdateOneRequiredInput:            "nested update-one-required input",
	PurposeUpdateManyInput:                   "nested update-many input",
	PurposeUpdateOneWithoutInput:             "nested update-one input without related field",
	PurposeUpdateOneRequiredWithoutInput:     "nested update-one-required input without related field",
	PurposeUpdateManyWithoutInput:            "nested update-many input without related field",
	PurposeUpdateWithWhereUniqueNestedInput:  "nested update with unique selector",
	PurposeUpdateWithWhereUniqueWithoutInput: "nested update with unique selector without related field",
	PurposeUpdateManyWithWhereNestedInput:    "nested update-many with filter",
	PurposeUpdateScalarListInput:             "scalar list update input",
	PurposeUpsertNestedInput:                 "nested upsert input",
	PurposeUpsertWithoutInput:                "nested upsert input without related field",
	PurposeUpsertWithWhereUniqueNestedInput:  "nested upsert with unique selector",
	PurposeUpsertWithWhereUniqueWithoutInput: "nested upsert with unique selector without related field",
	PurposeWhereInput:                        "where input",
	PurposeScalarWhereInput:                  "scalar where input",
	PurposeWhereUniqueInput:                  "where unique input",
	PurposeOrderByInput:                      "order by enum",
	PurposeConnection:                        "connection",
	PurposeEdge:                              "edge",
	PurposeAggregate:                         "aggregate",
	PurposePageInfo:                          "page info",
	PurposeBatchPayload:                      "batch payload",
	PurposeNode:                              "node interface",
	PurposeSubscriptionPayload:               "subscription payload",
	PurposePreviousValues:                    "previous values",
	PurposeSubscriptionWhereInput:            "subscription where input",
	PurposeMutationType:                      "mutation type enum",
	purposeRoot:                              "root",
}

func (p Purpose) String() string {
	if p < 0 || p >= purposeCount {
		return "unknown purpose"
	}
	return purposeNames[p]
}

// fieldPlan is one field a purpose contributes to a type. build is nil for
// enum values.
type fieldPlan struct {
	name   string
	source string
	build  func() (*FieldDef, error)
}

// strategy describes how one purpose names its type and which fields it
// has. plan must not register types; it may only consult emptiness.
type strategy struct {
	kind       Kind
	name       func(k typeKey) string
	plan       func(k typeKey) []fieldPlan
	interfaces func(k typeKey) ([]string, error)
}

func fixedName(name string) func(typeKey) string {
	return func(typeKey) string { return name }
}

func suffixName(suffix string) func(typeKey) string {
	return func(k typeKey) string { return k.model.Name + suffix }
}

func prefixName(prefix string) func(typeKey) string {
	return func(k typeKey) string { return prefix + k.model.Name }
}

// strategies builds the dispatch table of a generator.
func (g *Generator) strategies() [purposeCount]strategy {
	var t [purposeCount]strategy

	t[PurposeModel] = strategy{kind: KindObject, name: suffixName(""), plan: g.planModel, interfaces: g.modelInterfaces}
	t[PurposeEnum] = strategy{kind: KindEnum, name: suffixName(""), plan: g.planEnum}
	t[PurposeScalar] = strategy{kind: KindScalar, name: func(k typeKey) string { return k.field }, plan: noFields}

	t[PurposeCreateInput] = strategy{kind: KindInputObject, name: suffixName("CreateInput"), plan: g.planCreateInput}
	t[PurposeCreateWithoutInput] = strategy{kind: KindInputObject, name: withoutName("Create", "Input"), plan: g.planCreateInput}
	t[PurposeCreateOneInput] = strategy{kind: KindInputObject, name: suffixName("CreateOneInput"), plan: g.planCreateNested}
	t[PurposeCreateManyInput] = strategy{kind: KindInputObject, name: suffixName("CreateManyInput"), plan: g.planCreateNested}
	t[PurposeCreateOneWithoutInput] = strategy{kind: KindInputObject, name: withoutName("CreateOne", "Input"), plan: g.planCreateNested}
	t[PurposeCreateManyWithoutInput] = strategy{kind: KindInputObject, name: withoutName("CreateMany", "Input"), plan: g.planCreateNested}
	t[PurposeCreateScalarListInput] = strategy{kind: KindInputObject, name: scalarListName("Create"), plan: g.planScalarList}

	t[PurposeUpdateInput] = strategy{kind: KindInputObject, name: suffixName("UpdateInput"), plan: g.planUpdateInput}
	t[PurposeUpdateDataInput] = strategy{kind: KindInputObject, name: suffixName("UpdateDataInput"), plan: g.planUpdateInput}
	t[PurposeUpdateWithoutDataInput] = strategy{kind: KindInputObject, name: withoutName("Update", "DataInput"), plan: g.planUpdateInput}
	t[PurposeUpdateManyMutationInput] = strategy{kind: KindInputObject, name: suffixName("UpdateManyMutationInput"), plan: g.planUpdateScalars}
	t[PurposeUpdateManyDataInput] = strategy{kind: KindInputObject, name: suffixName("UpdateManyDataInput"), plan: g.planUpdateScalars}
	t[PurposeUpdateOneInput] = strategy{kind: KindInputObject, name: suffixName("UpdateOneInput"), plan: g.planUpdateNested}
	t[PurposeUpdateOneRequiredInput] = strategy{kind: KindInputObject, name: suffixName("UpdateOneRequiredInput"), plan: g.planUpdateNested}
	t[PurposeUpdateManyInput] = strategy{kind: KindInputObject, name: suffixName("UpdateManyInput"), plan: g.planUpdateNested}
	t[PurposeUpdateOneWithoutInput] = strategy{kind: KindInputObject, name: withoutName("UpdateOne", "Input"), plan: g.planUpdateNested}
	t[PurposeUpdateOneRequiredWithoutInput] = strategy{kind: KindInputObject, name: withoutName("UpdateOneRequired", "Input"), plan: g.planUpdateNested}
	t[PurposeUpdateManyWithoutInput] = strategy{kind: KindInputObject, name: withoutName("UpdateMany", "Input"), plan: g.planUpdateNested}
	t[PurposeUpdateWithWhereUniqueNestedInput] = strategy{kind: KindInputObject, name: suffixName("UpdateWithWhereUniqueNestedInput"), plan: g.planUpdateWithWhereUnique}
	t[PurposeUpdateWithWhereUniqueWithoutInput] = strategy{kind: KindInputObject, name: withoutName("UpdateWithWhereUnique", "Input"), plan: g.planUpdateWithWhereUnique}
	t[PurposeUpdateManyWithWhereNestedInput] = strategy{kind: KindInputObject, name: suffixName("UpdateManyWithWhereNestedInput"), plan: g.planUpdateManyWithWhere}
	t[PurposeUpdateScalarListInput] = strategy{kind: KindInputObject, name: scalarListName("Update"), plan: g.planScalarList}

	t[PurposeUpsertNestedInput] = strategy{kind: KindInputObject, name: suffixName("UpsertNestedInput"), plan: g.planUpsert}
	t[PurposeUpsertWithoutInput] = strategy{kind: KindInputObject, name: withoutName("Upsert", "Input"), plan: g.planUpsert}
	t[PurposeUpsertWithWhereUniqueNestedInput] = strategy{kind: KindInputObject, name: suffixName("UpsertWithWhereUniqueNestedInput"), plan: g.planUpsert}
	t[PurposeUpsertWithWhereUniqueWithoutInput] = strategy{kind: KindInputObject, name: withoutName("UpsertWithWhereUnique", "Input"), plan: g.planUpsert}

	t[PurposeWhereInput] = strategy{kind: KindInputObject, name: suffixName("WhereInput"), plan: g.planWhere}
	t[PurposeScalarWhereInput] = strategy{kind: KindInputObject, name: suffixName("ScalarWhereInput"), plan: g.planWhere}
	t[PurposeWhereUniqueInput] = strategy{kind: KindInputObject, name: suffixName("WhereUniqueInput"), plan: g.planWhereUnique}
	t[PurposeOrderByInput] = strategy{kind: KindEnum, name: suffixName("OrderByInput"), plan: g.planOrderBy}

	t[PurposeConnection] = strategy{kind: KindObject, name: suffixName("Connection"), plan: g.planConnection}
	t[PurposeEdge] = strategy{kind: KindObject, name: suffixName("Edge"), plan: g.planEdge}
	t[PurposeAggregate] = strategy{kind: KindObject, name: prefixName("Aggregate"), plan: g.planAggregate}
	t[PurposePageInfo] = strategy{kind: KindObject, name: fixedName("PageInfo"), plan: g.planPageInfo}
	t[PurposeBatchPayload] = strategy{kind: KindObject, name: fixedName("BatchPayload"), plan: g.planBatchPayload}
	t[PurposeNode] = strategy{kind: KindInterface, name: fixedName("Node"), plan: g.planNode}

	t[PurposeSubscriptionPayload] = strategy{kind: KindObject, name: suffixName("SubscriptionPayload"), plan: g.planSubscriptionPayload}
	t[PurposePreviousValues] = strategy{kind: KindObject, name: suffixName("PreviousValues"), plan: g.planPreviousValues}
	t[PurposeSubscriptionWhereInput] = strategy{kind: KindInputObject, name: suffixName("SubscriptionWhereInput"), plan: g.planSubscriptionWhere}
	t[PurposeMutationType] = strategy{kind: KindEnum, name: fixedName("MutationType"), plan: g.planMutationType}

	return t
}

func noFields(typeKey) []fieldPlan { return nil }

// withoutName names nested inputs that leave out the back field k.field.
func withoutName(prefix, suffix string) func(typeKey) string {
	return func(k typeKey) string {
		return naming.WithoutName(k.model.Name, prefix, k.field, suffix)
	}
}

// scalarListName names the set wrapper of scalar list field k.field. The
// field name is used as declared.
func scalarListName(operation string) func(typeKey) string {
	return func(k typeKey) string {
		return k.model.Name + operation + k.field + "Input"
	}
}
