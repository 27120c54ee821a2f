// Package schemagen derives a complete CRUD GraphQL schema from a datamodel:
// model object types, create/update/upsert inputs with their nested relation
// variants, filters, ordering, connections, subscription payloads and the
// Query, Mutation and Subscription roots.
package schemagen

import (
	"fmt"
	"log/slog"

	"opencrud-gen/internal/datamodel"
	"opencrud-gen/internal/naming"
	"opencrud-gen/internal/scalars"
)

// Generator generates the types of one datamodel. Every type is built at
// most once per Generator and cached in its registry.
type Generator struct {
	model    *datamodel.Model
	namer    *naming.Namer
	logger   *slog.Logger
	recorder Recorder

	registry *Registry
	table    [purposeCount]strategy
	schema   *Schema
	// err is the first build failure. The registry may hold partially
	// built types after it, so every later request returns it.
	err error

	// nonEmptyMemo caches settled emptiness answers. visiting holds keys
	// whose emptiness is being computed; assumptions counts lookups that
	// hit such a key and were answered as empty.
	nonEmptyMemo map[typeKey]bool
	visiting     map[typeKey]bool
	assumptions  int
}

// Option configures a Generator.
type Option func(*Generator)

// WithNamer sets the namer used for pluralized root field names.
func WithNamer(n *naming.Namer) Option {
	return func(g *Generator) {
		if n != nil {
			g.namer = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithRecorder sets the recorder notified about each schema generation.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) {
		g.recorder = r
	}
}

// New creates a generator for model, resolving its relations first if that
// has not happened yet.
func New(model *datamodel.Model, opts ...Option) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("schemagen: nil datamodel")
	}
	if !model.Resolved() {
		if err := model.Resolve(); err != nil {
			return nil, err
		}
	}

	g := &Generator{
		model:        model,
		namer:        naming.Default(),
		logger:       slog.Default(),
		registry:     NewRegistry(),
		nonEmptyMemo: make(map[typeKey]bool),
		visiting:     make(map[typeKey]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.table = g.strategies()
	return g, nil
}

// Registry returns the registry of the types generated so far.
func (g *Generator) Registry() *Registry {
	return g.registry
}

// Type generates the type for purpose p of the datamodel type typeName.
// relatedField names the left-out back field for the "Without" purposes and
// the scalar list field for scalar list inputs. Shared types such as
// PageInfo ignore typeName.
func (g *Generator) Type(p Purpose, typeName, relatedField string) (*TypeDef, error) {
	if g.err != nil {
		return nil, g.err
	}
	k, err := g.key(p, typeName, relatedField)
	if err != nil {
		return nil, err
	}
	def, err := g.generate(k)
	if err != nil {
		g.err = err
		return nil, err
	}
	return def, nil
}

// IsEmpty reports whether the type for purpose p would have no members.
// It never registers types.
func (g *Generator) IsEmpty(p Purpose, typeName, relatedField string) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	k, err := g.key(p, typeName, relatedField)
	if err != nil {
		return false, err
	}
	return !g.nonEmpty(k), nil
}

func (g *Generator) key(p Purpose, typeName, relatedField string) (typeKey, error) {
	if p < 0 || p >= purposeRoot {
		return typeKey{}, fmt.Errorf("schemagen: unknown purpose %d", p)
	}
	switch p {
	case PurposePageInfo, PurposeBatchPayload, PurposeNode, PurposeMutationType:
		return typeKey{purpose: p}, nil
	case PurposeScalar:
		if _, ok := scalars.Lookup(relatedField); !ok || scalars.IsBuiltin(relatedField) {
			return typeKey{}, fmt.Errorf("%s is not a custom scalar type", relatedField)
		}
		return typeKey{purpose: p, field: relatedField}, nil
	}

	t := g.model.Type(typeName)
	if t == nil {
		return typeKey{}, fmt.Errorf("schemagen: unknown type %s", typeName)
	}
	if (p == PurposeEnum) != t.IsEnum {
		return typeKey{}, fmt.Errorf("schemagen: %s cannot be generated for %s", p, typeName)
	}

	switch p {
	case PurposeCreateWithoutInput, PurposeCreateOneWithoutInput, PurposeCreateManyWithoutInput,
		PurposeUpdateWithoutDataInput, PurposeUpdateOneWithoutInput, PurposeUpdateOneRequiredWithoutInput,
		PurposeUpdateManyWithoutInput, PurposeUpdateWithWhereUniqueWithoutInput,
		PurposeUpsertWithoutInput, PurposeUpsertWithWhereUniqueWithoutInput:
		f := t.Field(relatedField)
		if f == nil || !f.IsRelation() {
			return typeKey{}, fmt.Errorf("schemagen: %s is not a relation field of %s", relatedField, typeName)
		}
		return typeKey{purpose: p, model: t, field: relatedField}, nil
	case PurposeCreateScalarListInput, PurposeUpdateScalarListInput:
		f := t.Field(relatedField)
		if f == nil || f.IsRelation() || !f.IsList {
			return typeKey{}, fmt.Errorf("schemagen: %s is not a scalar list field of %s", relatedField, typeName)
		}
		return typeKey{purpose: p, model: t, field: relatedField}, nil
	}
	return typeKey{purpose: p, model: t}, nil
}

// generate returns the registered type for k, building it on first request.
func (g *Generator) generate(k typeKey) (*TypeDef, error) {
	s := g.table[k.purpose]
	name := s.name(k)

	if e, ok := g.registry.lookup(name); ok {
		if e.key != k {
			return nil, &TypeConflictError{Name: name, Existing: e.key.String(), Requested: k.String()}
		}
		return e.def, nil
	}

	def := &TypeDef{Name: name, Kind: s.kind}
	g.registry.begin(def, k)

	if s.interfaces != nil {
		interfaces, err := s.interfaces(k)
		if err != nil {
			return nil, err
		}
		def.Interfaces = interfaces
	}

	fields := newFieldSet(name)
	for _, p := range s.plan(k) {
		f := &FieldDef{Name: p.name}
		if p.build != nil {
			built, err := p.build()
			if err != nil {
				return nil, err
			}
			f = built
		}
		if err := fields.add(f, p.source); err != nil {
			return nil, err
		}
	}
	if s.kind == KindEnum {
		def.Values = fields.names()
	} else {
		def.Fields = fields.list()
	}

	g.registry.complete(name)
	return def, nil
}

// ref generates the type for k and returns a reference to it.
func (g *Generator) ref(k typeKey) (TypeRef, error) {
	def, err := g.generate(k)
	if err != nil {
		return TypeRef{}, err
	}
	return Named(def.Name), nil
}

// nonEmpty reports whether the type for k has at least one member. It is
// defined by the same plan generation uses. Cycles are settled as a least
// fixpoint: a key already being computed counts as empty, and a negative
// answer that relied on such an assumption is only cached once no
// computation is in progress.
func (g *Generator) nonEmpty(k typeKey) bool {
	if v, ok := g.nonEmptyMemo[k]; ok {
		return v
	}
	if g.visiting[k] {
		g.assumptions++
		return false
	}

	g.visiting[k] = true
	before := g.assumptions
	result := len(g.table[k.purpose].plan(k)) > 0
	delete(g.visiting, k)

	if result || g.assumptions == before || len(g.visiting) == 0 {
		g.nonEmptyMemo[k] = result
	}
	return result
}

// scalarType references the scalar or enum type of field f.
func (g *Generator) scalarType(f *datamodel.Field) (TypeRef, error) {
	if f.IsEnum() {
		return g.ref(typeKey{purpose: PurposeEnum, model: f.Target()})
	}
	return g.scalarNamed(f.Type)
}

func (g *Generator) scalarNamed(name string) (TypeRef, error) {
	if _, ok := scalars.Lookup(name); !ok {
		return TypeRef{}, fmt.Errorf("%s is not a scalar type", name)
	}
	if scalars.IsBuiltin(name) {
		return Named(name), nil
	}
	return g.ref(typeKey{purpose: PurposeScalar, field: name})
}

// refPlan plans a field typed by the generated type of k.
func (g *Generator) refPlan(name, source string, k typeKey, wrap func(TypeRef) TypeRef) fieldPlan {
	return fieldPlan{name: name, source: source, build: func() (*FieldDef, error) {
		t, err := g.ref(k)
		if err != nil {
			return nil, err
		}
		return &FieldDef{Name: name, Type: wrap(t)}, nil
	}}
}

// scalarPlan plans a field typed by the scalar or enum type of f.
func (g *Generator) scalarPlan(name, source string, f *datamodel.Field, wrap func(TypeRef) TypeRef) fieldPlan {
	return fieldPlan{name: name, source: source, build: func() (*FieldDef, error) {
		t, err := g.scalarType(f)
		if err != nil {
			return nil, err
		}
		return &FieldDef{Name: name, Type: wrap(t)}, nil
	}}
}

// fixedPlan plans a field of a built-in type.
func fixedPlan(name, source string, t TypeRef) fieldPlan {
	return fieldPlan{name: name, source: source, build: func() (*FieldDef, error) {
		return &FieldDef{Name: name, Type: t}, nil
	}}
}

func valuePlan(name, source string) fieldPlan {
	return fieldPlan{name: name, source: source}
}

func same(t TypeRef) TypeRef { return t }

func requiredList(t TypeRef) TypeRef { return NonNull(listOf(t)) }

func key(p Purpose, t *datamodel.Type) typeKey {
	return typeKey{purpose: p, model: t}
}

func relatedKey(p Purpose, t *datamodel.Type, field string) typeKey {
	return typeKey{purpose: p, model: t, field: field}
}

func requiredWrap(required bool) func(TypeRef) TypeRef {
	if required {
		return NonNull
	}
	return same
}

// fieldSource names the datamodel field a generated field comes from.
func fieldSource(t *datamodel.Type, f *datamodel.Field) string {
	return "field " + t.Name + "." + f.Name
}
