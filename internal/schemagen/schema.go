package schemagen

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"opencrud-gen/internal/datamodel"
)

// Recorder receives the outcome of each schema generation.
type Recorder interface {
	RecordGeneration(ctx context.Context, duration time.Duration, types int, err error)
}

// Schema is a generated schema. Types holds every named type reachable from
// the roots, sorted by name, roots included.
type Schema struct {
	Query        *TypeDef
	Mutation     *TypeDef
	Subscription *TypeDef
	Types        []*TypeDef
}

// Type returns the type called name, or nil.
func (s *Schema) Type(name string) *TypeDef {
	i := sort.Search(len(s.Types), func(i int) bool { return s.Types[i].Name >= name })
	if i < len(s.Types) && s.Types[i].Name == name {
		return s.Types[i]
	}
	return nil
}

// Generate resolves model and generates its schema.
func Generate(ctx context.Context, model *datamodel.Model, opts ...Option) (*Schema, error) {
	g, err := New(model, opts...)
	if err != nil {
		return nil, err
	}
	return g.Schema(ctx)
}

// Schema generates the roots and everything they reference. The result is
// computed once per Generator; after a failure every call returns the same
// error.
func (g *Generator) Schema(ctx context.Context) (*Schema, error) {
	if g.schema != nil {
		return g.schema, nil
	}
	if g.err != nil {
		return nil, g.err
	}

	ctx, span := otel.Tracer("opencrud-gen/schemagen").Start(ctx, "schemagen.generate",
		trace.WithAttributes(attribute.Int("datamodel.types", len(g.model.Types))),
	)
	defer span.End()

	start := time.Now()
	schema, err := g.buildSchema()
	duration := time.Since(start)

	types := 0
	if schema != nil {
		types = len(schema.Types)
	}
	if g.recorder != nil {
		g.recorder.RecordGeneration(ctx, duration, types, err)
	}
	if err != nil {
		g.err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.ErrorContext(ctx, "schema generation failed",
			slog.String("component", "schemagen"),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("schema.types", types))
	g.logger.DebugContext(ctx, "schema generated",
		slog.String("component", "schemagen"),
		slog.Int("types", types),
		slog.Duration("duration", duration),
	)
	g.schema = schema
	return schema, nil
}

func (g *Generator) buildSchema() (*Schema, error) {
	query, mutation, subscription, err := g.buildRoots()
	if err != nil {
		return nil, err
	}
	s := &Schema{Query: query, Mutation: mutation, Subscription: subscription}
	s.Types = g.reachable(query, mutation, subscription)
	return s, nil
}

// reachable collects the types referenced from roots through fields,
// arguments and interfaces.
func (g *Generator) reachable(roots ...*TypeDef) []*TypeDef {
	seen := make(map[string]*TypeDef)
	var visit func(name string)
	visit = func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		def, ok := g.registry.Lookup(name)
		if !ok {
			return
		}
		seen[name] = def
		for _, i := range def.Interfaces {
			visit(i)
		}
		for _, f := range def.Fields {
			visit(f.Type.NamedType())
			for _, a := range f.Args {
				visit(a.Type.NamedType())
			}
		}
	}
	for _, r := range roots {
		if r != nil {
			visit(r.Name)
		}
	}

	out := make([]*TypeDef, 0, len(seen))
	for _, def := range seen {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
