package schemarefresh

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"opencrud-gen/internal/datamodel"
	"opencrud-gen/internal/naming"
	"opencrud-gen/internal/schemagen"
	"opencrud-gen/internal/sdl"
)

// Snapshot is an immutable generated schema with everything the preview
// server needs to serve it.
type Snapshot struct {
	Model       *datamodel.Model
	Schema      *schemagen.Schema
	GraphQL     *graphql.Schema
	SDL         string
	Handler     http.Handler
	Fingerprint string
	BuiltAt     time.Time
}

// BuildConfig holds the inputs of BuildSnapshot besides the datamodel.
type BuildConfig struct {
	Naming   naming.Config
	Logger   *slog.Logger
	Recorder schemagen.Recorder
	GraphiQL bool
}

// BuildSnapshot generates the schema of model, prints it and materializes
// a graphql-go handler for it.
func BuildSnapshot(ctx context.Context, model *datamodel.Model, fingerprint string, cfg BuildConfig) (*Snapshot, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []schemagen.Option{
		schemagen.WithNamer(naming.New(cfg.Naming, logger)),
		schemagen.WithLogger(logger),
	}
	if cfg.Recorder != nil {
		opts = append(opts, schemagen.WithRecorder(cfg.Recorder))
	}
	schema, err := schemagen.Generate(ctx, model, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema: %w", err)
	}

	printed, err := sdl.Print(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to print schema: %w", err)
	}

	gql, err := schema.GraphQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build GraphQL schema: %w", err)
	}

	h := handler.New(&handler.Config{
		Schema:   &gql,
		Pretty:   true,
		GraphiQL: cfg.GraphiQL,
	})

	return &Snapshot{
		Model:       model,
		Schema:      schema,
		GraphQL:     &gql,
		SDL:         printed,
		Handler:     h,
		Fingerprint: fingerprint,
		BuiltAt:     time.Now(),
	}, nil
}
