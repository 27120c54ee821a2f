package serverapp

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_FileSource(t *testing.T) {
	path := writeDatamodel(t, previewDatamodel)
	app, err := New(previewConfig(path), testLogger())
	require.NoError(t, err)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { shutdown(t, app) })
	h := app.Handler()

	t.Run("root redirects to graphql", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/", "")
		assert.Equal(t, http.StatusFound, rec.Code)
		assert.Equal(t, "/graphql", rec.Header().Get("Location"))
	})

	t.Run("unknown path", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("sdl", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/schema.graphql", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Type"), "application/graphql")
		assert.Contains(t, rec.Body.String(), "type Post")
		assert.Contains(t, rec.Body.String(), "createUser")

		etag := rec.Header().Get("ETag")
		require.NotEmpty(t, etag)
		req := httptest.NewRequest(http.MethodGet, "/schema.graphql", nil)
		req.Header.Set("If-None-Match", etag)
		cached := httptest.NewRecorder()
		h.ServeHTTP(cached, req)
		assert.Equal(t, http.StatusNotModified, cached.Code)

		post := serve(t, h, http.MethodPost, "/schema.graphql", "")
		assert.Equal(t, http.StatusMethodNotAllowed, post.Code)
	})

	t.Run("graphql introspection", func(t *testing.T) {
		rec := serve(t, h, http.MethodPost, "/graphql", `{"query":"{ __type(name: \"Post\") { name kind } }"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"Post"`)
		assert.Contains(t, rec.Body.String(), `"OBJECT"`)
	})

	t.Run("health", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/health", "")
		require.Equal(t, http.StatusOK, rec.Code)
		var status healthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, app.Manager().CurrentSnapshot().Fingerprint, status.Fingerprint)
		assert.Empty(t, status.Database)
	})

	t.Run("reload", func(t *testing.T) {
		rec := serve(t, h, http.MethodGet, "/admin/reload-schema", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

		require.NoError(t, os.WriteFile(path, []byte(previewDatamodel+"\ntype Tag {\n  id: ID! @id\n  label: String! @unique\n}\n"), 0o644))
		rec = serve(t, h, http.MethodPost, "/admin/reload-schema", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, serve(t, h, http.MethodGet, "/schema.graphql", "").Body.String(), "type Tag")

		require.NoError(t, os.WriteFile(path, []byte("type Broken {"), 0o644))
		rec = serve(t, h, http.MethodPost, "/admin/reload-schema", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, serve(t, h, http.MethodGet, "/schema.graphql", "").Body.String(), "type Tag",
			"failed reload keeps the previous schema")
	})

	t.Run("request id echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
	})
}

func TestRoutes_DatabaseSource(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "preview.db")
	seed, err := sql.Open("sqlite", dsn)
	require.NoError(t, err)
	_, err = seed.Exec(`
CREATE TABLE users (
  id INTEGER PRIMARY KEY,
  email TEXT NOT NULL UNIQUE
);
CREATE TABLE posts (
  id INTEGER PRIMARY KEY,
  title TEXT NOT NULL,
  user_id INTEGER NOT NULL REFERENCES users(id)
);`)
	require.NoError(t, err)
	require.NoError(t, seed.Close())

	cfg := previewConfig("")
	cfg.Database.DSN = dsn
	app, err := New(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { shutdown(t, app) })

	require.NotNil(t, app.db)
	assert.Equal(t, "database", app.source.Describe())

	rec := serve(t, app.Handler(), http.MethodGet, "/schema.graphql", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "type Posts")

	rec = serve(t, app.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"database":"ok"`)
}

func TestRoutes_Metrics(t *testing.T) {
	cfg := previewConfig(writeDatamodel(t, previewDatamodel))
	cfg.Observability.MetricsEnabled = true
	app, err := New(cfg, testLogger())
	require.NoError(t, err)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { shutdown(t, app) })

	require.Equal(t, http.StatusOK, serve(t, app.Handler(), http.MethodGet, "/schema.graphql", "").Code)

	rec := serve(t, app.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "opencrud_generation")
	assert.Contains(t, rec.Body.String(), "opencrud_http_request")
}

func TestWrapHTTPHandler_UsesHTTPRootSpanName(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))
	tp.RegisterSpanProcessor(recorder)
	originalTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(originalTP)
	})

	cfg := previewConfig("x.graphql")
	cfg.Observability.TracingEnabled = true
	handler := wrapHTTPHandler(cfg, testLogger(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := serve(t, handler, http.MethodGet, "/schema.graphql", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "GET /schema.graphql")
}

func TestNormalizeHTTPSpanRoute(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "/graphql", expected: "/graphql"},
		{input: "/schema.graphql", expected: "/schema.graphql"},
		{input: "/health", expected: "/health"},
		{input: "/metrics", expected: "/metrics"},
		{input: "/admin/reload-schema", expected: "/admin/reload-schema"},
		{input: "/", expected: "/"},
		{input: "/users/123", expected: "/*"},
		{input: "", expected: "/*"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeHTTPSpanRoute(tt.input))
		})
	}
	assert.Equal(t, "HTTP /*", httpRootSpanName(nil))
}

func TestBuildServer_TLS(t *testing.T) {
	cfg := previewConfig("x.graphql")
	cfg.Server.TLSMode = "auto"
	cfg.Server.TLSAutoCertDir = t.TempDir()

	srv, err := buildServer(cfg, testLogger(), http.NewServeMux(), ":0")
	require.NoError(t, err)
	require.NotNil(t, srv.TLSConfig)
	assert.Len(t, srv.TLSConfig.Certificates, 1)

	cfg.Server.TLSMode = "file"
	_, err = buildServer(cfg, testLogger(), http.NewServeMux(), ":0")
	require.Error(t, err)

	cfg.Server.TLSMode = "off"
	srv, err = buildServer(cfg, testLogger(), http.NewServeMux(), ":0")
	require.NoError(t, err)
	assert.Nil(t, srv.TLSConfig)
}
