package serverapp

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"opencrud-gen/internal/config"
	"opencrud-gen/internal/logging"
	"opencrud-gen/internal/middleware"
	"opencrud-gen/internal/schemarefresh"
)

const (
	graphqlPath = "/graphql"
	sdlPath     = "/schema.graphql"
	healthPath  = "/health"
	metricsPath = "/metrics"
	reloadPath  = "/admin/reload-schema"

	reloadTimeout = 30 * time.Second
)

func buildRouter(cfg *config.Config, logger *logging.Logger, manager *schemarefresh.Manager, db *sql.DB, tel telemetry) *http.ServeMux {
	route := func(path string, h http.Handler) http.Handler {
		return middleware.Metrics(tel.http, path)(h)
	}

	mux := http.NewServeMux()
	mux.Handle(graphqlPath, route(graphqlPath, manager.Handler()))
	mux.Handle(sdlPath, route(sdlPath, sdlHandler(manager)))
	mux.Handle(healthPath, healthHandler(manager, db, cfg.Server.HealthCheckTimeout))
	mux.Handle(reloadPath, route(reloadPath, reloadHandler(manager)))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, graphqlPath, http.StatusFound)
			return
		}
		http.NotFound(w, r)
	})

	if tel.provider != nil {
		mux.Handle(metricsPath, promhttp.Handler())
		logger.Info("metrics endpoint enabled", slog.String("path", metricsPath))
	}

	return mux
}

// wrapHTTPHandler applies, from the outside in: CORS, otelhttp and request
// logging. Logging runs inside the server span so it can tag it.
func wrapHTTPHandler(cfg *config.Config, logger *logging.Logger, handler http.Handler) http.Handler {
	handler = middleware.Logging(logger)(handler)

	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return httpRootSpanName(r)
			}),
		)
		logger.Debug("HTTP instrumentation enabled")
	}

	if cfg.Server.CORSEnabled {
		handler = middleware.CORS(middleware.CORSConfig{
			Enabled:          cfg.Server.CORSEnabled,
			AllowedOrigins:   cfg.Server.CORSAllowedOrigins,
			AllowedMethods:   cfg.Server.CORSAllowedMethods,
			AllowedHeaders:   cfg.Server.CORSAllowedHeaders,
			ExposeHeaders:    cfg.Server.CORSExposeHeaders,
			AllowCredentials: cfg.Server.CORSAllowCredentials,
			MaxAge:           cfg.Server.CORSMaxAge,
		})(handler)
	}

	return handler
}

func httpRootSpanName(r *http.Request) string {
	if r == nil {
		return "HTTP /*"
	}
	method := strings.TrimSpace(r.Method)
	if method == "" {
		method = "HTTP"
	}
	return method + " " + normalizeHTTPSpanRoute(r.URL.Path)
}

// normalizeHTTPSpanRoute keeps span names low-cardinality.
func normalizeHTTPSpanRoute(rawPath string) string {
	switch rawPath {
	case "/", graphqlPath, sdlPath, healthPath, metricsPath, reloadPath:
		return rawPath
	default:
		return "/*"
	}
}

func sdlHandler(manager *schemarefresh.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		snapshot := manager.CurrentSnapshot()
		if snapshot == nil {
			http.Error(w, "schema not ready", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/graphql; charset=utf-8")
		w.Header().Set("ETag", `"`+snapshot.Fingerprint+`"`)
		if r.Header.Get("If-None-Match") == `"`+snapshot.Fingerprint+`"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		_, _ = w.Write([]byte(snapshot.SDL))
	}
}

type healthStatus struct {
	Status      string `json:"status"`
	Schema      string `json:"schema"`
	Database    string `json:"database,omitempty"`
	Fingerprint string `json:"fingerprint,omitempty"`
	BuiltAt     string `json:"built_at,omitempty"`
}

func healthHandler(manager *schemarefresh.Manager, db *sql.DB, timeout time.Duration) http.HandlerFunc {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())
		status := healthStatus{Status: "healthy", Schema: "ok"}
		code := http.StatusOK

		if snapshot := manager.CurrentSnapshot(); snapshot != nil {
			status.Fingerprint = snapshot.Fingerprint
			status.BuiltAt = snapshot.BuiltAt.UTC().Format(time.RFC3339)
		} else {
			status.Status, status.Schema = "unhealthy", "missing"
			code = http.StatusServiceUnavailable
		}

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			if err := db.PingContext(ctx); err != nil {
				reqLogger.Error("health check failed",
					slog.String("error", err.Error()),
					slog.String("check", "database"),
				)
				status.Status, status.Database = "unhealthy", "failed"
				code = http.StatusServiceUnavailable
			} else {
				status.Database = "ok"
			}
		}

		writeJSON(w, code, status)
	}
}

func reloadHandler(manager *schemarefresh.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logging.FromContext(r.Context())
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}

		reqLogger.Info("schema reload requested", slog.String("remote_addr", r.RemoteAddr))

		ctx, cancel := context.WithTimeout(r.Context(), reloadTimeout)
		defer cancel()
		if err := manager.RefreshNow(ctx); err != nil {
			reqLogger.Error("schema reload failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, map[string]string{
				"status":  "error",
				"message": err.Error(),
			})
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":      "ok",
			"fingerprint": manager.CurrentSnapshot().Fingerprint,
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
