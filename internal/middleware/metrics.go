package middleware

import (
	"net/http"

	"opencrud-gen/internal/observability"
)

// Metrics records request count, duration and in-flight requests for route.
func Metrics(metrics *observability.HTTPMetrics, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if metrics == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := metrics.Start(r.Context(), route)
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)
			done(rec.status)
		})
	}
}
