package middleware

import (
	"net/http"
	"strings"
	"time"

	"parkslot/pkg/metrics"
)

// RouteFunc maps a request to a low-cardinality route label.
type RouteFunc func(r *http.Request) string

// Metrics records request counts and latency per route. A nil RouteFunc uses RouteTemplate.
func Metrics(m *metrics.Metrics, route RouteFunc) func(http.Handler) http.Handler {
	if route == nil {
		route = RouteTemplate
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrap(w)

			next.ServeHTTP(wrapped, r)

			m.ObserveHTTP(r.Method, route(r), wrapped.statusCode, time.Since(start))
		})
	}
}

// RouteTemplate replaces the path parameters of the API's routes with their names,
// so /api/v1/slots/id/42 is reported as /api/v1/slots/id/:id.
func RouteTemplate(r *http.Request) string {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	for i := 1; i < len(segments); i++ {
		switch segments[i-1] {
		case "id":
			segments[i] = ":id"
		case "offers":
			segments[i] = ":token"
		}
	}
	return "/" + strings.Join(segments, "/")
}
