package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// HTTPMetricsMiddleware instruments requests with Prometheus metrics. Paths
// with identifier segments are collapsed to their route pattern so label
// cardinality stays bounded.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)
		httpRequestsInFlight.Dec()
		dur := time.Since(start)
		ObserveHTTPRequest(r.Method, routeLabel(r.URL.Path), strconv.Itoa(ww.status), dur)
	})
}

// routeLabel maps a request path to the metric label for its route.
func routeLabel(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/tours/destination/"):
		return "/api/tours/destination/:destination"
	case strings.HasPrefix(path, "/api/reservations/"):
		if strings.HasSuffix(path, "/sign") {
			return "/api/reservations/:id/sign"
		}
		return "/api/reservations/:id"
	case strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/ws/"),
		path == "/metrics", path == "/healthz", path == "/readyz":
		return path
	default:
		return "other"
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
