package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
)

// Route names double as the endpoint label of the HTTP metrics.
const (
	routeMetrics   = "metrics"
	routeHealth    = "health"
	routeInfo      = "info"
	routeStatus    = "status"
	routeUnmatched = "unmatched"
)

// statusRecorder remembers the first status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) code() string {
	if sr.status == 0 {
		return strconv.Itoa(http.StatusOK)
	}
	return strconv.Itoa(sr.status)
}

// routeLabel names the matched route; the configurable metrics path is
// reported under its route name rather than its template.
func routeLabel(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return routeUnmatched
	}
	if name := route.GetName(); name != "" {
		return name
	}
	if template, err := route.GetPathTemplate(); err == nil {
		return template
	}
	return routeUnmatched
}

// HTTPMiddleware records request count, latency and in-flight requests of
// the monitoring server, labelled by route name.
func HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}

		ActiveConnections.Inc()
		defer ActiveConnections.Dec()

		next.ServeHTTP(rec, r)

		endpoint := routeLabel(r)
		RequestsTotal.WithLabelValues(r.Method, endpoint, rec.code()).Inc()
		RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
