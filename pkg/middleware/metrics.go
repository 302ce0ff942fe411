// Package middleware holds the HTTP middleware chain both services share:
// request IDs, Prometheus instrumentation, and per-request deadlines.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/caselens/caselens/pkg/metrics"
)

// Metrics instruments every request with the shared HTTP collectors:
// request count by method/path/status, latency by method/path, and an
// in-flight gauge.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			recorder := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(recorder, r)

			// Paths are static in both services, so the raw path is a
			// bounded label set.
			m.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.code)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// statusRecorder captures the first status code written; implicit 200s from
// a bare Write keep the initial value.
type statusRecorder struct {
	http.ResponseWriter
	code     int
	recorded bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.recorded {
		s.code = code
		s.recorded = true
	}
	s.ResponseWriter.WriteHeader(code)
}
