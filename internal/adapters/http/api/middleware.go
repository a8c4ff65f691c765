package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/okian/rosterlens/pkg/metrics"
)

// MetricsMiddleware records count, latency and failures of every request to
// route under the given label.
func MetricsMiddleware(next http.HandlerFunc, route string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)

		status := strconv.Itoa(rec.status)
		metrics.RecordHTTPRequest(route, r.Method, status)
		metrics.RecordHTTPRequestDuration(route, r.Method, status, float64(time.Since(start).Milliseconds()))
		if kind := statusKind(rec.status); kind != "" {
			metrics.RecordErrorByComponent("http", kind)
		}
	}
}

// statusRecorder remembers the status a handler wrote.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
