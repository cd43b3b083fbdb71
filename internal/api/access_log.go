package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mistops/guestgate/internal/clock"
	"github.com/mistops/guestgate/internal/logging"
	"github.com/mistops/guestgate/internal/metrics"
)

// accessLogWriter wraps http.ResponseWriter to capture the status code
// and response size.
type accessLogWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (rw *accessLogWriter) WriteHeader(status int) {
	rw.status = status
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *accessLogWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// AccessLogger logs every request and feeds the request metrics. Each
// request gets an X-Request-Id so a UI report can be matched to a log
// line.
func AccessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := clock.Now()

		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", requestID)

		rw := &accessLogWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(rw, r)

		duration := time.Since(start)

		// Metrics use the route pattern, not the raw path, to keep
		// label cardinality bounded.
		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		m := metrics.Get()
		m.APIRequests.WithLabelValues(r.Method, path, strconv.Itoa(rw.status)).Inc()
		m.APILatency.WithLabelValues(r.Method, path).Observe(duration.Seconds())

		if r.URL.Path == "/metrics" || r.URL.Path == "/health" || r.URL.Path == "/healthz" {
			return
		}
		level := "info"
		if rw.status >= 400 {
			level = "warn"
		}
		if rw.status >= 500 {
			level = "error"
		}
		logging.APILog(level, "%s %s %s %d %d %s",
			r.Method,
			r.URL.Path,
			getClientIP(r),
			rw.status,
			rw.size,
			duration.Round(time.Millisecond),
		)
	})
}
