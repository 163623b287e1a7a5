package serve

import (
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// newMetricsServer creates the http server exposing all metrics in Prometheus format
func newMetricsServer(endpoint string, debug bool) *http.Server {
	mux := http.NewServeMux()

	if debug {
		mux.HandleFunc("GET /metrics", loggerMiddleware(handleMetrics))
	} else {
		mux.HandleFunc("GET /metrics", handleMetrics)
	}

	Logger.Infof("Serving metrics on %s/metrics", endpoint)

	return &http.Server{
		Addr:              endpoint,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// handleMetrics writes the transport and process metrics
func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	metrics.WritePrometheus(w, true)
}

// --------------------------------------------------------------------------
// Middleware (logging)
// --------------------------------------------------------------------------

// responseWriter is a custom ResponseWriter that captures status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code before writing it
func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// loggerMiddleware is a middleware that logs HTTP requests
func loggerMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		Logger.Debugf("%s %s => %d took %s", r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	}
}
