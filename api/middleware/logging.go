package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/quoteflow-backend/pkg/logger"
)

// Logging writes one request.complete entry per request. Probe traffic under
// /health and /metrics drops to debug; 4xx and 5xx outcomes log at warn since
// the error writer already records the cause.
func Logging(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logg == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx := logg.WithFields(r.Context(), map[string]any{
				"method": r.Method,
				"path":   r.URL.Path,
			})

			rw := &responseMeter{ResponseWriter: w}
			next.ServeHTTP(rw, r.WithContext(ctx))

			ctx = logg.WithFields(ctx, map[string]any{
				"status":      rw.statusCode(),
				"bytes":       rw.written,
				"duration_ms": time.Since(start).Milliseconds(),
			})
			switch {
			case isProbe(r.URL.Path):
				logg.Debug(ctx, "request.complete")
			case rw.statusCode() >= http.StatusBadRequest:
				logg.Warn(ctx, "request.complete")
			default:
				logg.Info(ctx, "request.complete")
			}
		})
	}
}

func isProbe(path string) bool {
	return path == "/metrics" || path == "/health" || strings.HasPrefix(path, "/health/")
}

// responseMeter records the status and body size a handler produced.
type responseMeter struct {
	http.ResponseWriter
	status  int
	written int
}

func (m *responseMeter) statusCode() int {
	if m.status == 0 {
		return http.StatusOK
	}
	return m.status
}

func (m *responseMeter) WriteHeader(code int) {
	if m.status == 0 {
		m.status = code
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *responseMeter) Write(b []byte) (int, error) {
	if m.status == 0 {
		m.status = http.StatusOK
	}
	n, err := m.ResponseWriter.Write(b)
	m.written += n
	return n, err
}
