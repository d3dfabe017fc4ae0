package middleware

import (
	"net/http"
	"slices"
	"time"

	"github.com/kbukum/streamkit/logger"
)

// RequestLogger writes one access line per request once the handler
// returns, which for an event stream is when the stream closes. Requests
// to quietPaths are not logged. Level follows the status class.
func RequestLogger(log *logger.Logger, quietPaths ...string) Middleware {
	if log == nil {
		log = logger.Nop()
	}
	if len(quietPaths) == 0 {
		quietPaths = []string{"/health", "/livez", "/readyz", "/version"}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if slices.Contains(quietPaths, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			sw := newStatusWriter(w)
			next.ServeHTTP(sw, r)

			status := sw.Status()
			f := logger.Fields(
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", sw.written,
				logger.FieldDuration, time.Since(start).Milliseconds(),
			)
			if sw.Header().Get("Content-Type") == "text/event-stream" {
				f.With("stream", true)
			}

			l := log.WithContext(r.Context())
			switch {
			case status >= http.StatusInternalServerError:
				l.Error("request completed", f)
			case status >= http.StatusBadRequest:
				l.Warn("request completed", f)
			default:
				l.Debug("request completed", f)
			}
		})
	}
}
