package api

import (
	"net/http"
	"time"

	"github.com/workstream/workstream/pkg/workstream"
)

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger logs one line per request: method, path, status, duration.
func RequestLogger(logger workstream.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = &workstream.NoopLogger{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.Info("http request",
				workstream.Field{Key: "method", Value: r.Method},
				workstream.Field{Key: "path", Value: r.URL.Path},
				workstream.Field{Key: "status", Value: rec.status},
				workstream.Field{Key: "durationMs", Value: time.Since(start).Milliseconds()},
			)
		})
	}
}

// Recoverer converts handler panics into 500 responses instead of killing
// the connection.
func Recoverer(logger workstream.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = &workstream.NoopLogger{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("handler panic",
						workstream.Field{Key: "path", Value: r.URL.Path},
						workstream.Field{Key: "panic", Value: rec},
					)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
