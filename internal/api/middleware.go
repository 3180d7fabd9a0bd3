package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/triagekit/triagekit/internal/logging"
)

// requestIDHeader carries the correlation id in and out of the service.
const requestIDHeader = "X-Request-Id"

// withRequestID attaches a correlation id to the request context, honoring a
// caller-supplied X-Request-Id, and echoes it back on the response.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, id := logging.WithRequestID(r.Context(), r.Header.Get(requestIDHeader))
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder captures the status written by the handler for access logs.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(status int) {
	sr.status = status
	sr.ResponseWriter.WriteHeader(status)
}

// withAccessLog logs one line per completed request.
func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Str("requestId", logging.RequestID(r.Context())).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}
