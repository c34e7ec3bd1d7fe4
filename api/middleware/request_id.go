package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/landmarklens/landmark-api/api/responses"
	"github.com/landmarklens/landmark-api/pkg/logger"
)

const (
	requestIDHeader  = "X-Request-Id"
	cloudTraceHeader = "X-Cloud-Trace-Context"
	maxRequestIDLen  = 128
)

// RequestID propagates the caller's X-Request-Id, falls back to the trace id
// the Google front end adds, and otherwise mints a uuid.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := inboundRequestID(r)
			w.Header().Set(requestIDHeader, reqID)

			ctx := responses.WithRequestID(r.Context(), reqID)
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func inboundRequestID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(requestIDHeader)); validRequestID(id) {
		return id
	}
	// TRACE_ID/SPAN_ID;o=OPTIONS
	trace, _, _ := strings.Cut(r.Header.Get(cloudTraceHeader), "/")
	if trace = strings.TrimSpace(trace); validRequestID(trace) {
		return trace
	}
	return uuid.NewString()
}

// ids end up in response headers and log lines, so only visible ASCII passes
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
