package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/skystats/skystats/internal/metrics"
	"github.com/skystats/skystats/internal/observability"
)

// ProxyPathPrefix marks routes that answer with the flat {"error": msg} body.
const ProxyPathPrefix = "/weather-proxy"

// panicClientMessage is all a browser learns about a recovered panic.
const panicClientMessage = "Internal server error"

// Recovery turns a panic into a 500. The stack goes to the log, never the body.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			panicErr := errors.NewErrorEnvelope("INTERNAL_ERROR", fmt.Sprintf("panic: %v", rec)).
				WithCorrelationID(GetRequestID(r.Context()))
			panicErr, _ = panicErr.WithSeverity(errors.SeverityCritical)

			metrics.RecordPanic()
			if observability.ServerLogger != nil {
				observability.ServerLogger.Error("Recovered from panic",
					zap.String("path", r.URL.Path),
					zap.String("request_id", panicErr.CorrelationID),
					zap.String("panic", panicErr.Message),
					zap.String("stack_trace", string(debug.Stack())))
			}

			if IsProxyPath(r.URL.Path) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": panicClientMessage})
				return
			}
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error: ErrorDetail{
					Code:      panicErr.Code,
					Message:   panicClientMessage,
					RequestID: panicErr.CorrelationID,
				},
			})
		}()

		next.ServeHTTP(w, r)
	})
}

// ErrorResponse mirrors the operational error body; it is duplicated here to
// keep this package free of the errors package.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// IsProxyPath reports whether path belongs to the weather proxy, which uses the flat error body.
func IsProxyPath(path string) bool {
	return strings.HasPrefix(path, ProxyPathPrefix) || strings.HasPrefix(path, "/api"+ProxyPathPrefix)
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
