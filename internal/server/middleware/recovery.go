package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/metrics"
	"github.com/namelens/domainsearch/internal/observability"
)

// panicBody mirrors the error envelope written by internal/errors, which
// cannot be imported here.
type panicBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

// Recovery turns a handler panic into a 500 INTERNAL_ERROR response. The stack
// is logged, never returned to the caller.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			if recovered == http.ErrAbortHandler {
				panic(recovered)
			}

			requestID := GetRequestID(r.Context())
			envelope := errors.NewErrorEnvelope("INTERNAL_ERROR", fmt.Sprintf("panic: %v", recovered)).
				WithCorrelationID(requestID)
			if withSeverity, err := envelope.WithSeverity(errors.SeverityCritical); err == nil {
				envelope = withSeverity
			}

			metrics.RecordPanic()
			observability.Logger().Error("Recovered handler panic",
				zap.String("request_id", requestID),
				zap.String("path", r.URL.Path),
				zap.String("severity", string(envelope.Severity)),
				zap.Any("panic", recovered),
				zap.ByteString("stack", debug.Stack()))

			var body panicBody
			body.Error.Code = envelope.Code
			body.Error.Message = "Internal server error"
			body.Error.RequestID = envelope.CorrelationID

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(body)
		}()

		next.ServeHTTP(w, r)
	})
}
