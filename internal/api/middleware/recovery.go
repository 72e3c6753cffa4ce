package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aeroweather/aeroweather/internal/api/models"
)

// Recovery converts a handler panic into a 500 problem. The panic value and
// stack go to the log and the request span; the client sees neither.
// http.ErrAbortHandler is re-raised so net/http can drop the connection.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}
				onPanic(log, r, v)
				models.NewInternalError(GetRequestID(r.Context()), "an unexpected error occurred").
					WithInstance(r.URL.Path).
					Write(w)
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func onPanic(log zerolog.Logger, r *http.Request, v any) {
	log.Error().
		Str("request_id", GetRequestID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Interface("panic", v).
		Bytes("stack", debug.Stack()).
		Msg("panic recovered")

	span := trace.SpanFromContext(r.Context())
	span.RecordError(fmt.Errorf("panic: %v", v))
	span.SetStatus(codes.Error, "panic")
}
