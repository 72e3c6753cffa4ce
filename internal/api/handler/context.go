package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/api/middleware"
)

// audit starts an info event for a state change, tagged with the caller.
func audit(logger zerolog.Logger, r *http.Request) *zerolog.Event {
	ctx := r.Context()
	return logger.Info().
		Str("request_id", middleware.GetRequestID(ctx)).
		Str("actor_id", middleware.GetUserID(ctx)).
		Str("actor", middleware.GetUsername(ctx))
}
