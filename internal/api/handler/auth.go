package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/aeroweather/aeroweather/internal/api/models"
	"github.com/aeroweather/aeroweather/internal/api/response"
	"github.com/aeroweather/aeroweather/internal/auth"
)

// AuthHandler handles authentication and user management endpoints.
type AuthHandler struct {
	authService *auth.Service
	logger      zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *auth.Service, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles POST /v1/auth/login - username/password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if !response.DecodeJSON(w, r, &req) {
		return
	}

	req.Normalize()
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", toFieldErrors(errs))
		return
	}

	tokenResp, err := h.authService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			response.Unauthorized(w, r, "invalid username or password")
			return
		}

		h.logger.Error().Err(err).Msg("login failed")
		response.InternalError(w, r, "authentication failed")
		return
	}

	response.JSON(w, r, http.StatusOK, tokenResp)
}

// CreateUser handles POST /v1/admin/users - register a new user.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req auth.Credentials
	if !response.DecodeJSON(w, r, &req) {
		return
	}

	req.Normalize()
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "validation error", toFieldErrors(errs))
		return
	}

	user, err := h.authService.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserExists):
			response.Conflict(w, r, "user already exists")
		case errors.Is(err, auth.ErrValidation):
			response.BadRequest(w, r, err.Error(), nil)
		default:
			h.logger.Error().Err(err).Msg("creating user failed")
			response.InternalError(w, r, "failed to create user")
		}
		return
	}

	audit(h.logger, r).
		Str("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered via admin endpoint")

	response.Created(w, r, "", user)
}

// ListUsers handles GET /v1/admin/users - list registered users.
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.authService.ListUsers(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("listing users failed")
		response.InternalError(w, r, "failed to list users")
		return
	}

	response.JSON(w, r, http.StatusOK, map[string]interface{}{
		"items": users,
	})
}

func toFieldErrors(errs []auth.FieldError) []models.FieldError {
	fieldErrors := make([]models.FieldError, len(errs))
	for i, e := range errs {
		fieldErrors[i] = models.FieldError{
			Field:   e.Field,
			Message: e.Message,
			Code:    e.Code,
		}
	}
	return fieldErrors
}
