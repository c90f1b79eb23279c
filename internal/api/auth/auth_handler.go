package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/pvserra/go-user-rating-service/internal/api"
)

type AuthHandler struct {
	authService AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		logger:      logger,
		authService: authService,
	}
}

// Login godoc
// @Summary      Login
// @Description  Authenticates a user by nickname and password and returns a bearer token.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Login credentials"
// @Success      200 {object} LoginResponse "Bearer token"
// @Failure      401 "Authentication failed"
// @Router       /users/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "Login"))

	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.authService.Login(ctx, req.Nickname, req.Password)
	if err != nil {
		if errors.Is(err, ErrTooManyAttempts) {
			api.ErrorResponse(w, r, http.StatusTooManyRequests, "Too many failed login attempts, try again later")
			return
		}
		l.ErrorContext(ctx, "Login failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Error logging in")
		return
	}

	// Unknown user and wrong password produce the same outcome.
	if token == "" {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{Token: token})
}
