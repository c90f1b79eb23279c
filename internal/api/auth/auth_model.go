package auth

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pvserra/go-user-rating-service/internal/types"
)

// ErrTooManyAttempts is returned when a nickname has accumulated too many
// failed logins inside the throttle window.
var ErrTooManyAttempts = errors.New("too many failed login attempts")

// LoginRequest represents the login request body.
type LoginRequest struct {
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

// LoginResponse represents the login response body.
type LoginResponse struct {
	Token string `json:"token"`
}

// Claims is the JWT payload issued on login.
type Claims struct {
	UserID   string         `json:"userId"`
	Nickname string         `json:"nickname"`
	Role     types.UserRole `json:"role"`
	Rating   int            `json:"rating"`
	jwt.RegisteredClaims
}

// Typed context keys for values set by the Authenticate middleware.
type contextKey string

const UserIDKey contextKey = "userID"
const UserRoleKey contextKey = "userRole"

func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

func GetUserRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}
