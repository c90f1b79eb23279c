package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/pvserra/go-user-rating-service/config"
	"github.com/pvserra/go-user-rating-service/internal/types"
)

// TokenIssuer signs bearer credentials carrying the user's identity claims.
type TokenIssuer struct {
	cfg config.JWTConfig
}

func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg}
}

// Issue signs a token for the given user. The claims expose id, nickname,
// role and rating; credential material never enters the token.
func (t *TokenIssuer) Issue(u *types.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   u.ID.String(),
		Nickname: u.Nickname,
		Role:     u.Role,
		Rating:   u.Rating,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			Issuer:    t.cfg.Issuer,
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(t.cfg.ExpiryHours) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(t.cfg.SecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}
