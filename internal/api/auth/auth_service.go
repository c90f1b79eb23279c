package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/pvserra/go-user-rating-service/app/observability/metrics"
	"github.com/pvserra/go-user-rating-service/internal/types"
)

const (
	maxLoginFailures = 5
	throttleWindow   = 15 * time.Minute
)

// UserStore is the slice of the record store the login path needs.
type UserStore interface {
	GetByNickname(ctx context.Context, nickname string) (*types.User, error)
}

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService authenticates users and issues bearer credentials.
type AuthService interface {
	// Login resolves the nickname and verifies the password. It returns an
	// empty token when the user is unknown, soft-deleted, or the password
	// is wrong; the three cases are indistinguishable to the caller.
	Login(ctx context.Context, nickname, password string) (string, error)
}

type AuthServiceImpl struct {
	logger   *slog.Logger
	store    UserStore
	tokens   *TokenIssuer
	failures *cache.Cache
}

func NewAuthService(store UserStore, tokens *TokenIssuer, logger *slog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:   logger,
		store:    store,
		tokens:   tokens,
		failures: cache.New(throttleWindow, 2*throttleWindow),
	}
}

func (s *AuthServiceImpl) Login(ctx context.Context, nickname, password string) (string, error) {
	l := s.logger.With(slog.String("method", "Login"), slog.String("nickname", nickname))
	metrics.Get().LoginAttemptsTotal.Add(ctx, 1)

	if s.throttled(nickname) {
		l.WarnContext(ctx, "Login throttled")
		return "", ErrTooManyAttempts
	}

	user, err := s.store.GetByNickname(ctx, nickname)
	if err != nil {
		return "", fmt.Errorf("error resolving user for login: %w", err)
	}
	if user == nil || user.Deleted() {
		s.recordFailure(ctx, nickname)
		return "", nil
	}

	if !VerifyPassword(password, user.PasswordHash, user.Salt) {
		l.DebugContext(ctx, "Password verification failed")
		s.recordFailure(ctx, nickname)
		return "", nil
	}

	s.failures.Delete(nickname)

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", fmt.Errorf("error issuing token: %w", err)
	}

	l.InfoContext(ctx, "Login successful", slog.String("userID", user.ID.String()))
	return token, nil
}

func (s *AuthServiceImpl) throttled(nickname string) bool {
	if v, ok := s.failures.Get(nickname); ok {
		if count, isInt := v.(int); isInt && count >= maxLoginFailures {
			return true
		}
	}
	return false
}

func (s *AuthServiceImpl) recordFailure(ctx context.Context, nickname string) {
	metrics.Get().LoginFailuresTotal.Add(ctx, 1)
	if err := s.failures.Add(nickname, 1, cache.DefaultExpiration); err != nil {
		// Key already present inside the window; bump it.
		if _, ierr := s.failures.IncrementInt(nickname, 1); ierr != nil {
			s.logger.Warn("Failed to record login failure", slog.Any("error", ierr))
		}
	}
}
