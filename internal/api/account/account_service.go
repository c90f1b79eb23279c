package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pvserra/go-user-rating-service/app/observability/metrics"
	"github.com/pvserra/go-user-rating-service/internal/api/auth"
	"github.com/pvserra/go-user-rating-service/internal/types"
)

const defaultPageSize = 10

// Ensure implementation satisfies the interface
var _ AccountService = (*AccountServiceImpl)(nil)

// AccountService defines the business logic contract for account lifecycle
// operations.
type AccountService interface {
	// Create stores a new account after probing for a live nickname clash.
	Create(ctx context.Context, params types.CreateUserParams) (*types.User, error)

	// GetActive fetches a user by id; soft-deleted records read as absent.
	GetActive(ctx context.Context, id uuid.UUID) (*types.User, error)

	// GetActiveByNickname is GetActive keyed by nickname.
	GetActiveByNickname(ctx context.Context, nickname string) (*types.User, error)

	// Update applies the supplied fields after the not-modified-since
	// precondition passes. A nil ifUnmodifiedSince skips the check.
	Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams, ifUnmodifiedSince *time.Time) (*types.User, error)

	// SoftDelete tombstones a live record; deleting twice reports NotFound.
	SoftDelete(ctx context.Context, id uuid.UUID) (*types.User, error)

	// Paginate returns the page of live records, 1-indexed.
	Paginate(ctx context.Context, page, pageSize int) ([]types.UserDTO, error)
}

type AccountServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
}

func NewAccountService(repo UserRepo, logger *slog.Logger) *AccountServiceImpl {
	return &AccountServiceImpl{
		logger: logger,
		repo:   repo,
	}
}

// checkPrecondition rejects the update when the record changed strictly
// after the client's known state. Comparison happens at second granularity
// because the client echoes an HTTP date. An absent timestamp passes.
func checkPrecondition(updatedAt time.Time, ifUnmodifiedSince *time.Time) error {
	if ifUnmodifiedSince == nil {
		return nil
	}
	if updatedAt.Truncate(time.Second).After(ifUnmodifiedSince.Truncate(time.Second)) {
		return types.NewDomainError(types.KindPreconditionFailed, "resource has been modified")
	}
	return nil
}

func (s *AccountServiceImpl) Create(ctx context.Context, params types.CreateUserParams) (*types.User, error) {
	l := s.logger.With(slog.String("method", "Create"), slog.String("nickname", params.Nickname))
	l.DebugContext(ctx, "Creating user")

	existing, err := s.repo.GetByNickname(ctx, params.Nickname)
	if err != nil {
		return nil, fmt.Errorf("error probing nickname: %w", err)
	}
	if existing != nil {
		return nil, types.NewDomainError(types.KindDuplicateNickname, "user with this nickname already exists")
	}

	salt, err := auth.GenerateSalt()
	if err != nil {
		return nil, fmt.Errorf("error generating salt: %w", err)
	}

	role := params.Role
	if role == "" {
		role = types.RoleUser
	}

	user := &types.User{
		Nickname:     params.Nickname,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		PasswordHash: auth.HashPassword(params.Password, salt),
		Salt:         salt,
		Role:         role,
		Rating:       0,
	}

	stored, err := s.repo.Insert(ctx, user)
	if err != nil {
		l.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return nil, err
	}

	metrics.Get().AccountsCreatedTotal.Add(ctx, 1)
	l.InfoContext(ctx, "User created", slog.String("userID", stored.ID.String()))
	return stored, nil
}

func (s *AccountServiceImpl) GetActive(ctx context.Context, id uuid.UUID) (*types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	if user == nil || user.Deleted() {
		return nil, types.NewDomainError(types.KindNotFound, "user not found")
	}
	return user, nil
}

func (s *AccountServiceImpl) GetActiveByNickname(ctx context.Context, nickname string) (*types.User, error) {
	user, err := s.repo.GetByNickname(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("error fetching user by nickname: %w", err)
	}
	if user == nil || user.Deleted() {
		return nil, types.NewDomainError(types.KindNotFound, "user not found")
	}
	return user, nil
}

func (s *AccountServiceImpl) Update(ctx context.Context, id uuid.UUID, params types.UpdateUserParams, ifUnmodifiedSince *time.Time) (*types.User, error) {
	l := s.logger.With(slog.String("method", "Update"), slog.String("userID", id.String()))
	l.DebugContext(ctx, "Updating user")

	// The fetch deliberately skips the tombstone filter: a soft-deleted
	// record stays reachable through the generic update path.
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching user for update: %w", err)
	}
	if user == nil {
		return nil, types.NewDomainError(types.KindNotFound, "user not found")
	}

	if err := checkPrecondition(user.UpdatedAt, ifUnmodifiedSince); err != nil {
		return nil, err
	}

	fields := UpdateFields{
		Nickname:  params.Nickname,
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Role:      params.Role,
	}

	// A password change re-keys the credential with a fresh salt.
	if params.Password != nil {
		salt, err := auth.GenerateSalt()
		if err != nil {
			return nil, fmt.Errorf("error generating salt: %w", err)
		}
		hash := auth.HashPassword(*params.Password, salt)
		fields.PasswordHash = &hash
		fields.Salt = &salt
	}

	updated, err := s.repo.UpdateByID(ctx, id, fields)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update user", slog.Any("error", err))
		return nil, err
	}
	if updated == nil {
		return nil, types.NewDomainError(types.KindNotFound, "user not found")
	}

	l.InfoContext(ctx, "User updated")
	return updated, nil
}

func (s *AccountServiceImpl) SoftDelete(ctx context.Context, id uuid.UUID) (*types.User, error) {
	l := s.logger.With(slog.String("method", "SoftDelete"), slog.String("userID", id.String()))

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error fetching user for delete: %w", err)
	}
	if user == nil || user.Deleted() {
		return nil, types.NewDomainError(types.KindNotFound, "user not found")
	}

	now := time.Now()
	deleted, err := s.repo.UpdateByID(ctx, id, UpdateFields{DeletedAt: &now})
	if err != nil {
		l.ErrorContext(ctx, "Failed to soft-delete user", slog.Any("error", err))
		return nil, err
	}
	if deleted == nil {
		return nil, types.NewDomainError(types.KindNotFound, "user not found")
	}

	l.InfoContext(ctx, "User soft-deleted")
	return deleted, nil
}

func (s *AccountServiceImpl) Paginate(ctx context.Context, page, pageSize int) ([]types.UserDTO, error) {
	// Out-of-range arguments clamp instead of producing a negative offset.
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	users, err := s.repo.List(ctx, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, fmt.Errorf("error listing users: %w", err)
	}

	dtos := make([]types.UserDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, types.NewUserDTO(&users[i]))
	}
	return dtos, nil
}
