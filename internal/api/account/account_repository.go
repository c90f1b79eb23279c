package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/pvserra/go-user-rating-service/app/observability/metrics"
	"github.com/pvserra/go-user-rating-service/internal/types"
)

// Querier is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for user record persistence. Lookups return
// (nil, nil) when no record matches; errors are reserved for storage
// failures. Soft-delete filtering is the caller's concern except where noted.
type UserRepo interface {
	// Insert stores a new record and returns it with id and timestamps
	// assigned by the store.
	Insert(ctx context.Context, u *types.User) (*types.User, error)

	// GetByID fetches a record by id, soft-deleted records included.
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)

	// GetByNickname fetches the live record holding the nickname.
	// Soft-deleted records never match.
	GetByNickname(ctx context.Context, nickname string) (*types.User, error)

	// UpdateByID applies the non-nil fields and advances updated_at.
	UpdateByID(ctx context.Context, id uuid.UUID, fields UpdateFields) (*types.User, error)

	// List returns live records in insertion order.
	List(ctx context.Context, skip, limit int) ([]types.User, error)

	// AddRating adds delta to the record's rating iff its updated_at still
	// equals expected. Returns false when the row was not matched.
	AddRating(ctx context.Context, id uuid.UUID, delta int, expected time.Time) (bool, error)

	// MarkVoted stamps last_voted_at iff updated_at still equals expected.
	MarkVoted(ctx context.Context, id uuid.UUID, votedAt time.Time, expected time.Time) (bool, error)
}

// UpdateFields enumerates the columns the generic update path may touch.
// Nil fields are left unchanged; updated_at always advances.
type UpdateFields struct {
	Nickname     *string
	FirstName    *string
	LastName     *string
	Role         *types.UserRole
	PasswordHash *string
	Salt         *string
	DeletedAt    *time.Time
}

const userColumns = `id, nickname, first_name, last_name, password_hash, salt, role, rating, last_voted_at, created_at, updated_at, deleted_at`

type PostgresUserRepo struct {
	logger *slog.Logger
	db     Querier
}

func NewPostgresUserRepo(db Querier, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		db:     db,
	}
}

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(
		&u.ID,
		&u.Nickname,
		&u.FirstName,
		&u.LastName,
		&u.PasswordHash,
		&u.Salt,
		&u.Role,
		&u.Rating,
		&u.LastVotedAt,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (r *PostgresUserRepo) Insert(ctx context.Context, u *types.User) (*types.User, error) {
	query := `
		INSERT INTO users (nickname, first_name, last_name, password_hash, salt, role)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns

	stored, err := scanUser(r.db.QueryRow(ctx, query,
		u.Nickname, u.FirstName, u.LastName, u.PasswordHash, u.Salt, u.Role))
	if err != nil {
		if isUniqueViolation(err) {
			// Backstop for the probe-then-insert race on nickname.
			return nil, types.NewDomainError(types.KindDuplicateNickname, "user with this nickname already exists")
		}
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("database error inserting user: %w", err)
	}
	return stored, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("database error fetching user by id: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) GetByNickname(ctx context.Context, nickname string) (*types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE nickname = $1 AND deleted_at IS NULL`

	u, err := scanUser(r.db.QueryRow(ctx, query, nickname))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("database error fetching user by nickname: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) UpdateByID(ctx context.Context, id uuid.UUID, fields UpdateFields) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateByID")
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", id.String()),
	)

	l := r.logger.With(slog.String("method", "UpdateByID"), slog.String("userID", id.String()))

	var setClauses []string
	var args []interface{}
	argID := 1

	if fields.Nickname != nil {
		setClauses = append(setClauses, fmt.Sprintf("nickname = $%d", argID))
		args = append(args, *fields.Nickname)
		argID++
	}
	if fields.FirstName != nil {
		setClauses = append(setClauses, fmt.Sprintf("first_name = $%d", argID))
		args = append(args, *fields.FirstName)
		argID++
	}
	if fields.LastName != nil {
		setClauses = append(setClauses, fmt.Sprintf("last_name = $%d", argID))
		args = append(args, *fields.LastName)
		argID++
	}
	if fields.Role != nil {
		setClauses = append(setClauses, fmt.Sprintf("role = $%d", argID))
		args = append(args, *fields.Role)
		argID++
	}
	if fields.PasswordHash != nil {
		setClauses = append(setClauses, fmt.Sprintf("password_hash = $%d", argID))
		args = append(args, *fields.PasswordHash)
		argID++
	}
	if fields.Salt != nil {
		setClauses = append(setClauses, fmt.Sprintf("salt = $%d", argID))
		args = append(args, *fields.Salt)
		argID++
	}
	if fields.DeletedAt != nil {
		setClauses = append(setClauses, fmt.Sprintf("deleted_at = $%d", argID))
		args = append(args, *fields.DeletedAt)
		argID++
	}

	// updated_at advances on every update, even a field-free one.
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++

	args = append(args, id)
	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $%d RETURNING %s",
		strings.Join(setClauses, ", "), argID, userColumns)

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, types.NewDomainError(types.KindDuplicateNickname, "user with this nickname already exists")
		}
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		l.ErrorContext(ctx, "Failed to execute update query", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error updating user: %w", err)
	}

	span.SetStatus(codes.Ok, "User updated")
	return u, nil
}

func (r *PostgresUserRepo) List(ctx context.Context, skip, limit int) ([]types.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE deleted_at IS NULL ORDER BY created_at, id OFFSET $1 LIMIT $2`

	rows, err := r.db.Query(ctx, query, skip, limit)
	if err != nil {
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("database error listing users: %w", err)
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("database error scanning user row: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("database error iterating users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) AddRating(ctx context.Context, id uuid.UUID, delta int, expected time.Time) (bool, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "AddRating")
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.user.id", id.String()),
		attribute.Int("rating.delta", delta),
	)

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET rating = rating + $1, updated_at = $2
		 WHERE id = $3 AND updated_at = $4 AND deleted_at IS NULL`,
		delta, time.Now(), id, expected)
	if err != nil {
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return false, fmt.Errorf("database error applying rating: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PostgresUserRepo) MarkVoted(ctx context.Context, id uuid.UUID, votedAt time.Time, expected time.Time) (bool, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "MarkVoted")
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.user.id", id.String()),
	)

	tag, err := r.db.Exec(ctx,
		`UPDATE users SET last_voted_at = $1, updated_at = $2
		 WHERE id = $3 AND updated_at = $4 AND deleted_at IS NULL`,
		votedAt, time.Now(), id, expected)
	if err != nil {
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return false, fmt.Errorf("database error stamping voter: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
