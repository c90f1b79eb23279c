package vote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/pvserra/go-user-rating-service/app/observability/metrics"
	"github.com/pvserra/go-user-rating-service/internal/types"
)

// Vote values accepted by the engine.
const (
	Positive = 1
	Negative = -1
)

// voteCooldown is the sliding window during which a voter may cast only one
// vote, regardless of target. Wall clock, not monotonic.
const voteCooldown = time.Hour

// maxCommitRetries bounds how often a lost conditional update is retried.
const maxCommitRetries = 3

// UserStore is the slice of the record store the engine needs. The two
// conditional updates are keyed on each record's updated_at, so a stale
// read loses the race instead of overwriting a concurrent write.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	AddRating(ctx context.Context, id uuid.UUID, delta int, expected time.Time) (bool, error)
	MarkVoted(ctx context.Context, id uuid.UUID, votedAt time.Time, expected time.Time) (bool, error)
}

var _ VoteService = (*VoteServiceImpl)(nil)

// VoteService records peer votes.
type VoteService interface {
	// CastVote applies value (+1 or -1) to the target's rating and stamps
	// the voter's rate-limit clock. Check order is fixed: voter existence,
	// target existence, self-vote, rate limit, value.
	CastVote(ctx context.Context, voterID, targetID uuid.UUID, value int) error
}

type VoteServiceImpl struct {
	logger *slog.Logger
	store  UserStore
	now    func() time.Time
}

func NewVoteService(store UserStore, logger *slog.Logger) *VoteServiceImpl {
	return &VoteServiceImpl{
		logger: logger,
		store:  store,
		now:    time.Now,
	}
}

func canVote(lastVotedAt *time.Time, now time.Time) bool {
	return lastVotedAt == nil || now.Sub(*lastVotedAt) >= voteCooldown
}

func validValue(value int) bool {
	return value == Positive || value == Negative
}

func (s *VoteServiceImpl) CastVote(ctx context.Context, voterID, targetID uuid.UUID, value int) error {
	ctx, span := otel.Tracer("VoteService").Start(ctx, "CastVote", trace.WithAttributes(
		attribute.String("voter.id", voterID.String()),
		attribute.String("target.id", targetID.String()),
		attribute.Int("vote.value", value),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CastVote"),
		slog.String("voterID", voterID.String()), slog.String("targetID", targetID.String()))

	voter, err := s.store.GetByID(ctx, voterID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error fetching voter: %w", err)
	}
	if voter == nil || voter.Deleted() {
		metrics.Get().VoteRejectionsTotal.Add(ctx, 1)
		return types.NewDomainError(types.KindVoterNotFound, "voter not found or deleted")
	}

	target, err := s.store.GetByID(ctx, targetID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("error fetching vote target: %w", err)
	}
	if target == nil || target.Deleted() {
		metrics.Get().VoteRejectionsTotal.Add(ctx, 1)
		return types.NewDomainError(types.KindTargetNotFound, "user to vote for not found or deleted")
	}

	if voterID == targetID {
		metrics.Get().VoteRejectionsTotal.Add(ctx, 1)
		return types.NewDomainError(types.KindSelfVoteForbidden, "you cannot vote for yourself")
	}

	now := s.now()
	if !canVote(voter.LastVotedAt, now) {
		metrics.Get().VoteRejectionsTotal.Add(ctx, 1)
		return types.NewDomainError(types.KindRateLimited, "you can only vote once per hour")
	}

	if !validValue(value) {
		metrics.Get().VoteRejectionsTotal.Add(ctx, 1)
		return types.NewDomainError(types.KindInvalidVoteValue, "invalid vote value: vote must be 1 (positive) or -1 (negative)")
	}

	// The two records are committed independently; there is no cross-record
	// transaction. If stamping the voter fails after the target's rating
	// was applied, the vote counts but the voter's hourly window does not
	// advance. Callers see the error; the partial write stays.
	if err := s.commitTarget(ctx, target, value); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "target commit failed")
		return err
	}

	if err := s.commitVoter(ctx, voter, now); err != nil {
		l.ErrorContext(ctx, "Voter stamp failed after rating was applied", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "voter commit failed")
		return err
	}

	metrics.Get().VotesCastTotal.Add(ctx, 1)
	span.SetStatus(codes.Ok, "vote recorded")
	l.InfoContext(ctx, "Vote recorded", slog.Int("value", value))
	return nil
}

// commitTarget applies the rating delta with a conditional update, re-reading
// the target when a concurrent writer got there first.
func (s *VoteServiceImpl) commitTarget(ctx context.Context, target *types.User, value int) error {
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		ok, err := s.store.AddRating(ctx, target.ID, value, target.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error applying rating: %w", err)
		}
		if ok {
			return nil
		}

		metrics.Get().VoteCommitConflicts.Add(ctx, 1)
		target, err = s.store.GetByID(ctx, target.ID)
		if err != nil {
			return fmt.Errorf("error re-fetching vote target: %w", err)
		}
		if target == nil || target.Deleted() {
			return types.NewDomainError(types.KindTargetNotFound, "user to vote for not found or deleted")
		}
	}
	return types.NewDomainError(types.KindStorageFailure, "could not apply rating under contention")
}

// commitVoter stamps last_voted_at. On conflict the voter is re-read and the
// rate limit re-checked: a concurrent vote by the same voter consumes the
// hourly window.
func (s *VoteServiceImpl) commitVoter(ctx context.Context, voter *types.User, votedAt time.Time) error {
	for attempt := 0; attempt < maxCommitRetries; attempt++ {
		ok, err := s.store.MarkVoted(ctx, voter.ID, votedAt, voter.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error stamping voter: %w", err)
		}
		if ok {
			return nil
		}

		metrics.Get().VoteCommitConflicts.Add(ctx, 1)
		voter, err = s.store.GetByID(ctx, voter.ID)
		if err != nil {
			return fmt.Errorf("error re-fetching voter: %w", err)
		}
		if voter == nil || voter.Deleted() {
			return types.NewDomainError(types.KindVoterNotFound, "voter not found or deleted")
		}
		if !canVote(voter.LastVotedAt, votedAt) {
			return types.NewDomainError(types.KindRateLimited, "you can only vote once per hour")
		}
	}
	return types.NewDomainError(types.KindStorageFailure, "could not stamp voter under contention")
}
