package vote

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pvserra/go-user-rating-service/internal/types"
)

// MockUserStore is a mock implementation of the UserStore interface
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockUserStore) AddRating(ctx context.Context, id uuid.UUID, delta int, expected time.Time) (bool, error) {
	args := m.Called(ctx, id, delta, expected)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserStore) MarkVoted(ctx context.Context, id uuid.UUID, votedAt time.Time, expected time.Time) (bool, error) {
	args := m.Called(ctx, id, votedAt, expected)
	return args.Bool(0), args.Error(1)
}

func newTestService(store UserStore, now time.Time) *VoteServiceImpl {
	svc := NewVoteService(store, slog.Default())
	svc.now = func() time.Time { return now }
	return svc
}

func liveUser(nickname string) *types.User {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &types.User{
		ID:        uuid.New(),
		Nickname:  nickname,
		FirstName: "Test",
		LastName:  "User",
		Role:      types.RoleUser,
		Rating:    0,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

// fakeStore is an in-memory UserStore honoring the conditional-update
// contract, for multi-step scenarios the call-by-call mocks cannot express.
type fakeStore struct {
	users map[uuid.UUID]*types.User
}

func newFakeStore(users ...*types.User) *fakeStore {
	s := &fakeStore{users: make(map[uuid.UUID]*types.User)}
	for _, u := range users {
		cp := *u
		s.users[u.ID] = &cp
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (*types.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) AddRating(_ context.Context, id uuid.UUID, delta int, expected time.Time) (bool, error) {
	u, ok := s.users[id]
	if !ok || u.Deleted() || !u.UpdatedAt.Equal(expected) {
		return false, nil
	}
	u.Rating += delta
	u.UpdatedAt = u.UpdatedAt.Add(time.Millisecond)
	return true, nil
}

func (s *fakeStore) MarkVoted(_ context.Context, id uuid.UUID, votedAt time.Time, expected time.Time) (bool, error) {
	u, ok := s.users[id]
	if !ok || u.Deleted() || !u.UpdatedAt.Equal(expected) {
		return false, nil
	}
	stamp := votedAt
	u.LastVotedAt = &stamp
	u.UpdatedAt = u.UpdatedAt.Add(time.Millisecond)
	return true, nil
}

func TestCastVoteScenario(t *testing.T) {
	// Alice votes for Bob, then tries again right away.
	alice := liveUser("alice")
	bob := liveUser("bob")
	store := newFakeStore(alice, bob)

	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	ctx := context.Background()

	require.NoError(t, svc.CastVote(ctx, alice.ID, bob.ID, Positive))

	ratedBob, err := store.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, ratedBob.Rating)

	stampedAlice, err := store.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, stampedAlice.LastVotedAt)
	assert.True(t, stampedAlice.LastVotedAt.Equal(now))

	// One minute later the window still holds.
	svc.now = func() time.Time { return now.Add(time.Minute) }
	err = svc.CastVote(ctx, alice.ID, bob.ID, Positive)
	assert.True(t, types.IsKind(err, types.KindRateLimited))

	unchangedBob, err := store.GetByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unchangedBob.Rating)

	// Bob can still vote for Alice in the meantime.
	require.NoError(t, svc.CastVote(ctx, bob.ID, alice.ID, Negative))
	ratedAlice, err := store.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, -1, ratedAlice.Rating)
}

func TestCastVote(t *testing.T) {
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)

	t.Run("PositiveVote", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		bob := liveUser("bob")

		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
		store.On("GetByID", ctx, bob.ID).Return(bob, nil).Once()
		store.On("AddRating", ctx, bob.ID, 1, bob.UpdatedAt).Return(true, nil).Once()
		store.On("MarkVoted", ctx, alice.ID, now, alice.UpdatedAt).Return(true, nil).Once()

		err := svc.CastVote(ctx, alice.ID, bob.ID, Positive)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("NegativeVote", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		bob := liveUser("bob")

		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
		store.On("GetByID", ctx, bob.ID).Return(bob, nil).Once()
		store.On("AddRating", ctx, bob.ID, -1, bob.UpdatedAt).Return(true, nil).Once()
		store.On("MarkVoted", ctx, alice.ID, now, alice.UpdatedAt).Return(true, nil).Once()

		err := svc.CastVote(ctx, alice.ID, bob.ID, Negative)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("UnknownVoter", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		voterID := uuid.New()
		targetID := uuid.New()
		store.On("GetByID", ctx, voterID).Return(nil, nil).Once()

		err := svc.CastVote(ctx, voterID, targetID, Positive)
		assert.True(t, types.IsKind(err, types.KindVoterNotFound))
		store.AssertExpectations(t)
	})

	t.Run("DeletedVoter", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		deleted := now.Add(-time.Minute)
		alice.DeletedAt = &deleted
		targetID := uuid.New()
		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()

		err := svc.CastVote(ctx, alice.ID, targetID, Positive)
		assert.True(t, types.IsKind(err, types.KindVoterNotFound))
		store.AssertExpectations(t)
	})

	t.Run("UnknownTarget", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		targetID := uuid.New()
		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
		store.On("GetByID", ctx, targetID).Return(nil, nil).Once()

		err := svc.CastVote(ctx, alice.ID, targetID, Positive)
		assert.True(t, types.IsKind(err, types.KindTargetNotFound))
		store.AssertExpectations(t)
	})

	t.Run("SelfVoteWinsOverLaterChecks", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		// Rate-limited voter, invalid value, voting for itself: the
		// self-vote rejection comes first.
		alice := liveUser("alice")
		recent := now.Add(-5 * time.Minute)
		alice.LastVotedAt = &recent
		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Twice()

		err := svc.CastVote(ctx, alice.ID, alice.ID, 0)
		assert.True(t, types.IsKind(err, types.KindSelfVoteForbidden))
		store.AssertExpectations(t)
	})

	t.Run("RateLimitedInsideWindow", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		voted := now.Add(-30 * time.Minute)
		alice.LastVotedAt = &voted
		bob := liveUser("bob")
		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
		store.On("GetByID", ctx, bob.ID).Return(bob, nil).Once()

		err := svc.CastVote(ctx, alice.ID, bob.ID, Positive)
		assert.True(t, types.IsKind(err, types.KindRateLimited))
		store.AssertExpectations(t)
	})

	t.Run("RateLimitWinsOverInvalidValue", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		voted := now.Add(-30 * time.Minute)
		alice.LastVotedAt = &voted
		bob := liveUser("bob")
		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
		store.On("GetByID", ctx, bob.ID).Return(bob, nil).Once()

		err := svc.CastVote(ctx, alice.ID, bob.ID, 7)
		assert.True(t, types.IsKind(err, types.KindRateLimited))
		store.AssertExpectations(t)
	})

	t.Run("AllowedAfterWindowElapses", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		voted := now.Add(-61 * time.Minute)
		alice.LastVotedAt = &voted
		bob := liveUser("bob")
		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
		store.On("GetByID", ctx, bob.ID).Return(bob, nil).Once()
		store.On("AddRating", ctx, bob.ID, 1, bob.UpdatedAt).Return(true, nil).Once()
		store.On("MarkVoted", ctx, alice.ID, now, alice.UpdatedAt).Return(true, nil).Once()

		err := svc.CastVote(ctx, alice.ID, bob.ID, Positive)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("InvalidVoteValues", func(t *testing.T) {
		for _, value := range []int{0, 2, -2, 100} {
			store := new(MockUserStore)
			svc := newTestService(store, now)
			ctx := context.Background()

			alice := liveUser("alice")
			bob := liveUser("bob")
			store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
			store.On("GetByID", ctx, bob.ID).Return(bob, nil).Once()

			err := svc.CastVote(ctx, alice.ID, bob.ID, value)
			assert.True(t, types.IsKind(err, types.KindInvalidVoteValue), "value %d", value)
			store.AssertExpectations(t)
		}
	})

	t.Run("TargetConflictRetries", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		bob := liveUser("bob")
		refreshed := *bob
		refreshed.UpdatedAt = bob.UpdatedAt.Add(time.Second)

		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
		store.On("GetByID", ctx, bob.ID).Return(bob, nil).Once()
		// First conditional update loses the race; the re-read sees the
		// newer timestamp and the retry succeeds.
		store.On("AddRating", ctx, bob.ID, 1, bob.UpdatedAt).Return(false, nil).Once()
		store.On("GetByID", ctx, bob.ID).Return(&refreshed, nil).Once()
		store.On("AddRating", ctx, bob.ID, 1, refreshed.UpdatedAt).Return(true, nil).Once()
		store.On("MarkVoted", ctx, alice.ID, now, alice.UpdatedAt).Return(true, nil).Once()

		err := svc.CastVote(ctx, alice.ID, bob.ID, Positive)
		require.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("TargetConflictExhaustsRetries", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		bob := liveUser("bob")

		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
		store.On("GetByID", ctx, bob.ID).Return(bob, nil).Once()
		store.On("AddRating", ctx, bob.ID, 1, mock.AnythingOfType("time.Time")).Return(false, nil).Times(maxCommitRetries)
		store.On("GetByID", ctx, bob.ID).Return(bob, nil).Times(maxCommitRetries)

		err := svc.CastVote(ctx, alice.ID, bob.ID, Positive)
		assert.True(t, types.IsKind(err, types.KindStorageFailure))
		store.AssertExpectations(t)
	})

	t.Run("VoterConflictReappliesRateLimit", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		alice := liveUser("alice")
		bob := liveUser("bob")

		// A concurrent vote by the same voter landed between the checks
		// and the stamp: the re-read shows a fresh last_voted_at.
		raced := *alice
		raced.UpdatedAt = alice.UpdatedAt.Add(time.Second)
		recent := now.Add(-time.Minute)
		raced.LastVotedAt = &recent

		store.On("GetByID", ctx, alice.ID).Return(alice, nil).Once()
		store.On("GetByID", ctx, bob.ID).Return(bob, nil).Once()
		store.On("AddRating", ctx, bob.ID, 1, bob.UpdatedAt).Return(true, nil).Once()
		store.On("MarkVoted", ctx, alice.ID, now, alice.UpdatedAt).Return(false, nil).Once()
		store.On("GetByID", ctx, alice.ID).Return(&raced, nil).Once()

		err := svc.CastVote(ctx, alice.ID, bob.ID, Positive)
		assert.True(t, types.IsKind(err, types.KindRateLimited))
		store.AssertExpectations(t)
	})

	t.Run("StoreError", func(t *testing.T) {
		store := new(MockUserStore)
		svc := newTestService(store, now)
		ctx := context.Background()

		voterID := uuid.New()
		store.On("GetByID", ctx, voterID).Return(nil, errors.New("connection refused")).Once()

		err := svc.CastVote(ctx, voterID, uuid.New(), Positive)
		assert.Error(t, err)
		assert.False(t, types.IsKind(err, types.KindVoterNotFound))
		store.AssertExpectations(t)
	})
}
