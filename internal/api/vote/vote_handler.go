package vote

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/pvserra/go-user-rating-service/internal/api"
	"github.com/pvserra/go-user-rating-service/internal/api/auth"
)

// VoteRequest is the body of a rating vote. The voter comes from the
// bearer token, not the body.
type VoteRequest struct {
	UserID uuid.UUID `json:"userId"`
	Vote   int       `json:"vote"`
}

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CastVote(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	voteService VoteService
	logger      *slog.Logger
}

func NewHandlerImpl(voteService VoteService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		voteService: voteService,
		logger:      logger,
	}
}

// CastVote godoc
// @Summary      Cast Vote
// @Description  Applies a +1 or -1 vote from the authenticated user to another user's rating.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        vote body VoteRequest true "Vote target and value"
// @Success      200 "Vote recorded"
// @Failure      400 "Self-vote, rate limited, or invalid vote value"
// @Failure      404 "Voter or target not found"
// @Security     BearerAuth
// @Router       /users/rating [put]
func (h *HandlerImpl) CastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CastVote"))

	subject, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	voterID, err := uuid.Parse(subject)
	if err != nil {
		l.WarnContext(ctx, "Malformed subject in token", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req VoteRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.voteService.CastVote(ctx, voterID, req.UserID, req.Vote); err != nil {
		l.WarnContext(ctx, "Vote rejected", slog.Any("error", err))
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "vote recorded",
	})
}
