package account

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pvserra/go-user-rating-service/internal/api"
	"github.com/pvserra/go-user-rating-service/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	CreateUser(w http.ResponseWriter, r *http.Request)
	GetUser(w http.ResponseWriter, r *http.Request)
	GetUserByNickname(w http.ResponseWriter, r *http.Request)
	ListUsers(w http.ResponseWriter, r *http.Request)
	UpdateUser(w http.ResponseWriter, r *http.Request)
	DeleteUser(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	accountService AccountService
	logger         *slog.Logger
}

func NewHandlerImpl(accountService AccountService, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		accountService: accountService,
		logger:         logger,
	}
}

func setLastModified(w http.ResponseWriter, t time.Time) {
	w.Header().Set("Last-Modified", t.UTC().Format(http.TimeFormat))
}

// CreateUser godoc
// @Summary      Create User
// @Description  Registers a new user account.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        user body types.CreateUserParams true "New account fields"
// @Success      201 {object} types.UserDTO "Created user"
// @Failure      400 "Validation failed"
// @Failure      409 "Nickname already taken"
// @Router       /users [post]
func (h *HandlerImpl) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "CreateUser"))

	var params types.CreateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if violations := ValidateCreateUser(params); len(violations) > 0 {
		api.WriteJSONResponse(w, r, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "validation failed",
			"fields":  violations,
		})
		return
	}

	user, err := h.accountService.Create(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, types.NewUserDTO(user))
}

// GetUser godoc
// @Summary      Get User
// @Description  Retrieves an active user by id.
// @Tags         User
// @Produce      json
// @Param        userID path string true "User ID"
// @Success      200 {object} types.UserDTO "User"
// @Failure      404 "User not found"
// @Router       /users/{userID} [get]
func (h *HandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetUser"))

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.accountService.GetActive(ctx, userID)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch user", slog.Any("error", err))
		api.DomainErrorResponse(w, r, err)
		return
	}

	setLastModified(w, user.UpdatedAt)
	api.WriteJSONResponse(w, r, http.StatusOK, types.NewUserDTO(user))
}

// GetUserByNickname godoc
// @Summary      Get User By Nickname
// @Description  Retrieves an active user by nickname.
// @Tags         User
// @Produce      json
// @Param        nickname path string true "Nickname"
// @Success      200 {object} types.UserDTO "User"
// @Failure      404 "User not found"
// @Router       /users/nickname/{nickname} [get]
func (h *HandlerImpl) GetUserByNickname(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "GetUserByNickname"))

	nickname := chi.URLParam(r, "nickname")
	if nickname == "" {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Nickname is required")
		return
	}

	user, err := h.accountService.GetActiveByNickname(ctx, nickname)
	if err != nil {
		l.WarnContext(ctx, "Failed to fetch user by nickname", slog.Any("error", err))
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.NewUserDTO(user))
}

// ListUsers godoc
// @Summary      List Users
// @Description  Returns a page of active users.
// @Tags         User
// @Produce      json
// @Param        page query int false "Page number (1-indexed)"
// @Param        pageSize query int false "Page size"
// @Success      200 {array} types.UserDTO "Users"
// @Router       /users [get]
func (h *HandlerImpl) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "ListUsers"))

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	users, err := h.accountService.Paginate(ctx, page, pageSize)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list users", slog.Any("error", err))
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, users)
}

// UpdateUser godoc
// @Summary      Update User
// @Description  Applies a partial update, honoring the If-Unmodified-Since precondition.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        userID path string true "User ID"
// @Param        user body types.UpdateUserParams true "Fields to update"
// @Success      200 {object} types.UserDTO "Updated user"
// @Failure      404 "User not found"
// @Failure      412 "Resource has been modified"
// @Security     BearerAuth
// @Router       /users/{userID} [put]
func (h *HandlerImpl) UpdateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "UpdateUser"))

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	var ifUnmodifiedSince *time.Time
	if header := r.Header.Get("If-Unmodified-Since"); header != "" {
		ts, err := http.ParseTime(header)
		if err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid If-Unmodified-Since header")
			return
		}
		ifUnmodifiedSince = &ts
	}

	var params types.UpdateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if violations := ValidateUpdateUser(params); len(violations) > 0 {
		api.WriteJSONResponse(w, r, http.StatusBadRequest, map[string]interface{}{
			"success": false,
			"error":   "validation failed",
			"fields":  violations,
		})
		return
	}

	user, err := h.accountService.Update(ctx, userID, params, ifUnmodifiedSince)
	if err != nil {
		l.WarnContext(ctx, "Failed to update user", slog.Any("error", err))
		api.DomainErrorResponse(w, r, err)
		return
	}

	setLastModified(w, user.UpdatedAt)
	api.WriteJSONResponse(w, r, http.StatusOK, types.NewUserDTO(user))
}

// DeleteUser godoc
// @Summary      Delete User
// @Description  Soft-deletes an active user; the record stays stored but drops out of lookups.
// @Tags         User
// @Produce      json
// @Param        userID path string true "User ID"
// @Success      200 {object} types.UserDTO "Deleted user"
// @Failure      404 "User not found"
// @Security     BearerAuth
// @Router       /users/{userID} [delete]
func (h *HandlerImpl) DeleteUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.logger.With(slog.String("handler", "DeleteUser"))

	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	user, err := h.accountService.SoftDelete(ctx, userID)
	if err != nil {
		l.WarnContext(ctx, "Failed to delete user", slog.Any("error", err))
		api.DomainErrorResponse(w, r, err)
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, types.NewUserDTO(user))
}
