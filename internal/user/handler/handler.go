// Package handler exposes the tenant-scoped user endpoints. Routes sit
// behind the scope middleware; by the time a request arrives here its
// context already carries an isolation scope.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stratum/internal/isolation"
	"stratum/internal/platform/middleware"
	"stratum/internal/transport/http/shared"
	"stratum/internal/user/models"
	dErrors "stratum/pkg/domain-errors"
)

type Service interface {
	CreateUser(ctx context.Context, email string, displayName string, role models.Role) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListUsers(ctx context.Context, filter isolation.Filter) ([]models.User, error)
	ListUsersAcrossTenants(ctx context.Context, filter isolation.Filter) ([]models.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, displayName string, role models.Role) (*models.User, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type Handler struct {
	logger *slog.Logger
	users  Service
}

func New(users Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, users: users}
}

// Register registers the user routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/users", h.handleCreateUser)
	r.Get("/users", h.handleListUsers)
	r.Get("/users/{userID}", h.handleGetUser)
	r.Patch("/users/{userID}", h.handleUpdateUser)
	r.Post("/users/{userID}/deactivate", h.handleDeactivateUser)
	r.Get("/platform/users", h.handleListUsersAcross)
}

type createUserRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	user, err := h.users.CreateUser(ctx, req.Email, req.DisplayName, role)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create user",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	user, err := h.users.GetUser(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), listFilter(r))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// handleListUsersAcross is the platform-operator view. The repository
// refuses it unless the caller's token produced an elevated scope.
func (h *Handler) handleListUsersAcross(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsersAcrossTenants(r.Context(), listFilter(r))
	if err != nil {
		h.logger.WarnContext(r.Context(), "cross-tenant listing refused",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		if errors.Is(err, isolation.ErrElevationRequired) {
			err = dErrors.Wrap(err, dErrors.CodeForbidden, "operation requires an elevated scope")
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

type updateUserRequest struct {
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	var role models.Role
	if req.Role != "" {
		role, err = models.ParseRole(req.Role)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
	}
	user, err := h.users.UpdateUser(r.Context(), id, req.DisplayName, role)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	user, err := h.users.DeactivateUser(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, user)
}

// listFilter builds the common query filter from list parameters.
func listFilter(r *http.Request) isolation.Filter {
	filter := isolation.Filter{OrderBy: "created_at", Desc: true}
	if role := r.URL.Query().Get("role"); role != "" {
		filter.Conds = append(filter.Conds, isolation.Eq("role", role))
	}
	if active := r.URL.Query().Get("active"); active != "" {
		parsed, err := strconv.ParseBool(active)
		if err == nil {
			filter.Conds = append(filter.Conds, isolation.Eq("active", parsed))
		}
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	return filter
}
