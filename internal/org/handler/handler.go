// Package handler exposes the tenant-scoped organization endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stratum/internal/isolation"
	"stratum/internal/org/models"
	"stratum/internal/platform/middleware"
	"stratum/internal/transport/http/shared"
	dErrors "stratum/pkg/domain-errors"
)

type Service interface {
	CreateOrganization(ctx context.Context, name string, parentID *uuid.UUID) (*models.Organization, error)
	GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListOrganizations(ctx context.Context, filter isolation.Filter) ([]models.Organization, error)
	RenameOrganization(ctx context.Context, id uuid.UUID, name string) (*models.Organization, error)
	DeleteOrganization(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	logger *slog.Logger
	orgs   Service
}

func New(orgs Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, orgs: orgs}
}

// Register registers the organization routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/orgs", h.handleCreate)
	r.Get("/orgs", h.handleList)
	r.Get("/orgs/{orgID}", h.handleGet)
	r.Patch("/orgs/{orgID}", h.handleRename)
	r.Delete("/orgs/{orgID}", h.handleDelete)
}

type orgRequest struct {
	Name     string `json:"name"`
	ParentID string `json:"parent_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req orgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	var parentID *uuid.UUID
	if req.ParentID != "" {
		parsed, err := uuid.Parse(req.ParentID)
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid parent id"))
			return
		}
		parentID = &parsed
	}

	org, err := h.orgs.CreateOrganization(ctx, req.Name, parentID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create organization",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, org)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.ListOrganizations(r.Context(), isolation.Filter{OrderBy: "name"})
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid organization id"))
		return
	}
	org, err := h.orgs.GetOrganization(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) handleRename(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid organization id"))
		return
	}
	var req orgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	org, err := h.orgs.RenameOrganization(r.Context(), id, req.Name)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, org)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "orgID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid organization id"))
		return
	}
	if err := h.orgs.DeleteOrganization(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
