// Package handler exposes the tenant control-plane endpoints. All routes sit
// behind the admin token middleware; tenant lifecycle is an operator action,
// not a tenant-scoped one.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"stratum/internal/platform/middleware"
	"stratum/internal/tenant/models"
	"stratum/internal/transport/http/shared"
	"stratum/pkg/domain"
	dErrors "stratum/pkg/domain-errors"
)

// Service defines the tenant lifecycle operations the handler exposes.
type Service interface {
	CreateTenant(ctx context.Context, name string, actor string) (*models.Tenant, error)
	GetTenant(ctx context.Context, tenantID domain.TenantID) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	DeactivateTenant(ctx context.Context, tenantID domain.TenantID, actor string, reason string) (*models.Tenant, error)
	ReactivateTenant(ctx context.Context, tenantID domain.TenantID, actor string) (*models.Tenant, error)
}

type Handler struct {
	logger  *slog.Logger
	tenants Service
}

func New(tenants Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		tenants: tenants,
	}
}

// Register registers the tenant admin routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/tenants", h.handleCreateTenant)
	r.Get("/admin/tenants", h.handleListTenants)
	r.Get("/admin/tenants/{tenantID}", h.handleGetTenant)
	r.Post("/admin/tenants/{tenantID}/deactivate", h.handleDeactivateTenant)
	r.Post("/admin/tenants/{tenantID}/reactivate", h.handleReactivateTenant)
}

type createTenantRequest struct {
	Name  string `json:"name"`
	Actor string `json:"actor"`
}

func (h *Handler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create tenant request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	tenant, err := h.tenants.CreateTenant(ctx, req.Name, req.Actor)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create tenant",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) handleListTenants(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenants, err := h.tenants.ListTenants(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list tenants",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

func (h *Handler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := domain.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	tenant, err := h.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tenant)
}

type deactivateTenantRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

func (h *Handler) handleDeactivateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := domain.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	var req deactivateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	tenant, err := h.tenants.DeactivateTenant(ctx, tenantID, req.Actor, req.Reason)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to deactivate tenant",
			"request_id", middleware.GetRequestID(ctx),
			"tenant_id", tenantID.String(),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tenant)
}

func (h *Handler) handleReactivateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, err := domain.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid tenant id"))
		return
	}

	var req deactivateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	tenant, err := h.tenants.ReactivateTenant(ctx, tenantID, req.Actor)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, tenant)
}
