// Package handler exposes the tenant-scoped notification endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"stratum/internal/notification/models"
	"stratum/internal/platform/middleware"
	"stratum/internal/transport/http/shared"
	dErrors "stratum/pkg/domain-errors"
)

type Service interface {
	Enqueue(ctx context.Context, recipient uuid.UUID, channel models.Channel, subject, body string) (*models.Notification, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	ListForRecipient(ctx context.Context, recipient uuid.UUID, limit int) ([]models.Notification, error)
}

type Handler struct {
	logger        *slog.Logger
	notifications Service
}

func New(notifications Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, notifications: notifications}
}

// Register registers the notification routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/notifications", h.handleEnqueue)
	r.Get("/notifications/{notificationID}", h.handleGet)
	r.Get("/users/{userID}/notifications", h.handleListForRecipient)
}

type enqueueRequest struct {
	Recipient string `json:"recipient"`
	Channel   string `json:"channel"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}

func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	recipient, err := uuid.Parse(req.Recipient)
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid recipient id"))
		return
	}
	channel, err := models.ParseChannel(req.Channel)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	notification, err := h.notifications.Enqueue(ctx, recipient, channel, req.Subject, req.Body)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to enqueue notification",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, notification)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "notificationID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid notification id"))
		return
	}
	notification, err := h.notifications.Get(r.Context(), id)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, notification)
}

func (h *Handler) handleListForRecipient(w http.ResponseWriter, r *http.Request) {
	recipient, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	notifications, err := h.notifications.ListForRecipient(r.Context(), recipient, limit)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}
