// Package service implements tenant-scoped notification records.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stratum/internal/isolation"
	"stratum/internal/notification/models"
	dErrors "stratum/pkg/domain-errors"
	"stratum/pkg/platform/sentinel"
)

type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Notification, error)
	FindMany(ctx context.Context, filter isolation.Filter) ([]models.Notification, error)
	Save(ctx context.Context, notification models.Notification) (*models.Notification, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue records a pending notification for the scope's tenant.
func (s *Service) Enqueue(ctx context.Context, recipient uuid.UUID, channel models.Channel, subject, body string) (*models.Notification, error) {
	notification, err := models.NewNotification(recipient, channel, subject, body, s.now().UTC())
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Save(ctx, notification)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "notification enqueued",
		slog.String("notification_id", saved.ID.String()),
		slog.String("channel", string(saved.Channel)))
	return saved, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return nil, err
	}
	return notification, nil
}

// ListForRecipient returns a recipient's notifications, newest first.
func (s *Service) ListForRecipient(ctx context.Context, recipient uuid.UUID, limit int) ([]models.Notification, error) {
	return s.repo.FindMany(ctx, isolation.Filter{
		Conds:   []isolation.Cond{isolation.Eq("recipient", recipient)},
		OrderBy: "created_at",
		Desc:    true,
		Limit:   limit,
	})
}

// MarkSent transitions a pending notification to sent.
func (s *Service) MarkSent(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := notification.MarkSent(s.now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, *notification)
}

// MarkFailed transitions a pending notification to failed.
func (s *Service) MarkFailed(ctx context.Context, id uuid.UUID) (*models.Notification, error) {
	notification, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := notification.MarkFailed(); err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, *notification)
}
