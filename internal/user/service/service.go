// Package service implements tenant-scoped user management on top of the
// isolation repository. The service never names a tenant: the scope in the
// request context decides where every operation lands.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stratum/internal/isolation"
	"stratum/internal/user/models"
	dErrors "stratum/pkg/domain-errors"
	"stratum/pkg/platform/sentinel"
)

// Repository is the scoped persistence surface for users.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindMany(ctx context.Context, filter isolation.Filter) ([]models.User, error)
	FindManyAcross(ctx context.Context, filter isolation.Filter) ([]models.User, error)
	Save(ctx context.Context, user models.User) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
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
	s := &Service{
		repo:   repo,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) CreateUser(ctx context.Context, email string, displayName string, role models.Role) (*models.User, error) {
	user, err := models.NewUser(email, displayName, role, s.now().UTC())
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user created",
		slog.String("user_id", saved.ID.String()),
		slog.String("role", string(saved.Role)))
	return saved, nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, filter isolation.Filter) ([]models.User, error) {
	return s.repo.FindMany(ctx, filter)
}

// ListUsersAcrossTenants serves platform operators. It requires an elevated
// scope; with a tenant scope it fails rather than silently narrowing.
func (s *Service) ListUsersAcrossTenants(ctx context.Context, filter isolation.Filter) ([]models.User, error) {
	return s.repo.FindManyAcross(ctx, filter)
}

func (s *Service) UpdateUser(ctx context.Context, id uuid.UUID, displayName string, role models.Role) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if displayName != "" {
		user.DisplayName = displayName
	}
	if role != "" {
		user.Role = role
	}
	user.UpdatedAt = s.now().UTC()
	return s.repo.Save(ctx, *user)
}

// DeactivateUser disables sign-in without deleting history.
func (s *Service) DeactivateUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user is already inactive")
	}
	user.Active = false
	user.UpdatedAt = s.now().UTC()
	return s.repo.Save(ctx, *user)
}

func (s *Service) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return err
	}
	return nil
}
