// Package service implements tenant-scoped organization management.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stratum/internal/isolation"
	"stratum/internal/org/models"
	dErrors "stratum/pkg/domain-errors"
	"stratum/pkg/platform/sentinel"
)

type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	FindMany(ctx context.Context, filter isolation.Filter) ([]models.Organization, error)
	Save(ctx context.Context, org models.Organization) (*models.Organization, error)
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
	s := &Service{repo: repo, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrganization validates the optional parent inside the same scope
// before inserting, so a child can never point at another tenant's node.
func (s *Service) CreateOrganization(ctx context.Context, name string, parentID *uuid.UUID) (*models.Organization, error) {
	if parentID != nil {
		if _, err := s.repo.FindByID(ctx, *parentID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeInvalidInput, "parent organization not found")
			}
			return nil, err
		}
	}
	org, err := models.NewOrganization(name, parentID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	return s.repo.Save(ctx, org)
}

func (s *Service) GetOrganization(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	org, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, err
	}
	return org, nil
}

func (s *Service) ListOrganizations(ctx context.Context, filter isolation.Filter) ([]models.Organization, error) {
	return s.repo.FindMany(ctx, filter)
}

func (s *Service) RenameOrganization(ctx context.Context, id uuid.UUID, name string) (*models.Organization, error) {
	org, err := s.GetOrganization(ctx, id)
	if err != nil {
		return nil, err
	}
	validated, err := models.NewOrganization(name, nil, s.now().UTC())
	if err != nil {
		return nil, err
	}
	org.Name = validated.Name
	org.UpdatedAt = validated.UpdatedAt
	return s.repo.Save(ctx, *org)
}

// DeleteOrganization refuses while children reference the node.
func (s *Service) DeleteOrganization(ctx context.Context, id uuid.UUID) error {
	children, err := s.repo.FindMany(ctx, isolation.Filter{
		Conds: []isolation.Cond{isolation.Eq("parent_id", id)},
		Limit: 1,
	})
	if err != nil {
		return err
	}
	if len(children) > 0 {
		return dErrors.New(dErrors.CodeConflict, "organization has child organizations")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return err
	}
	return nil
}
