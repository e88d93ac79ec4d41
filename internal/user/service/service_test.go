package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/isolation"
	"stratum/internal/user/models"
	dErrors "stratum/pkg/domain-errors"
	"stratum/pkg/platform/sentinel"
)

// fakeRepo mimics the scoped repository without a database.
type fakeRepo struct {
	users      map[uuid.UUID]models.User
	acrossErr  error
	lastFilter isolation.Filter
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[uuid.UUID]models.User)}
}

func (r *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &user, nil
}

func (r *fakeRepo) FindMany(_ context.Context, filter isolation.Filter) ([]models.User, error) {
	r.lastFilter = filter
	out := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		out = append(out, user)
	}
	return out, nil
}

func (r *fakeRepo) FindManyAcross(ctx context.Context, filter isolation.Filter) ([]models.User, error) {
	if r.acrossErr != nil {
		return nil, r.acrossErr
	}
	return r.FindMany(ctx, filter)
}

func (r *fakeRepo) Save(_ context.Context, user models.User) (*models.User, error) {
	r.users[user.ID] = user
	return &user, nil
}

func (r *fakeRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.users[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func newService(repo *fakeRepo) *Service {
	return New(repo, WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}))
}

func TestCreateUserNormalizesEmail(t *testing.T) {
	svc := newService(newFakeRepo())

	user, err := svc.CreateUser(context.Background(), "  Alice.Smith@Example.COM ", "", models.RoleMember)
	require.NoError(t, err)
	assert.Equal(t, "alice.smith@example.com", user.Email)
	assert.Equal(t, "Alice Smith", user.DisplayName)
	assert.True(t, user.Active)
}

func TestCreateUserRejectsInvalidEmail(t *testing.T) {
	svc := newService(newFakeRepo())

	_, err := svc.CreateUser(context.Background(), "not-an-email", "Alice", models.RoleMember)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func TestGetUserNotFound(t *testing.T) {
	svc := newService(newFakeRepo())

	_, err := svc.GetUser(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestUpdateUserPartial(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice@example.com", "Alice", models.RoleMember)
	require.NoError(t, err)

	updated, err := svc.UpdateUser(ctx, user.ID, "", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.DisplayName)
	assert.Equal(t, models.RoleAdmin, updated.Role)
}

func TestDeactivateUserTwice(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	user, err := svc.CreateUser(ctx, "alice@example.com", "Alice", models.RoleMember)
	require.NoError(t, err)

	deactivated, err := svc.DeactivateUser(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	_, err = svc.DeactivateUser(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvariantViolation, dErrors.CodeOf(err))
}

func TestDeleteUserNotFound(t *testing.T) {
	svc := newService(newFakeRepo())

	err := svc.DeleteUser(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
}

func TestListUsersAcrossTenantsPropagatesElevationErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.acrossErr = isolation.ErrElevationRequired
	svc := newService(repo)

	_, err := svc.ListUsersAcrossTenants(context.Background(), isolation.Filter{})
	require.ErrorIs(t, err, isolation.ErrElevationRequired)
}

func TestParseRole(t *testing.T) {
	role, err := models.ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	_, err = models.ParseRole("superuser")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}
