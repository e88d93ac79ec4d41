package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/isolation"
	"stratum/internal/user/models"
	"stratum/internal/user/service"
	"stratum/pkg/domain"
	"stratum/pkg/platform/sentinel"
	"stratum/pkg/testutil"
)

type fakeRepo struct {
	users     map[uuid.UUID]models.User
	acrossErr error
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

func (r *fakeRepo) FindMany(_ context.Context, _ isolation.Filter) ([]models.User, error) {
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

func newTestRouter(repo *fakeRepo) chi.Router {
	svc := service.New(repo, service.WithClock(func() time.Time {
		return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	}))
	r := chi.NewRouter()
	New(svc, slog.Default()).Register(r)
	return r
}

func TestCreateUser(t *testing.T) {
	r := newTestRouter(newFakeRepo())
	tenantID := domain.NewTenantID()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users",
		strings.NewReader(`{"email":"alice@example.com","role":"member"}`))
	r.ServeHTTP(rec, testutil.WithScope(t, req, tenantID, isolation.TableLevel))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"alice@example.com"`)
	assert.Contains(t, rec.Body.String(), `"role":"member"`)
}

func TestCreateUserInvalidRole(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users",
		strings.NewReader(`{"email":"alice@example.com","role":"superuser"}`))
	r.ServeHTTP(rec, testutil.WithScope(t, req, domain.NewTenantID(), isolation.TableLevel))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUserNotFound(t *testing.T) {
	r := newTestRouter(newFakeRepo())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/users/"+uuid.NewString(), nil)
	r.ServeHTTP(rec, testutil.WithScope(t, req, domain.NewTenantID(), isolation.TableLevel))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListUsersAcrossRequiresElevation(t *testing.T) {
	repo := newFakeRepo()
	repo.acrossErr = isolation.ErrElevationRequired
	r := newTestRouter(repo)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/platform/users", nil)
	r.ServeHTTP(rec, testutil.WithScope(t, req, domain.NewTenantID(), isolation.TableLevel))

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDeactivateUser(t *testing.T) {
	repo := newFakeRepo()
	r := newTestRouter(repo)
	tenantID := domain.NewTenantID()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/users",
		strings.NewReader(`{"email":"alice@example.com","role":"member"}`))
	r.ServeHTTP(rec, testutil.WithScope(t, req, tenantID, isolation.TableLevel))
	require.Equal(t, http.StatusCreated, rec.Code)

	var id uuid.UUID
	for _, user := range repo.users {
		id = user.ID
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/users/"+id.String()+"/deactivate", nil)
	r.ServeHTTP(rec, testutil.WithScope(t, req, tenantID, isolation.TableLevel))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"active":false`)
}
