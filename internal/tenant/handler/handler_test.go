package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/audit"
	"stratum/internal/isolation"
	"stratum/internal/tenant/service"
	"stratum/internal/tenant/store"
	"stratum/pkg/domain"
)

type registryStub struct{}

func (registryStub) Provision(context.Context, isolation.TargetDescriptor) error { return nil }
func (registryStub) SetActive(context.Context, domain.TenantID, bool) error      { return nil }

type evictorStub struct{}

func (evictorStub) Evict(domain.TenantID) {}

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	svc := service.New(store.NewInMemory(), registryStub{}, evictorStub{}, isolation.TableLevel,
		service.WithAuditPublisher(audit.NewPublisher(audit.NewInMemoryStore(), nil)),
		service.WithClock(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }),
	)
	r := chi.NewRouter()
	New(svc, slog.Default()).Register(r)
	return r
}

func TestCreateTenant(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants",
		strings.NewReader(`{"name":"Acme","actor":"root@example.com"}`))
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Acme"`)
	assert.Contains(t, rec.Body.String(), `"status":"active"`)
}

func TestCreateTenantInvalidBody(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", strings.NewReader(`{`))
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTenantDuplicateName(t *testing.T) {
	r := newTestRouter(t)

	for i := range 2 {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/admin/tenants",
			strings.NewReader(`{"name":"Acme","actor":"root@example.com"}`))
		r.ServeHTTP(rec, req)
		if i == 0 {
			require.Equal(t, http.StatusCreated, rec.Code)
			continue
		}
		assert.Equal(t, http.StatusConflict, rec.Code)
	}
}

func TestGetTenantInvalidID(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/tenants/not-a-uuid", nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTenantNotFound(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin/tenants/"+domain.NewTenantID().String(), nil)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeactivateAndReactivateTenant(t *testing.T) {
	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants",
		strings.NewReader(`{"name":"Acme","actor":"root@example.com"}`))
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin/tenants/"+created.ID+"/deactivate",
		strings.NewReader(`{"actor":"ops@example.com","reason":"billing"}`))
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"inactive"`)

	// Reactivate with an empty body is allowed.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/admin/tenants/"+created.ID+"/reactivate", nil)
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"active"`)
}
