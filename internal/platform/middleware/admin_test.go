package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stratum/internal/platform/secrets"
)

func adminTokenHash(t *testing.T, token string) string {
	t.Helper()
	hash, err := secrets.Hash(token)
	require.NoError(t, err)
	return hash
}

func TestRequireAdminTokenAcceptsMatch(t *testing.T) {
	mw := RequireAdminToken(adminTokenHash(t, "sekrit"), slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", nil)
	req.Header.Set("X-Admin-Token", "sekrit")

	called := false
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})).ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRequireAdminTokenRejectsMismatch(t *testing.T) {
	mw := RequireAdminToken(adminTokenHash(t, "sekrit"), slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", nil)
	req.Header.Set("X-Admin-Token", "wrong")

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"forbidden","error_description":"admin token required"}`, rec.Body.String())
}

func TestRequireAdminTokenRejectsHashAsToken(t *testing.T) {
	// Presenting the stored hash itself must not pass verification.
	hash := adminTokenHash(t, "sekrit")
	mw := RequireAdminToken(hash, slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", nil)
	req.Header.Set("X-Admin-Token", hash)

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdminTokenRefusesWhenUnconfigured(t *testing.T) {
	// An empty expected hash locks the control plane rather than opening it.
	mw := RequireAdminToken("", slog.Default())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/tenants", nil)

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
