package jwttoken

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "stratum/pkg/domain-errors"
)

func newService() *JWTService {
	return NewJWTService("test-signing-key", "stratum", "stratum")
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := newService()
	tenantID := uuid.New()

	token, err := svc.GenerateAccessToken(tenantID, "alice@example.com", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, "alice@example.com", claims.Actor)
	assert.False(t, claims.Elevated)
	assert.Equal(t, "stratum", claims.Issuer)
}

func TestElevatedTokenCarriesReasonNotTenant(t *testing.T) {
	svc := newService()

	token, err := svc.GenerateElevatedToken("ops@example.com", "quarterly export", time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.Elevated)
	assert.Equal(t, "quarterly export", claims.ElevationReason)
	assert.Empty(t, claims.TenantID)
}

func TestElevatedTokenRequiresReason(t *testing.T) {
	svc := newService()

	_, err := svc.GenerateElevatedToken("ops@example.com", "", time.Hour)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeInvalidInput, dErrors.CodeOf(err))
}

func TestValidateExpiredToken(t *testing.T) {
	svc := newService()

	token, err := svc.GenerateAccessToken(uuid.New(), "alice@example.com", -time.Minute)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
	assert.Contains(t, err.Error(), "expired")
}

func TestValidateRejectsForeignSignature(t *testing.T) {
	svc := newService()
	other := NewJWTService("different-key", "stratum", "stratum")

	token, err := other.GenerateAccessToken(uuid.New(), "alice@example.com", time.Hour)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := newService().ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, dErrors.CodeUnauthorized, dErrors.CodeOf(err))
}
