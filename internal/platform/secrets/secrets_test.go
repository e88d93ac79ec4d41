package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "stratum/pkg/domain-errors"
)

func TestGenerateProducesUniqueSecrets(t *testing.T) {
	first, err := Generate()
	require.NoError(t, err)
	second, err := Generate()
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.NotEmpty(t, first)
}

func TestHashAndVerifyRoundTrip(t *testing.T) {
	hash, err := Hash("ops-token")
	require.NoError(t, err)
	assert.NotEqual(t, "ops-token", hash)
	require.NoError(t, Verify("ops-token", hash))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	hash, err := Hash("ops-token")
	require.NoError(t, err)

	err = Verify("not-the-token", hash)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestHashRejectsEmptySecret(t *testing.T) {
	_, err := Hash("")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestHashRejectsOverlongSecret(t *testing.T) {
	// bcrypt caps input at 72 bytes.
	_, err := Hash(strings.Repeat("x", 100))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}
