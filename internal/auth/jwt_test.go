package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	signed, err := IssueToken(testSecret, "ops-dashboard", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, signed)

	claims, err := ValidateToken(testSecret, signed)
	require.NoError(t, err)
	assert.Equal(t, "ops-dashboard", claims.Subject)
	assert.Equal(t, "courier", claims.Issuer)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	t.Parallel()

	signed, err := IssueToken(testSecret, "caller", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Expired(t *testing.T) {
	t.Parallel()

	signed, err := IssueToken(testSecret, "caller", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(testSecret, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	t.Parallel()

	_, err := ValidateToken(testSecret, "not.a.jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
