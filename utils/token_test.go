package authUtils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")
	token, err := GenerateToken(secret, "64f0c0ffee", "technician", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "64f0c0ffee", claims.UserID)
	assert.Equal(t, "technician", claims.Role)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, err := GenerateToken([]byte("a"), "u1", "citizen", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken([]byte("b"), token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	secret := []byte("s")
	token, err := GenerateToken(secret, "u1", "citizen", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(secret, token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestGenerateTokenNeedsSecret(t *testing.T) {
	_, err := GenerateToken(nil, "u1", "citizen", time.Hour)
	assert.Error(t, err)
}
