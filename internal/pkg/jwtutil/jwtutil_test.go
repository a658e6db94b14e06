package jwtutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireRole(t *testing.T) {
	admin, err := GenerateToken("s3cret", "ops", RoleAdmin, time.Minute)
	require.NoError(t, err)
	viewer, err := GenerateToken("s3cret", "bob", "viewer", 0)
	require.NoError(t, err)

	claims, err := RequireRole("s3cret", admin, RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "ops", claims.Subject)

	_, err = RequireRole("s3cret", viewer, RoleAdmin)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = RequireRole("other", admin, RoleAdmin)
	assert.Error(t, err)
}

func TestParseToken_Rejects(t *testing.T) {
	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("k"))
	require.NoError(t, err)
	_, err = ParseToken("k", signed)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Role: RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken("k", none)
	assert.Error(t, err)

	_, err = ParseToken("k", "not.a.token")
	assert.Error(t, err)
}
