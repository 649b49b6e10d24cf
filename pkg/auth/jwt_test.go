package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService(t *testing.T) *JWTService {
	t.Helper()
	svc, err := NewJWTService(JWTConfig{
		SecretKey: "test-secret",
		Issuer:    "evolution-tree-backend",
		Audience:  []string{"evolution-tree-backend"},
		TTL:       time.Hour,
	})
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	t.Run("Should reject empty secret", func(t *testing.T) {
		_, err := NewJWTService(JWTConfig{TTL: time.Hour})
		assert.Error(t, err)
	})

	t.Run("Should reject non-positive TTL", func(t *testing.T) {
		_, err := NewJWTService(JWTConfig{SecretKey: "s"})
		assert.Error(t, err)
	})
}

func TestJWTService_RoundTrip(t *testing.T) {
	svc := newTestJWTService(t)

	token, err := svc.GenerateToken(42, "ada@example.com", "ada")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)

	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "ada", claims.Username)
	assert.NotEmpty(t, claims.ID)

	t.Run("Should accept bearer prefix", func(t *testing.T) {
		_, err := svc.ValidateToken("Bearer " + token)
		assert.NoError(t, err)
	})
}

func TestJWTService_ValidateToken(t *testing.T) {
	svc := newTestJWTService(t)

	t.Run("Should reject missing token", func(t *testing.T) {
		_, err := svc.ValidateToken("  ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("Should reject garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("Should reject foreign signature", func(t *testing.T) {
		other, err := NewJWTService(JWTConfig{
			SecretKey: "another-secret",
			Issuer:    "evolution-tree-backend",
			Audience:  []string{"evolution-tree-backend"},
			TTL:       time.Hour,
		})
		require.NoError(t, err)

		token, err := other.GenerateToken(1, "a@example.com", "a")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("Should reject expired token", func(t *testing.T) {
		issuer := newTestJWTService(t)
		issuer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

		token, err := issuer.GenerateToken(1, "a@example.com", "a")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("Should reject wrong issuer", func(t *testing.T) {
		other, err := NewJWTService(JWTConfig{
			SecretKey: "test-secret",
			Issuer:    "someone-else",
			Audience:  []string{"evolution-tree-backend"},
			TTL:       time.Hour,
		})
		require.NoError(t, err)

		token, err := other.GenerateToken(1, "a@example.com", "a")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})
}

func TestPasswordHasher(t *testing.T) {
	hasher := NewPasswordHasher(4)

	hashed, err := hasher.Hash("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hashed)

	assert.True(t, hasher.Verify(hashed, "s3cret!"))
	assert.False(t, hasher.Verify(hashed, "wrong"))
	assert.False(t, hasher.Verify("not-a-hash", "s3cret!"))
}

func TestGenerateEmailToken(t *testing.T) {
	first, err := GenerateEmailToken()
	require.NoError(t, err)
	second, err := GenerateEmailToken()
	require.NoError(t, err)

	// 32 bytes, unpadded base64url
	assert.Len(t, first, 43)
	assert.NotEqual(t, first, second)
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
	assert.NotContains(t, first, "=")
}
