package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/meritledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Enabled:               true,
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: 15 * time.Minute,
	})
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newTestJWTService()

	issued, err := svc.Issue("ops@shop", "documents:write")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.Validate(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "ops@shop", claims.Subject)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.HasScope("documents:write"))
	assert.False(t, claims.HasScope("batches:run"))
}

func TestJWTService_IssueRequiresSubject(t *testing.T) {
	_, err := newTestJWTService().Issue("")
	assert.ErrorIs(t, err, ErrEmptySubject)
}

func TestJWTService_UniqueTokenIDs(t *testing.T) {
	svc := newTestJWTService()
	a, err := svc.Issue("ops")
	require.NoError(t, err)
	b, err := svc.Issue("ops")
	require.NoError(t, err)

	ca, _ := svc.Validate(a.Token)
	cb, _ := svc.Validate(b.Token)
	assert.NotEqual(t, ca.ID, cb.ID)
}

func TestJWTService_ValidateErrors(t *testing.T) {
	svc := newTestJWTService()

	t.Run("expired", func(t *testing.T) {
		past := newTestJWTService()
		past.now = func() time.Time { return time.Now().Add(-time.Hour) }
		issued, err := past.Issue("ops")
		require.NoError(t, err)

		_, err = svc.Validate(issued.Token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("not yet valid", func(t *testing.T) {
		future := newTestJWTService()
		future.now = func() time.Time { return time.Now().Add(time.Hour) }
		issued, err := future.Issue("ops")
		require.NoError(t, err)

		_, err = svc.Validate(issued.Token)
		assert.ErrorIs(t, err, ErrTokenNotYetValid)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-key-at-least-32-ch",
			Issuer:                "test-issuer",
			AccessTokenExpiration: time.Minute,
		})
		issued, err := other.Issue("ops")
		require.NoError(t, err)

		_, err = svc.Validate(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			Issuer:                "someone-else",
			AccessTokenExpiration: time.Minute,
		})
		issued, err := other.Issue("ops")
		require.NoError(t, err)

		_, err = svc.Validate(issued.Token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := svc.Validate("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("none algorithm", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "ops",
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		})
		signed, err := token.SignedString([]byte("test-secret-key-at-least-32-chars"))
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})
}

func TestClaims_HasScope(t *testing.T) {
	assert.True(t, (&Claims{}).HasScope("anything"))
	assert.True(t, (&Claims{Scopes: []string{"*"}}).HasScope("batches:run"))
	assert.False(t, (&Claims{Scopes: []string{"documents:write"}}).HasScope("batches:run"))
}
