package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/pkg/apperrors"
)

const testSecret = "test-secret"

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func newValidator() Validator {
	return NewJWTValidator(&config.Config{
		Server: config.ServerConfig{JwtSecretKey: testSecret},
	})
}

func TestValidateToken(t *testing.T) {
	userID := uuid.New()
	tokenString := signToken(t, jwt.MapClaims{
		"id":  userID.String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}, testSecret)

	got, err := newValidator().ValidateToken(context.Background(), tokenString)
	require.NoError(t, err)
	require.Equal(t, userID, got)
}

func TestValidateTokenRejects(t *testing.T) {
	userID := uuid.New()
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"wrong secret", signToken(t, jwt.MapClaims{"id": userID.String()}, "other-secret")},
		{"expired", signToken(t, jwt.MapClaims{
			"id":  userID.String(),
			"exp": time.Now().Add(-time.Hour).Unix(),
		}, testSecret)},
		{"missing id claim", signToken(t, jwt.MapClaims{"sub": "someone"}, testSecret)},
		{"non-uuid id", signToken(t, jwt.MapClaims{"id": "42"}, testSecret)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := newValidator().ValidateToken(context.Background(), tc.token)
			require.Error(t, err)
			require.True(t, apperrors.IsUnauthorized(err))
		})
	}
}
