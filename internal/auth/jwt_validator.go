package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/pkg/apperrors"
)

type jwtValidator struct {
	cfg *config.Config
}

func NewJWTValidator(cfg *config.Config) Validator {
	return &jwtValidator{cfg: cfg}
}

func (v *jwtValidator) ValidateToken(ctx context.Context, tokenString string) (uuid.UUID, error) {
	if tokenString == "" {
		return uuid.Nil, apperrors.NewUnauthorizedError("empty token")
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(v.cfg.Server.JwtSecretKey), nil
	})
	if err != nil {
		return uuid.Nil, apperrors.NewUnauthorizedError("invalid token")
	}
	if !token.Valid {
		return uuid.Nil, apperrors.NewUnauthorizedError("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apperrors.NewUnauthorizedError("invalid jwt claims")
	}
	userID, ok := claims["id"].(string)
	if !ok {
		return uuid.Nil, apperrors.NewUnauthorizedError("invalid jwt claims")
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, apperrors.NewUnauthorizedError("invalid jwt claims")
	}
	return userUUID, nil
}
