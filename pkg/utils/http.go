package utils

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/pkg/apperrors"
)

type UserCtxKey struct{}

func GetUserFromCtx(ctx context.Context) (*models.User, error) {
	user, ok := ctx.Value(UserCtxKey{}).(*models.User)
	if !ok {
		return nil, apperrors.NewUnauthorizedError("user not found in context")
	}
	return user, nil
}

func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}
