package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/pkg/utils"
)

// AuthMiddleware resolves the bearer credential through the user-validation
// contract and attaches the caller identity to the request context.
func (mw *MiddlewareManager) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			bearerHeader := c.Request().Header.Get("Authorization")
			if bearerHeader == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			headerParts := strings.Split(bearerHeader, " ")
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "Bearer") {
				mw.logger.Warnf("auth middleware: malformed Authorization header, RequestID: %s", utils.GetRequestID(c))
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			userID, err := mw.validator.ValidateToken(c.Request().Context(), headerParts[1])
			if err != nil {
				mw.logger.Warnf("auth middleware: token rejected: %v, RequestID: %s", err, utils.GetRequestID(c))
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			}

			user := &models.User{UserID: userID}
			c.Set("user", user)
			ctx := context.WithValue(c.Request().Context(), utils.UserCtxKey{}, user)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
