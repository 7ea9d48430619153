package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/reelstream/media-service/internal/auth"
	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/pkg/logger"
)

type MiddlewareManager struct {
	validator auth.Validator
	cfg       *config.Config
	origins   []string
	logger    logger.Logger
}

func NewMiddlewareManager(validator auth.Validator, cfg *config.Config, origins []string, logger logger.Logger) *MiddlewareManager {
	return &MiddlewareManager{
		validator: validator,
		cfg:       cfg,
		origins:   origins,
		logger:    logger,
	}
}

// CORS builds the cross-origin policy from the configured origin list.
func (mw *MiddlewareManager) CORS() echo.MiddlewareFunc {
	return echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: mw.origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	})
}
