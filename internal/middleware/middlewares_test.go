package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/reelstream/media-service/internal/config"
	"github.com/reelstream/media-service/pkg/logger"
)

func newCORSManager(origins []string) *MiddlewareManager {
	cfg := &config.Config{
		Logger: config.Logger{Development: true, Encoding: "console", Level: "error"},
	}
	appLogger := logger.NewApiLogger(cfg)
	appLogger.InitLogger()
	return NewMiddlewareManager(nil, cfg, origins, appLogger)
}

func TestCORSUsesConfiguredOrigins(t *testing.T) {
	mw := newCORSManager([]string{"https://app.reelstream.test"})

	e := echo.New()
	e.Use(mw.CORS())
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.reelstream.test")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, "https://app.reelstream.test", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	mw := newCORSManager([]string{"https://app.reelstream.test"})

	e := echo.New()
	e.Use(mw.CORS())
	e.GET("/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.test")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Empty(t, rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
}
