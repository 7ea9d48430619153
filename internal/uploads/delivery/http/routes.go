package http

import (
	"github.com/labstack/echo/v4"

	"github.com/reelstream/media-service/internal/middleware"
	"github.com/reelstream/media-service/internal/uploads"
)

func MapUploadsRoutes(group *echo.Group, h uploads.Handlers, mw *middleware.MiddlewareManager) {
	group.Use(mw.AuthMiddleware())
	group.POST("", h.InitUpload())
	group.GET("", h.ListUploads())
	group.POST("/:upload_id/complete", h.CompleteUpload())
	group.GET("/:upload_id", h.GetStatus())
	group.DELETE("/:upload_id", h.CancelUpload())
}
