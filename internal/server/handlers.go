package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/reelstream/media-service/internal/auth"
	"github.com/reelstream/media-service/internal/middleware"
	uploadsHttp "github.com/reelstream/media-service/internal/uploads/delivery/http"
	uploadsRepository "github.com/reelstream/media-service/internal/uploads/repository"
	uploadsUsecase "github.com/reelstream/media-service/internal/uploads/usecase"
)

func (s *Server) MapHandlers(e *echo.Echo) error {
	uploadRepo := uploadsRepository.NewUploadsRepo(s.db)
	blobRepo := uploadsRepository.NewAwsRepository(s.s3Client, s.preSignClient)
	jobQueue := uploadsRepository.NewJobQueue(s.redisClient, s.cfg)

	uploadsUC := uploadsUsecase.NewUploadsUseCase(s.cfg, uploadRepo, jobQueue, blobRepo, s.logger)
	uploadsHandlers := uploadsHttp.NewUploadsHandler(uploadsUC, s.logger)

	validator := auth.NewJWTValidator(s.cfg)
	mw := middleware.NewMiddlewareManager(validator, s.cfg, []string{"*"}, s.logger)
	e.Use(mw.CORS())

	v1 := e.Group("/api/v1")
	health := v1.Group("/health")
	uploadsGroup := v1.Group("/uploads")

	uploadsHttp.MapUploadsRoutes(uploadsGroup, uploadsHandlers, mw)
	health.GET("", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})
	return nil
}
