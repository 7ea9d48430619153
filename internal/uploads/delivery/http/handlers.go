package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/reelstream/media-service/internal/models"
	"github.com/reelstream/media-service/internal/uploads"
	"github.com/reelstream/media-service/pkg/apperrors"
	"github.com/reelstream/media-service/pkg/logger"
	"github.com/reelstream/media-service/pkg/utils"
)

type uploadsHandler struct {
	uploadsUC uploads.UseCase
	logger    logger.Logger
}

func NewUploadsHandler(uploadsUC uploads.UseCase, log logger.Logger) uploads.Handlers {
	return &uploadsHandler{
		uploadsUC: uploadsUC,
		logger:    log,
	}
}

func (h *uploadsHandler) InitUpload() echo.HandlerFunc {
	return func(c echo.Context) error {
		input := &models.InitUploadInput{}
		if err := c.Bind(input); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse(apperrors.NewValidationError("invalid request body")))
		}
		result, err := h.uploadsUC.InitUpload(c.Request().Context(), input)
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(http.StatusCreated, result)
	}
}

func (h *uploadsHandler) CompleteUpload() echo.HandlerFunc {
	return func(c echo.Context) error {
		uploadID, err := uuid.Parse(c.Param("upload_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse(apperrors.NewValidationError("invalid upload id")))
		}
		jobID, err := h.uploadsUC.CompleteUpload(c.Request().Context(), uploadID)
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(http.StatusAccepted, map[string]string{"job_id": jobID})
	}
}

func (h *uploadsHandler) CancelUpload() echo.HandlerFunc {
	return func(c echo.Context) error {
		uploadID, err := uuid.Parse(c.Param("upload_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse(apperrors.NewValidationError("invalid upload id")))
		}
		if err = h.uploadsUC.CancelUpload(c.Request().Context(), uploadID); err != nil {
			return h.respondError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *uploadsHandler) GetStatus() echo.HandlerFunc {
	return func(c echo.Context) error {
		uploadID, err := uuid.Parse(c.Param("upload_id"))
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse(apperrors.NewValidationError("invalid upload id")))
		}
		status, err := h.uploadsUC.GetStatus(c.Request().Context(), uploadID)
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(http.StatusOK, status)
	}
}

func (h *uploadsHandler) ListUploads() echo.HandlerFunc {
	return func(c echo.Context) error {
		pagination, err := utils.GetPaginationFromCtx(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse(apperrors.NewValidationError("invalid pagination: %v", err)))
		}
		state := models.UploadState(c.QueryParam("status"))
		list, err := h.uploadsUC.ListUploads(c.Request().Context(), state, pagination)
		if err != nil {
			return h.respondError(c, err)
		}
		return c.JSON(http.StatusOK, list)
	}
}

func (h *uploadsHandler) respondError(c echo.Context, err error) error {
	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.logger.Errorf("uploads handler: %v, RequestID: %s", err, utils.GetRequestID(c))
	}
	return c.JSON(status, errorResponse(err))
}

func errorResponse(err error) map[string]string {
	return map[string]string{"error": apperrors.Message(err)}
}
