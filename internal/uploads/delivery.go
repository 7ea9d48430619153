package uploads

import "github.com/labstack/echo/v4"

type Handlers interface {
	InitUpload() echo.HandlerFunc
	CompleteUpload() echo.HandlerFunc
	CancelUpload() echo.HandlerFunc
	GetStatus() echo.HandlerFunc
	ListUploads() echo.HandlerFunc
}
