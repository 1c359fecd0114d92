package analysis

import (
	"SiteGuard/pkg/response"
	"net/http"
)

var (
	ErrInvalidImage     = response.NewError(http.StatusBadRequest, "invalid image")
	ErrMissingFile      = response.NewError(http.StatusBadRequest, "no file uploaded")
	ErrFileTooLarge     = response.NewError(http.StatusBadRequest, "file too large")
	ErrAnalysisNotFound = response.NewError(http.StatusNotFound, "image not found")
	ErrDetectionFailure = response.NewError(http.StatusInternalServerError, "object detection failed")
	ErrUnknownClass     = response.NewError(http.StatusInternalServerError, "model returned an unknown class")
)
