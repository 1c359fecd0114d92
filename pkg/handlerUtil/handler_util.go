package handlerUtil

import (
	"SiteGuard/internal/api/analysis"
	"SiteGuard/pkg/log"
	"SiteGuard/pkg/response"
	"SiteGuard/pkg/utils"
	"errors"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

type ErrorHandler struct {
	logger *logrus.Logger
}

func New(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// UploadError maps upload validation failures onto analysis domain errors.
func UploadError(err error) error {
	switch {
	case errors.Is(err, utils.ErrNoFile), errors.Is(err, utils.ErrEmptyFile):
		return analysis.ErrMissingFile
	case errors.Is(err, utils.ErrFileTooLarge):
		return analysis.ErrFileTooLarge
	case errors.Is(err, utils.ErrNotAnImage):
		return analysis.ErrInvalidImage
	default:
		return err
	}
}

func (h *ErrorHandler) Handle(c *fiber.Ctx, requestID string, err error, path string, operation string) error {
	fields := log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
		"operation":  operation,
	}

	if errors.Is(err, analysis.ErrAnalysisNotFound) {
		h.logger.WithFields(fields).Warn("Analysis not found")
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
			Error: "Image not found",
			Code:  "ANALYSIS_NOT_FOUND",
		})
	}

	if errors.Is(err, analysis.ErrInvalidImage) {
		h.logger.WithFields(fields).Warn("Invalid image uploaded")
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error: "Uploaded file is not a decodable image",
			Code:  "INVALID_IMAGE",
		})
	}

	if errors.Is(err, analysis.ErrDetectionFailure) || errors.Is(err, analysis.ErrUnknownClass) {
		traceID := log.TraceID(requestID)
		fields["trace_id"] = traceID
		h.logger.WithFields(fields).Error("Detection failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Error:   "Object detection failed",
			Code:    "DETECTION_FAILURE",
			TraceID: traceID,
		})
	}

	var respErr *response.Error
	if errors.As(err, &respErr) {
		fields["code"] = respErr.Code
		h.logger.WithFields(fields).Warn("Operation failed with error response")
		return c.Status(respErr.Code).JSON(ErrorResponse{Error: err.Error()})
	}

	traceID := log.TraceID(requestID)
	fields["trace_id"] = traceID
	h.logger.WithFields(fields).Error("Unexpected error")

	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
		Error:   "An unexpected error occurred",
		TraceID: traceID,
	})
}

func (h *ErrorHandler) HandleValidationError(c *fiber.Ctx, requestID string, err error, path string) error {
	h.logger.WithFields(log.Fields{
		"request_id": requestID,
		"error":      err.Error(),
		"path":       path,
	}).Warn("Validation failed")

	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
		Error: "Validation failed: " + err.Error(),
		Code:  "VALIDATION_ERROR",
	})
}

func (h *ErrorHandler) HandleSuccess(c *fiber.Ctx, statusCode int, data interface{}) error {
	if data == nil {
		return c.SendStatus(statusCode)
	}
	return c.Status(statusCode).JSON(data)
}
