package analysisHandler

import (
	"SiteGuard/internal/api/analysis"
	contextPkg "SiteGuard/pkg/context"
	"SiteGuard/pkg/handlerUtil"
	"SiteGuard/pkg/log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

const uploadField = "file"

func (h *AnalysisHandler) Analyze(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing image analysis request")

	image, err := h.readUpload(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_upload")
	}

	result, err := h.analysisService.Analyze(c, image)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_image")
	}

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
		"id":         result.ID,
		"labels":     len(result.Labels),
	}).Info("Image analysis successful")

	return errHandler.HandleSuccess(ctx, fiber.StatusCreated, result)
}

func (h *AnalysisHandler) AnalyzeFiltered(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing compliance analysis request")

	image, err := h.readUpload(ctx)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_upload")
	}

	result, err := h.analysisService.AnalyzeFiltered(c, image)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "analyze_filtered_image")
	}

	h.log.WithFields(log.Fields{
		"request_id":     requestID,
		"path":           ctx.Path(),
		"id":             result.ID,
		"recommendation": result.Recommendation,
		"percentage":     result.Percentage,
	}).Info("Compliance analysis successful")

	return errHandler.HandleSuccess(ctx, fiber.StatusCreated, result)
}

// GetAnalysis returns the rendered PNG; labels and confidences travel in
// response headers as comma separated lists.
func (h *AnalysisHandler) GetAnalysis(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	var req analysis.AnalysisIDRequest
	if err := ctx.ParamsParser(&req); err != nil {
		return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
	}

	record, err := h.analysisService.GetAnalysis(c, req.ID)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_analysis")
	}

	ctx.Set("labels", strings.Join(record.Detections.Labels(), ","))
	ctx.Set("confidences", joinConfidences(record.Detections.Confidences()))
	ctx.Set(fiber.HeaderContentType, "image/png")

	return ctx.Status(fiber.StatusOK).Send(record.RenderedImage)
}

func (h *AnalysisHandler) readUpload(ctx *fiber.Ctx) ([]byte, error) {
	file, err := ctx.FormFile(uploadField)
	if err != nil {
		return nil, analysis.ErrMissingFile
	}

	h.log.WithFields(log.Fields{
		"request_id": h.middleware.GetRequestID(ctx),
		"file_name":  file.Filename,
		"file_size":  file.Size,
	}).Debug("Processing file upload")

	data, err := h.utils.ReadImageFile(file)
	if err != nil {
		return nil, handlerUtil.UploadError(err)
	}

	if err := h.utils.SniffImage(data); err != nil {
		return nil, handlerUtil.UploadError(err)
	}

	return data, nil
}

func joinConfidences(confidences []float64) string {
	parts := make([]string, 0, len(confidences))
	for _, c := range confidences {
		parts = append(parts, strconv.FormatFloat(c, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}
