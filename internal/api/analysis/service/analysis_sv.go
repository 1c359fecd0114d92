package analysisService

import (
	"SiteGuard/internal/api/analysis"
	"SiteGuard/internal/entity"
	contextPkg "SiteGuard/pkg/context"
	"SiteGuard/pkg/detector"
	"SiteGuard/pkg/imaging"
	"SiteGuard/pkg/log"
	"SiteGuard/pkg/metrics"
	"context"
	"errors"
	"fmt"
	"github.com/sirupsen/logrus"
	"time"
)

func (s *analysisService) Analyze(ctx context.Context, image []byte) (*analysis.AnalysisResponse, error) {
	start := time.Now()

	id, detections, err := s.detectAndStore(ctx, image)
	s.observe(metrics.KindPlain, start, err)
	if err != nil {
		return nil, err
	}

	return &analysis.AnalysisResponse{
		ID:          id,
		Labels:      detections.Labels(),
		Confidences: detections.Confidences(),
	}, nil
}

// AnalyzeFiltered normalizes the upload to three color channels before
// detection and grades PPE compliance. The stored record keeps the full
// detection set; only the response is restricted to the PPE categories.
func (s *analysisService) AnalyzeFiltered(ctx context.Context, image []byte) (*analysis.FilteredAnalysisResponse, error) {
	start := time.Now()

	resp, err := s.analyzeFiltered(ctx, image)
	s.observe(metrics.KindFiltered, start, err)
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveRecommendation(string(resp.Recommendation))
	return resp, nil
}

func (s *analysisService) analyzeFiltered(ctx context.Context, image []byte) (*analysis.FilteredAnalysisResponse, error) {
	normalized, err := normalizeChannels(image)
	if err != nil {
		return nil, s.translate(ctx, err)
	}

	id, detections, err := s.detectAndStore(ctx, normalized)
	if err != nil {
		return nil, err
	}

	result := analysis.Score(detections)

	s.entry(ctx).WithFields(log.Fields{
		"id":             id,
		"recommendation": result.Recommendation,
		"percentage":     result.Percentage,
	}).Info("Compliance scored")

	return &analysis.FilteredAnalysisResponse{
		ID:                  id,
		FilteredLabels:      result.FilteredLabels,
		FilteredConfidences: result.FilteredConfidences,
		Recommendation:      result.Recommendation,
		Percentage:          result.Percentage,
	}, nil
}

func (s *analysisService) GetAnalysis(ctx context.Context, id int) (*entity.StoredAnalysis, error) {
	record, err := s.repository.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *analysisService) StoredCount() int {
	return s.repository.Size()
}

// detectAndStore runs the detector and stores its output. Insertion is the
// last step, so a failed request never leaves a record behind.
func (s *analysisService) detectAndStore(ctx context.Context, image []byte) (int, entity.DetectionSet, error) {
	rendered, detections, err := s.detector.Analyze(ctx, image)
	if err != nil {
		return 0, nil, s.translate(ctx, err)
	}

	id := s.repository.Insert(ctx, rendered, detections)
	s.metrics.SetStoredAnalyses(s.repository.Size())
	s.metrics.ObserveDetections(detections.Labels())

	s.entry(ctx).WithFields(log.Fields{
		"id":         id,
		"detections": len(detections),
		"threshold":  s.detector.Threshold(),
	}).Debug("Analysis stored")

	return id, detections, nil
}

// normalizeChannels decodes the upload, drops any alpha channel and
// re-encodes the frame as PNG.
func normalizeChannels(image []byte) ([]byte, error) {
	img, _, err := imaging.Decode(image)
	if err != nil {
		return nil, err
	}

	if imaging.HasAlpha(img) {
		img = imaging.ToRGB(img)
	}

	return imaging.EncodePNG(img)
}

func (s *analysisService) translate(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, imaging.ErrDecode):
		return fmt.Errorf("%w: %v", analysis.ErrInvalidImage, err)
	case errors.Is(err, detector.ErrUnknownClass):
		s.entry(ctx).WithField("error", err.Error()).Error("Detector produced an out-of-range class index")
		return fmt.Errorf("%w: %v", analysis.ErrUnknownClass, err)
	case errors.Is(err, detector.ErrDetectionFailure):
		s.entry(ctx).WithField("error", err.Error()).Error("Detection backend failed")
		return fmt.Errorf("%w: %v", analysis.ErrDetectionFailure, err)
	default:
		return err
	}
}

func (s *analysisService) entry(ctx context.Context) *logrus.Entry {
	return s.log.WithField(log.RequestIDKey, contextPkg.GetRequestID(ctx))
}

func (s *analysisService) observe(kind string, start time.Time, err error) {
	s.metrics.ObserveAnalysis(kind, outcome(err), time.Since(start))
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, analysis.ErrInvalidImage):
		return "invalid_image"
	case errors.Is(err, analysis.ErrDetectionFailure), errors.Is(err, analysis.ErrUnknownClass):
		return "detection_failure"
	default:
		return "error"
	}
}
