// Package detector turns raw object-detection model output into labelled,
// thresholded detections and an annotated frame.
package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"strconv"

	"SiteGuard/internal/entity"
	"SiteGuard/pkg/imaging"
)

const DefaultThreshold = 0.6

var ErrDetectionFailure = errors.New("object detection failed")

// Frame is the decoded image together with the bytes it was decoded from,
// so backends can use whichever representation they need.
type Frame struct {
	Image   image.Image
	Encoded []byte
}

type Model interface {
	Predict(ctx context.Context, frame Frame) ([]entity.Prediction, error)
}

type Config struct {
	Threshold float64  `validate:"gte=0,lte=1"`
	Classes   []string `validate:"min=1,dive,required"`
	// RenderAll draws every raw prediction, including those under the
	// threshold that are absent from the returned detections.
	RenderAll bool
}

func LoadConfig() Config {
	cfg := Config{
		Threshold: DefaultThreshold,
		Classes:   ParseClassList(os.Getenv("MODEL_CLASSES")).Names(),
		RenderAll: true,
	}

	if v, err := strconv.ParseFloat(os.Getenv("DETECTION_THRESHOLD"), 64); err == nil {
		cfg.Threshold = v
	}
	if v, err := strconv.ParseBool(os.Getenv("DETECTION_RENDER_ALL")); err == nil {
		cfg.RenderAll = v
	}

	return cfg
}

type IDetector interface {
	Analyze(ctx context.Context, data []byte) ([]byte, entity.DetectionSet, error)
	Threshold() float64
}

type Adapter struct {
	model     Model
	classes   ClassTable
	threshold float64
	renderAll bool
}

func New(model Model, cfg Config) *Adapter {
	return &Adapter{
		model:     model,
		classes:   NewClassTable(cfg.Classes),
		threshold: cfg.Threshold,
		renderAll: cfg.RenderAll,
	}
}

func (a *Adapter) Threshold() float64 {
	return a.threshold
}

// Analyze decodes data, runs the model and returns the PNG-encoded annotated
// frame with the detections whose confidence is at least the threshold.
func (a *Adapter) Analyze(ctx context.Context, data []byte) ([]byte, entity.DetectionSet, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return nil, nil, err
	}

	predictions, err := a.model.Predict(ctx, Frame{Image: img, Encoded: data})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrDetectionFailure, err)
	}

	detections := make(entity.DetectionSet, 0, len(predictions))
	boxes := make([]imaging.Box, 0, len(predictions))

	for _, p := range predictions {
		label, err := a.classes.Label(p.ClassID)
		if err != nil {
			return nil, nil, err
		}

		kept := p.Confidence >= a.threshold
		if kept {
			box := p.Box
			detections = append(detections, entity.Detection{
				Label:      label,
				Confidence: Round2(p.Confidence),
				Box:        &box,
			})
		}

		if kept || a.renderAll {
			boxes = append(boxes, imaging.Box{
				Label:      label,
				Confidence: p.Confidence,
				Rect:       toRect(p.Box, img.Bounds().Min),
			})
		}
	}

	rendered, err := imaging.EncodePNG(imaging.Render(img, boxes))
	if err != nil {
		return nil, nil, err
	}

	return rendered, detections, nil
}

// Round2 rounds the exact binary value of v to two decimals, ties to even.
// Scaling by 100 first would push values like 0.615 over the tie.
func Round2(v float64) float64 {
	r, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return r
}

// toRect maps frame-relative pixel coordinates onto the decoded buffer.
func toRect(b entity.BoundingBox, origin image.Point) image.Rectangle {
	return image.Rect(
		int(math.Round(b.X1)), int(math.Round(b.Y1)),
		int(math.Round(b.X2)), int(math.Round(b.Y2)),
	).Add(origin)
}
