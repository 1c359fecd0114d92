//go:build gocv

// Package yolo runs a YOLOv8 ONNX export in-process through OpenCV's DNN
// module. Build with -tags gocv on hosts that have OpenCV installed.
package yolo

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"SiteGuard/internal/entity"
	"SiteGuard/pkg/detector"

	"gocv.io/x/gocv"
)

type Config struct {
	ModelPath string
	// CandidateThresh is the floor for raw candidates. It sits below the
	// service threshold so sub-threshold boxes still reach the renderer.
	CandidateThresh float32
	NMSThresh       float32
	InputWidth      int
	InputHeight     int
	NumClasses      int
}

func DefaultConfig(numClasses int) Config {
	path := os.Getenv("MODEL_PATH")
	if path == "" {
		path = "weights/best.onnx"
	}

	return Config{
		ModelPath:       path,
		CandidateThresh: 0.25,
		NMSThresh:       0.45,
		InputWidth:      640,
		InputHeight:     640,
		NumClasses:      numClasses,
	}
}

type Detector struct {
	net       gocv.Net
	config    Config
	mu        sync.Mutex
	inputSize image.Point
}

var _ detector.Model = (*Detector)(nil)

func New(cfg Config) (*Detector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Detector{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Predict returns NMS-filtered candidates in pixel coordinates of the
// original frame, ordered by descending confidence.
func (d *Detector) Predict(ctx context.Context, frame detector.Frame) ([]entity.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	img, err := gocv.IMDecode(frame.Encoded, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	return d.parseOutput(output, float32(img.Cols()), float32(img.Rows()))
}

// parseOutput reads a [1, 4+nc, N] tensor: rows 0-3 are cx, cy, w, h in
// input-space pixels, the rest are per-class scores.
func (d *Detector) parseOutput(output gocv.Mat, imgW, imgH float32) ([]entity.Prediction, error) {
	sizes := output.Size()
	if len(sizes) != 3 || sizes[1] != 4+d.config.NumClasses {
		return nil, fmt.Errorf("unexpected output shape %v for %d classes", sizes, d.config.NumClasses)
	}
	attrs, candidates := sizes[1], sizes[2]

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output tensor: %w", err)
	}

	scaleX := imgW / float32(d.config.InputWidth)
	scaleY := imgH / float32(d.config.InputHeight)

	var (
		boxes       []image.Rectangle
		confidences []float32
		classIDs    []int
	)

	for i := 0; i < candidates; i++ {
		best, bestClass := float32(0), 0
		for c := 4; c < attrs; c++ {
			if score := data[c*candidates+i]; score > best {
				best, bestClass = score, c-4
			}
		}
		if best < d.config.CandidateThresh {
			continue
		}

		cx, cy := data[i], data[candidates+i]
		w, h := data[2*candidates+i], data[3*candidates+i]

		boxes = append(boxes, image.Rect(
			int((cx-w/2)*scaleX), int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX), int((cy+h/2)*scaleY),
		))
		confidences = append(confidences, best)
		classIDs = append(classIDs, bestClass)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	indices := gocv.NMSBoxes(boxes, confidences, d.config.CandidateThresh, d.config.NMSThresh)

	predictions := make([]entity.Prediction, 0, len(indices))
	for _, idx := range indices {
		b := boxes[idx]
		predictions = append(predictions, entity.Prediction{
			ClassID:    classIDs[idx],
			Confidence: float64(confidences[idx]),
			Box: entity.BoundingBox{
				X1: float64(b.Min.X), Y1: float64(b.Min.Y),
				X2: float64(b.Max.X), Y2: float64(b.Max.Y),
			},
		})
	}

	return predictions, nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
