package entity

import "time"

type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Prediction is one raw output row of the detection model, before the
// class index is resolved and before any threshold is applied.
type Prediction struct {
	ClassID    int         `json:"class_id"`
	Confidence float64     `json:"confidence"`
	Box        BoundingBox `json:"box"`
}

type Detection struct {
	Label      string       `json:"label"`
	Confidence float64      `json:"confidence"`
	Box        *BoundingBox `json:"box,omitempty"`
}

// DetectionSet keeps the model's native output order. Repeated labels are
// meaningful (one entry per detected object).
type DetectionSet []Detection

func (s DetectionSet) Labels() []string {
	labels := make([]string, 0, len(s))
	for _, d := range s {
		labels = append(labels, d.Label)
	}
	return labels
}

func (s DetectionSet) Confidences() []float64 {
	confidences := make([]float64, 0, len(s))
	for _, d := range s {
		confidences = append(confidences, d.Confidence)
	}
	return confidences
}

type StoredAnalysis struct {
	ID            int
	RenderedImage []byte
	Detections    DetectionSet
	CreatedAt     time.Time
}
