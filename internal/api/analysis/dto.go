package analysis

import "SiteGuard/internal/entity"

type AnalysisResponse struct {
	ID          int       `json:"id"`
	Labels      []string  `json:"labels"`
	Confidences []float64 `json:"confidences"`
}

type FilteredAnalysisResponse struct {
	ID                  int                   `json:"id"`
	FilteredLabels      []string              `json:"filtered_labels"`
	FilteredConfidences []float64             `json:"filtered_confidences"`
	Recommendation      entity.Recommendation `json:"recommendation"`
	Percentage          float64               `json:"percentage"`
}

type AnalysisIDRequest struct {
	ID int `params:"id"`
}

type StreamError struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}
