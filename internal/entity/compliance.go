package entity

type Recommendation string

const (
	RecommendationApprove Recommendation = "Approve"
	RecommendationInspect Recommendation = "Inspect"
	RecommendationReject  Recommendation = "Reject"
	RecommendationInvalid Recommendation = "Invalid"
)

type ComplianceResult struct {
	FilteredLabels      []string       `json:"filtered_labels"`
	FilteredConfidences []float64      `json:"filtered_confidences"`
	Recommendation      Recommendation `json:"recommendation"`
	Percentage          float64        `json:"percentage"`
}
