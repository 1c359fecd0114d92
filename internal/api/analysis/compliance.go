package analysis

import "SiteGuard/internal/entity"

const (
	LabelHardhat    = "Hardhat"
	LabelPerson     = "Person"
	LabelSafetyVest = "Safety Vest"

	approveThreshold = 90.0
	inspectThreshold = 70.0
)

func isComplianceCategory(label string) bool {
	switch label {
	case LabelHardhat, LabelPerson, LabelSafetyVest:
		return true
	default:
		return false
	}
}

// Score restricts detections to the PPE categories and grades the share of
// people wearing a hardhat and a vest. Percentages are not capped, so more
// hardhats than people yields more than 100.
func Score(detections entity.DetectionSet) entity.ComplianceResult {
	result := entity.ComplianceResult{
		FilteredLabels:      make([]string, 0, len(detections)),
		FilteredConfidences: make([]float64, 0, len(detections)),
	}

	var persons, hardhats, vests int
	for _, d := range detections {
		if !isComplianceCategory(d.Label) {
			continue
		}
		result.FilteredLabels = append(result.FilteredLabels, d.Label)
		result.FilteredConfidences = append(result.FilteredConfidences, d.Confidence)

		switch d.Label {
		case LabelPerson:
			persons++
		case LabelHardhat:
			hardhats++
		case LabelSafetyVest:
			vests++
		}
	}

	if persons == 0 {
		result.Recommendation = entity.RecommendationInvalid
		result.Percentage = 0
		return result
	}

	hardhatPct := 100 * float64(hardhats) / float64(persons)
	vestPct := 100 * float64(vests) / float64(persons)
	result.Percentage = (hardhatPct + vestPct) / 2
	result.Recommendation = recommend(result.Percentage)

	return result
}

// Anything under the inspect band is rejected; there is no separate
// outcome for the 50-70 range.
func recommend(percentage float64) entity.Recommendation {
	switch {
	case percentage >= approveThreshold:
		return entity.RecommendationApprove
	case percentage >= inspectThreshold:
		return entity.RecommendationInspect
	default:
		return entity.RecommendationReject
	}
}
