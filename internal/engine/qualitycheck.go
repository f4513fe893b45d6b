package engine

import (
	"fmt"

	"los-backend/internal/domain/application"
)

// Quality check passes when the overall score clears 80 and no component
// falls under 70; the grade is informational.
const (
	qcPassOverall   = 80
	qcPassComponent = 70
)

type QualityCheckInput struct {
	DocumentCompleteness float64 // 0..100
	DataAccuracy         float64 // 0..100
	ComplianceAdherence  float64 // 0..100
}

type QualityCheckResult struct {
	Phase        application.Phase `json:"phase"`
	Passed       bool              `json:"passed"`
	OverallScore float64           `json:"overall_score"`
	Grade        string            `json:"grade"`
	Components   QualityCheckInput `json:"components"`
	Failures     []string          `json:"failures,omitempty"`
	Message      string            `json:"message"`
}

func CheckQuality(in QualityCheckInput) QualityCheckResult {
	res := QualityCheckResult{
		Phase:      application.PhaseQualityCheck,
		Components: in,
	}
	res.OverallScore = (in.DocumentCompleteness + in.DataAccuracy + in.ComplianceAdherence) / 3

	components := []struct {
		name  string
		score float64
	}{
		{"document completeness", in.DocumentCompleteness},
		{"data accuracy", in.DataAccuracy},
		{"compliance adherence", in.ComplianceAdherence},
	}
	for _, c := range components {
		if c.score < qcPassComponent {
			res.Failures = append(res.Failures, fmt.Sprintf("%s %.1f below %d", c.name, c.score, qcPassComponent))
		}
	}
	if res.OverallScore < qcPassOverall {
		res.Failures = append(res.Failures, fmt.Sprintf("overall score %.1f below %d", res.OverallScore, qcPassOverall))
	}

	switch {
	case res.OverallScore >= 95:
		res.Grade = "A+"
	case res.OverallScore >= 90:
		res.Grade = "A"
	case res.OverallScore >= 80:
		res.Grade = "B"
	case res.OverallScore >= 70:
		res.Grade = "C"
	default:
		res.Grade = "D"
	}

	res.Passed = len(res.Failures) == 0
	if res.Passed {
		res.Message = fmt.Sprintf("quality check passed with grade %s", res.Grade)
	} else {
		res.Message = "quality check failed"
	}
	return res
}
