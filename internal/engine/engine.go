package engine

// Shared vocabulary for the per-phase decision engines. Each engine is a pure
// transformation from application data + upstream results to a phase-specific
// result; persistence and sequencing belong to the workflow usecase.

type Decision string

const (
	DecisionApproved    Decision = "approved"
	DecisionConditional Decision = "conditional_approval"
	DecisionRejected    Decision = "rejected"
)

type RiskCategory string

const (
	RiskLow      RiskCategory = "low"
	RiskMedium   RiskCategory = "medium"
	RiskHigh     RiskCategory = "high"
	RiskCritical RiskCategory = "critical"
)

// RiskCategoryFor maps an overall risk score (lower is better) to a category.
func RiskCategoryFor(score float64) RiskCategory {
	switch {
	case score <= 25:
		return RiskLow
	case score <= 45:
		return RiskMedium
	case score <= 65:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// DecisionFactors is carried by underwriting and credit-decision results.
type DecisionFactors struct {
	CreditScore      float64      `json:"credit_score"`
	DTIRatio         float64      `json:"dti_ratio"`
	RiskCategory     RiskCategory `json:"risk_category"`
	CollateralLTV    float64      `json:"collateral_ltv"`
	PolicyCompliant  bool         `json:"policy_compliant"`
}

type ProcessingSummary struct {
	ElapsedMS      int64 `json:"elapsed_ms"`
	Automated      bool  `json:"automated"`
	Overridden     bool  `json:"overridden"`
	ConditionCount int   `json:"condition_count"`
}
