package engine

import (
	"fmt"

	"los-backend/internal/domain/application"
	"los-backend/internal/domain/verification"
	"los-backend/internal/scoring"
)

const (
	preQualApproveScore = 60
	// estimated offer cap relative to declared income
	preQualIncomeMultiple = 40
)

type PreQualificationInput struct {
	App            *application.Application
	Identity       verification.IdentityResult
	CreditEstimate float64
}

type PreQualificationResult struct {
	Phase            application.Phase `json:"phase"`
	Decision         Decision          `json:"decision"`
	EligibilityScore float64           `json:"eligibility_score"`
	EstimatedAmount  float64           `json:"estimated_loan_amount"`
	Message          string            `json:"message"`
}

// PreQualify screens the applicant on identity and basic financial signals.
// Outcome is approved or rejected; nothing later in the workflow is consulted.
func PreQualify(in PreQualificationInput, age int) PreQualificationResult {
	res := PreQualificationResult{Phase: application.PhasePreQualification}

	if !in.Identity.Verified {
		res.Decision = DecisionRejected
		res.Message = "identity verification failed"
		return res
	}

	res.EligibilityScore = scoring.EligibilityScore(scoring.EligibilityInput{
		Age:             age,
		CreditEstimate:  in.CreditEstimate,
		MonthlyIncome:   in.App.MonthlyIncome,
		RequestedAmount: in.App.LoanAmount,
	})

	if res.EligibilityScore < preQualApproveScore {
		res.Decision = DecisionRejected
		res.Message = fmt.Sprintf("eligibility score %.1f below threshold %d", res.EligibilityScore, preQualApproveScore)
		return res
	}

	res.Decision = DecisionApproved
	res.EstimatedAmount = in.App.LoanAmount
	if cap := in.App.MonthlyIncome * preQualIncomeMultiple; res.EstimatedAmount > cap {
		res.EstimatedAmount = cap
	}
	res.Message = "pre-qualification approved"
	return res
}
