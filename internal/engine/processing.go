package engine

import (
	"fmt"

	"los-backend/internal/domain/application"
	"los-backend/internal/domain/verification"
)

const processingApproveScore = 70

type ProcessingInput struct {
	App      *application.Application
	Identity verification.IdentityResult
	Bureau   verification.BureauReport
	Bank     verification.BankReport
	// Document set submitted with the loan application.
	DocumentsComplete bool
}

type ProcessingResult struct {
	Phase             application.Phase `json:"phase"`
	Decision          Decision          `json:"decision"`
	VerificationScore float64           `json:"verification_score"`
	IncomeMatched     bool              `json:"income_matched"`
	Message           string            `json:"message"`
}

// ProcessApplication consolidates the collaborator verification results into
// a single verification score and an approve/reject outcome.
//
// Weights: identity 20, bureau credit 40, banking conduct 25, income match 15.
func ProcessApplication(in ProcessingInput) ProcessingResult {
	res := ProcessingResult{Phase: application.PhaseApplicationProcessing}

	if !in.DocumentsComplete {
		res.Decision = DecisionRejected
		res.Message = "required documents incomplete"
		return res
	}
	if !in.Identity.Verified {
		res.Decision = DecisionRejected
		res.Message = "identity verification failed"
		return res
	}

	score := 20.0
	if in.Bureau.CIBILScore > 0 {
		frac := (in.Bureau.CIBILScore - 300) / 600
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		score += frac * 40
	}
	if in.Bank.BankingScore > 0 {
		score += in.Bank.BankingScore / 100 * 25
	}

	// declared income is trusted only when bank statements corroborate >=90%
	res.IncomeMatched = in.App.MonthlyIncome > 0 &&
		in.Bank.VerifiedIncome >= in.App.MonthlyIncome*0.9
	if res.IncomeMatched {
		score += 15
	}
	res.VerificationScore = score

	if score < processingApproveScore {
		res.Decision = DecisionRejected
		res.Message = fmt.Sprintf("verification score %.1f below threshold %d", score, processingApproveScore)
		return res
	}

	res.Decision = DecisionApproved
	res.Message = "application processing completed"
	return res
}
