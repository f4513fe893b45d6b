package engine

import (
	"fmt"

	"los-backend/internal/domain/application"
	"los-backend/internal/domain/verification"
)

type DisbursementMethod string

const (
	DisburseNEFT DisbursementMethod = "NEFT"
	DisburseRTGS DisbursementMethod = "RTGS"
	DisburseIMPS DisbursementMethod = "IMPS"
	DisburseUPI  DisbursementMethod = "UPI"
)

func ValidDisbursementMethod(m DisbursementMethod) bool {
	switch m {
	case DisburseNEFT, DisburseRTGS, DisburseIMPS, DisburseUPI:
		return true
	}
	return false
}

type FundingInput struct {
	App            *application.Application
	ApprovedAmount float64
	Method         DisbursementMethod
	Bank           *verification.BankReport
	// reference for the disbursement instruction, supplied by the caller so
	// the engine stays deterministic
	Reference string
}

type FundingResult struct {
	Phase           application.Phase  `json:"phase"`
	Funded          bool               `json:"funded"`
	Method          DisbursementMethod `json:"disbursement_method"`
	DisbursedAmount float64            `json:"disbursed_amount"`
	Reference       string             `json:"disbursement_reference"`
	FailedStep      string             `json:"failed_step,omitempty"`
	Message         string             `json:"message"`
}

// Fund runs the three funding steps in order: loan account setup, agreement
// finalization, disbursement. The first failing step fails the phase and is
// named in the result.
func Fund(in FundingInput) FundingResult {
	res := FundingResult{Phase: application.PhaseLoanFunding, Method: in.Method}
	if res.Method == "" {
		res.Method = DisburseNEFT
	}

	// account setup needs verified banking details
	if in.Bank == nil || in.Bank.BankingScore <= 0 {
		res.FailedStep = "account_setup"
		res.Message = "loan account setup failed: banking details not verified"
		return res
	}

	// agreement finalization needs a positive approved amount to put on paper
	if in.ApprovedAmount <= 0 {
		res.FailedStep = "agreement_finalization"
		res.Message = "agreement finalization failed: no approved amount"
		return res
	}

	if !ValidDisbursementMethod(res.Method) {
		res.FailedStep = "disbursement"
		res.Message = fmt.Sprintf("disbursement failed: unsupported method %q", in.Method)
		return res
	}

	res.Funded = true
	res.DisbursedAmount = in.ApprovedAmount
	res.Reference = in.Reference
	res.Message = fmt.Sprintf("loan funded via %s", res.Method)
	return res
}
