package engine

import (
	"fmt"

	"los-backend/internal/domain/application"
	"los-backend/internal/policy"
	"los-backend/internal/scoring"
)

const highRiskTenureCapMonths = 60

// ManualOverride carries reviewer input for an application parked in
// requires_review. override reason is mandatory whenever a manual decision is
// supplied, and a manual decision is mandatory whenever a manual amount is.
type ManualOverride struct {
	Decision       Decision `json:"manual_decision"`
	ApprovedAmount float64  `json:"manual_approved_amount"`
	Reason         string   `json:"override_reason"`
}

func (m *ManualOverride) Validate() error {
	if m == nil {
		return nil
	}
	if m.ApprovedAmount != 0 && m.Decision == "" {
		return fmt.Errorf("%w: manual_decision is required when manual_approved_amount is supplied", application.ErrValidation)
	}
	if m.Decision != "" && m.Reason == "" {
		return fmt.Errorf("%w: override_reason is required when manual_decision is supplied", application.ErrValidation)
	}
	switch m.Decision {
	case "", DecisionApproved, DecisionConditional, DecisionRejected:
	default:
		return fmt.Errorf("%w: unknown manual_decision %q", application.ErrValidation, m.Decision)
	}
	return nil
}

type CreditDecisionInput struct {
	App          *application.Application
	Underwriting UnderwritingResult
	Policy       policy.CheckResult
	DTIRatio     float64

	ManualReviewRequired bool
	Manual               *ManualOverride
}

type CreditDecisionResult struct {
	Phase          application.Phase `json:"phase"`
	FinalDecision  Decision          `json:"final_decision"`
	ApprovedAmount float64           `json:"approved_amount"`
	InterestRate   float64           `json:"interest_rate"`
	TenureMonths   int               `json:"tenure_months"`
	EMI            int64             `json:"emi"`
	Conditions     []string          `json:"conditions,omitempty"`
	PolicyReasons  []string          `json:"policy_reasons,omitempty"`
	ValidityDays   int               `json:"validity_days"`
	OverrideReason string            `json:"override_reason,omitempty"`
	Factors        DecisionFactors   `json:"decision_factors"`
	Summary        ProcessingSummary `json:"processing_summary"`
	Message        string            `json:"message"`
}

// DecideCredit finalizes terms starting from the underwriting recommendation.
// Any policy violation forces rejection with amount zero regardless of the
// upstream recommendation. A manual override, once validated, replaces the
// automated outcome.
func DecideCredit(in CreditDecisionInput) (CreditDecisionResult, error) {
	if err := in.Manual.Validate(); err != nil {
		return CreditDecisionResult{}, err
	}

	res := CreditDecisionResult{
		Phase:         application.PhaseCreditDecision,
		FinalDecision: in.Underwriting.Decision,
		Conditions:    append([]string(nil), in.Underwriting.Conditions...),
	}

	res.TenureMonths = in.App.TenureMonths
	if in.Underwriting.RiskCategory == RiskHigh && res.TenureMonths > highRiskTenureCapMonths {
		res.TenureMonths = highRiskTenureCapMonths
		res.Conditions = append(res.Conditions, fmt.Sprintf("tenure capped at %d months for high risk", highRiskTenureCapMonths))
	}

	res.InterestRate = scoring.InterestRate(
		in.Underwriting.UnderwritingScore,
		in.Underwriting.Factors.CreditScore,
		string(in.Underwriting.RiskCategory),
		in.App.LoanType,
	)

	if res.FinalDecision != DecisionRejected {
		res.ApprovedAmount = in.App.LoanAmount
	}

	// policy veto overrides any softer upstream recommendation
	res.PolicyReasons = in.Policy.Reasons
	if !in.Policy.Passed {
		res.FinalDecision = DecisionRejected
		res.ApprovedAmount = 0
		res.Message = "rejected on policy violations"
	}

	if in.ManualReviewRequired && in.Manual != nil && in.Manual.Decision != "" {
		res.FinalDecision = in.Manual.Decision
		res.OverrideReason = in.Manual.Reason
		res.Summary.Overridden = true
		if in.Manual.ApprovedAmount > 0 {
			res.ApprovedAmount = in.Manual.ApprovedAmount
		} else if res.FinalDecision == DecisionRejected {
			res.ApprovedAmount = 0
		}
		res.Message = "manual decision applied"
	}

	switch res.FinalDecision {
	case DecisionApproved, DecisionConditional:
		res.EMI = scoring.EMI(res.ApprovedAmount, res.TenureMonths, res.InterestRate)
		if res.FinalDecision == DecisionApproved && in.Underwriting.RiskCategory == RiskLow {
			res.ValidityDays = 45
		} else {
			res.ValidityDays = 30
		}
		if res.Message == "" {
			res.Message = "credit decision approved"
		}
	default:
		res.FinalDecision = DecisionRejected
		res.ApprovedAmount = 0
		res.EMI = 0
		res.ValidityDays = 0
		if res.Message == "" {
			res.Message = "credit decision rejected"
		}
	}

	res.Factors = in.Underwriting.Factors
	res.Factors.DTIRatio = in.DTIRatio
	res.Factors.PolicyCompliant = in.Policy.Passed
	res.Summary.Automated = !res.Summary.Overridden
	res.Summary.ConditionCount = len(res.Conditions)
	return res, nil
}
