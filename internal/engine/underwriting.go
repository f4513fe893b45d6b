package engine

import (
	"fmt"

	"los-backend/internal/domain/application"
	"los-backend/internal/domain/verification"
)

// Underwriting decision thresholds on the composite score.
const (
	uwApproveBestTerms = 85
	uwApproveStandard  = 75
	uwConditional      = 65
)

// RiskSubScores are 0..100 each, higher meaning riskier.
type RiskSubScores struct {
	Credit     float64 `json:"credit"`
	Income     float64 `json:"income"`
	Employment float64 `json:"employment"`
	Behavioral float64 `json:"behavioral"`
	External   float64 `json:"external"`
}

// Overall aggregates the five sub-scores with fixed weights.
func (s RiskSubScores) Overall() float64 {
	return s.Credit*0.30 + s.Income*0.25 + s.Employment*0.20 + s.Behavioral*0.15 + s.External*0.10
}

// Collateral is optional; its absence means nothing is pledged and nothing is
// at risk: LTV 0, collateral score 100.
type Collateral struct {
	Value float64 `json:"value"`
}

type UnderwritingInput struct {
	App        *application.Application
	Bureau     verification.BureauReport
	Bank       verification.BankReport
	Collateral *Collateral
	// PolicyComplianceScore is 100 when the rule engine passed, degraded per
	// violation otherwise.
	PolicyComplianceScore float64
}

type UnderwritingResult struct {
	Phase             application.Phase `json:"phase"`
	Decision          Decision          `json:"decision"`
	UnderwritingScore float64           `json:"underwriting_score"`
	RiskScore         float64           `json:"overall_risk_score"`
	RiskCategory      RiskCategory      `json:"risk_category"`
	CreditScore       float64           `json:"credit_analysis_score"`
	CollateralScore   float64           `json:"collateral_score"`
	CollateralLTV     float64           `json:"collateral_ltv"`
	Conditions        []string          `json:"conditions,omitempty"`
	Factors           DecisionFactors   `json:"decision_factors"`
	Message           string            `json:"message"`
}

// DeriveRiskSubScores maps applicant and verification data onto the five risk
// axes. Each axis is 0..100, higher riskier.
func DeriveRiskSubScores(app *application.Application, bureau verification.BureauReport, bank verification.BankReport) RiskSubScores {
	var s RiskSubScores

	// credit: distance from the top of the 300..900 bureau band
	s.Credit = clampScore((900 - bureau.CIBILScore) / 600 * 100)

	// income: obligations against verified income
	income := bank.VerifiedIncome
	if income <= 0 {
		income = app.MonthlyIncome
	}
	if income <= 0 {
		s.Income = 100
	} else {
		s.Income = clampScore(app.ExistingEMI / income * 200)
	}

	// employment: tenure and employment type
	switch {
	case app.WorkExperienceYears >= 5:
		s.Employment = 15
	case app.WorkExperienceYears >= 2:
		s.Employment = 35
	default:
		s.Employment = 60
	}
	if app.EmploymentType == "self_employed" {
		s.Employment = clampScore(s.Employment + 15)
	}

	// behavioral: bounces and revolving utilization
	s.Behavioral = clampScore(float64(bank.BounceCountLast12Mo)*20 + bureau.UtilizationRatio*50)

	// external: baseline market factor, slightly higher for unsecured purposes
	s.External = 20
	if app.LoanType == "personal" || app.LoanType == "business" {
		s.External = 30
	}
	return s
}

// CreditAnalysisScore grades the bureau report 0..100, higher better.
func CreditAnalysisScore(bureau verification.BureauReport) float64 {
	score := clampScore((bureau.CIBILScore - 300) / 600 * 70)
	switch {
	case bureau.HistoryMonths >= 60:
		score += 20
	case bureau.HistoryMonths >= 24:
		score += 12
	case bureau.HistoryMonths >= 12:
		score += 6
	}
	if bureau.UtilizationRatio <= 0.30 {
		score += 10
	} else if bureau.UtilizationRatio <= 0.60 {
		score += 5
	}
	return clampScore(score)
}

// collateralScore maps LTV onto 0..100; no collateral scores full marks.
func collateralScore(ltv float64) float64 {
	switch {
	case ltv <= 0:
		return 100
	case ltv <= 0.5:
		return 100
	case ltv <= 0.7:
		return 85
	case ltv <= 0.8:
		return 70
	case ltv <= 0.9:
		return 50
	default:
		return 30
	}
}

// Underwrite combines risk, credit analysis, policy compliance and collateral
// into the composite underwriting score:
//
//	0.35*(100-risk) + 0.35*credit + 0.20*policy + 0.10*collateral
//
// The risk contribution is inverted since lower risk is better. A high or
// critical risk category downgrades an otherwise approved decision to
// conditional approval.
func Underwrite(in UnderwritingInput) UnderwritingResult {
	res := UnderwritingResult{Phase: application.PhaseUnderwriting}

	sub := DeriveRiskSubScores(in.App, in.Bureau, in.Bank)
	res.RiskScore = sub.Overall()
	res.RiskCategory = RiskCategoryFor(res.RiskScore)

	res.CreditScore = CreditAnalysisScore(in.Bureau)

	if in.Collateral != nil && in.Collateral.Value > 0 {
		res.CollateralLTV = in.App.LoanAmount / in.Collateral.Value
	}
	res.CollateralScore = collateralScore(res.CollateralLTV)

	res.UnderwritingScore = 0.35*(100-res.RiskScore) +
		0.35*res.CreditScore +
		0.20*in.PolicyComplianceScore +
		0.10*res.CollateralScore

	switch {
	case res.UnderwritingScore >= uwApproveBestTerms:
		res.Decision = DecisionApproved
		res.Message = "approved on best terms"
	case res.UnderwritingScore >= uwApproveStandard:
		res.Decision = DecisionApproved
		res.Message = "approved on standard terms"
	case res.UnderwritingScore >= uwConditional:
		res.Decision = DecisionConditional
		res.Conditions = append(res.Conditions, "additional income documentation required")
		res.Message = "conditional approval"
	default:
		res.Decision = DecisionRejected
		res.Message = fmt.Sprintf("underwriting score %.1f below threshold %d", res.UnderwritingScore, uwConditional)
	}

	if res.Decision == DecisionApproved && (res.RiskCategory == RiskHigh || res.RiskCategory == RiskCritical) {
		res.Decision = DecisionConditional
		res.Conditions = append(res.Conditions, fmt.Sprintf("%s risk category requires guarantor or additional collateral", res.RiskCategory))
		res.Message = "downgraded to conditional approval on risk category"
	}

	res.Factors = DecisionFactors{
		CreditScore:     in.Bureau.CIBILScore,
		RiskCategory:    res.RiskCategory,
		CollateralLTV:   res.CollateralLTV,
		PolicyCompliant: in.PolicyComplianceScore >= 100,
	}
	return res
}

func clampScore(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 100 {
		return 100
	}
	return f
}
