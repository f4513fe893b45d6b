package engine

import (
	"errors"
	"strings"
	"testing"

	"los-backend/internal/domain/application"
	"los-backend/internal/policy"
)

func creditApp() *application.Application {
	return &application.Application{
		LoanAmount:    500000,
		TenureMonths:  36,
		LoanType:      "personal",
		MonthlyIncome: 80000,
	}
}

func approvedUnderwriting() UnderwritingResult {
	return UnderwritingResult{
		Decision:          DecisionApproved,
		UnderwritingScore: 88,
		RiskCategory:      RiskLow,
		Factors:           DecisionFactors{CreditScore: 780, RiskCategory: RiskLow, PolicyCompliant: true},
	}
}

func TestDecideCredit_Approved(t *testing.T) {
	res, err := DecideCredit(CreditDecisionInput{
		App:          creditApp(),
		Underwriting: approvedUnderwriting(),
		Policy:       policy.CheckResult{Passed: true},
		DTIRatio:     0.2,
	})
	if err != nil {
		t.Fatalf("DecideCredit: %v", err)
	}
	if res.FinalDecision != DecisionApproved {
		t.Fatalf("decision = %s, want approved", res.FinalDecision)
	}
	if res.ApprovedAmount != 500000 {
		t.Fatalf("amount = %.0f, want 500000", res.ApprovedAmount)
	}
	// personal 12.0 - 1.5 (credit 780) - 0.5 (uw 88) - 0.5 (low risk)
	if res.InterestRate != 9.5 {
		t.Fatalf("rate = %.2f, want 9.50", res.InterestRate)
	}
	if res.EMI <= 0 {
		t.Fatalf("EMI = %d, want > 0", res.EMI)
	}
	if res.ValidityDays != 45 {
		t.Fatalf("validity = %d, want 45 for approved low risk", res.ValidityDays)
	}
	if res.Factors.DTIRatio != 0.2 {
		t.Fatalf("factors DTI = %v, want 0.2", res.Factors.DTIRatio)
	}
	if !res.Summary.Automated || res.Summary.Overridden {
		t.Fatalf("summary = %+v, want automated", res.Summary)
	}
}

// Any policy violation forces rejection regardless of the underwriting
// recommendation.
func TestDecideCredit_PolicyVeto(t *testing.T) {
	res, err := DecideCredit(CreditDecisionInput{
		App:          creditApp(),
		Underwriting: approvedUnderwriting(),
		Policy:       policy.CheckResult{Passed: false, Reasons: []string{"debt-to-income ratio 65.0% exceeds maximum 60%"}},
		DTIRatio:     0.65,
	})
	if err != nil {
		t.Fatalf("DecideCredit: %v", err)
	}
	if res.FinalDecision != DecisionRejected {
		t.Fatalf("decision = %s, want rejected", res.FinalDecision)
	}
	if res.ApprovedAmount != 0 || res.EMI != 0 || res.ValidityDays != 0 {
		t.Fatalf("rejection must zero the terms: %+v", res)
	}
	if len(res.PolicyReasons) != 1 {
		t.Fatalf("policy reasons = %v", res.PolicyReasons)
	}
	if res.Factors.PolicyCompliant {
		t.Fatal("factors should record the policy failure")
	}
}

func TestDecideCredit_HighRiskTenureCap(t *testing.T) {
	app := creditApp()
	app.TenureMonths = 84
	uw := approvedUnderwriting()
	uw.RiskCategory = RiskHigh
	uw.Decision = DecisionConditional

	res, err := DecideCredit(CreditDecisionInput{
		App:          app,
		Underwriting: uw,
		Policy:       policy.CheckResult{Passed: true},
	})
	if err != nil {
		t.Fatalf("DecideCredit: %v", err)
	}
	if res.TenureMonths != 60 {
		t.Fatalf("tenure = %d, want capped at 60", res.TenureMonths)
	}
	found := false
	for _, c := range res.Conditions {
		if strings.Contains(c, "tenure capped at 60 months") {
			found = true
		}
	}
	if !found {
		t.Fatalf("missing cap condition in %v", res.Conditions)
	}
	// conditional approval of non-low risk keeps the shorter validity
	if res.ValidityDays != 30 {
		t.Fatalf("validity = %d, want 30", res.ValidityDays)
	}
}

func TestDecideCredit_ManualOverride(t *testing.T) {
	res, err := DecideCredit(CreditDecisionInput{
		App:                  creditApp(),
		Underwriting:         approvedUnderwriting(),
		Policy:               policy.CheckResult{Passed: true},
		ManualReviewRequired: true,
		Manual: &ManualOverride{
			Decision:       DecisionRejected,
			Reason:         "income documents inconsistent",
			ApprovedAmount: 0,
		},
	})
	if err != nil {
		t.Fatalf("DecideCredit: %v", err)
	}
	if res.FinalDecision != DecisionRejected {
		t.Fatalf("decision = %s, want manual rejection", res.FinalDecision)
	}
	if res.ApprovedAmount != 0 {
		t.Fatalf("amount = %.0f, want 0", res.ApprovedAmount)
	}
	if !res.Summary.Overridden || res.Summary.Automated {
		t.Fatalf("summary = %+v, want overridden", res.Summary)
	}
	if res.OverrideReason == "" {
		t.Fatal("override reason not carried")
	}
}

func TestDecideCredit_ManualAmountReplacesAutomated(t *testing.T) {
	res, err := DecideCredit(CreditDecisionInput{
		App:                  creditApp(),
		Underwriting:         approvedUnderwriting(),
		Policy:               policy.CheckResult{Passed: true},
		ManualReviewRequired: true,
		Manual: &ManualOverride{
			Decision:       DecisionConditional,
			ApprovedAmount: 300000,
			Reason:         "partial approval pending collateral",
		},
	})
	if err != nil {
		t.Fatalf("DecideCredit: %v", err)
	}
	if res.FinalDecision != DecisionConditional || res.ApprovedAmount != 300000 {
		t.Fatalf("got %s / %.0f, want conditional / 300000", res.FinalDecision, res.ApprovedAmount)
	}
	if res.EMI <= 0 {
		t.Fatal("conditional approval still needs an EMI")
	}
}

func TestManualOverride_Validate(t *testing.T) {
	tests := []struct {
		name    string
		m       *ManualOverride
		wantErr bool
	}{
		{"nil is fine", nil, false},
		{"empty is fine", &ManualOverride{}, false},
		{"decision with reason", &ManualOverride{Decision: DecisionApproved, Reason: "ok"}, false},
		{"decision without reason", &ManualOverride{Decision: DecisionApproved}, true},
		{"amount without decision", &ManualOverride{ApprovedAmount: 100000}, true},
		{"unknown decision", &ManualOverride{Decision: "maybe", Reason: "x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.m.Validate()
			if tt.wantErr {
				if !errors.Is(err, application.ErrValidation) {
					t.Fatalf("want ErrValidation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
		})
	}
}
