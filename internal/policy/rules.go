package policy

import "fmt"

// MaxDTIRatio is the hard ceiling on (existing + proposed EMI) / income.
const MaxDTIRatio = 0.60

const (
	MinApplicantAge = 21
	MaxApplicantAge = 65
)

type limits struct {
	minCreditScore   float64
	minMonthlyIncome float64
	incomeMultiplier float64 // max loan amount = monthly income x this
}

var loanTypeLimits = map[string]limits{
	"personal":  {minCreditScore: 650, minMonthlyIncome: 25000, incomeMultiplier: 60},
	"home":      {minCreditScore: 700, minMonthlyIncome: 40000, incomeMultiplier: 120},
	"education": {minCreditScore: 600, minMonthlyIncome: 20000, incomeMultiplier: 72},
	"business":  {minCreditScore: 700, minMonthlyIncome: 35000, incomeMultiplier: 96},
	"auto":      {minCreditScore: 650, minMonthlyIncome: 30000, incomeMultiplier: 72},
}

type Profile struct {
	Age           int
	CreditScore   float64
	MonthlyIncome float64
	ExistingEMI   float64
	ProposedEMI   float64
	LoanType      string
	LoanAmount    float64
}

// CheckResult is transient: embedded into whichever decision consumed it,
// never persisted on its own.
type CheckResult struct {
	Passed  bool     `json:"passed"`
	Reasons []string `json:"reasons,omitempty"`
}

type Engine struct{}

func NewEngine() *Engine { return &Engine{} }

// Evaluate runs every rule and collects every violation; there is no
// short-circuit so a rejection names all the reasons at once.
func (e *Engine) Evaluate(p Profile) CheckResult {
	lim, ok := loanTypeLimits[p.LoanType]
	if !ok {
		lim = loanTypeLimits["personal"]
	}

	var reasons []string

	if p.CreditScore < lim.minCreditScore {
		reasons = append(reasons, fmt.Sprintf(
			"credit score %.0f below minimum %.0f for %s loans", p.CreditScore, lim.minCreditScore, p.LoanType))
	}

	dti := e.DTIRatio(p)
	if dti > MaxDTIRatio {
		reasons = append(reasons, fmt.Sprintf(
			"debt-to-income ratio %.1f%% exceeds maximum %.0f%%", dti*100, MaxDTIRatio*100))
	}

	minIncome := lim.minMonthlyIncome
	switch {
	case p.LoanAmount > 1_000_000:
		minIncome *= 1.5
	case p.LoanAmount > 500_000:
		minIncome *= 1.2
	}
	if p.MonthlyIncome < minIncome {
		reasons = append(reasons, fmt.Sprintf(
			"monthly income %.0f below minimum %.0f required for amount %.0f", p.MonthlyIncome, minIncome, p.LoanAmount))
	}

	if p.Age < MinApplicantAge || p.Age > MaxApplicantAge {
		reasons = append(reasons, fmt.Sprintf(
			"applicant age %d outside allowed range %d-%d", p.Age, MinApplicantAge, MaxApplicantAge))
	}

	maxAmount := p.MonthlyIncome * lim.incomeMultiplier
	if p.LoanAmount > maxAmount {
		reasons = append(reasons, fmt.Sprintf(
			"loan amount %.0f exceeds maximum %.0f (%.0fx monthly income)", p.LoanAmount, maxAmount, lim.incomeMultiplier))
	}

	return CheckResult{Passed: len(reasons) == 0, Reasons: reasons}
}

// DTIRatio returns (existing + proposed EMI) / monthly income; an absent
// income counts as fully indebted.
func (e *Engine) DTIRatio(p Profile) float64 {
	if p.MonthlyIncome <= 0 {
		return 1
	}
	return (p.ExistingEMI + p.ProposedEMI) / p.MonthlyIncome
}
