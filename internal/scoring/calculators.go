package scoring

import (
	"time"

	"github.com/shopspring/decimal"
)

// Interest rates are clamped to this band regardless of adjustments.
const (
	MinInterestRate = 8.0
	MaxInterestRate = 25.0
)

// baseRates is the per-loan-type starting rate (annual %).
var baseRates = map[string]float64{
	"personal":  12.0,
	"home":      9.5,
	"auto":      11.0,
	"education": 10.5,
	"business":  13.0,
}

const fallbackBaseRate = 14.0

// Age returns whole years between dob and now, accounting for a birthday not
// yet reached this year.
func Age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

type EligibilityInput struct {
	Age             int
	CreditEstimate  float64 // CIBIL-style 300..900
	MonthlyIncome   float64
	RequestedAmount float64
}

// EligibilityScore is a weighted 0..100 combination of basic signals.
// Missing inputs contribute zero to their factor (fail closed) rather than
// erroring out.
func EligibilityScore(in EligibilityInput) float64 {
	var score float64

	// credit estimate: 45 points across the 300..900 band
	if in.CreditEstimate > 0 {
		frac := (in.CreditEstimate - 300) / 600
		score += clamp01(frac) * 45
	}

	// income adequacy: 30 points, saturating at 50k/month
	if in.MonthlyIncome > 0 {
		score += clamp01(in.MonthlyIncome/50000) * 30
	}

	// age band: 15 points inside 21..65, full credit for 25..55
	switch {
	case in.Age >= 25 && in.Age <= 55:
		score += 15
	case in.Age >= 21 && in.Age <= 65:
		score += 10
	}

	// requested amount vs income: 10 points when well inside 60x income
	if in.MonthlyIncome > 0 && in.RequestedAmount > 0 {
		ratio := in.RequestedAmount / (in.MonthlyIncome * 60)
		score += clamp01(1-ratio) * 10
	}

	if score > 100 {
		score = 100
	}
	return score
}

// InterestRate derives the annual rate (%) from the per-loan-type base rate
// plus banded adjustments. Deterministic: same inputs, same rate. Result is
// clamped to [8.0, 25.0] and rounded to 2 decimals.
func InterestRate(underwritingScore, creditScore float64, riskCategory, loanType string) float64 {
	base, ok := baseRates[loanType]
	if !ok {
		base = fallbackBaseRate
	}
	rate := decimal.NewFromFloat(base)

	switch {
	case creditScore >= 750:
		rate = rate.Sub(decimal.NewFromFloat(1.5))
	case creditScore >= 700:
		rate = rate.Sub(decimal.NewFromFloat(1.0))
	case creditScore >= 650:
		rate = rate.Sub(decimal.NewFromFloat(0.5))
	case creditScore < 600:
		rate = rate.Add(decimal.NewFromFloat(2.0))
	}

	switch {
	case underwritingScore >= 50:
		rate = rate.Sub(decimal.NewFromFloat(0.5))
	case underwritingScore >= 20:
		// no adjustment
	case underwritingScore >= 0:
		rate = rate.Add(decimal.NewFromFloat(1.0))
	default:
		rate = rate.Add(decimal.NewFromFloat(2.5))
	}

	switch riskCategory {
	case "low":
		rate = rate.Sub(decimal.NewFromFloat(0.5))
	case "high", "critical":
		rate = rate.Add(decimal.NewFromFloat(1.5))
	}

	min := decimal.NewFromFloat(MinInterestRate)
	max := decimal.NewFromFloat(MaxInterestRate)
	if rate.LessThan(min) {
		rate = min
	}
	if rate.GreaterThan(max) {
		rate = max
	}
	f, _ := rate.Round(2).Float64()
	return f
}

// EMI computes the equated monthly installment, rounded to the nearest
// currency unit: P*r*(1+r)^n / ((1+r)^n - 1) with r the monthly rate.
// A zero rate degenerates to straight-line division P/n.
func EMI(principal float64, tenureMonths int, annualRatePct float64) int64 {
	if principal <= 0 || tenureMonths <= 0 {
		return 0
	}
	p := decimal.NewFromFloat(principal)
	n := decimal.NewFromInt(int64(tenureMonths))
	if annualRatePct == 0 {
		return p.DivRound(n, 0).IntPart()
	}
	r := decimal.NewFromFloat(annualRatePct).Div(decimal.NewFromInt(1200))
	pow := decimal.NewFromInt(1).Add(r).Pow(n)
	num := p.Mul(r).Mul(pow)
	den := pow.Sub(decimal.NewFromInt(1))
	return num.DivRound(den, 0).IntPart()
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
