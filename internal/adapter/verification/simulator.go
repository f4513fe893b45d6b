package verification

import (
	"context"
	"regexp"
	"strings"

	domain "los-backend/internal/domain/verification"
)

var rePAN = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

// Simulator is a deterministic stand-in for the external PAN/CIBIL/bank
// collaborators: the same PAN always yields the same report, so workflow runs
// are reproducible. Real integrations live outside this repo.
type Simulator struct{}

func NewSimulator() *Simulator { return &Simulator{} }

var (
	_ domain.IdentityVerifier = (*Simulator)(nil)
	_ domain.CreditBureau     = (*Simulator)(nil)
	_ domain.BankVerifier     = (*Simulator)(nil)
)

func (s *Simulator) VerifyPAN(_ context.Context, pan, _ string) (domain.IdentityResult, error) {
	return domain.IdentityResult{Verified: rePAN.MatchString(strings.ToUpper(pan))}, nil
}

func (s *Simulator) Pull(_ context.Context, pan string) (domain.BureauReport, error) {
	h := panHash(pan)
	// PANs prefixed LOWSC simulate a thin-file low scorer, mirroring the
	// fixtures the upstream test harness uses.
	if strings.HasPrefix(strings.ToUpper(pan), "LOWSC") {
		return domain.BureauReport{CIBILScore: 520, HistoryMonths: 8, UtilizationRatio: 0.85}, nil
	}
	return domain.BureauReport{
		CIBILScore:       float64(620 + h%231), // 620..850
		HistoryMonths:    12 + int(h%120),
		UtilizationRatio: float64(h%60) / 100,
	}, nil
}

func (s *Simulator) VerifyStatements(_ context.Context, pan string, declaredIncome float64) (domain.BankReport, error) {
	h := panHash(pan)
	return domain.BankReport{
		VerifiedIncome:      declaredIncome * (0.92 + float64(h%14)/100), // 92%..105%
		BankingScore:        float64(62 + h%34),                          // 62..95
		BounceCountLast12Mo: int(h % 3),
	}, nil
}

// panHash is a small stable FNV-style fold over the PAN.
func panHash(pan string) uint32 {
	var h uint32 = 2166136261
	for _, c := range strings.ToUpper(pan) {
		h ^= uint32(c)
		h *= 16777619
	}
	return h
}
