package verification

import "context"

// Collaborator contracts consumed by the decision engine. The real PAN/CIBIL/
// bank-statement integrations live outside this repo; the engine only sees
// their results.

type IdentityResult struct {
	Verified bool `json:"verified"`
}

type BureauReport struct {
	CIBILScore         float64 `json:"cibil_score"`
	HistoryMonths      int     `json:"credit_history_length_months"`
	UtilizationRatio   float64 `json:"credit_utilization_ratio"`
}

type BankReport struct {
	VerifiedIncome      float64 `json:"verified_income"`
	BankingScore        float64 `json:"banking_score"`
	BounceCountLast12Mo int     `json:"bounce_count_last_12_months"`
}

// Snapshot is the per-application bundle persisted once collaborators have
// been consulted.
type Snapshot struct {
	Identity *IdentityResult `json:"identity,omitempty"`
	Bureau   *BureauReport   `json:"bureau,omitempty"`
	Bank     *BankReport     `json:"bank,omitempty"`
}

type IdentityVerifier interface {
	VerifyPAN(ctx context.Context, pan, name string) (IdentityResult, error)
}

type CreditBureau interface {
	Pull(ctx context.Context, pan string) (BureauReport, error)
}

type BankVerifier interface {
	VerifyStatements(ctx context.Context, pan string, declaredIncome float64) (BankReport, error)
}
