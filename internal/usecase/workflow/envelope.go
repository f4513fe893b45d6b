package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"los-backend/internal/domain/application"
	"los-backend/internal/domain/uow"
	"los-backend/internal/engine"
)

// finishEnvelope fills the fields every phase envelope shares.
func (u *Usecase) finishEnvelope(env *Envelope, a *application.Application, rec *application.PhaseRecord, start time.Time) {
	env.Success = true
	env.ApplicationNumber = a.ApplicationNumber
	env.Status = string(rec.Status)
	env.ProcessingTimeMS = u.now().Sub(start).Milliseconds()
	if rec.Status == application.StatusCompleted && a.CurrentStatus != application.StatusFailed {
		if np := application.NextPhase(rec.Phase); np != "" {
			s := string(np)
			env.NextPhase = &s
		}
	}
}

// replay rebuilds the envelope of an already-completed phase from its stored
// decision without re-executing anything.
func (u *Usecase) replay(a *application.Application, rec *application.PhaseRecord, start time.Time) (*Envelope, error) {
	var env *Envelope
	switch rec.Phase {
	case application.PhasePreQualification:
		var res engine.PreQualificationResult
		if err := rec.DecodeDecision(&res); err != nil {
			return nil, err
		}
		env = envPreQual(res)
	case application.PhaseLoanApplication:
		var d loanApplicationDetails
		if err := rec.DecodeDecision(&d); err != nil {
			return nil, err
		}
		env = envLoanApplication(d)
	case application.PhaseApplicationProcessing:
		var res engine.ProcessingResult
		if err := rec.DecodeDecision(&res); err != nil {
			return nil, err
		}
		env = envProcessing(res)
	case application.PhaseUnderwriting:
		var res engine.UnderwritingResult
		if err := rec.DecodeDecision(&res); err != nil {
			return nil, err
		}
		env = envUnderwriting(res)
	case application.PhaseCreditDecision:
		var res engine.CreditDecisionResult
		if err := rec.DecodeDecision(&res); err != nil {
			return nil, err
		}
		env = envCredit(res)
	case application.PhaseQualityCheck:
		var res engine.QualityCheckResult
		if err := rec.DecodeDecision(&res); err != nil {
			return nil, err
		}
		env = envQuality(res)
	case application.PhaseLoanFunding:
		var res engine.FundingResult
		if err := rec.DecodeDecision(&res); err != nil {
			return nil, err
		}
		env = envFunding(res)
	default:
		return nil, fmt.Errorf("%w: %s", application.ErrUnknownPhase, rec.Phase)
	}
	u.finishEnvelope(env, a, rec, start)
	return env, nil
}

func envPreQual(res engine.PreQualificationResult) *Envelope {
	return &Envelope{
		Decision:       string(res.Decision),
		Score:          res.EligibilityScore,
		ApprovedAmount: res.EstimatedAmount,
		Message:        res.Message,
	}
}

func envLoanApplication(d loanApplicationDetails) *Envelope {
	return &Envelope{
		Decision: string(engine.DecisionApproved),
		Message:  "loan application submitted",
	}
}

func envProcessing(res engine.ProcessingResult) *Envelope {
	return &Envelope{
		Decision: string(res.Decision),
		Score:    res.VerificationScore,
		Message:  res.Message,
	}
}

func envUnderwriting(res engine.UnderwritingResult) *Envelope {
	return &Envelope{
		Decision:   string(res.Decision),
		Score:      res.UnderwritingScore,
		Conditions: res.Conditions,
		Message:    res.Message,
	}
}

func envCredit(res engine.CreditDecisionResult) *Envelope {
	return &Envelope{
		Decision:       string(res.FinalDecision),
		ApprovedAmount: res.ApprovedAmount,
		InterestRate:   res.InterestRate,
		Tenure:         res.TenureMonths,
		Conditions:     res.Conditions,
		Message:        res.Message,
	}
}

func envQuality(res engine.QualityCheckResult) *Envelope {
	decision := "pass"
	if !res.Passed {
		decision = "fail"
	}
	return &Envelope{
		Decision: decision,
		Score:    res.OverallScore,
		Message:  res.Message,
	}
}

func envFunding(res engine.FundingResult) *Envelope {
	decision := "funded"
	if !res.Funded {
		decision = "failed"
	}
	return &Envelope{
		Decision:       decision,
		ApprovedAmount: res.DisbursedAmount,
		Message:        res.Message,
	}
}

// PhaseStatus serves the read-only per-phase status endpoints. A phase the
// application has not reached yet reports status pending.
func (u *Usecase) PhaseStatus(ctx context.Context, number string, phase application.Phase) (*PhaseStatusDTO, error) {
	if !application.ValidPhase(phase) {
		return nil, fmt.Errorf("%w: %s", application.ErrUnknownPhase, phase)
	}
	a, err := u.apps.GetByNumber(ctx, number)
	if err != nil {
		return nil, mapNotFound(err)
	}

	dto := &PhaseStatusDTO{
		ApplicationNumber: a.ApplicationNumber,
		Phase:             string(phase),
		Status:            string(application.StatusPending),
		CurrentPhase:      string(a.CurrentPhase),
	}

	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		rec, err := r.Phases.GetByApplicationAndPhase(ctx, a.ID, phase)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		dto.Status = string(rec.Status)
		dto.Decision = []byte(rec.Decision)
		dto.Logs = []byte(rec.Logs)
		dto.StartedAt = rec.StartedAt
		dto.CompletedAt = rec.CompletedAt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dto, nil
}
