package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"los-backend/internal/domain/application"
	"los-backend/internal/domain/uow"
	"los-backend/internal/domain/verification"
	"los-backend/internal/engine"
	"los-backend/internal/policy"
	"los-backend/internal/scoring"
	"los-backend/pkg/id"
)

// Usecase owns the Application aggregate: it enforces phase ordering,
// serializes concurrent requests per application via the UoW row lock, and
// drives the automated phases 3-7 once the loan application completes.
type Usecase struct {
	apps     application.Repository
	uow      uow.UnitOfWork
	identity verification.IdentityVerifier
	bureau   verification.CreditBureau
	bank     verification.BankVerifier
	rules    *policy.Engine

	now func() time.Time
}

func NewUsecase(apps application.Repository, tx uow.UnitOfWork,
	iv verification.IdentityVerifier, cb verification.CreditBureau, bv verification.BankVerifier) *Usecase {
	return &Usecase{
		apps:     apps,
		uow:      tx,
		identity: iv,
		bureau:   cb,
		bank:     bv,
		rules:    policy.NewEngine(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PreQualify opens a new application and runs phase 1. Manual phase: the
// workflow pauses afterwards until the applicant submits the full loan
// application.
func (u *Usecase) PreQualify(ctx context.Context, in PreQualifyInput) (*Envelope, error) {
	start := u.now()

	if in.ApplicantName == "" || in.PAN == "" || in.LoanType == "" ||
		in.LoanAmount <= 0 || in.TenureMonths <= 0 || in.DateOfBirth.IsZero() {
		return nil, fmt.Errorf("%w: missing required applicant fields", application.ErrValidation)
	}

	// Block if the applicant already has a live application.
	existing, err := u.apps.GetActiveByPAN(ctx, in.PAN)
	switch {
	case err == nil:
		return nil, fmt.Errorf("%w: %s", application.ErrDuplicateApplication, existing.ApplicationNumber)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	identity, err := u.identity.VerifyPAN(ctx, in.PAN, in.ApplicantName)
	if err != nil {
		return nil, fmt.Errorf("identity verification: %w", err)
	}
	bureau, err := u.bureau.Pull(ctx, in.PAN)
	if err != nil {
		return nil, fmt.Errorf("credit bureau: %w", err)
	}

	var env *Envelope
	err = u.uow.WithinTx(ctx, func(r uow.Repos) error {
		a := &application.Application{
			ApplicationNumber:   id.NewApplicationNumber(u.now()),
			ApplicantName:       in.ApplicantName,
			DateOfBirth:         in.DateOfBirth,
			PAN:                 in.PAN,
			Mobile:              in.Mobile,
			Email:               in.Email,
			LoanAmount:          in.LoanAmount,
			TenureMonths:        in.TenureMonths,
			LoanPurpose:         in.LoanPurpose,
			LoanType:            in.LoanType,
			MonthlyIncome:       in.MonthlyIncome,
			ExistingEMI:         in.ExistingEMI,
			EmploymentType:      in.EmploymentType,
			WorkExperienceYears: in.WorkExperienceYears,
			CurrentPhase:        application.PhasePreQualification,
			CurrentStatus:       application.StatusInProgress,
		}
		if err := r.Applications.Create(ctx, a); err != nil {
			return err
		}

		rec := &application.PhaseRecord{
			ApplicationID: a.ID,
			Phase:         application.PhasePreQualification,
			Status:        application.StatusPending,
		}
		if err := r.Phases.Create(ctx, rec); err != nil {
			return err
		}
		if err := u.enterPhase(rec); err != nil {
			return err
		}

		res := engine.PreQualify(engine.PreQualificationInput{
			App:            a,
			Identity:       identity,
			CreditEstimate: bureau.CIBILScore,
		}, scoring.Age(in.DateOfBirth, u.now()))

		if err := rec.SetDecision(res); err != nil {
			return err
		}
		if err := u.completePhase(rec, a, res.Decision != engine.DecisionRejected); err != nil {
			return err
		}
		if err := r.Phases.Save(ctx, rec); err != nil {
			return err
		}
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}

		env = envPreQual(res)
		u.finishEnvelope(env, a, rec, start)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return env, nil
}

// SubmitApplication completes phase 2 and chains the automated phases 3-7,
// each persisted before the next begins. The returned envelope reflects the
// furthest phase the pipeline reached.
func (u *Usecase) SubmitApplication(ctx context.Context, number string, in SubmitApplicationInput) (*Envelope, error) {
	start := u.now()

	if in.AadhaarNumber == "" || len(in.AadhaarNumber) != 12 || in.BankAccount.AccountNumber == "" {
		return nil, fmt.Errorf("%w: aadhaar number and bank account are required", application.ErrValidation)
	}

	var env *Envelope
	err := u.uow.WithinApplicationTx(ctx, number, func(r uow.Repos, a *application.Application) error {
		if err := u.checkPrecondition(ctx, r, a, application.PhaseLoanApplication); err != nil {
			return err
		}

		rec, err := r.Phases.GetByApplicationAndPhase(ctx, a.ID, application.PhaseLoanApplication)
		switch {
		case err == nil:
			if rec.Status == application.StatusCompleted {
				// idempotent replay; the pipeline below resumes if needed
				var d loanApplicationDetails
				if err := rec.DecodeDecision(&d); err != nil {
					return err
				}
				env = envLoanApplication(d)
				u.finishEnvelope(env, a, rec, start)
				return nil
			}
			if rec.Status == application.StatusInProgress {
				return application.ErrPhaseInProgress
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = &application.PhaseRecord{
				ApplicationID: a.ID,
				Phase:         application.PhaseLoanApplication,
				Status:        application.StatusPending,
			}
			if err := r.Phases.Create(ctx, rec); err != nil {
				return err
			}
		default:
			return err
		}

		if err := u.enterPhase(rec); err != nil {
			return err
		}

		details := loanApplicationDetails{
			Phase:             string(application.PhaseLoanApplication),
			AadhaarNumber:     in.AadhaarNumber,
			CurrentAddress:    in.CurrentAddress,
			PermanentAddress:  in.PermanentAddress,
			BankAccount:       in.BankAccount,
			References:        in.References,
			DocumentsComplete: in.DocumentsComplete,
			CollateralValue:   in.CollateralValue,
		}
		if err := rec.SetDecision(details); err != nil {
			return err
		}
		if err := u.completePhase(rec, a, true); err != nil {
			return err
		}
		if err := r.Phases.Save(ctx, rec); err != nil {
			return err
		}
		if err := r.Applications.Save(ctx, a); err != nil {
			return err
		}

		env = envLoanApplication(details)
		u.finishEnvelope(env, a, rec, start)
		return nil
	})
	if err != nil {
		return nil, mapNotFound(err)
	}

	if last, perr := u.RunPipeline(ctx, number); perr != nil {
		return env, perr
	} else if last != nil {
		env = last
	}
	return env, nil
}

// RunPipeline executes the automated phases in order, starting from the first
// non-completed one, stopping at the first phase that does not complete with
// a forward-moving decision. Safe to call again after a crash: completed
// phases replay instead of re-executing.
func (u *Usecase) RunPipeline(ctx context.Context, number string) (*Envelope, error) {
	var last *Envelope
	for _, ph := range application.PhaseOrder[2:] {
		env, err := u.RunPhase(ctx, number, ph, PhaseInput{})
		if err != nil {
			if errors.Is(err, application.ErrPhaseFrozen) || errors.Is(err, application.ErrPhaseNotReady) {
				break
			}
			return last, err
		}
		last = env
		if env.Status != string(application.StatusCompleted) {
			break
		}
		if env.Decision == string(engine.DecisionRejected) || env.Decision == "fail" || env.Decision == "failed" {
			break
		}
	}
	return last, nil
}

// RunPhase executes a single automated phase (3-7) for the application,
// serialized against other requests for the same application.
func (u *Usecase) RunPhase(ctx context.Context, number string, phase application.Phase, in PhaseInput) (*Envelope, error) {
	start := u.now()

	if !application.ValidPhase(phase) || application.PhaseIndex(phase) < 2 {
		return nil, fmt.Errorf("%w: %s", application.ErrUnknownPhase, phase)
	}
	// manual override input is validated before any phase state is touched
	if phase == application.PhaseCreditDecision {
		if err := in.Manual.Validate(); err != nil {
			return nil, err
		}
	}
	if phase == application.PhaseLoanFunding && in.DisbursementMethod != "" && !engine.ValidDisbursementMethod(in.DisbursementMethod) {
		return nil, fmt.Errorf("%w: unsupported disbursement method %q", application.ErrValidation, in.DisbursementMethod)
	}

	var env *Envelope
	err := u.uow.WithinApplicationTx(ctx, number, func(r uow.Repos, a *application.Application) error {
		var err error
		env, err = u.executePhase(ctx, r, a, phase, in, start)
		return err
	})
	if err != nil {
		return nil, mapNotFound(err)
	}
	return env, nil
}

func (u *Usecase) executePhase(ctx context.Context, r uow.Repos, a *application.Application,
	phase application.Phase, in PhaseInput, start time.Time) (*Envelope, error) {

	rec, err := r.Phases.GetByApplicationAndPhase(ctx, a.ID, phase)
	switch {
	case err == nil:
		switch rec.Status {
		case application.StatusCompleted:
			return u.replay(a, rec, start)
		case application.StatusInProgress:
			return nil, application.ErrPhaseInProgress
		case application.StatusFailed:
			return nil, fmt.Errorf("%w: %s already failed", application.ErrPhaseFrozen, phase)
		case application.StatusRequiresReview:
			if phase != application.PhaseCreditDecision || in.Manual == nil || in.Manual.Decision == "" {
				env := &Envelope{Message: "awaiting manual review"}
				u.finishEnvelope(env, a, rec, start)
				return env, nil
			}
			// reviewer input re-enters the phase below
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		rec = nil
	default:
		return nil, err
	}

	if a.CurrentStatus == application.StatusFailed {
		return nil, application.ErrPhaseFrozen
	}
	if err := u.checkPrecondition(ctx, r, a, phase); err != nil {
		return nil, err
	}

	if rec == nil {
		rec = &application.PhaseRecord{ApplicationID: a.ID, Phase: phase, Status: application.StatusPending}
		if err := r.Phases.Create(ctx, rec); err != nil {
			return nil, err
		}
	}
	if err := u.enterPhase(rec); err != nil {
		return nil, err
	}
	a.CurrentPhase = phase
	a.CurrentStatus = application.StatusInProgress

	out, engErr := u.runEngine(ctx, r, a, phase, in)
	if engErr != nil {
		// SystemError: the phase fails, the cause stays in the log, the
		// caller gets an opaque message.
		entry := u.logEntry("phase failed", application.ActorSystem, engErr.Error())
		rec.AppendLog(entry)
		rec.Status = application.StatusFailed
		now := u.now()
		rec.CompletedAt = &now
		a.CurrentStatus = application.StatusFailed
		if err := r.Phases.Save(ctx, rec); err != nil {
			return nil, err
		}
		if err := r.Applications.Save(ctx, a); err != nil {
			return nil, err
		}
		log.Printf("phase %s failed for %s: %v (log %s)", phase, a.ApplicationNumber, engErr, entry.ID)
		env := &Envelope{Message: "internal processing error (ref " + entry.ID + ")"}
		u.finishEnvelope(env, a, rec, start)
		env.Success = false
		return env, nil
	}

	if out.hold {
		next, err := application.Transition(rec.Status, application.StatusRequiresReview)
		if err != nil {
			return nil, err
		}
		rec.Status = next
		rec.AppendLog(u.logEntry("phase paused for manual review", application.ActorSystem, ""))
		a.CurrentStatus = application.StatusRequiresReview
		if err := r.Phases.Save(ctx, rec); err != nil {
			return nil, err
		}
		if err := r.Applications.Save(ctx, a); err != nil {
			return nil, err
		}
		env := &Envelope{Message: "manual review required"}
		u.finishEnvelope(env, a, rec, start)
		return env, nil
	}

	if err := rec.SetDecision(out.payload); err != nil {
		return nil, err
	}
	if out.actor == "" {
		out.actor = application.ActorSystem
	}
	rec.AppendLog(u.logEntry("decision recorded", out.actor, out.env.Message))
	if err := u.completePhase(rec, a, out.advance); err != nil {
		return nil, err
	}
	if err := r.Phases.Save(ctx, rec); err != nil {
		return nil, err
	}
	if err := r.Applications.Save(ctx, a); err != nil {
		return nil, err
	}

	env := out.env
	u.finishEnvelope(env, a, rec, start)
	return env, nil
}

// phaseOutcome carries an engine result back to the shared persistence path.
type phaseOutcome struct {
	payload any
	env     *Envelope
	advance bool
	hold    bool
	actor   application.Actor
}

func (u *Usecase) runEngine(ctx context.Context, r uow.Repos, a *application.Application,
	phase application.Phase, in PhaseInput) (out phaseOutcome, err error) {

	// engine bugs must not escape the phase boundary
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("engine panic: %v", rec)
		}
	}()

	switch phase {
	case application.PhaseApplicationProcessing:
		return u.runProcessing(ctx, r, a)
	case application.PhaseUnderwriting:
		return u.runUnderwriting(ctx, r, a)
	case application.PhaseCreditDecision:
		return u.runCreditDecision(ctx, r, a, in)
	case application.PhaseQualityCheck:
		return u.runQualityCheck(ctx, r, a)
	case application.PhaseLoanFunding:
		return u.runFunding(ctx, r, a, in)
	default:
		return out, fmt.Errorf("%w: %s", application.ErrUnknownPhase, phase)
	}
}

func (u *Usecase) runProcessing(ctx context.Context, r uow.Repos, a *application.Application) (phaseOutcome, error) {
	details, err := u.loanApplicationDetails(ctx, r, a)
	if err != nil {
		return phaseOutcome{}, err
	}

	identity, err := u.identity.VerifyPAN(ctx, a.PAN, a.ApplicantName)
	if err != nil {
		return phaseOutcome{}, fmt.Errorf("identity verification: %w", err)
	}
	bureau, err := u.bureau.Pull(ctx, a.PAN)
	if err != nil {
		return phaseOutcome{}, fmt.Errorf("credit bureau: %w", err)
	}
	bank, err := u.bank.VerifyStatements(ctx, a.PAN, a.MonthlyIncome)
	if err != nil {
		return phaseOutcome{}, fmt.Errorf("bank verification: %w", err)
	}
	storeSnapshot(a, verification.Snapshot{Identity: &identity, Bureau: &bureau, Bank: &bank})

	res := engine.ProcessApplication(engine.ProcessingInput{
		App:               a,
		Identity:          identity,
		Bureau:            bureau,
		Bank:              bank,
		DocumentsComplete: details.DocumentsComplete,
	})
	return phaseOutcome{
		payload: res,
		env:     envProcessing(res),
		advance: res.Decision == engine.DecisionApproved,
	}, nil
}

func (u *Usecase) runUnderwriting(ctx context.Context, r uow.Repos, a *application.Application) (phaseOutcome, error) {
	snap := decodeSnapshot(a)
	if snap.Bureau == nil || snap.Bank == nil {
		return phaseOutcome{}, errors.New("verification snapshot missing; application processing incomplete")
	}
	details, err := u.loanApplicationDetails(ctx, r, a)
	if err != nil {
		return phaseOutcome{}, err
	}

	profile := u.policyProfile(a, snap)
	check := u.rules.Evaluate(profile)
	complianceScore := 100.0
	if !check.Passed {
		complianceScore -= float64(len(check.Reasons)) * 20
		if complianceScore < 0 {
			complianceScore = 0
		}
	}

	var coll *engine.Collateral
	if details.CollateralValue > 0 {
		coll = &engine.Collateral{Value: details.CollateralValue}
	}

	res := engine.Underwrite(engine.UnderwritingInput{
		App:                   a,
		Bureau:                *snap.Bureau,
		Bank:                  *snap.Bank,
		Collateral:            coll,
		PolicyComplianceScore: complianceScore,
	})
	return phaseOutcome{
		payload: res,
		env:     envUnderwriting(res),
		advance: res.Decision != engine.DecisionRejected,
	}, nil
}

func (u *Usecase) runCreditDecision(ctx context.Context, r uow.Repos, a *application.Application, in PhaseInput) (phaseOutcome, error) {
	if in.ManualReviewRequired && (in.Manual == nil || in.Manual.Decision == "") {
		return phaseOutcome{hold: true}, nil
	}

	var uw engine.UnderwritingResult
	if err := u.decodePhaseDecision(ctx, r, a, application.PhaseUnderwriting, &uw); err != nil {
		return phaseOutcome{}, err
	}

	snap := decodeSnapshot(a)
	profile := u.policyProfile(a, snap)
	check := u.rules.Evaluate(profile)

	res, err := engine.DecideCredit(engine.CreditDecisionInput{
		App:                  a,
		Underwriting:         uw,
		Policy:               check,
		DTIRatio:             u.rules.DTIRatio(profile),
		ManualReviewRequired: in.ManualReviewRequired,
		Manual:               in.Manual,
	})
	if err != nil {
		return phaseOutcome{}, err
	}

	actor := application.ActorSystem
	if res.Summary.Overridden {
		actor = application.ActorReviewer
	}
	return phaseOutcome{
		payload: res,
		env:     envCredit(res),
		advance: res.FinalDecision != engine.DecisionRejected,
		actor:   actor,
	}, nil
}

func (u *Usecase) runQualityCheck(ctx context.Context, r uow.Repos, a *application.Application) (phaseOutcome, error) {
	details, err := u.loanApplicationDetails(ctx, r, a)
	if err != nil {
		return phaseOutcome{}, err
	}
	var proc engine.ProcessingResult
	if err := u.decodePhaseDecision(ctx, r, a, application.PhaseApplicationProcessing, &proc); err != nil {
		return phaseOutcome{}, err
	}
	var credit engine.CreditDecisionResult
	if err := u.decodePhaseDecision(ctx, r, a, application.PhaseCreditDecision, &credit); err != nil {
		return phaseOutcome{}, err
	}

	in := engine.QualityCheckInput{DocumentCompleteness: 60, DataAccuracy: 72, ComplianceAdherence: 65}
	if details.DocumentsComplete {
		in.DocumentCompleteness = 95
	}
	if proc.IncomeMatched {
		in.DataAccuracy = 96
	}
	if credit.Factors.PolicyCompliant {
		in.ComplianceAdherence = 98
	}

	res := engine.CheckQuality(in)
	return phaseOutcome{
		payload: res,
		env:     envQuality(res),
		advance: res.Passed,
	}, nil
}

func (u *Usecase) runFunding(ctx context.Context, r uow.Repos, a *application.Application, in PhaseInput) (phaseOutcome, error) {
	var credit engine.CreditDecisionResult
	if err := u.decodePhaseDecision(ctx, r, a, application.PhaseCreditDecision, &credit); err != nil {
		return phaseOutcome{}, err
	}
	snap := decodeSnapshot(a)

	res := engine.Fund(engine.FundingInput{
		App:            a,
		ApprovedAmount: credit.ApprovedAmount,
		Method:         in.DisbursementMethod,
		Bank:           snap.Bank,
		Reference:      uuid.NewString(),
	})
	return phaseOutcome{
		payload: res,
		env:     envFunding(res),
		advance: res.Funded,
	}, nil
}

// ---- shared helpers ----

// checkPrecondition enforces the static phase-dependency table.
func (u *Usecase) checkPrecondition(ctx context.Context, r uow.Repos, a *application.Application, phase application.Phase) error {
	dep, ok := application.PhaseDependencies[phase]
	if !ok {
		return nil
	}
	depRec, err := r.Phases.GetByApplicationAndPhase(ctx, a.ID, dep)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: %s requires %s", application.ErrPhaseNotReady, phase, dep)
		}
		return err
	}
	if depRec.Status != application.StatusCompleted {
		return fmt.Errorf("%w: %s requires %s (currently %s)", application.ErrPhaseNotReady, phase, dep, depRec.Status)
	}
	return nil
}

func (u *Usecase) enterPhase(rec *application.PhaseRecord) error {
	next, err := application.Transition(rec.Status, application.StatusInProgress)
	if err != nil {
		return err
	}
	rec.Status = next
	if rec.StartedAt == nil {
		now := u.now()
		rec.StartedAt = &now
	}
	rec.AppendLog(u.logEntry("phase started", application.ActorSystem, ""))
	return nil
}

// completePhase finishes the record and advances or freezes the aggregate.
func (u *Usecase) completePhase(rec *application.PhaseRecord, a *application.Application, advance bool) error {
	next, err := application.Transition(rec.Status, application.StatusCompleted)
	if err != nil {
		return err
	}
	rec.Status = next
	now := u.now()
	rec.CompletedAt = &now
	rec.AppendLog(u.logEntry("phase completed", application.ActorSystem, ""))

	if !advance {
		// explicit rejection freezes progression
		a.CurrentStatus = application.StatusFailed
		return nil
	}
	if np := application.NextPhase(rec.Phase); np != "" {
		a.CurrentPhase = np
		a.CurrentStatus = application.StatusPending
	} else {
		a.CurrentStatus = application.StatusCompleted
	}
	return nil
}

func (u *Usecase) logEntry(action string, actor application.Actor, detail string) application.ProcessingLogEntry {
	return application.ProcessingLogEntry{
		ID:     uuid.NewString(),
		At:     u.now(),
		Action: action,
		Actor:  actor,
		Detail: detail,
	}
}

func (u *Usecase) loanApplicationDetails(ctx context.Context, r uow.Repos, a *application.Application) (loanApplicationDetails, error) {
	var d loanApplicationDetails
	rec, err := r.Phases.GetByApplicationAndPhase(ctx, a.ID, application.PhaseLoanApplication)
	if err != nil {
		return d, fmt.Errorf("loan application record: %w", err)
	}
	if err := rec.DecodeDecision(&d); err != nil {
		return d, err
	}
	return d, nil
}

func (u *Usecase) decodePhaseDecision(ctx context.Context, r uow.Repos, a *application.Application, phase application.Phase, out any) error {
	rec, err := r.Phases.GetByApplicationAndPhase(ctx, a.ID, phase)
	if err != nil {
		return fmt.Errorf("%s record: %w", phase, err)
	}
	return rec.DecodeDecision(out)
}

func (u *Usecase) policyProfile(a *application.Application, snap verification.Snapshot) policy.Profile {
	p := policy.Profile{
		Age:           scoring.Age(a.DateOfBirth, u.now()),
		MonthlyIncome: a.MonthlyIncome,
		ExistingEMI:   a.ExistingEMI,
		LoanType:      a.LoanType,
		LoanAmount:    a.LoanAmount,
	}
	if snap.Bureau != nil {
		p.CreditScore = snap.Bureau.CIBILScore
	}
	if snap.Bank != nil && snap.Bank.VerifiedIncome > 0 {
		p.MonthlyIncome = snap.Bank.VerifiedIncome
	}
	// provisional EMI at a neutral-band rate; the final EMI is re-derived at
	// credit decision with the real underwriting score
	rate := scoring.InterestRate(25, p.CreditScore, string(engine.RiskMedium), a.LoanType)
	p.ProposedEMI = float64(scoring.EMI(a.LoanAmount, a.TenureMonths, rate))
	return p
}

func decodeSnapshot(a *application.Application) verification.Snapshot {
	var s verification.Snapshot
	if len(a.Verification) > 0 {
		_ = json.Unmarshal(a.Verification, &s)
	}
	return s
}

func storeSnapshot(a *application.Application, s verification.Snapshot) {
	b, _ := json.Marshal(s)
	a.Verification = datatypes.JSON(b)
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return application.ErrNotFound
	}
	return err
}
