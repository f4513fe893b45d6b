package workflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"los-backend/internal/domain/application"
	"los-backend/internal/domain/uow"
	"los-backend/internal/domain/verification"
	"los-backend/internal/engine"
	"los-backend/internal/testutil/appmock"
	"los-backend/internal/testutil/uowmock"
)

// ---- test doubles ----

// stubVerifiers returns fixed collaborator results for every call.
type stubVerifiers struct {
	identity verification.IdentityResult
	bureau   verification.BureauReport
	bank     verification.BankReport
}

func (s *stubVerifiers) VerifyPAN(context.Context, string, string) (verification.IdentityResult, error) {
	return s.identity, nil
}
func (s *stubVerifiers) Pull(context.Context, string) (verification.BureauReport, error) {
	return s.bureau, nil
}
func (s *stubVerifiers) VerifyStatements(context.Context, string, float64) (verification.BankReport, error) {
	return s.bank, nil
}

func goodVerifiers() *stubVerifiers {
	return &stubVerifiers{
		identity: verification.IdentityResult{Verified: true},
		bureau:   verification.BureauReport{CIBILScore: 780, HistoryMonths: 60, UtilizationRatio: 0.2},
		bank:     verification.BankReport{VerifiedIncome: 80000, BankingScore: 90},
	}
}

// memStore is a map-backed stand-in for the gorm repositories, close enough to
// exercise the orchestration paths without a database.
type memStore struct {
	nextAppID   uint64
	nextPhaseID uint64
	apps        map[uint64]application.Application
	phases      map[uint64]map[application.Phase]application.PhaseRecord
}

func newMemStore() *memStore {
	return &memStore{
		apps:   map[uint64]application.Application{},
		phases: map[uint64]map[application.Phase]application.PhaseRecord{},
	}
}

func (m *memStore) Create(_ context.Context, a *application.Application) error {
	m.nextAppID++
	a.ID = m.nextAppID
	m.apps[a.ID] = *a
	return nil
}

func (m *memStore) Save(_ context.Context, a *application.Application) error {
	if _, ok := m.apps[a.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.apps[a.ID] = *a
	return nil
}

func (m *memStore) GetByNumber(_ context.Context, number string) (*application.Application, error) {
	for _, a := range m.apps {
		if a.ApplicationNumber == number {
			cp := a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memStore) GetByNumberForUpdate(ctx context.Context, number string) (*application.Application, error) {
	return m.GetByNumber(ctx, number)
}

func (m *memStore) GetActiveByPAN(_ context.Context, pan string) (*application.Application, error) {
	for _, a := range m.apps {
		if a.PAN == pan && a.CurrentStatus != application.StatusCompleted && a.CurrentStatus != application.StatusFailed {
			cp := a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type memPhases struct{ s *memStore }

func (m *memPhases) Create(_ context.Context, r *application.PhaseRecord) error {
	byPhase, ok := m.s.phases[r.ApplicationID]
	if !ok {
		byPhase = map[application.Phase]application.PhaseRecord{}
		m.s.phases[r.ApplicationID] = byPhase
	}
	if _, exists := byPhase[r.Phase]; exists {
		return errors.New("duplicate phase record")
	}
	m.s.nextPhaseID++
	r.ID = m.s.nextPhaseID
	byPhase[r.Phase] = *r
	return nil
}

func (m *memPhases) Save(_ context.Context, r *application.PhaseRecord) error {
	byPhase, ok := m.s.phases[r.ApplicationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	byPhase[r.Phase] = *r
	return nil
}

func (m *memPhases) GetByApplicationAndPhase(_ context.Context, appID uint64, phase application.Phase) (*application.PhaseRecord, error) {
	if rec, ok := m.s.phases[appID][phase]; ok {
		cp := rec
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memPhases) ListByApplication(_ context.Context, appID uint64) ([]application.PhaseRecord, error) {
	var out []application.PhaseRecord
	for _, rec := range m.s.phases[appID] {
		out = append(out, rec)
	}
	return out, nil
}

type memUoW struct{ s *memStore }

func (m *memUoW) repos() uow.Repos {
	return uow.Repos{Applications: m.s, Phases: &memPhases{s: m.s}}
}

func (m *memUoW) WithinTx(_ context.Context, fn func(r uow.Repos) error) error {
	return fn(m.repos())
}

func (m *memUoW) WithinApplicationTx(ctx context.Context, number string, fn func(r uow.Repos, a *application.Application) error) error {
	a, err := m.s.GetByNumberForUpdate(ctx, number)
	if err != nil {
		return err
	}
	return fn(m.repos(), a)
}

func newMemUsecase(v *stubVerifiers) (*Usecase, *memStore) {
	s := newMemStore()
	uc := NewUsecase(s, &memUoW{s: s}, v, v, v)
	return uc, s
}

func goodPreQualifyInput() PreQualifyInput {
	return PreQualifyInput{
		ApplicantName:       "Asha Rao",
		DateOfBirth:         time.Date(1996, 5, 1, 0, 0, 0, 0, time.UTC),
		PAN:                 "ABCDE1234F",
		Mobile:              "9812345678",
		Email:               "asha@example.com",
		LoanAmount:          500000,
		TenureMonths:        36,
		LoanPurpose:         "home renovation",
		LoanType:            "personal",
		MonthlyIncome:       80000,
		EmploymentType:      "salaried",
		WorkExperienceYears: 6,
	}
}

func goodSubmitInput() SubmitApplicationInput {
	return SubmitApplicationInput{
		AadhaarNumber:    "123412341234",
		CurrentAddress:   Address{Street: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001"},
		PermanentAddress: Address{Street: "12 MG Road", City: "Bengaluru", State: "KA", Pincode: "560001"},
		BankAccount:      BankAccount{AccountNumber: "123456789012", IFSCCode: "HDFC0001234", BankName: "HDFC"},
		References: []Reference{
			{Name: "Ravi", Mobile: "9898989898", Relationship: "colleague"},
			{Name: "Meena", Mobile: "9797979797", Relationship: "sister"},
		},
		DocumentsComplete: true,
	}
}

// ---- tests ----

func TestPreQualify_Validation(t *testing.T) {
	uc, _ := newMemUsecase(goodVerifiers())
	_, err := uc.PreQualify(context.Background(), PreQualifyInput{})
	if !errors.Is(err, application.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestPreQualify_DuplicateActiveApplication(t *testing.T) {
	apps := &appmock.Repo{
		GetActiveByPANFn: func(context.Context, string) (*application.Application, error) {
			return &application.Application{ApplicationNumber: "LOS20260901AAAAAA"}, nil
		},
	}
	uc := NewUsecase(apps, &uowmock.UoW{}, goodVerifiers(), goodVerifiers(), goodVerifiers())

	_, err := uc.PreQualify(context.Background(), goodPreQualifyInput())
	if !errors.Is(err, application.ErrDuplicateApplication) {
		t.Fatalf("want ErrDuplicateApplication, got %v", err)
	}
}

func TestPreQualify_Approved(t *testing.T) {
	uc, store := newMemUsecase(goodVerifiers())

	env, err := uc.PreQualify(context.Background(), goodPreQualifyInput())
	if err != nil {
		t.Fatalf("PreQualify: %v", err)
	}
	if !env.Success || env.Decision != string(engine.DecisionApproved) {
		t.Fatalf("envelope = %+v, want approved", env)
	}
	if env.ApplicationNumber == "" {
		t.Fatal("application number not assigned")
	}
	if env.NextPhase == nil || *env.NextPhase != string(application.PhaseLoanApplication) {
		t.Fatalf("next phase = %v, want loan_application", env.NextPhase)
	}

	a, err := store.GetByNumber(context.Background(), env.ApplicationNumber)
	if err != nil {
		t.Fatalf("stored application missing: %v", err)
	}
	if a.CurrentPhase != application.PhaseLoanApplication || a.CurrentStatus != application.StatusPending {
		t.Fatalf("aggregate = %s/%s, want loan_application/pending", a.CurrentPhase, a.CurrentStatus)
	}
	rec, err := (&memPhases{s: store}).GetByApplicationAndPhase(context.Background(), a.ID, application.PhasePreQualification)
	if err != nil {
		t.Fatalf("phase record missing: %v", err)
	}
	if rec.Status != application.StatusCompleted || rec.StartedAt == nil || rec.CompletedAt == nil {
		t.Fatalf("record = %+v, want completed with timestamps", rec)
	}
	if len(rec.LogEntries()) == 0 {
		t.Fatal("processing log is empty")
	}
}

func TestPreQualify_RejectionFreezesApplication(t *testing.T) {
	v := goodVerifiers()
	v.identity.Verified = false
	uc, store := newMemUsecase(v)

	env, err := uc.PreQualify(context.Background(), goodPreQualifyInput())
	if err != nil {
		t.Fatalf("PreQualify: %v", err)
	}
	if env.Decision != string(engine.DecisionRejected) {
		t.Fatalf("decision = %s, want rejected", env.Decision)
	}
	if env.NextPhase != nil {
		t.Fatalf("next phase = %v, want nil after rejection", *env.NextPhase)
	}
	a, _ := store.GetByNumber(context.Background(), env.ApplicationNumber)
	if a.CurrentStatus != application.StatusFailed {
		t.Fatalf("status = %s, want failed", a.CurrentStatus)
	}
}

func TestSubmitApplication_Validation(t *testing.T) {
	uc, _ := newMemUsecase(goodVerifiers())
	in := goodSubmitInput()
	in.AadhaarNumber = "123" // wrong length
	_, err := uc.SubmitApplication(context.Background(), "LOS20260901AAAAAA", in)
	if !errors.Is(err, application.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}

func TestSubmitApplication_NotFound(t *testing.T) {
	uc, _ := newMemUsecase(goodVerifiers())
	_, err := uc.SubmitApplication(context.Background(), "LOS20260901ZZZZZZ", goodSubmitInput())
	if !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

// SubmitApplication drives the automated phases through funding when every
// gate passes.
func TestSubmitApplication_FullPipeline(t *testing.T) {
	uc, store := newMemUsecase(goodVerifiers())
	ctx := context.Background()

	pre, err := uc.PreQualify(ctx, goodPreQualifyInput())
	if err != nil {
		t.Fatalf("PreQualify: %v", err)
	}

	env, err := uc.SubmitApplication(ctx, pre.ApplicationNumber, goodSubmitInput())
	if err != nil {
		t.Fatalf("SubmitApplication: %v", err)
	}
	if env.Decision != "funded" {
		t.Fatalf("final decision = %q (message %q), want funded", env.Decision, env.Message)
	}
	if env.NextPhase != nil {
		t.Fatalf("next phase = %v, want nil at the end", *env.NextPhase)
	}

	a, _ := store.GetByNumber(ctx, pre.ApplicationNumber)
	if a.CurrentStatus != application.StatusCompleted {
		t.Fatalf("aggregate status = %s, want completed", a.CurrentStatus)
	}
	recs, _ := (&memPhases{s: store}).ListByApplication(ctx, a.ID)
	if len(recs) != len(application.PhaseOrder) {
		t.Fatalf("got %d phase records, want %d", len(recs), len(application.PhaseOrder))
	}
	for _, rec := range recs {
		if rec.Status != application.StatusCompleted {
			t.Fatalf("phase %s = %s, want completed", rec.Phase, rec.Status)
		}
	}
}

// Re-submitting replays stored decisions instead of re-executing anything.
func TestSubmitApplication_Idempotent(t *testing.T) {
	uc, store := newMemUsecase(goodVerifiers())
	ctx := context.Background()

	pre, err := uc.PreQualify(ctx, goodPreQualifyInput())
	if err != nil {
		t.Fatalf("PreQualify: %v", err)
	}
	if _, err := uc.SubmitApplication(ctx, pre.ApplicationNumber, goodSubmitInput()); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	env, err := uc.SubmitApplication(ctx, pre.ApplicationNumber, goodSubmitInput())
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if env.Decision != "funded" {
		t.Fatalf("replayed decision = %q, want funded", env.Decision)
	}

	a, _ := store.GetByNumber(ctx, pre.ApplicationNumber)
	recs, _ := (&memPhases{s: store}).ListByApplication(ctx, a.ID)
	if len(recs) != len(application.PhaseOrder) {
		t.Fatalf("replay created records: got %d, want %d", len(recs), len(application.PhaseOrder))
	}
}

func TestRunPhase_UnknownOrManualPhase(t *testing.T) {
	uc, _ := newMemUsecase(goodVerifiers())
	ctx := context.Background()

	if _, err := uc.RunPhase(ctx, "x", "bogus_phase", PhaseInput{}); !errors.Is(err, application.ErrUnknownPhase) {
		t.Fatalf("bogus phase: want ErrUnknownPhase, got %v", err)
	}
	// the two manual phases have dedicated entry points
	if _, err := uc.RunPhase(ctx, "x", application.PhaseLoanApplication, PhaseInput{}); !errors.Is(err, application.ErrUnknownPhase) {
		t.Fatalf("loan_application: want ErrUnknownPhase, got %v", err)
	}
}

func TestRunPhase_PreconditionNotReady(t *testing.T) {
	uc, _ := newMemUsecase(goodVerifiers())
	ctx := context.Background()

	pre, err := uc.PreQualify(ctx, goodPreQualifyInput())
	if err != nil {
		t.Fatalf("PreQualify: %v", err)
	}
	// loan application not submitted yet
	_, err = uc.RunPhase(ctx, pre.ApplicationNumber, application.PhaseApplicationProcessing, PhaseInput{})
	if !errors.Is(err, application.ErrPhaseNotReady) {
		t.Fatalf("want ErrPhaseNotReady, got %v", err)
	}
}

// Manual override input is rejected before any phase state is touched.
func TestRunPhase_ManualValidatedUpfront(t *testing.T) {
	touched := false
	tx := &uowmock.UoW{
		WithinApplicationTxFn: func(ctx context.Context, number string, fn func(uow.Repos, *application.Application) error) error {
			touched = true
			return nil
		},
	}
	uc := NewUsecase(&appmock.Repo{}, tx, goodVerifiers(), goodVerifiers(), goodVerifiers())

	_, err := uc.RunPhase(context.Background(), "LOS20260901AAAAAA", application.PhaseCreditDecision, PhaseInput{
		Manual: &engine.ManualOverride{Decision: engine.DecisionApproved}, // missing reason
	})
	if !errors.Is(err, application.ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
	if touched {
		t.Fatal("phase state was touched despite invalid input")
	}
}

func TestRunPhase_FrozenAfterRejection(t *testing.T) {
	v := goodVerifiers()
	v.bureau = verification.BureauReport{CIBILScore: 520, HistoryMonths: 8, UtilizationRatio: 0.85}
	v.bank = verification.BankReport{VerifiedIncome: 30000, BankingScore: 55}
	uc, store := newMemUsecase(v)
	ctx := context.Background()

	in := goodPreQualifyInput()
	in.MonthlyIncome = 80000 // pre-qualification still passes on declared data
	pre, err := uc.PreQualify(ctx, in)
	if err != nil {
		t.Fatalf("PreQualify: %v", err)
	}
	// processing rejects on the weak bureau pull and freezes the application
	env, err := uc.SubmitApplication(ctx, pre.ApplicationNumber, goodSubmitInput())
	if err != nil {
		t.Fatalf("SubmitApplication: %v", err)
	}
	if env.Decision != string(engine.DecisionRejected) {
		t.Fatalf("decision = %q, want rejected at processing", env.Decision)
	}

	a, _ := store.GetByNumber(ctx, pre.ApplicationNumber)
	if a.CurrentStatus != application.StatusFailed {
		t.Fatalf("status = %s, want failed", a.CurrentStatus)
	}
	_, err = uc.RunPhase(ctx, pre.ApplicationNumber, application.PhaseUnderwriting, PhaseInput{})
	if !errors.Is(err, application.ErrPhaseFrozen) {
		t.Fatalf("want ErrPhaseFrozen, got %v", err)
	}
}

// seedThroughUnderwriting fabricates an application with phases 1-4 completed
// so the credit-decision paths can be exercised in isolation.
func seedThroughUnderwriting(t *testing.T, store *memStore) string {
	t.Helper()
	ctx := context.Background()

	a := &application.Application{
		ApplicationNumber:   "LOS20260901CAFE01",
		ApplicantName:       "Asha Rao",
		DateOfBirth:         time.Date(1996, 5, 1, 0, 0, 0, 0, time.UTC),
		PAN:                 "ABCDE1234F",
		LoanAmount:          500000,
		TenureMonths:        36,
		LoanType:            "personal",
		MonthlyIncome:       80000,
		EmploymentType:      "salaried",
		WorkExperienceYears: 6,
		CurrentPhase:        application.PhaseCreditDecision,
		CurrentStatus:       application.StatusPending,
	}
	storeSnapshot(a, verification.Snapshot{
		Identity: &verification.IdentityResult{Verified: true},
		Bureau:   &verification.BureauReport{CIBILScore: 780, HistoryMonths: 60, UtilizationRatio: 0.2},
		Bank:     &verification.BankReport{VerifiedIncome: 80000, BankingScore: 90},
	})
	if err := store.Create(ctx, a); err != nil {
		t.Fatal(err)
	}

	phases := &memPhases{s: store}
	now := time.Now().UTC()
	seed := func(phase application.Phase, payload any) {
		rec := &application.PhaseRecord{
			ApplicationID: a.ID,
			Phase:         phase,
			Status:        application.StatusCompleted,
			StartedAt:     &now,
			CompletedAt:   &now,
		}
		if err := rec.SetDecision(payload); err != nil {
			t.Fatal(err)
		}
		if err := phases.Create(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}
	seed(application.PhasePreQualification, engine.PreQualificationResult{Decision: engine.DecisionApproved})
	seed(application.PhaseLoanApplication, loanApplicationDetails{DocumentsComplete: true})
	seed(application.PhaseApplicationProcessing, engine.ProcessingResult{Decision: engine.DecisionApproved, IncomeMatched: true})
	seed(application.PhaseUnderwriting, engine.UnderwritingResult{
		Decision:          engine.DecisionApproved,
		UnderwritingScore: 88,
		RiskCategory:      engine.RiskLow,
		Factors:           engine.DecisionFactors{CreditScore: 780, RiskCategory: engine.RiskLow, PolicyCompliant: true},
	})
	return a.ApplicationNumber
}

func TestRunPhase_ManualReviewHoldAndResume(t *testing.T) {
	uc, store := newMemUsecase(goodVerifiers())
	ctx := context.Background()
	number := seedThroughUnderwriting(t, store)

	// flagging for review without a decision parks the phase
	env, err := uc.RunPhase(ctx, number, application.PhaseCreditDecision, PhaseInput{ManualReviewRequired: true})
	if err != nil {
		t.Fatalf("RunPhase hold: %v", err)
	}
	if env.Status != string(application.StatusRequiresReview) {
		t.Fatalf("status = %s, want requires_review", env.Status)
	}
	a, _ := store.GetByNumber(ctx, number)
	if a.CurrentStatus != application.StatusRequiresReview {
		t.Fatalf("aggregate status = %s, want requires_review", a.CurrentStatus)
	}

	// re-running without reviewer input keeps holding
	env, err = uc.RunPhase(ctx, number, application.PhaseCreditDecision, PhaseInput{})
	if err != nil {
		t.Fatalf("RunPhase while held: %v", err)
	}
	if env.Status != string(application.StatusRequiresReview) {
		t.Fatalf("status = %s, want still requires_review", env.Status)
	}

	// reviewer input re-enters and completes the phase
	env, err = uc.RunPhase(ctx, number, application.PhaseCreditDecision, PhaseInput{
		ManualReviewRequired: true,
		Manual: &engine.ManualOverride{
			Decision: engine.DecisionApproved,
			Reason:   "verified income offline",
		},
	})
	if err != nil {
		t.Fatalf("RunPhase resume: %v", err)
	}
	if env.Status != string(application.StatusCompleted) || env.Decision != string(engine.DecisionApproved) {
		t.Fatalf("envelope = %+v, want completed/approved", env)
	}

	rec, _ := (&memPhases{s: store}).GetByApplicationAndPhase(ctx, a.ID, application.PhaseCreditDecision)
	var res engine.CreditDecisionResult
	if err := rec.DecodeDecision(&res); err != nil {
		t.Fatalf("decode decision: %v", err)
	}
	if !res.Summary.Overridden || res.OverrideReason == "" {
		t.Fatalf("override not recorded: %+v", res)
	}
}

func TestPhaseStatus(t *testing.T) {
	uc, _ := newMemUsecase(goodVerifiers())
	ctx := context.Background()

	pre, err := uc.PreQualify(ctx, goodPreQualifyInput())
	if err != nil {
		t.Fatalf("PreQualify: %v", err)
	}

	done, err := uc.PhaseStatus(ctx, pre.ApplicationNumber, application.PhasePreQualification)
	if err != nil {
		t.Fatalf("PhaseStatus: %v", err)
	}
	if done.Status != string(application.StatusCompleted) || len(done.Decision) == 0 {
		t.Fatalf("dto = %+v, want completed with decision payload", done)
	}

	// a phase never entered reports pending
	future, err := uc.PhaseStatus(ctx, pre.ApplicationNumber, application.PhaseUnderwriting)
	if err != nil {
		t.Fatalf("PhaseStatus: %v", err)
	}
	if future.Status != string(application.StatusPending) {
		t.Fatalf("status = %s, want pending", future.Status)
	}

	if _, err := uc.PhaseStatus(ctx, "LOS20260901ZZZZZZ", application.PhaseUnderwriting); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
