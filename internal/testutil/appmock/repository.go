package appmock

import (
	"context"

	domain "los-backend/internal/domain/application"
)

// Repo is a function-backed mock that satisfies domain.Repository.
// Only methods you need are included; add more as tests require.
type Repo struct {
	CreateFn               func(ctx context.Context, a *domain.Application) error
	GetByNumberFn          func(ctx context.Context, number string) (*domain.Application, error)
	GetByNumberForUpdateFn func(ctx context.Context, number string) (*domain.Application, error)
	GetActiveByPANFn       func(ctx context.Context, pan string) (*domain.Application, error)
	SaveFn                 func(ctx context.Context, a *domain.Application) error
}

func (m *Repo) Create(ctx context.Context, a *domain.Application) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, a)
	}
	return nil
}

func (m *Repo) GetByNumber(ctx context.Context, number string) (*domain.Application, error) {
	if m.GetByNumberFn != nil {
		return m.GetByNumberFn(ctx, number)
	}
	return nil, context.Canceled
}

func (m *Repo) GetByNumberForUpdate(ctx context.Context, number string) (*domain.Application, error) {
	if m.GetByNumberForUpdateFn != nil {
		return m.GetByNumberForUpdateFn(ctx, number)
	}
	return nil, context.Canceled
}

func (m *Repo) GetActiveByPAN(ctx context.Context, pan string) (*domain.Application, error) {
	if m.GetActiveByPANFn != nil {
		return m.GetActiveByPANFn(ctx, pan)
	}
	return nil, context.Canceled
}

func (m *Repo) Save(ctx context.Context, a *domain.Application) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, a)
	}
	return nil
}

// PhaseRepo is the function-backed counterpart for domain.PhaseRepository.
type PhaseRepo struct {
	CreateFn                   func(ctx context.Context, p *domain.PhaseRecord) error
	GetByApplicationAndPhaseFn func(ctx context.Context, appID uint64, phase domain.Phase) (*domain.PhaseRecord, error)
	ListByApplicationFn        func(ctx context.Context, appID uint64) ([]domain.PhaseRecord, error)
	SaveFn                     func(ctx context.Context, p *domain.PhaseRecord) error
}

func (m *PhaseRepo) Create(ctx context.Context, p *domain.PhaseRecord) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, p)
	}
	return nil
}

func (m *PhaseRepo) GetByApplicationAndPhase(ctx context.Context, appID uint64, phase domain.Phase) (*domain.PhaseRecord, error) {
	if m.GetByApplicationAndPhaseFn != nil {
		return m.GetByApplicationAndPhaseFn(ctx, appID, phase)
	}
	return nil, context.Canceled
}

func (m *PhaseRepo) ListByApplication(ctx context.Context, appID uint64) ([]domain.PhaseRecord, error) {
	if m.ListByApplicationFn != nil {
		return m.ListByApplicationFn(ctx, appID)
	}
	return nil, context.Canceled
}

func (m *PhaseRepo) Save(ctx context.Context, p *domain.PhaseRecord) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, p)
	}
	return nil
}
