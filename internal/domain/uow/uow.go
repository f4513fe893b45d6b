package uow

import (
	"context"

	"los-backend/internal/domain/application"
)

type Repos struct {
	Applications application.Repository
	Phases       application.PhaseRepository
}

type UnitOfWork interface {
	// plain tx
	WithinTx(ctx context.Context, fn func(r Repos) error) error
	// convenience: lock the application row first, then pass it in
	WithinApplicationTx(ctx context.Context, number string, fn func(r Repos, a *application.Application) error) error
}
