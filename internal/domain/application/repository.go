package application

import "context"

type Repository interface {
	Create(ctx context.Context, a *Application) error
	GetByNumber(ctx context.Context, number string) (*Application, error)
	// GetByNumberForUpdate locks the application row for the duration of the
	// surrounding transaction. Serializes concurrent phase requests for the
	// same application.
	GetByNumberForUpdate(ctx context.Context, number string) (*Application, error)
	GetActiveByPAN(ctx context.Context, pan string) (*Application, error)
	Save(ctx context.Context, a *Application) error
}

type PhaseRepository interface {
	Create(ctx context.Context, r *PhaseRecord) error
	GetByApplicationAndPhase(ctx context.Context, applicationID uint64, phase Phase) (*PhaseRecord, error)
	ListByApplication(ctx context.Context, applicationID uint64) ([]PhaseRecord, error)
	Save(ctx context.Context, r *PhaseRecord) error
}
