package mysql

import (
	"context"

	appDomain "los-backend/internal/domain/application"

	"gorm.io/gorm"
)

type PhaseRepository struct{ db *gorm.DB }

func NewPhaseRepository(db *gorm.DB) *PhaseRepository { return &PhaseRepository{db: db} }

func (r *PhaseRepository) Create(ctx context.Context, rec *appDomain.PhaseRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *PhaseRepository) Save(ctx context.Context, rec *appDomain.PhaseRecord) error {
	return r.db.WithContext(ctx).Save(rec).Error
}

func (r *PhaseRepository) GetByApplicationAndPhase(ctx context.Context, applicationID uint64, phase appDomain.Phase) (*appDomain.PhaseRecord, error) {
	var out appDomain.PhaseRecord
	res := r.db.WithContext(ctx).
		Where("application_id = ? AND phase = ?", applicationID, phase).
		First(&out)
	return &out, res.Error
}

func (r *PhaseRepository) ListByApplication(ctx context.Context, applicationID uint64) ([]appDomain.PhaseRecord, error) {
	var out []appDomain.PhaseRecord
	res := r.db.WithContext(ctx).
		Where("application_id = ?", applicationID).
		Order("id ASC").
		Find(&out)
	return out, res.Error
}
