package mysql

import (
	"context"

	appDomain "los-backend/internal/domain/application"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ApplicationRepository struct{ db *gorm.DB }

func NewApplicationRepository(db *gorm.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, a *appDomain.Application) error {
	return r.db.WithContext(ctx).Create(a).Error
}

func (r *ApplicationRepository) Save(ctx context.Context, a *appDomain.Application) error {
	return r.db.WithContext(ctx).Save(a).Error
}

func (r *ApplicationRepository) GetByNumber(ctx context.Context, number string) (*appDomain.Application, error) {
	var out appDomain.Application
	res := r.db.WithContext(ctx).Where("application_number = ?", number).First(&out)
	return &out, res.Error
}

// GetByNumberForUpdate takes a row lock so concurrent phase requests for the
// same application serialize on the database.
func (r *ApplicationRepository) GetByNumberForUpdate(ctx context.Context, number string) (*appDomain.Application, error) {
	var out appDomain.Application
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("application_number = ?", number).
		First(&out)
	return &out, res.Error
}

func (r *ApplicationRepository) GetActiveByPAN(ctx context.Context, pan string) (*appDomain.Application, error) {
	var out appDomain.Application
	res := r.db.WithContext(ctx).
		Where("pan = ? AND current_status NOT IN ?", pan,
			[]appDomain.Status{appDomain.StatusCompleted, appDomain.StatusFailed}).
		Order("created_at DESC, id DESC").
		First(&out)
	return &out, res.Error
}
