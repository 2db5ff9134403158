package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingsRepository stores the operator settings. Get returns
// domain.ErrNotFound until settings are saved for the first time.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, s *domain.Settings) error
}

type GormSettingsRepo struct {
	db *gorm.DB
}

func NewGormSettingsRepo(db *gorm.DB) *GormSettingsRepo {
	return &GormSettingsRepo{db: db}
}

func (r *GormSettingsRepo) Get(ctx context.Context) (*domain.Settings, error) {
	var model SettingsModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", settingsRowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return settingsModelToDomain(&model), nil
}

func (r *GormSettingsRepo) Save(ctx context.Context, s *domain.Settings) error {
	model := settingsModelFromDomain(s)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"customer_auto_reply_enabled", "sender_name", "sender_email",
				"admin_recipient", "reply_to_email", "reply_to_name", "site_name", "updated_at",
			}),
		}).
		Create(model).Error
}
