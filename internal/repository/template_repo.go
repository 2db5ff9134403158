package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TemplateRepository interface {
	Get(ctx context.Context, channel domain.Channel, scope string) (*domain.Template, error)
	Upsert(ctx context.Context, t *domain.Template) error
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) Get(ctx context.Context, channel domain.Channel, scope string) (*domain.Template, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).
		Where("channel = ? AND scope = ?", channel, scope).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}

// Upsert creates the override or replaces its content.
func (r *GormTemplateRepo) Upsert(ctx context.Context, t *domain.Template) error {
	model := templateModelFromDomain(t)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "channel"}, {Name: "scope"}},
			DoUpdates: clause.AssignmentColumns([]string{"subject", "body", "active", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	*t = *templateModelToDomain(model)
	return nil
}
