package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"gorm.io/gorm"
)

type InquiryRepository interface {
	Create(ctx context.Context, inquiry *domain.Inquiry) error
	GetByID(ctx context.Context, id string) (*domain.Inquiry, error)
}

type GormInquiryRepo struct {
	db *gorm.DB
}

func NewGormInquiryRepo(db *gorm.DB) *GormInquiryRepo {
	return &GormInquiryRepo{db: db}
}

func (r *GormInquiryRepo) Create(ctx context.Context, inquiry *domain.Inquiry) error {
	model := inquiryModelFromDomain(inquiry)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	*inquiry = *inquiryModelToDomain(model)
	return nil
}

func (r *GormInquiryRepo) GetByID(ctx context.Context, id string) (*domain.Inquiry, error) {
	var model InquiryModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return inquiryModelToDomain(&model), nil
}
