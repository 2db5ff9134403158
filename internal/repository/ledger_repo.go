package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerRepository persists per-channel delivery state. Bootstrap never
// overwrites an existing entry, and a channel marked sent is never
// downgraded by MarkFailed.
type LedgerRepository interface {
	Bootstrap(ctx context.Context, eventID string) (*domain.LedgerEntry, error)
	Get(ctx context.Context, eventID string) (*domain.LedgerEntry, error)
	MarkSent(ctx context.Context, eventID string, channel domain.Channel, at time.Time) error
	MarkFailed(ctx context.Context, eventID string, channel domain.Channel, at time.Time, reason string) error
	ListRedeliverable(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]domain.LedgerEntry, error)
}

type GormLedgerRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormLedgerRepo(db *gorm.DB) *GormLedgerRepo {
	return &GormLedgerRepo{db: db, now: time.Now}
}

// Bootstrap inserts a pending entry if none exists and returns the stored one.
func (r *GormLedgerRepo) Bootstrap(ctx context.Context, eventID string) (*domain.LedgerEntry, error) {
	entry := domain.NewLedgerEntry(eventID, r.now().UTC())
	model := ledgerModelFromDomain(&entry)

	var stored LedgerModel
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).Create(model).Error; err != nil {
			return err
		}
		return tx.First(&stored, "event_id = ?", eventID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap ledger %s: %w", eventID, err)
	}
	return ledgerModelToDomain(&stored), nil
}

func (r *GormLedgerRepo) Get(ctx context.Context, eventID string) (*domain.LedgerEntry, error) {
	var model LedgerModel
	err := r.db.WithContext(ctx).First(&model, "event_id = ?", eventID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ledgerModelToDomain(&model), nil
}

func (r *GormLedgerRepo) MarkSent(ctx context.Context, eventID string, channel domain.Channel, at time.Time) error {
	prefix, ok := ledgerColumns(channel)
	if !ok {
		return fmt.Errorf("%w: channel %q has no ledger state", domain.ErrValidation, channel)
	}

	result := r.db.WithContext(ctx).
		Model(&LedgerModel{}).
		Where("event_id = ?", eventID).
		Updates(map[string]any{
			prefix + "_status":   domain.DeliverySent,
			prefix + "_sent_at":  at.UTC(),
			prefix + "_error":    "",
			prefix + "_attempts": gorm.Expr(prefix + "_attempts + 1"),
			"updated_at":         at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed records a failed attempt. It returns domain.ErrConflict when the
// channel was already marked sent.
func (r *GormLedgerRepo) MarkFailed(ctx context.Context, eventID string, channel domain.Channel, at time.Time, reason string) error {
	prefix, ok := ledgerColumns(channel)
	if !ok {
		return fmt.Errorf("%w: channel %q has no ledger state", domain.ErrValidation, channel)
	}

	result := r.db.WithContext(ctx).
		Model(&LedgerModel{}).
		Where("event_id = ? AND "+prefix+"_status <> ?", eventID, domain.DeliverySent).
		Updates(map[string]any{
			prefix + "_status":    domain.DeliveryError,
			prefix + "_failed_at": at.UTC(),
			prefix + "_error":     reason,
			prefix + "_attempts":  gorm.Expr(prefix + "_attempts + 1"),
			"updated_at":          at.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	if _, err := r.Get(ctx, eventID); err != nil {
		return err
	}
	return domain.ErrConflict
}

// ListRedeliverable returns entries untouched since cutoff that have a failed
// channel, or a still pending admin channel, with attempts left.
func (r *GormLedgerRepo) ListRedeliverable(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]domain.LedgerEntry, error) {
	open := r.db.
		Where("admin_status = ? AND admin_attempts < ?", domain.DeliveryError, maxAttempts).
		Or("customer_status = ? AND customer_attempts < ?", domain.DeliveryError, maxAttempts).
		Or("admin_status = ? AND admin_attempts < ?", domain.DeliveryPending, maxAttempts)

	var models []LedgerModel
	err := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Where(open).
		Order("updated_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.LedgerEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *ledgerModelToDomain(&models[i]))
	}
	return entries, nil
}
