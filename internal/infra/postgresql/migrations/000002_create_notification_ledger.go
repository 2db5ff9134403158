package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createNotificationLedgerTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_notification_ledger",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.LedgerModel{}); err != nil {
				return err
			}
			return execAll(tx, []string{
				`CREATE INDEX IF NOT EXISTS idx_ledger_admin_redelivery ON notification_ledger (updated_at) WHERE admin_status <> 'sent'`,
				`CREATE INDEX IF NOT EXISTS idx_ledger_customer_error ON notification_ledger (updated_at) WHERE customer_status = 'error'`,
			})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.LedgerModel{})
		},
	}
}
