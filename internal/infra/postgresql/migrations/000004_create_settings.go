package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createSettingsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000004_create_settings",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SettingsModel{}); err != nil {
				return err
			}
			return tx.Exec(`ALTER TABLE settings ADD CONSTRAINT settings_single_row CHECK (id = 1)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SettingsModel{})
		},
	}
}
