package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"gorm.io/gorm"
)

func createTemplatesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_templates",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.TemplateModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.TemplateModel{})
		},
	}
}
