package db

import (
	"doc-tracker/internal/domain"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Migrate creates or updates the active, deleted, user and blob tables.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&domain.Document{},
		&domain.DeletedDocument{},
		&domain.User{},
		&domain.Blob{},
	)
	return errors.Wrap(err, "migrating schema")
}
