package migration

import (
	"errors"
	"fmt"

	userdomain "github.com/smallbiznis/crudforge/internal/user/domain"
	"gorm.io/gorm"
)

// RunMigrations creates the users table if it is missing. Existing columns
// are never altered or dropped.
func RunMigrations(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if db.Migrator().HasTable(&userdomain.User{}) {
		return nil
	}
	if err := db.AutoMigrate(&userdomain.User{}); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}
