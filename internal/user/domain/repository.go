package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository runs on whatever handle it is given, so callers choose the
// transaction boundary.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByKey(ctx context.Context, db *gorm.DB, orgID, orgUserID string) (*User, error)
	Replace(ctx context.Context, db *gorm.DB, user *User) error
	Delete(ctx context.Context, db *gorm.DB, orgID, orgUserID string) (int64, error)
}
