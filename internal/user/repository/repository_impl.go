package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/crudforge/internal/user/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, orgID, orgUserID string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Where("org_id = ? AND org_user_id = ?", orgID, orgUserID).
		Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Replace overwrites every mutable column of the row identified by the
// user's key pair.
func (r *repo) Replace(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).
		Model(&domain.User{}).
		Where("org_id = ? AND org_user_id = ?", user.OrgID, user.OrgUserID).
		Updates(map[string]any{
			"name":          user.Name,
			"contact_no":    user.ContactNo,
			"employee_code": user.EmployeeCode,
			"created_date":  user.CreatedDate,
			"valid_till":    user.ValidTill,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, orgUserID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("org_id = ? AND org_user_id = ?", orgID, orgUserID).
		Delete(&domain.User{})
	return res.RowsAffected, res.Error
}
