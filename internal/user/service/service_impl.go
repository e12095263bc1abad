package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smallbiznis/crudforge/internal/clock"
	"github.com/smallbiznis/crudforge/internal/user/domain"
	"github.com/smallbiznis/crudforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("user.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateUserRequest) (domain.User, error) {
	payload := req.Payload.Normalize()
	orgID, _, err := checkKey(req.OrgID, payload.OrgUserID)
	if err != nil {
		return domain.User{}, err
	}
	if payload.OrgID != "" && payload.OrgID != orgID {
		return domain.User{}, domain.ErrOrgMismatch
	}
	if err := validateFields(payload); err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		OrgUserID:    payload.OrgUserID,
		OrgID:        orgID,
		Name:         payload.Name,
		ContactNo:    payload.ContactNo,
		EmployeeCode: payload.EmployeeCode,
		CreatedDate:  domain.NewTimestamp(s.clock.Now()),
		ValidTill:    *payload.ValidTill,
	}
	if payload.CreatedDate != nil {
		user.CreatedDate = *payload.CreatedDate
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.Insert(ctx, tx, &user)
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.User{}, domain.ErrConflict
		}
		return domain.User{}, fmt.Errorf("insert user: %w", err)
	}

	s.log.Info("user created", zap.String("org_id", orgID), zap.String("org_user_id", user.OrgUserID))
	return user, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetUserRequest) (domain.User, error) {
	orgID, orgUserID, err := checkKey(req.OrgID, req.OrgUserID)
	if err != nil {
		return domain.User{}, err
	}

	user, err := s.repo.FindByKey(ctx, s.db, orgID, orgUserID)
	if err != nil {
		return domain.User{}, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return domain.User{}, domain.ErrNotFound
	}
	return *user, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateUserRequest) (domain.User, error) {
	orgID, orgUserID, err := checkKey(req.OrgID, req.OrgUserID)
	if err != nil {
		return domain.User{}, err
	}

	payload := req.Payload.Normalize()
	if payload.OrgID != "" && payload.OrgID != orgID {
		return domain.User{}, domain.ErrOrgMismatch
	}
	if payload.OrgUserID != "" && payload.OrgUserID != orgUserID {
		return domain.User{}, domain.ErrUserIDMismatch
	}
	if err := validateFields(payload); err != nil {
		return domain.User{}, err
	}
	// PUT replaces every mutable column, created_date included.
	if payload.CreatedDate == nil || payload.CreatedDate.IsZero() {
		return domain.User{}, domain.ErrInvalidCreatedDate
	}

	var updated domain.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByKey(ctx, tx, orgID, orgUserID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		updated = *existing
		updated.Name = payload.Name
		updated.ContactNo = payload.ContactNo
		updated.EmployeeCode = payload.EmployeeCode
		updated.ValidTill = *payload.ValidTill
		updated.CreatedDate = *payload.CreatedDate
		return s.repo.Replace(ctx, tx, &updated)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, err
		}
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}

	s.log.Info("user updated", zap.String("org_id", orgID), zap.String("org_user_id", orgUserID))
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteUserRequest) error {
	orgID, orgUserID, err := checkKey(req.OrgID, req.OrgUserID)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.Delete(ctx, tx, orgID, orgUserID)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.Info("user deleted", zap.String("org_id", orgID), zap.String("org_user_id", orgUserID))
	return nil
}

// checkKey rejects blank keys. Non-blank keys are returned unchanged.
func checkKey(orgID, orgUserID string) (string, string, error) {
	if strings.TrimSpace(orgID) == "" {
		return "", "", domain.ErrInvalidOrganization
	}
	if strings.TrimSpace(orgUserID) == "" {
		return "", "", domain.ErrInvalidUserID
	}
	return orgID, orgUserID, nil
}

func validateFields(p domain.UserPayload) error {
	if p.Name == "" {
		return domain.ErrInvalidName
	}
	if p.ValidTill == nil || p.ValidTill.IsZero() {
		return domain.ErrInvalidValidTill
	}
	return nil
}
