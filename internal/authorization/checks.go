package authorization

import (
	"context"
	"errors"
	"fmt"

	"github.com/casbin/casbin/v2"
	authdomain "github.com/smallbiznis/crudforge/internal/auth/domain"
)

// Request is the input every check sees. RequireToken fills Claims for the
// checks that follow it.
type Request struct {
	PathOrgID string
	RawToken  string
	Claims    *authdomain.Claims
}

// Check inspects a request and returns ErrUnauthorized or ErrForbidden
// (possibly wrapped) to reject it.
type Check func(ctx context.Context, req *Request) error

// Verifier is satisfied by the auth token service.
type Verifier interface {
	Verify(ctx context.Context, raw string) (*authdomain.Claims, error)
}

func RequireToken(v Verifier) Check {
	return func(ctx context.Context, req *Request) error {
		claims, err := v.Verify(ctx, req.RawToken)
		if err != nil {
			return errors.Join(ErrUnauthorized, err)
		}
		req.Claims = claims
		return nil
	}
}

func RequireOrgMatch() Check {
	return func(_ context.Context, req *Request) error {
		if req.Claims == nil {
			return ErrUnauthorized
		}
		if req.Claims.OrgID != req.PathOrgID {
			return errors.Join(ErrForbidden, ErrOrgMismatch)
		}
		return nil
	}
}

func RequireRole(enforcer *casbin.SyncedEnforcer, object, action string) Check {
	return func(_ context.Context, req *Request) error {
		if req.Claims == nil {
			return ErrUnauthorized
		}
		allowed, err := enforcer.Enforce(roleSubject(req.Claims.Role), object, action)
		if err != nil {
			return fmt.Errorf("enforce %s.%s: %w", object, action, err)
		}
		if !allowed {
			return errors.Join(ErrForbidden, ErrRoleDenied)
		}
		return nil
	}
}

// Chain runs checks in order and stops at the first failure.
func Chain(checks ...Check) Check {
	return func(ctx context.Context, req *Request) error {
		for _, check := range checks {
			if err := check(ctx, req); err != nil {
				return err
			}
		}
		return nil
	}
}
