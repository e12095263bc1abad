package authorization

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/crudforge/internal/config"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectUsers = "users"

	ActionCreate = "create"
	ActionRead   = "read"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// NewEnforcer loads the role model backed by the casbin_rule table and
// keeps its grants in step with the route policy.
func NewEnforcer(db *gorm.DB, policy *config.PolicyHolder, log *zap.Logger) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, fmt.Errorf("casbin adapter: %w", err)
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := SyncGrants(enforcer, policy.Get().Grants); err != nil {
		return nil, err
	}

	log = log.Named("authorization.enforcer")
	policy.OnChange(func(p config.Policy) {
		if err := SyncGrants(enforcer, p.Grants); err != nil {
			log.Error("sync grants failed", zap.Error(err))
			return
		}
		log.Info("grants synced", zap.Int("count", len(p.Grants)))
	})

	return enforcer, nil
}

// SyncGrants makes the stored policy rules equal to grants.
func SyncGrants(enforcer *casbin.SyncedEnforcer, grants []config.Grant) error {
	want := make(map[string][]string, len(grants))
	for _, g := range grants {
		rule := []string{roleSubject(g.Role), g.Object, g.Action}
		want[strings.Join(rule, "|")] = rule
	}

	current, err := enforcer.GetPolicy()
	if err != nil {
		return err
	}
	for _, rule := range current {
		key := strings.Join(rule, "|")
		if _, ok := want[key]; ok {
			delete(want, key)
			continue
		}
		if _, err := enforcer.RemovePolicy(toParams(rule)...); err != nil {
			return fmt.Errorf("remove grant %v: %w", rule, err)
		}
	}

	for _, rule := range want {
		if _, err := enforcer.AddPolicy(toParams(rule)...); err != nil {
			return fmt.Errorf("add grant %v: %w", rule, err)
		}
	}
	return nil
}

// roleSubject maps a role claim to its casbin subject. Roles compare exactly.
func roleSubject(role string) string {
	return "role:" + role
}

func toParams(rule []string) []interface{} {
	params := make([]interface{}, 0, len(rule))
	for _, v := range rule {
		params = append(params, v)
	}
	return params
}
