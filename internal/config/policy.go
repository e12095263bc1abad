package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// AccessMode selects which authorization checks guard a route.
type AccessMode string

const (
	// AccessOpen performs no token checks.
	AccessOpen AccessMode = "open"
	// AccessToken requires a valid token whose org matches the path org.
	AccessToken AccessMode = "token"
	// AccessRole additionally requires the token role to be granted the action.
	AccessRole AccessMode = "role"
)

func (m AccessMode) Valid() bool {
	switch m {
	case AccessOpen, AccessToken, AccessRole:
		return true
	default:
		return false
	}
}

// UserRoutePolicy maps each user route to its access mode.
type UserRoutePolicy struct {
	Create AccessMode `mapstructure:"create"`
	Get    AccessMode `mapstructure:"get"`
	Update AccessMode `mapstructure:"update"`
	Delete AccessMode `mapstructure:"delete"`
}

// Grant allows a role to perform an action on an object.
type Grant struct {
	Role   string `mapstructure:"role"`
	Object string `mapstructure:"object"`
	Action string `mapstructure:"action"`
}

type Policy struct {
	Users  UserRoutePolicy `mapstructure:"users"`
	Grants []Grant         `mapstructure:"grants"`
}

func DefaultPolicy() Policy {
	return Policy{
		Users: UserRoutePolicy{
			Create: AccessRole,
			Get:    AccessOpen,
			Update: AccessOpen,
			Delete: AccessOpen,
		},
		Grants: []Grant{
			{Role: "admin", Object: "users", Action: "create"},
			{Role: "admin", Object: "users", Action: "read"},
			{Role: "admin", Object: "users", Action: "update"},
			{Role: "admin", Object: "users", Action: "delete"},
			{Role: "user", Object: "users", Action: "read"},
		},
	}
}

type PolicyHolder struct {
	current atomic.Value // holds Policy

	mu        sync.Mutex
	listeners []func(Policy)
}

// NewPolicyHolder reads policy.yml from the usual locations, falling back to
// DefaultPolicy, and reloads it when the file changes.
func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	v := viper.New()
	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/crudforge")
	v.AddConfigPath(".")
	return newPolicyHolder(v, log)
}

// NewStaticPolicyHolder returns a holder that always serves p.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func newPolicyHolder(v *viper.Viper, log *zap.Logger) (*PolicyHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.policy")

	v.SetEnvPrefix("CRUDFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("policy.users.create", string(defaults.Users.Create))
	v.SetDefault("policy.users.get", string(defaults.Users.Get))
	v.SetDefault("policy.users.update", string(defaults.Users.Update))
	v.SetDefault("policy.users.delete", string(defaults.Users.Delete))
	v.SetDefault("policy.grants", defaults.Grants)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read policy config: %w", err)
		}
		fileFound = false
	}

	cfg, err := unmarshalPolicy(v)
	if err != nil {
		return nil, err
	}

	holder := &PolicyHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := unmarshalPolicy(v)
			if err != nil {
				log.Warn("policy reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.set(updated)
			log.Info("policy reloaded", zap.String("file", e.Name))
		})
	}

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

// OnChange registers fn to run after every successful reload.
func (h *PolicyHolder) OnChange(fn func(Policy)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Set replaces the current policy and notifies listeners.
func (h *PolicyHolder) Set(p Policy) error {
	if err := validatePolicy(p); err != nil {
		return err
	}
	h.set(p)
	return nil
}

func (h *PolicyHolder) set(p Policy) {
	h.current.Store(p)

	h.mu.Lock()
	listeners := append([]func(Policy){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(p)
	}
}

func unmarshalPolicy(v *viper.Viper) (Policy, error) {
	// Route modes are read key by key so CRUDFORGE_POLICY_USERS_* env overrides apply.
	cfg := Policy{
		Users: UserRoutePolicy{
			Create: normalizeMode(v.GetString("policy.users.create")),
			Get:    normalizeMode(v.GetString("policy.users.get")),
			Update: normalizeMode(v.GetString("policy.users.update")),
			Delete: normalizeMode(v.GetString("policy.users.delete")),
		},
	}
	if err := v.UnmarshalKey("policy.grants", &cfg.Grants); err != nil {
		return Policy{}, fmt.Errorf("decode policy grants: %w", err)
	}
	if err := validatePolicy(cfg); err != nil {
		return Policy{}, err
	}
	return cfg, nil
}

func normalizeMode(m string) AccessMode {
	return AccessMode(strings.ToLower(strings.TrimSpace(m)))
}

func validatePolicy(cfg Policy) error {
	modes := map[string]AccessMode{
		"users.create": cfg.Users.Create,
		"users.get":    cfg.Users.Get,
		"users.update": cfg.Users.Update,
		"users.delete": cfg.Users.Delete,
	}
	for route, mode := range modes {
		if !mode.Valid() {
			return fmt.Errorf("policy.%s: unknown access mode %q", route, mode)
		}
	}
	for i, g := range cfg.Grants {
		if strings.TrimSpace(g.Role) == "" || strings.TrimSpace(g.Object) == "" || strings.TrimSpace(g.Action) == "" {
			return fmt.Errorf("policy.grants[%d]: role, object and action are required", i)
		}
	}
	return nil
}
