package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestPolicyDefaultsWhenFileMissing(t *testing.T) {
	v := viper.New()
	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath(t.TempDir())

	holder, err := newPolicyHolder(v, zaptest.NewLogger(t))
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, AccessRole, got.Users.Create)
	assert.Equal(t, AccessOpen, got.Users.Get)
	assert.Equal(t, AccessOpen, got.Users.Update)
	assert.Equal(t, AccessOpen, got.Users.Delete)
	assert.Contains(t, got.Grants, Grant{Role: "admin", Object: "users", Action: "create"})
}

func TestPolicyFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yml")
	content := `policy:
  users:
    create: open
    delete: TOKEN
  grants:
    - role: owner
      object: users
      action: create
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)

	holder, err := newPolicyHolder(v, zaptest.NewLogger(t))
	require.NoError(t, err)

	got := holder.Get()
	assert.Equal(t, AccessOpen, got.Users.Create)
	assert.Equal(t, AccessToken, got.Users.Delete)
	assert.Equal(t, AccessOpen, got.Users.Get)
	assert.Equal(t, []Grant{{Role: "owner", Object: "users", Action: "create"}}, got.Grants)
}

func TestPolicyEnvOverride(t *testing.T) {
	t.Setenv("CRUDFORGE_POLICY_USERS_GET", "token")

	v := viper.New()
	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath(t.TempDir())

	holder, err := newPolicyHolder(v, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, AccessToken, holder.Get().Users.Get)
}

func TestPolicyRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yml")
	require.NoError(t, os.WriteFile(path, []byte("policy:\n  users:\n    create: sometimes\n"), 0o600))

	v := viper.New()
	v.SetConfigFile(path)

	_, err := newPolicyHolder(v, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users.create")
}

func TestPolicyHolderSetNotifiesListeners(t *testing.T) {
	holder := NewStaticPolicyHolder(DefaultPolicy())

	var seen []Policy
	holder.OnChange(func(p Policy) { seen = append(seen, p) })

	updated := DefaultPolicy()
	updated.Users.Get = AccessToken
	require.NoError(t, holder.Set(updated))
	require.Len(t, seen, 1)
	assert.Equal(t, AccessToken, holder.Get().Users.Get)

	bad := DefaultPolicy()
	bad.Users.Delete = "nobody"
	assert.Error(t, holder.Set(bad))
	assert.Len(t, seen, 1)
}
