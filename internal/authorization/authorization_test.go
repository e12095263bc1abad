package authorization

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/crudforge/internal/auth/domain"
	"github.com/smallbiznis/crudforge/internal/auth/token"
	"github.com/smallbiznis/crudforge/internal/clock"
	"github.com/smallbiznis/crudforge/internal/config"
	"github.com/smallbiznis/crudforge/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	svc    *Service
	tokens *token.Service
	policy *config.PolicyHolder
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	conn, err := db.NewTest()
	require.NoError(t, err)

	log := zaptest.NewLogger(t)
	policy := config.NewStaticPolicyHolder(config.DefaultPolicy())
	enforcer, err := NewEnforcer(conn, policy, log)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	tokens := token.NewWithSecret([]byte("secret"), "crudforge", time.Hour, clock.SystemClock{}, node)

	svc := &Service{log: log, enforcer: enforcer, verifier: tokens}
	return fixture{svc: svc, tokens: tokens, policy: policy}
}

func (f fixture) issue(t *testing.T, orgID, role string) string {
	t.Helper()
	tok, err := f.tokens.Issue(context.Background(), authdomain.Principal{OrgID: orgID, Role: role})
	require.NoError(t, err)
	return tok.AccessToken
}

func (f fixture) authorizeCreate(raw, pathOrgID string) error {
	req := &Request{PathOrgID: pathOrgID, RawToken: raw}
	return f.svc.Authorize(context.Background(), config.AccessRole, ObjectUsers, ActionCreate, req)
}

func TestProtectedCreateRejectsUserRole(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, "A", "user")

	err := f.authorizeCreate(raw, "A")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, ErrRoleDenied)

	err = f.authorizeCreate(raw, "B")
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, err, ErrOrgMismatch)
}

func TestProtectedCreateAllowsAdminOnlyForOwnOrg(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, "A", "admin")

	assert.NoError(t, f.authorizeCreate(raw, "A"))

	err := f.authorizeCreate(raw, "B")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestProtectedCreateRequiresValidToken(t *testing.T) {
	f := newFixture(t)

	err := f.authorizeCreate("", "A")
	assert.ErrorIs(t, err, ErrUnauthorized)

	err = f.authorizeCreate("garbage", "A")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.ErrorIs(t, err, authdomain.ErrInvalidToken)
}

func TestOpenAndTokenModes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	open := &Request{PathOrgID: "A"}
	require.NoError(t, f.svc.Authorize(ctx, config.AccessOpen, ObjectUsers, ActionRead, open))
	assert.Nil(t, open.Claims)

	req := &Request{PathOrgID: "A", RawToken: f.issue(t, "A", "user")}
	require.NoError(t, f.svc.Authorize(ctx, config.AccessToken, ObjectUsers, ActionDelete, req))
	require.NotNil(t, req.Claims)
	assert.Equal(t, "user", req.Claims.Role)

	_, err := f.svc.ChecksFor("sometimes", ObjectUsers, ActionRead)
	assert.Error(t, err)
}

func TestGrantsFollowPolicyReload(t *testing.T) {
	f := newFixture(t)
	raw := f.issue(t, "A", "owner")
	require.ErrorIs(t, f.authorizeCreate(raw, "A"), ErrForbidden)

	updated := config.DefaultPolicy()
	updated.Grants = []config.Grant{{Role: "owner", Object: ObjectUsers, Action: ActionCreate}}
	require.NoError(t, f.policy.Set(updated))

	assert.NoError(t, f.authorizeCreate(raw, "A"))
	assert.ErrorIs(t, f.authorizeCreate(f.issue(t, "A", "Owner"), "A"), ErrForbidden)
	assert.ErrorIs(t, f.authorizeCreate(f.issue(t, "A", "admin"), "A"), ErrForbidden)
}

func TestSyncGrantsIsIdempotent(t *testing.T) {
	f := newFixture(t)

	grants := config.DefaultPolicy().Grants
	require.NoError(t, SyncGrants(f.svc.enforcer, grants))
	require.NoError(t, SyncGrants(f.svc.enforcer, grants))

	rules, err := f.svc.enforcer.GetPolicy()
	require.NoError(t, err)
	assert.Len(t, rules, len(grants))
}

func TestRoleMatchIsExact(t *testing.T) {
	f := newFixture(t)

	for _, role := range []string{"ADMIN", "Admin", " admin", "admin "} {
		err := f.authorizeCreate(f.issue(t, "A", role), "A")
		assert.ErrorIs(t, err, ErrRoleDenied, "role %q", role)
	}
	assert.NoError(t, f.authorizeCreate(f.issue(t, "A", "admin"), "A"))
}
