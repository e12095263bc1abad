package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	authdomain "github.com/smallbiznis/crudforge/internal/auth/domain"
	"github.com/smallbiznis/crudforge/internal/auth/local"
	authservice "github.com/smallbiznis/crudforge/internal/auth/service"
	"github.com/smallbiznis/crudforge/internal/auth/token"
	"github.com/smallbiznis/crudforge/internal/authorization"
	"github.com/smallbiznis/crudforge/internal/clock"
	"github.com/smallbiznis/crudforge/internal/codegen"
	"github.com/smallbiznis/crudforge/internal/config"
	"github.com/smallbiznis/crudforge/internal/migration"
	obsmetrics "github.com/smallbiznis/crudforge/internal/observability/metrics"
	orgrepository "github.com/smallbiznis/crudforge/internal/organization/repository"
	orgservice "github.com/smallbiznis/crudforge/internal/organization/service"
	"github.com/smallbiznis/crudforge/internal/ratelimit"
	userdomain "github.com/smallbiznis/crudforge/internal/user/domain"
	userrepository "github.com/smallbiznis/crudforge/internal/user/repository"
	userservice "github.com/smallbiznis/crudforge/internal/user/service"
	"github.com/smallbiznis/crudforge/internal/web"
	"github.com/smallbiznis/crudforge/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	srv    *Server
	tokens *token.Service
	policy *config.PolicyHolder
}

type testOption func(*ServerParams)

func withLoginLimiter(l *ratelimit.LoginLimiter) testOption {
	return func(p *ServerParams) { p.LoginLimiter = l }
}

func newTestServer(t *testing.T, opts ...testOption) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, migration.RunMigrations(conn))

	log := zaptest.NewLogger(t)
	clk := clock.NewFakeClock(time.Date(2025, 10, 21, 10, 0, 0, 0, time.UTC))
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := config.Config{AppName: "crudforge", AppVersion: "test", Environment: "test"}
	policy := config.NewStaticPolicyHolder(config.DefaultPolicy())

	tokens := token.NewWithSecret([]byte("test-secret"), cfg.AppName, 30*time.Minute, clk, node)
	authSvc := authservice.New(authservice.Params{
		Log:           log,
		Authenticator: local.NewPermissiveAuthenticator(),
		Tokens:        tokens,
	})

	enforcer, err := authorization.NewEnforcer(conn, policy, log)
	require.NoError(t, err)

	gen, err := codegen.New()
	require.NoError(t, err)
	page, err := web.New(cfg)
	require.NoError(t, err)

	httpMetrics, err := obsmetrics.NewHTTPMetricsWith(prometheus.NewRegistry())
	require.NoError(t, err)

	params := ServerParams{
		Gin:    NewEngine(config.Config{Environment: "test"}, httpMetrics),
		Cfg:    cfg,
		Log:    log,
		Policy: policy,
		OrgSvc: orgservice.New(orgservice.Params{
			Log:       log,
			Clock:     clk,
			Directory: orgrepository.NewMemoryDirectory(),
		}),
		UserSvc: userservice.New(userservice.Params{
			DB:    conn,
			Log:   log,
			Clock: clk,
			Repo:  userrepository.Provide(),
		}),
		AuthSvc: authSvc,
		AuthzSvc: authorization.NewService(authorization.Params{
			Log:      log,
			Enforcer: enforcer,
			Auth:     authSvc,
		}),
		Codegen: gen,
		Page:    page,
	}
	for _, opt := range opts {
		opt(&params)
	}

	return testServer{srv: NewServer(params), tokens: tokens, policy: policy}
}

func (ts testServer) token(t *testing.T, orgID, role string) string {
	t.Helper()
	tok, err := ts.tokens.Issue(context.Background(), authdomain.Principal{OrgID: orgID, Role: role})
	require.NoError(t, err)
	return tok.AccessToken
}

func (ts testServer) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	w := httptest.NewRecorder()
	ts.srv.Engine().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorType(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	body := decode(t, w)
	envelope, ok := body["error"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return envelope["type"].(string)
}

func samplePayload(orgID string) map[string]any {
	return map[string]any{
		"org_user_id":   "user001",
		"org_id":        orgID,
		"name":          "John Doe",
		"contact_no":    "1234567890",
		"employee_code": "EMP001",
		"created_date":  "2025-10-21T10:00:00",
		"valid_till":    "2025-12-31T23:59:59",
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestIndexPage(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<!doctype html>")
}

func TestGenerateOrgTwiceSameIDFreshKey(t *testing.T) {
	ts := newTestServer(t)

	first := ts.do(t, http.MethodGet, "/generate_org?name=Acme", "", nil)
	second := ts.do(t, http.MethodGet, "/generate_org?name=Acme", "", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)

	a, b := decode(t, first), decode(t, second)
	assert.Equal(t, a["org_id"], b["org_id"])
	assert.NotEqual(t, a["api_key"], b["api_key"])
	assert.Equal(t, "Acme", a["org_name"])
	assert.Equal(t, "Org Created Successfully!", a["message"])

	orgID := a["org_id"].(string)
	base := "/api/org/" + orgID + "/users/"
	assert.Equal(t, base, a["base_url"])
	endpoints := a["sample_endpoints"].(map[string]any)
	assert.Equal(t, base, endpoints["POST"])
	assert.Equal(t, base+"{org_user_id}", endpoints["DELETE"])

	w := ts.do(t, http.MethodGet, "/api/org/"+orgID, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	org := decode(t, w)
	assert.Equal(t, orgID, org["org_id"])
	assert.NotContains(t, org, "api_key")
}

func TestGenerateOrgRequiresName(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/generate_org?name=%20", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorType(t, w))
}

func TestGetUnknownOrg(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/org/nope", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorType(t, w))
}

func TestLoginIssuesBearerToken(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/token?org_id=A", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "bearer", body["token_type"])
	assert.NotEmpty(t, body["expires_at"])

	claims, err := ts.tokens.Verify(context.Background(), body["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "A", claims.OrgID)
	assert.Equal(t, authdomain.RoleUser, claims.Role)
}

func TestLoginRequiresOrg(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/token?role=admin", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorType(t, w))
}

type denyAll struct{}

func (denyAll) Allow(context.Context, string, float64, int) (*ratelimit.RateLimitResult, error) {
	return &ratelimit.RateLimitResult{Allowed: false, RetryAfter: 3 * time.Second}, nil
}

func TestLoginRateLimited(t *testing.T) {
	limiter := ratelimit.NewLoginLimiterWith(denyAll{}, 1, 1, zaptest.NewLogger(t))
	ts := newTestServer(t, withLoginLimiter(limiter))

	w := ts.do(t, http.MethodPost, "/token?org_id=A&role=admin", "", nil)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3", w.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limited", errorType(t, w))
}

func TestCreateGetConflict(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "A", "admin")

	w := ts.do(t, http.MethodPost, "/api/org/A/users/", admin, samplePayload("A"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "User created", created["message"])
	user := created["user"].(map[string]any)
	assert.Equal(t, "user001", user["org_user_id"])
	assert.Equal(t, "2025-12-31T23:59:59", user["valid_till"])

	w = ts.do(t, http.MethodGet, "/api/org/A/users/user001", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Equal(t, "John Doe", got["name"])
	assert.Equal(t, "2025-10-21T10:00:00", got["created_date"])

	w = ts.do(t, http.MethodPost, "/api/org/A/users/", admin, samplePayload("A"))
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", errorType(t, w))
}

func TestCrossOrgUserIDCollision(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/org/A/users/", ts.token(t, "A", "admin"), samplePayload("A"))
	require.Equal(t, http.StatusCreated, w.Code)

	w = ts.do(t, http.MethodPost, "/api/org/B/users/", ts.token(t, "B", "admin"), samplePayload("B"))
	require.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(t, http.MethodGet, "/api/org/B/users/user001", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateGate(t *testing.T) {
	ts := newTestServer(t)

	cases := []struct {
		name   string
		bearer string
		path   string
		status int
		kind   string
	}{
		{"no token", "", "/api/org/A/users/", http.StatusUnauthorized, "unauthorized"},
		{"garbage token", "not-a-jwt", "/api/org/A/users/", http.StatusUnauthorized, "unauthorized"},
		{"user role own org", ts.token(t, "A", "user"), "/api/org/A/users/", http.StatusForbidden, "forbidden"},
		{"user role other org", ts.token(t, "A", "user"), "/api/org/B/users/", http.StatusForbidden, "forbidden"},
		{"admin other org", ts.token(t, "A", "admin"), "/api/org/B/users/", http.StatusForbidden, "forbidden"},
		{"upper case admin", ts.token(t, "A", "ADMIN"), "/api/org/A/users/", http.StatusForbidden, "forbidden"},
		{"title case admin", ts.token(t, "A", "Admin"), "/api/org/A/users/", http.StatusForbidden, "forbidden"},
		{"padded admin", ts.token(t, "A", " admin"), "/api/org/A/users/", http.StatusForbidden, "forbidden"},
		{"padded org", ts.token(t, "A ", "admin"), "/api/org/A/users/", http.StatusForbidden, "forbidden"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, tc.path, tc.bearer, samplePayload(""))
			require.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.kind, errorType(t, w))
		})
	}

	w := ts.do(t, http.MethodPost, "/api/org/A/users/", ts.token(t, "A", "admin"), samplePayload(""))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestPolicyChangeAppliesPerRequest(t *testing.T) {
	ts := newTestServer(t)

	p := config.DefaultPolicy()
	p.Users.Create = config.AccessOpen
	p.Users.Get = config.AccessToken
	require.NoError(t, ts.policy.Set(p))

	w := ts.do(t, http.MethodPost, "/api/org/A/users/", "", samplePayload("A"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/org/A/users/user001", "", nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(t, http.MethodGet, "/api/org/A/users/user001", ts.token(t, "A", "user"), nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateUser(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "A", "admin")
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/org/A/users/", admin, samplePayload("A")).Code)

	payload := samplePayload("A")
	payload["name"] = "Jane Doe"
	payload["valid_till"] = "2026-01-31T00:00:00Z"

	w := ts.do(t, http.MethodPut, "/api/org/A/users/user001", "", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "User updated", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "Jane Doe", user["name"])
	assert.Equal(t, "2026-01-31T00:00:00", user["valid_till"])

	w = ts.do(t, http.MethodPut, "/api/org/A/users/missing", "", samplePayload("A"))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorType(t, w))
}

func TestUpdateRequiresCreatedDate(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "A", "admin")
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/org/A/users/", admin, samplePayload("A")).Code)

	payload := samplePayload("A")
	delete(payload, "created_date")
	payload["name"] = "Jane Doe"
	w := ts.do(t, http.MethodPut, "/api/org/A/users/user001", "", payload)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "validation_error", errorType(t, w))

	w = ts.do(t, http.MethodGet, "/api/org/A/users/user001", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "John Doe", decode(t, w)["name"])
}

func TestUserKeysMatchExactly(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "A", "admin")
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/org/A/users/", admin, samplePayload("A")).Code)

	for _, path := range []string{
		"/api/org/A%20/users/user001%20",
		"/api/org/A/users/user001%20",
		"/api/org/A%20/users/user001",
	} {
		w := ts.do(t, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusNotFound, w.Code, path)
	}

	w := ts.do(t, http.MethodGet, "/api/org/A/users/user001", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateRejectsBadTimestamp(t *testing.T) {
	ts := newTestServer(t)

	payload := samplePayload("A")
	payload["valid_till"] = "next tuesday"
	w := ts.do(t, http.MethodPut, "/api/org/A/users/user001", "", payload)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorType(t, w))
}

func TestDeleteThenGet(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.token(t, "A", "admin")
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/api/org/A/users/", admin, samplePayload("A")).Code)

	w := ts.do(t, http.MethodDelete, "/api/org/A/users/user001", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "User deleted", decode(t, w)["message"])

	w = ts.do(t, http.MethodGet, "/api/org/A/users/user001", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/org/A/users/user001", "", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateSampleCode(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/generate_sample_code?org_id=org-1&org_name=Acme%20Corp", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "org-1", body["org_id"])
	assert.Equal(t, "acme-corp_api.go", body["file_name"])
	assert.Contains(t, body["generated_code"], `"org-1"`)

	w = ts.do(t, http.MethodGet, "/generate_sample_code?org_id=org-1&org_name=Acme%20Corp&download=true", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	assert.Equal(t, `attachment; filename="acme-corp_api.go"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Body.String(), "package main")

	w = ts.do(t, http.MethodGet, "/generate_sample_code?org_id=org-1", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMapErrorUnknownIsInternal(t *testing.T) {
	status, payload := mapError(assert.AnError)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal_error", payload.Type)

	kind, code := classifyErrorForLog(authorization.ErrForbidden)
	assert.Equal(t, "forbidden", kind)
	assert.Equal(t, "forbidden", code)
}

func TestMapErrorValidationFields(t *testing.T) {
	status, payload := mapError(fmt.Errorf("update: %w", userdomain.ErrInvalidCreatedDate))
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "created_date", payload.Errors[0].Field)

	status, payload = mapError(invalidRequestError())
	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_request", payload.Errors[0].Code)
}
