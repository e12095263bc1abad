package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/crudforge/internal/auth/domain"
	"github.com/smallbiznis/crudforge/internal/observability/logger"
	"go.uber.org/zap"
)

func (s *Server) Login(c *gin.Context) {
	ctx := c.Request.Context()

	token, err := s.authSvc.Login(ctx, authdomain.LoginRequest{
		OrgID: c.Query("org_id"),
		Role:  c.Query("role"),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.obsMetrics.RecordTokenIssued(ctx, token.Principal.Role)

	c.JSON(http.StatusOK, token)
}

// LoginRateLimit throttles token issuance per org and client address when a
// limiter is configured.
func (s *Server) LoginRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.loginLimiter == nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res := s.loginLimiter.Allow(ctx, c.Query("org_id"), c.ClientIP())
		if res.Allowed {
			c.Next()
			return
		}

		logger.FromContext(ctx).Warn("login rate limit exceeded", zap.Duration("retry_after", res.RetryAfter))
		s.obsMetrics.RecordLoginRateLimited(ctx)

		retryAfter := int(res.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		AbortWithError(c, ErrRateLimited)
	}
}

func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
