package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/crudforge/internal/authorization"
	"github.com/smallbiznis/crudforge/internal/config"
	obscontext "github.com/smallbiznis/crudforge/internal/observability/context"
	userdomain "github.com/smallbiznis/crudforge/internal/user/domain"
)

type userRoute struct {
	name   string
	action string
	mode   func(config.UserRoutePolicy) config.AccessMode
}

var (
	routeCreate = userRoute{"users.create", authorization.ActionCreate, func(p config.UserRoutePolicy) config.AccessMode { return p.Create }}
	routeGet    = userRoute{"users.get", authorization.ActionRead, func(p config.UserRoutePolicy) config.AccessMode { return p.Get }}
	routeUpdate = userRoute{"users.update", authorization.ActionUpdate, func(p config.UserRoutePolicy) config.AccessMode { return p.Update }}
	routeDelete = userRoute{"users.delete", authorization.ActionDelete, func(p config.UserRoutePolicy) config.AccessMode { return p.Delete }}
)

// authorizeUserRoute applies the route's current access mode. The mode is
// read per request so policy reloads take effect without a restart.
func (s *Server) authorizeUserRoute(route userRoute) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		mode := route.mode(s.policy.Get().Users)

		req := &authorization.Request{
			PathOrgID: c.Param("org_id"),
			RawToken:  bearerToken(c),
		}
		if err := s.authzSvc.Authorize(ctx, mode, authorization.ObjectUsers, route.action, req); err != nil {
			s.obsMetrics.RecordAccessDenied(ctx, route.name, denialReason(err))
			AbortWithError(c, err)
			return
		}

		if req.Claims != nil {
			c.Request = c.Request.WithContext(obscontext.WithRole(ctx, req.Claims.Role))
		}
		c.Next()
	}
}

func denialReason(err error) string {
	switch {
	case errors.Is(err, authorization.ErrOrgMismatch):
		return "org_mismatch"
	case errors.Is(err, authorization.ErrRoleDenied):
		return "role_denied"
	case errors.Is(err, authorization.ErrUnauthorized):
		return "invalid_token"
	default:
		return "error"
	}
}

func (s *Server) CreateUser(c *gin.Context) {
	var req userdomain.UserPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	ctx := c.Request.Context()
	user, err := s.userSvc.Create(ctx, userdomain.CreateUserRequest{
		OrgID:   c.Param("org_id"),
		Payload: req,
	})
	s.obsMetrics.RecordUserOperation(ctx, "create", outcome(err))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "User created", "user": user})
}

func (s *Server) GetUser(c *gin.Context) {
	ctx := c.Request.Context()
	user, err := s.userSvc.Get(ctx, userdomain.GetUserRequest{
		OrgID:     c.Param("org_id"),
		OrgUserID: c.Param("org_user_id"),
	})
	s.obsMetrics.RecordUserOperation(ctx, "get", outcome(err))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

func (s *Server) UpdateUser(c *gin.Context) {
	var req userdomain.UserPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, bindError(err))
		return
	}

	ctx := c.Request.Context()
	user, err := s.userSvc.Update(ctx, userdomain.UpdateUserRequest{
		OrgID:     c.Param("org_id"),
		OrgUserID: c.Param("org_user_id"),
		Payload:   req,
	})
	s.obsMetrics.RecordUserOperation(ctx, "update", outcome(err))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User updated", "user": user})
}

func (s *Server) DeleteUser(c *gin.Context) {
	ctx := c.Request.Context()
	err := s.userSvc.Delete(ctx, userdomain.DeleteUserRequest{
		OrgID:     c.Param("org_id"),
		OrgUserID: c.Param("org_user_id"),
	})
	s.obsMetrics.RecordUserOperation(ctx, "delete", outcome(err))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func bindError(err error) error {
	if errors.Is(err, userdomain.ErrInvalidTimestamp) {
		return userdomain.ErrInvalidTimestamp
	}
	return invalidRequestError()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, userdomain.ErrNotFound):
		return "not_found"
	case errors.Is(err, userdomain.ErrConflict):
		return "conflict"
	default:
		if _, ok := validationErrorCode(err); ok {
			return "invalid"
		}
		return "error"
	}
}
