package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	authdomain "github.com/smallbiznis/crudforge/internal/auth/domain"
	"github.com/smallbiznis/crudforge/internal/authorization"
	"github.com/smallbiznis/crudforge/internal/codegen"
	orgdomain "github.com/smallbiznis/crudforge/internal/organization/domain"
	userdomain "github.com/smallbiznis/crudforge/internal/user/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// ErrRateLimited is returned by LoginRateLimit when the bucket is empty.
var ErrRateLimited = errors.New("rate_limited")

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	if code, ok := validationErrorCode(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, authorization.ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidToken),
		errors.Is(err, authdomain.ErrMissingToken):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "invalid or expired token",
		}
	case errors.Is(err, authorization.ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: forbiddenMessage(err),
		}
	case errors.Is(err, userdomain.ErrConflict):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "user already exists",
		}
	case errors.Is(err, userdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "user not found",
		}
	case errors.Is(err, orgdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "organization not found",
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog feeds the request logger's error_type/error_code fields.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	}
	return payload.Type, code
}

func forbiddenMessage(err error) string {
	switch {
	case errors.Is(err, authorization.ErrOrgMismatch):
		return "token organization does not match"
	case errors.Is(err, authorization.ErrRoleDenied):
		return "role is not allowed to perform this action"
	default:
		return "forbidden"
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

var validationSentinels = []error{
	userdomain.ErrInvalidOrganization,
	userdomain.ErrInvalidUserID,
	userdomain.ErrInvalidName,
	userdomain.ErrInvalidValidTill,
	userdomain.ErrInvalidCreatedDate,
	userdomain.ErrOrgMismatch,
	userdomain.ErrUserIDMismatch,
	userdomain.ErrInvalidTimestamp,
	orgdomain.ErrInvalidName,
	orgdomain.ErrInvalidID,
	authdomain.ErrInvalidOrganization,
	authdomain.ErrInvalidRole,
	codegen.ErrInvalidOrgID,
	codegen.ErrInvalidOrgName,
}

func validationErrorCode(err error) (string, bool) {
	for _, sentinel := range validationSentinels {
		if errors.Is(err, sentinel) {
			return sentinel.Error(), true
		}
	}
	return "", false
}

func validationErrorField(code string) string {
	switch {
	case code == "invalid_request":
		return "request"
	case strings.HasPrefix(code, "invalid_"):
		return strings.TrimPrefix(code, "invalid_")
	case strings.HasSuffix(code, "_mismatch"):
		return strings.TrimSuffix(code, "_mismatch")
	default:
		return ""
	}
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "invalid_timestamp":
		return "timestamps must be ISO-8601, e.g. 2025-10-21T10:00:00"
	case "org_id_mismatch":
		return "org_id in the body must match the path"
	case "org_user_id_mismatch":
		return "org_user_id in the body must match the path"
	default:
		if field := validationErrorField(code); field != "" {
			return field + " is required or invalid"
		}
		return "invalid value"
	}
}
