package middleware

import (
	"net/http"

	"github.com/bassista/go_microassur/internal/apperror"
	"github.com/bassista/go_microassur/internal/session"
	"github.com/gin-gonic/gin"
)

// RoleKey is the gin context key holding the role of a guarded request.
const RoleKey = "session.role"

// SessionState is the part of the session the guard decides on.
type SessionState interface {
	GuardInput() session.GuardInput
}

// SessionGuard lets the request through only for an authenticated principal
// holding one of roles (any role when empty). Refusals carry the redirect
// target in the Location header and in the error context.
func SessionGuard(s SessionState, roles ...session.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		in := s.GuardInput()
		decision := session.Guard(in, roles...)
		location := decision.Location(in.Role)

		switch decision {
		case session.Render:
			c.Set(RoleKey, in.Role)
			c.Next()
		case session.Wait:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorBody("session_loading", "session is loading", nil))
		case session.RedirectLogin:
			c.Header("Location", location)
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorBody("not_authenticated", "authentication required",
				map[string]any{"location": location}))
		default:
			c.Header("Location", location)
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorBody(string(apperror.KindPermissionDenied), "role not allowed",
				map[string]any{"location": location, "role": string(in.Role)}))
		}
	}
}
