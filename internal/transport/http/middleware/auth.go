package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"groundedqa/internal/pkg/jwtutil"
	"groundedqa/internal/transport/http/response"
)

const ContextSubjectKey = "subject"

// RequireAdmin accepts only bearer tokens carrying the admin role. An empty
// secret disables the check.
func RequireAdmin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			response.Abort(c, http.StatusUnauthorized, "missing authorization header")
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(authHeader, prefix) {
			response.Abort(c, http.StatusUnauthorized, "invalid authorization scheme")
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
		claims, err := jwtutil.RequireRole(secret, token, jwtutil.RoleAdmin)
		if errors.Is(err, jwtutil.ErrForbidden) {
			response.Abort(c, http.StatusForbidden, "admin role required")
			return
		}
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		c.Set(ContextSubjectKey, claims.Subject)
		c.Next()
	}
}
