package middleware

import (
	"github.com/gin-gonic/gin"

	jwtpkg "marketplace/voucherhub/pkg/jwt"
	"marketplace/voucherhub/pkg/response"
)

// AdminAuth checks that the authenticated user carries the admin role or is
// in the admin user list. Must be used after JWTAuth middleware.
func AdminAuth(adminUserIDs []string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(adminUserIDs))
	for _, id := range adminUserIDs {
		allowed[id] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}

		_, listed := allowed[claims.Subject]
		if claims.Role != jwtpkg.RoleAdmin && !listed {
			response.Forbidden(c, "admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}
