package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	jwtpkg "marketplace/voucherhub/pkg/jwt"
	"marketplace/voucherhub/pkg/response"
)

const ContextKeyUserClaims = "user_claims"

func bearerClaims(c *gin.Context, jwtManager *jwtpkg.Manager) (*jwtpkg.Claims, string) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, "missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, "invalid authorization format"
	}

	claims, err := jwtManager.Validate(parts[1])
	if err != nil {
		return nil, "invalid or expired token"
	}

	if claims.TokenType != jwtpkg.TokenTypeAccess {
		return nil, "invalid token type"
	}
	if _, err := claims.UserID(); err != nil {
		return nil, "invalid user id"
	}
	return claims, ""
}

func JWTAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, reason := bearerClaims(c, jwtManager)
		if claims == nil {
			response.Unauthorized(c, reason)
			c.Abort()
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Next()
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and
// lets anonymous requests through. A malformed token is still rejected.
func OptionalAuth(jwtManager *jwtpkg.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		claims, reason := bearerClaims(c, jwtManager)
		if claims == nil {
			response.Unauthorized(c, reason)
			c.Abort()
			return
		}

		c.Set(ContextKeyUserClaims, claims)
		c.Next()
	}
}

// Claims returns the claims set by JWTAuth or OptionalAuth.
func Claims(c *gin.Context) (*jwtpkg.Claims, bool) {
	v, exists := c.Get(ContextKeyUserClaims)
	if !exists {
		return nil, false
	}
	claims, ok := v.(*jwtpkg.Claims)
	return claims, ok
}
