package middleware

import (
	"github.com/gin-gonic/gin"

	"marketplace/voucherhub/pkg/response"
)

const ContextKeyBusinessID = "business_id"

// BusinessAuth requires a business token. Must be used after JWTAuth.
func BusinessAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}

		businessID, ok := claims.Business()
		if !ok {
			response.Forbidden(c, "business access required")
			c.Abort()
			return
		}

		c.Set(ContextKeyBusinessID, businessID)
		c.Next()
	}
}
