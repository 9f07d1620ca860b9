// admin_only.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(KeyIsAdmin)
}

func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin privileges required"})
			return
		}
		c.Next()
	}
}
