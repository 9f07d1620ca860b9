// auth_middleware.go
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"order-lifecycle-service/internal/service"
)

// Claves que deja el middleware en el contexto de gin
const (
	KeyUserID      = "userID"
	KeyUserName    = "userName"
	KeyPermissions = "userPermissions"
	KeyToken       = "token"
	KeyIsAdmin     = "userIsAdmin"
)

// TokenValidator lo implementa service.AuthService.
type TokenValidator interface {
	ValidateToken(token string) (*service.AuthUser, error)
}

// Middleware que valida el token y guarda la info del usuario en el contexto
func AuthMiddleware(auth TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		user, err := auth.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(KeyUserID, user.ID)
		c.Set(KeyUserName, user.Name)
		c.Set(KeyPermissions, user.Permissions)
		c.Set(KeyIsAdmin, user.IsAdmin())
		c.Set(KeyToken, token)
		c.Next()
	}
}
