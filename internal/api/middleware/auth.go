package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"omnichannel/inquiries/internal/auth"
)

const (
	// ContextKeyAgentID holds the key for agent ID in Gin context.
	ContextKeyAgentID = "agentID"
	// ContextKeyIsManager holds the key for manager status in Gin context.
	ContextKeyIsManager = "isManager"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ValidateJWT(parts[1], jwtSecret)
		if err != nil {
			errMsg := fmt.Sprintf("Invalid or expired token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errMsg})
			return
		}

		c.Set(ContextKeyAgentID, claims.AgentID)
		c.Set(ContextKeyIsManager, claims.IsManager)

		c.Next()
	}
}

// ManagerMiddleware rejects agents without the livechat manager role.
// Assumes AuthMiddleware runs first.
func ManagerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextKeyIsManager) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Livechat manager privileges required"})
			return
		}
		c.Next()
	}
}
