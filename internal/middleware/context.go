package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-panel/internal/models"
)

// ContextUserKey is the gin context key storing JWT claims.
const ContextUserKey = "currentUser"

// CurrentUser returns the authenticated claims, or nil on public routes.
func CurrentUser(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// ActorID returns the acting user id; empty means the system.
func ActorID(c *gin.Context) string {
	if claims := CurrentUser(c); claims != nil {
		return claims.UserID
	}
	return ""
}
