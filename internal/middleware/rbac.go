package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academic-panel/internal/models"
	"github.com/noah-isme/academic-panel/internal/schema"
	appErrors "github.com/noah-isme/academic-panel/pkg/errors"
	"github.com/noah-isme/academic-panel/pkg/response"
)

type capabilityChecker interface {
	Can(role models.UserRole, capability schema.Capability) bool
}

// RequireCapability allows the request when the user's role holds any of caps.
func RequireCapability(registry capabilityChecker, caps ...schema.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := CurrentUser(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		for _, capability := range caps {
			if registry.Can(claims.Role, capability) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing capability "+string(caps[0])))
		c.Abort()
	}
}
