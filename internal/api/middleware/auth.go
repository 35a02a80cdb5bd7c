package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jafarshop/storeapi/internal/auth"
	"github.com/jafarshop/storeapi/internal/domain"
)

const (
	contextUserIDKey = "user_id"
	contextRoleKey   = "role"
)

// AuthMiddleware validates the Bearer access token and puts the caller's
// identity into the request context.
func AuthMiddleware(tokens *auth.TokenManager, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := tokens.VerifyAccess(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			logger.Warn("Token carried malformed user id", zap.String("user_id", claims.UserID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Set(contextRoleKey, domain.Role(claims.Role))
		c.Next()
	}
}

// RequireRole rejects callers whose token does not carry the given role
func RequireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, ok := c.Get(contextRoleKey)
		if !ok || value.(domain.Role) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
			return
		}
		c.Next()
	}
}

// GetUserFromContext returns the authenticated user's id
func GetUserFromContext(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(contextUserIDKey)
	if !ok {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}
