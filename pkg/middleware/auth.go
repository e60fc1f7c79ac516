package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ContextUserID is the gin/context key carrying the authenticated subject.
const ContextUserID = "userID"

// TokenVerifier resolves a bearer token to a user ID.
type TokenVerifier interface {
	GetUIDByToken(ctx context.Context, token string) (uuid.UUID, bool)
}

// Auth validates the Authorization header and stores the user ID in the
// request context. Everything behind it can trust the identity.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization token not provided"})
			return
		}
		token := strings.TrimPrefix(authHeader, "Bearer ")

		uid, valid := verifier.GetUIDByToken(c.Request.Context(), token)
		if !valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, uid)
		c.Next()
	}
}

// UserID extracts the authenticated subject set by Auth.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	uid, ok := v.(uuid.UUID)
	return uid, ok
}
