package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const serviceSecretHeader = "X-Service-Secret"

// RequireServiceSecret guards internal endpoints with a shared secret
// exchanged between backend services. When no secret is configured the
// endpoint is disabled rather than open.
func RequireServiceSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"message": "not found",
			})
			return
		}

		provided := c.GetHeader(serviceSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			unauthorized(c, "invalid service credentials")
			return
		}

		c.Next()
	}
}
