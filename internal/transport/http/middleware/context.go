package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/remodely/auth-service/internal/core/domain"
)

const (
	// UserIDKey is the gin context key for the authenticated user id.
	UserIDKey = "user_id"
	// UserKey is the gin context key for the resolved account.
	UserKey = "user"
)

// AuthenticatedUser retrieves the account placed in the context by
// RequireAuth.
func AuthenticatedUser(c *gin.Context) (*domain.User, bool) {
	value, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := value.(*domain.User)
	return user, ok
}

// AuthenticatedUserID retrieves the user id placed in the context by
// RequireAuth.
func AuthenticatedUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}
