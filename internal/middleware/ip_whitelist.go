package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/converse/internal/database"
)

// IPWhitelistMiddleware rejects requests from addresses outside the user's
// allow-list. Users with an empty list are unrestricted.
func IPWhitelistMiddleware(db *database.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.Next()
			return
		}

		user, err := db.GetUser(userID)
		if err != nil || user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user lookup failed"})
			c.Abort()
			return
		}

		if !user.IsAllowedFromIP(c.ClientIP()) {
			c.JSON(http.StatusForbidden, gin.H{"error": "access from this address is not allowed"})
			c.Abort()
			return
		}

		c.Next()
	}
}
