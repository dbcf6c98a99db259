package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thereayou/converse/internal/database"
)

// AdminMiddleware gates moderation routes. Runs after AuthMiddleware; the
// role is read fresh from the database, not from the token.
func AdminMiddleware(db *database.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
			c.Abort()
			return
		}

		user, err := db.GetUser(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "user lookup failed"})
			c.Abort()
			return
		}
		if user == nil || !user.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
