package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// AccountIDHeader carries the caller's wallet account id. An upstream
	// gateway authenticates the user and injects this header.
	AccountIDHeader = "X-Account-ID"

	// AccountIDKey is the key used to store the account id in the context
	AccountIDKey = "account_id"
)

// Identity middleware requires a valid account id header on wallet and
// order routes
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(AccountIDHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Missing " + AccountIDHeader + " header",
				},
			})
			return
		}

		accountID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid " + AccountIDHeader + " header",
				},
			})
			return
		}

		c.Set(AccountIDKey, accountID)
		c.Next()
	}
}

// GetAccountID retrieves the caller's account id set by Identity
func GetAccountID(c *gin.Context) (uuid.UUID, bool) {
	if v, exists := c.Get(AccountIDKey); exists {
		if id, ok := v.(uuid.UUID); ok {
			return id, true
		}
	}
	return uuid.Nil, false
}
