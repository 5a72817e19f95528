package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const contextAccountIDKey = "account_id"

// AccountParam rejects malformed account ids before a handler runs.
func AccountParam() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.Param("id"))
		if _, err := snowflake.ParseString(id); err != nil {
			AbortWithError(c, newValidationError("id", "invalid_account_id", "invalid account id"))
			return
		}
		c.Set(contextAccountIDKey, id)
		c.Next()
	}
}

func accountID(c *gin.Context) string {
	return c.GetString(contextAccountIDKey)
}
