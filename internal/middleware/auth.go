package middleware

import (
	"crypto/subtle"
	"net/http"
	"time"

	"group-access-api/internal/config"
	"group-access-api/internal/response"

	"github.com/gin-gonic/gin"
)

// AdminAuthMiddleware guards the management endpoints with the shared
// admin key from configuration
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Get the API key from the header, falling back to query parameters
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing api_key"))
			c.Abort()
			return
		}

		expected := config.AppConfig.AdminAPIKey
		if expected == "" || subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid api_key"))
			c.Abort()
			return
		}

		c.Set("request_time", time.Now())
		c.Next()
	}
}
