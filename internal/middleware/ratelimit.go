package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"group-access-api/internal/database"
	"group-access-api/internal/response"
	"group-access-api/pkg/logging"

	"github.com/gin-gonic/gin"
)

// RateLimitKeyFunc derives the limiter key from a request. Returning ""
// falls back to the client IP.
type RateLimitKeyFunc func(c *gin.Context) string

// EmailKey keys the limiter on the email field of a JSON body, so one
// caller cannot burn invites for many addresses from a single IP nor
// hammer one address from many IPs. The body is restored for the handler.
func EmailKey(c *gin.Context) string {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return ""
	}
	c.Request.Body = io.NopCloser(bytes.NewBuffer(body))

	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

// RateLimitMiddleware caps requests per key using a fixed Redis window.
// With Redis unavailable the limiter fails open; subscription creation
// still has its own duplicate guard.
func RateLimitMiddleware(scope string, limit int, window time.Duration, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		redisClient := database.GetRedis()
		if redisClient == nil {
			c.Next()
			return
		}

		var key string
		if keyFunc != nil {
			key = keyFunc(c)
		}
		if key == "" {
			key = c.ClientIP()
		}
		key = fmt.Sprintf("ratelimit:%s:%s", scope, key)
		ctx := c.Request.Context()

		count, err := redisClient.Incr(ctx, key).Result()
		if err != nil {
			logging.Warnf("Rate limiter unavailable, allowing request: %v", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := redisClient.Expire(ctx, key, window).Err(); err != nil {
				logging.Warnf("Failed to set rate limit window for %s: %v", key, err)
			}
		}

		if count > int64(limit) {
			c.JSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Too many requests, please try again later"))
			c.Abort()
			return
		}

		c.Next()
	}
}
