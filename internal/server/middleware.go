package server

import (
	"crypto/subtle"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/boxlane/boxlane/internal/observability/logger"
	"github.com/boxlane/boxlane/internal/ratelimit"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIKeyRequired guards the query surface with a static API key carried in
// the X-API-Key header. An empty configured key disables the check, which is
// only acceptable for local development.
func APIKeyRequired(apiKey string) gin.HandlerFunc {
	expected := []byte(strings.TrimSpace(apiKey))
	return func(c *gin.Context) {
		if len(expected) == 0 {
			c.Next()
			return
		}

		provided := []byte(strings.TrimSpace(c.GetHeader("X-API-Key")))
		if subtle.ConstantTimeCompare(expected, provided) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// WebhookSecretRequired guards the inbound schedule webhook with a shared
// secret header. The comparison is an exact string match, matching what the
// upstream senders emit.
func WebhookSecretRequired(secret string) gin.HandlerFunc {
	expected := strings.TrimSpace(secret)
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		if strings.TrimSpace(c.GetHeader("X-Webhook-Secret")) != expected {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// WebhookRateLimited throttles the inbound schedule webhook with the shared
// endpoint bucket and a per-client bucket. A redis failure fails open:
// dropping schedule updates is worse than briefly exceeding the limit.
func WebhookRateLimited(limiter *ratelimit.IngestLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		result, err := limiter.AllowWebhook(ctx)
		if err != nil {
			logger.FromContext(ctx).Warn("webhook rate limit check failed, allowing request", zap.Error(err))
			c.Next()
			return
		}
		if result.Allowed {
			result, err = limiter.AllowWebhookClient(ctx, c.ClientIP())
			if err != nil {
				logger.FromContext(ctx).Warn("webhook rate limit check failed, allowing request", zap.Error(err))
				c.Next()
				return
			}
		}
		if !result.Allowed {
			if result.RetryAfter > 0 {
				seconds := int(math.Ceil(result.RetryAfter.Seconds()))
				c.Header("Retry-After", strconv.Itoa(seconds))
			}
			c.JSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many requests",
			}})
			c.Abort()
			return
		}
		c.Next()
	}
}
