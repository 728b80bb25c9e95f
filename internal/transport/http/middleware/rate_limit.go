package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/remodely/auth-service/internal/core/port"
)

// IdentifierFunc extracts the identifier used to scope rate limits.
type IdentifierFunc func(*gin.Context) (string, bool)

// RateLimitRule configures a fixed-window limit for a particular identifier.
type RateLimitRule struct {
	Name       string
	Limit      int
	Window     time.Duration
	Identifier IdentifierFunc
}

// RateLimiter enforces fixed-window request ceilings backed by a shared
// counter store, so the limit holds across service instances.
type RateLimiter struct {
	store  port.RateLimitStore
	logger *zap.Logger
}

// NewRateLimiter builds a reusable rate limiter middleware helper.
func NewRateLimiter(store port.RateLimitStore, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{store: store, logger: logger}
}

// ClientIPIdentifier scopes a rule to the request's client IP.
func ClientIPIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		ip := c.ClientIP()
		if ip == "" {
			return "", false
		}
		return ip, true
	}
}

// UserIdentifier scopes a rule to the authenticated account. Requests
// without one fall through to other rules.
func UserIdentifier() IdentifierFunc {
	return func(c *gin.Context) (string, bool) {
		id := AuthenticatedUserID(c)
		return id, id != ""
	}
}

// RateLimit returns a Gin middleware enforcing the provided rules. A
// counter-store failure lets the request through; availability beats
// strictness for a limit meant to slow brute force, and the failure is
// logged.
func (rl *RateLimiter) RateLimit(rules ...RateLimitRule) gin.HandlerFunc {
	filtered := make([]RateLimitRule, 0, len(rules))
	for _, rule := range rules {
		if rule.Identifier == nil || rule.Limit <= 0 || rule.Window <= 0 {
			continue
		}
		if rule.Name == "" {
			rule.Name = "default"
		}
		filtered = append(filtered, rule)
	}

	return func(c *gin.Context) {
		if len(filtered) == 0 || rl.store == nil {
			c.Next()
			return
		}

		for _, rule := range filtered {
			identifier, ok := rule.Identifier(c)
			if !ok {
				continue
			}

			key := fmt.Sprintf("%s:%s", rule.Name, identifier)
			count, resetIn, err := rl.store.Increment(c.Request.Context(), key, rule.Window)
			if err != nil {
				rl.logger.Warn("rate limit store unavailable",
					zap.String("rule", rule.Name),
					zap.Error(err))
				continue
			}

			remaining := rule.Limit - count
			if remaining < 0 {
				remaining = 0
			}
			c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))

			if count > rule.Limit {
				retryAfter := int(math.Ceil(resetIn.Seconds()))
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Header("Retry-After", strconv.Itoa(retryAfter))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"success": false,
					"message": "too many requests, please try again later",
				})
				return
			}
		}

		c.Next()
	}
}
