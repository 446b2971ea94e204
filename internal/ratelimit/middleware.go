package ratelimit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skillgate/skillgate/internal/metrics"
	"github.com/skillgate/skillgate/internal/tier"
)

// Gin context keys populated by the auth collaborator.
const (
	// ContextUserID holds the authenticated user id, when present.
	ContextUserID = "user_id"
	// ContextUserTier holds the user's effective tier, when present.
	ContextUserTier = "user_tier"
)

// IdentityFunc resolves the rate-limit identity for a request.
type IdentityFunc func(c *gin.Context) Identity

// DefaultIdentity keys on the authenticated user id when present, falling
// back to the client IP.
func DefaultIdentity(c *gin.Context) Identity {
	id := Identity{IP: c.ClientIP(), Tier: tier.TierFree}
	if v, ok := c.Get(ContextUserID); ok {
		if s, ok := v.(string); ok {
			id.UserID = s
		}
	}
	if v, ok := c.Get(ContextUserTier); ok {
		if t, ok := v.(tier.Tier); ok {
			id.Tier = t
		}
	}
	return id
}

// IPIdentity always keys on the client IP. Auth endpoints use it since
// the caller is not authenticated yet.
func IPIdentity(c *gin.Context) Identity {
	return Identity{IP: c.ClientIP(), Tier: tier.TierFree}
}

// Middleware returns a gin handler enforcing the quota for an endpoint
// class. Rate-limit headers are attached to every response.
func Middleware(l *Limiter, class string, identify IdentityFunc) gin.HandlerFunc {
	if identify == nil {
		identify = DefaultIdentity
	}
	return func(c *gin.Context) {
		dec, err := l.Enforce(c.Request.Context(), identify(c), class)

		c.Header("X-RateLimit-Limit", strconv.FormatInt(dec.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(dec.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(dec.ResetAt.Unix(), 10))

		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				metrics.RateLimitDecisions.WithLabelValues(class, "unavailable").Inc()
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "rate limiting unavailable, please retry",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			return
		}

		if dec.Degraded {
			metrics.RateLimitDegraded.Inc()
			c.Header("X-RateLimit-Degraded", "true")
		}

		if !dec.Allowed {
			metrics.RateLimitDecisions.WithLabelValues(class, "rejected").Inc()
			c.Header("Retry-After", strconv.FormatInt(int64(dec.RetryAfter.Seconds())+1, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": int64(dec.RetryAfter.Seconds()) + 1,
			})
			return
		}

		metrics.RateLimitDecisions.WithLabelValues(class, "allowed").Inc()
		c.Next()
	}
}
