// Package ratelimit enforces per-identity request quotas using fixed
// time windows backed by a Redis counter store.
//
// Windows are discrete buckets identified by floor(now/window), not a
// sliding interval. Bursts can occur at window boundaries; that is an
// accepted trade-off for a single atomic INCR per request.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/skillgate/skillgate/internal/tier"
)

// ErrStoreUnavailable indicates the counter store could not be reached.
// Security-critical endpoint classes reject requests when this happens.
var ErrStoreUnavailable = errors.New("rate limit store unavailable")

// Limit is a request quota over a window.
type Limit struct {
	Requests int64
	Window   time.Duration
}

// ClassConfig configures quotas for one endpoint class.
type ClassConfig struct {
	// SecurityCritical classes fail closed when the store is down.
	SecurityCritical bool
	// Default applies to unauthenticated requests and tiers without an
	// explicit entry.
	Default Limit
	PerTier map[tier.Tier]Limit
}

// limitFor resolves the quota for a tier.
func (c ClassConfig) limitFor(t tier.Tier) Limit {
	if l, ok := c.PerTier[t]; ok {
		return l
	}
	return c.Default
}

// Identity is the request identity a quota is keyed by: the authenticated
// user when present, otherwise the client IP.
type Identity struct {
	UserID string
	IP     string
	Tier   tier.Tier
}

// Key returns the counter key component for this identity. User and IP
// keys are prefixed so they can never collide.
func (id Identity) Key() string {
	if id.UserID != "" {
		return "user:" + id.UserID
	}
	return "ip:" + id.IP
}

// Decision is the outcome of an enforcement check. Limit, Remaining, and
// ResetAt are populated regardless of outcome so callers can always set
// response headers.
type Decision struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   time.Time
	// RetryAfter is set when the request is rejected.
	RetryAfter time.Duration
	// Degraded marks a request allowed only because the store was
	// unreachable and the class fails open.
	Degraded bool
}

// Limiter enforces fixed-window quotas per identity and endpoint class.
type Limiter struct {
	rdb     redis.Cmdable
	classes map[string]ClassConfig
	prefix  string
	logger  zerolog.Logger
}

// New creates a Limiter over the given Redis client and class table.
func New(rdb redis.Cmdable, classes map[string]ClassConfig, logger zerolog.Logger) *Limiter {
	return &Limiter{
		rdb:     rdb,
		classes: classes,
		prefix:  "ratelimit",
		logger:  logger.With().Str("component", "ratelimit").Logger(),
	}
}

// DefaultClasses returns the standard endpoint class table.
func DefaultClasses() map[string]ClassConfig {
	return map[string]ClassConfig{
		// Authentication endpoints key on IP (the caller is not
		// authenticated yet) and must never bypass the quota.
		"auth": {
			SecurityCritical: true,
			Default:          Limit{Requests: 10, Window: time.Minute},
		},
		"api": {
			Default: Limit{Requests: 60, Window: time.Minute},
			PerTier: map[tier.Tier]Limit{
				tier.TierPro:        {Requests: 300, Window: time.Minute},
				tier.TierTeam:       {Requests: 600, Window: time.Minute},
				tier.TierEnterprise: {Requests: 1200, Window: time.Minute},
			},
		},
		"downloads": {
			Default: Limit{Requests: 30, Window: time.Hour},
			PerTier: map[tier.Tier]Limit{
				tier.TierPro:        {Requests: 200, Window: time.Hour},
				tier.TierTeam:       {Requests: 500, Window: time.Hour},
				tier.TierEnterprise: {Requests: 2000, Window: time.Hour},
			},
		},
	}
}

// Enforce checks and consumes one request from the identity's quota for
// the given class. A rejected request returns Allowed=false with a
// positive RetryAfter; the only error condition is a store outage on a
// security-critical class.
func (l *Limiter) Enforce(ctx context.Context, id Identity, class string) (Decision, error) {
	cfg, ok := l.classes[class]
	if !ok {
		return Decision{}, fmt.Errorf("unknown endpoint class %q", class)
	}

	limit := cfg.limitFor(id.Tier)
	now := time.Now()
	windowSecs := int64(limit.Window.Seconds())
	bucket := now.Unix() / windowSecs
	resetAt := time.Unix((bucket+1)*windowSecs, 0)

	key := fmt.Sprintf("%s:%s:%s:%d", l.prefix, class, id.Key(), bucket)

	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return l.storeFailure(cfg, class, limit, resetAt, err)
	}

	// First request in the window creates the bucket; give it a TTL so it
	// self-expires. The bucket number in the key keeps counts correct even
	// if this write fails.
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, limit.Window).Err(); err != nil {
			l.logger.Warn().Err(err).Str("key", key).Msg("failed to set bucket TTL")
		}
	}

	dec := Decision{
		Allowed:   count <= limit.Requests,
		Limit:     limit.Requests,
		Remaining: max(0, limit.Requests-count),
		ResetAt:   resetAt,
	}
	if !dec.Allowed {
		dec.RetryAfter = resetAt.Sub(now)
	}
	return dec, nil
}

// storeFailure applies the per-class failure policy when Redis is down.
func (l *Limiter) storeFailure(cfg ClassConfig, class string, limit Limit, resetAt time.Time, err error) (Decision, error) {
	if cfg.SecurityCritical {
		l.logger.Error().Err(err).Str("class", class).Msg("counter store unavailable, failing closed")
		return Decision{
			Allowed: false,
			Limit:   limit.Requests,
			ResetAt: resetAt,
		}, ErrStoreUnavailable
	}

	l.logger.Warn().Err(err).Str("class", class).Msg("counter store unavailable, failing open")
	return Decision{
		Allowed:   true,
		Limit:     limit.Requests,
		Remaining: limit.Requests,
		ResetAt:   resetAt,
		Degraded:  true,
	}, nil
}
