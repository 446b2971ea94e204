package entitlement

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/skillgate/skillgate/internal/licensefile"
	"github.com/skillgate/skillgate/internal/models"
)

// CheckResult is the outcome of an entitlement check.
type CheckResult struct {
	State     State
	Allowed   bool
	ExpiresAt time.Time
	// Offline is set when the result was reached without confirmation from
	// the validator, so callers can surface a "running offline" signal.
	Offline bool
	Reason  string
	Cached  *models.CachedLicense
}

// Cache gates local package execution on a cached credential, refreshing
// it online when it nears expiry.
type Cache struct {
	dir       string
	refresher Refresher
	buffer    time.Duration
	grace     time.Duration
	logger    zerolog.Logger
}

// Config holds Cache construction parameters.
type Config struct {
	// Dir is the licenses directory.
	Dir string
	// Refresher performs online validation. Required for Check; QuickCheck
	// never uses it.
	Refresher Refresher
	// RefreshBuffer defaults to DefaultRefreshBuffer.
	RefreshBuffer time.Duration
	// GracePeriod defaults to DefaultGracePeriod.
	GracePeriod time.Duration
	Logger      zerolog.Logger
}

// NewCache creates an offline entitlement cache.
func NewCache(cfg Config) *Cache {
	if cfg.RefreshBuffer == 0 {
		cfg.RefreshBuffer = DefaultRefreshBuffer
	}
	if cfg.GracePeriod == 0 {
		cfg.GracePeriod = DefaultGracePeriod
	}
	return &Cache{
		dir:       cfg.Dir,
		refresher: cfg.Refresher,
		buffer:    cfg.RefreshBuffer,
		grace:     cfg.GracePeriod,
		logger:    cfg.Logger.With().Str("component", "entitlement_cache").Logger(),
	}
}

// Check decides whether a package may execute, making at most one bounded
// network call. A successful refresh persists the new expiry back to the
// license file.
func (c *Cache) Check(ctx context.Context, pkg string) CheckResult {
	cached, result, done := c.load(pkg)
	if done {
		return result
	}

	now := time.Now()
	expiry := cached.License.ExpiresAt

	// Fast path: no network call while comfortably before expiry.
	if state := Evaluate(now, expiry, c.buffer, c.grace, NetNotAttempted); state == StateValid {
		return CheckResult{State: StateValid, Allowed: true, ExpiresAt: expiry, Cached: cached}
	}

	outcome := RefreshOutcome{Result: NetUnreachable}
	if c.refresher != nil {
		outcome = c.refresher.Refresh(ctx, pkg, cached.License.Token)
	}

	state := Evaluate(now, expiry, c.buffer, c.grace, outcome.Result)
	res := CheckResult{
		State:     state,
		Allowed:   state.Allowed(),
		ExpiresAt: expiry,
		Reason:    outcome.Reason,
		Cached:    cached,
	}

	switch state {
	case StateRefreshedValid:
		res.ExpiresAt = outcome.ExpiresAt
		if err := licensefile.UpdateExpiry(c.dir, cached, outcome.ExpiresAt); err != nil {
			c.logger.Warn().Err(err).Str("package", pkg).Msg("failed to persist refreshed expiry")
		}
	case StateOfflineGracePeriod:
		res.Offline = true
		c.logger.Warn().
			Str("package", pkg).
			Time("expired_at", expiry).
			Time("grace_until", expiry.Add(c.grace)).
			Msg("validator unreachable, running in offline grace period")
	case StateExpired:
		c.logger.Info().Str("package", pkg).Str("reason", res.Reason).Msg("license expired")
	}

	return res
}

// QuickCheck performs only the local arithmetic, never touching the
// network or rewriting the file. For callers that need a fast answer.
func (c *Cache) QuickCheck(pkg string) CheckResult {
	cached, result, done := c.load(pkg)
	if done {
		return result
	}

	expiry := cached.License.ExpiresAt
	state := Evaluate(time.Now(), expiry, c.buffer, c.grace, NetNotAttempted)
	return CheckResult{
		State:     state,
		Allowed:   state.Allowed(),
		ExpiresAt: expiry,
		Offline:   state == StateOfflineGracePeriod,
		Cached:    cached,
	}
}

// load reads the cached license file. done is true when the read already
// determined the result (no file, or an unreadable one).
func (c *Cache) load(pkg string) (*models.CachedLicense, CheckResult, bool) {
	cached, err := licensefile.Read(c.dir, pkg)
	if err != nil {
		if !errors.Is(err, licensefile.ErrNotFound) {
			c.logger.Warn().Err(err).Str("package", pkg).Msg("unreadable license file, treating as unmanaged")
		}
		return nil, CheckResult{State: StateNoLicense, Allowed: true}, true
	}
	return cached, CheckResult{}, false
}
