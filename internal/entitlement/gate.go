package entitlement

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// Gate is the execution hook that runs before a governed package is
// dispatched. It blocks on expiry, warns on offline grace, and stays
// silent otherwise.
type Gate struct {
	cache  *Cache
	logger zerolog.Logger
}

// NewGate creates a Gate over the given cache.
func NewGate(cache *Cache, logger zerolog.Logger) *Gate {
	return &Gate{
		cache:  cache,
		logger: logger.With().Str("component", "entitlement_gate").Logger(),
	}
}

// Authorize checks the package's entitlement and returns a blocking error
// with remediation text when the license has expired.
func (g *Gate) Authorize(ctx context.Context, pkg string) error {
	res := g.cache.Check(ctx, pkg)

	switch res.State {
	case StateExpired:
		return fmt.Errorf("license for %q has expired and could not be renewed.\n"+
			"Run \"skillgate update %s\" to refresh it, or renew your subscription "+
			"and reinstall the package", pkg, pkg)
	case StateOfflineGracePeriod:
		g.logger.Warn().
			Str("package", pkg).
			Time("grace_until", res.ExpiresAt.Add(g.cache.grace)).
			Msg("running offline: license could not be verified, continuing in grace period")
	}
	return nil
}
