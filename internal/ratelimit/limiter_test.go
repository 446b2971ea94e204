package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/tier"
)

func testLimiter(t *testing.T, classes map[string]ClassConfig) (*Limiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return New(rdb, classes, zerolog.Nop()), mr
}

func TestEnforce_UnderLimit(t *testing.T) {
	l, _ := testLimiter(t, map[string]ClassConfig{
		"api": {Default: Limit{Requests: 5, Window: time.Minute}},
	})
	id := Identity{UserID: "u1", Tier: tier.TierFree}

	for i := int64(1); i <= 5; i++ {
		dec, err := l.Enforce(context.Background(), id, "api")
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "request %d should be allowed", i)
		assert.Equal(t, int64(5), dec.Limit)
		assert.Equal(t, 5-i, dec.Remaining)
		assert.False(t, dec.ResetAt.IsZero())
	}
}

func TestEnforce_OverLimit(t *testing.T) {
	l, _ := testLimiter(t, map[string]ClassConfig{
		"api": {Default: Limit{Requests: 3, Window: time.Minute}},
	})
	id := Identity{UserID: "u1", Tier: tier.TierFree}

	for range 3 {
		dec, err := l.Enforce(context.Background(), id, "api")
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}

	dec, err := l.Enforce(context.Background(), id, "api")
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Zero(t, dec.Remaining)
	assert.Positive(t, dec.RetryAfter)
	assert.LessOrEqual(t, dec.RetryAfter, time.Minute)
}

func TestEnforce_DistinctIdentities(t *testing.T) {
	l, _ := testLimiter(t, map[string]ClassConfig{
		"api": {Default: Limit{Requests: 1, Window: time.Minute}},
	})

	dec, err := l.Enforce(context.Background(), Identity{UserID: "u1"}, "api")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	// A different user has their own bucket.
	dec, err = l.Enforce(context.Background(), Identity{UserID: "u2"}, "api")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)

	// An IP identity never collides with a user identity of the same value.
	dec, err = l.Enforce(context.Background(), Identity{IP: "u1"}, "api")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestEnforce_TierLimits(t *testing.T) {
	l, _ := testLimiter(t, map[string]ClassConfig{
		"api": {
			Default: Limit{Requests: 1, Window: time.Minute},
			PerTier: map[tier.Tier]Limit{
				tier.TierPro: {Requests: 3, Window: time.Minute},
			},
		},
	})

	free := Identity{UserID: "u-free", Tier: tier.TierFree}
	pro := Identity{UserID: "u-pro", Tier: tier.TierPro}

	dec, err := l.Enforce(context.Background(), free, "api")
	require.NoError(t, err)
	assert.Equal(t, int64(1), dec.Limit)

	dec, err = l.Enforce(context.Background(), pro, "api")
	require.NoError(t, err)
	assert.Equal(t, int64(3), dec.Limit)
}

func TestEnforce_BucketTTL(t *testing.T) {
	l, mr := testLimiter(t, map[string]ClassConfig{
		"api": {Default: Limit{Requests: 2, Window: time.Minute}},
	})
	id := Identity{UserID: "u1"}

	_, err := l.Enforce(context.Background(), id, "api")
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	ttl := mr.TTL(keys[0])
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)
}

func TestEnforce_WindowReset(t *testing.T) {
	l, mr := testLimiter(t, map[string]ClassConfig{
		"api": {Default: Limit{Requests: 1, Window: time.Second}},
	})
	id := Identity{UserID: "u1"}

	dec, err := l.Enforce(context.Background(), id, "api")
	require.NoError(t, err)
	require.True(t, dec.Allowed)

	dec, err = l.Enforce(context.Background(), id, "api")
	require.NoError(t, err)
	if dec.Allowed {
		// The second request may land in the next bucket when the test
		// straddles a window boundary; a third in the same bucket must not.
		dec, err = l.Enforce(context.Background(), id, "api")
		require.NoError(t, err)
	}
	assert.False(t, dec.Allowed)

	// After the window passes, a new bucket key is used and the quota is
	// fresh.
	mr.FastForward(2 * time.Second)
	time.Sleep(1100 * time.Millisecond)
	dec, err = l.Enforce(context.Background(), id, "api")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestEnforce_StoreDownFailsClosedForAuth(t *testing.T) {
	l, mr := testLimiter(t, map[string]ClassConfig{
		"auth": {SecurityCritical: true, Default: Limit{Requests: 10, Window: time.Minute}},
	})
	mr.Close()

	dec, err := l.Enforce(context.Background(), Identity{IP: "10.0.0.1"}, "auth")
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, dec.Allowed)
	assert.False(t, dec.Degraded)
}

func TestEnforce_StoreDownFailsOpenOtherwise(t *testing.T) {
	l, mr := testLimiter(t, map[string]ClassConfig{
		"api": {Default: Limit{Requests: 10, Window: time.Minute}},
	})
	mr.Close()

	dec, err := l.Enforce(context.Background(), Identity{UserID: "u1"}, "api")
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
	assert.True(t, dec.Degraded)
}

func TestEnforce_UnknownClass(t *testing.T) {
	l, _ := testLimiter(t, DefaultClasses())
	_, err := l.Enforce(context.Background(), Identity{UserID: "u1"}, "nope")
	assert.Error(t, err)
}

func TestDefaultClasses(t *testing.T) {
	classes := DefaultClasses()
	require.Contains(t, classes, "auth")
	require.Contains(t, classes, "api")
	assert.True(t, classes["auth"].SecurityCritical)
	assert.False(t, classes["api"].SecurityCritical)

	// Higher tiers never get a smaller quota.
	api := classes["api"]
	assert.GreaterOrEqual(t, api.limitFor(tier.TierPro).Requests, api.limitFor(tier.TierFree).Requests)
	assert.GreaterOrEqual(t, api.limitFor(tier.TierEnterprise).Requests, api.limitFor(tier.TierTeam).Requests)
}
