package entitlement

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillgate/skillgate/internal/licensefile"
	"github.com/skillgate/skillgate/internal/models"
	"github.com/skillgate/skillgate/internal/tier"
)

// stubRefresher returns a canned outcome and records the last call.
type stubRefresher struct {
	outcome RefreshOutcome
	calls   int
}

func (s *stubRefresher) Refresh(_ context.Context, _, _ string) RefreshOutcome {
	s.calls++
	return s.outcome
}

func writeCached(t *testing.T, dir string, expiry time.Time) *models.CachedLicense {
	t.Helper()
	cached := &models.CachedLicense{
		Package: "pkg-a",
		Version: "1.0.0",
		License: models.CachedCredential{
			Token:     "cached-token",
			Tier:      tier.TierPro,
			ExpiresAt: expiry,
			Watermark: "wm-1234",
		},
	}
	require.NoError(t, licensefile.Write(dir, cached))
	return cached
}

func newTestCache(dir string, r Refresher) *Cache {
	return NewCache(Config{
		Dir:       dir,
		Refresher: r,
		Logger:    zerolog.Nop(),
	})
}

func TestCheck_NoLicenseFile(t *testing.T) {
	r := &stubRefresher{}
	cache := newTestCache(t.TempDir(), r)

	res := cache.Check(context.Background(), "unmanaged-pkg")
	assert.Equal(t, StateNoLicense, res.State)
	assert.True(t, res.Allowed)
	assert.Zero(t, r.calls, "no network call for unmanaged packages")
}

func TestCheck_ValidNoNetworkCall(t *testing.T) {
	dir := t.TempDir()
	writeCached(t, dir, time.Now().Add(48*time.Hour))
	r := &stubRefresher{}
	cache := newTestCache(dir, r)

	res := cache.Check(context.Background(), "pkg-a")
	assert.Equal(t, StateValid, res.State)
	assert.True(t, res.Allowed)
	assert.Zero(t, r.calls)
}

func TestCheck_PerpetualLicense(t *testing.T) {
	dir := t.TempDir()
	writeCached(t, dir, time.Time{})
	cache := newTestCache(dir, &stubRefresher{})

	res := cache.Check(context.Background(), "pkg-a")
	assert.Equal(t, StateValid, res.State)
	assert.True(t, res.Allowed)
}

func TestCheck_RefreshPersistsNewExpiry(t *testing.T) {
	dir := t.TempDir()
	writeCached(t, dir, time.Now().Add(30*time.Minute))

	refreshed := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	r := &stubRefresher{outcome: RefreshOutcome{Result: NetValid, ExpiresAt: refreshed}}
	cache := newTestCache(dir, r)

	res := cache.Check(context.Background(), "pkg-a")
	assert.Equal(t, StateRefreshedValid, res.State)
	assert.True(t, res.Allowed)
	assert.True(t, refreshed.Equal(res.ExpiresAt))
	assert.Equal(t, 1, r.calls)

	// Refresh must be durable: re-read the file.
	got, err := licensefile.Read(dir, "pkg-a")
	require.NoError(t, err)
	assert.True(t, refreshed.Equal(got.License.ExpiresAt))
}

func TestCheck_UnreachableWithinGrace(t *testing.T) {
	dir := t.TempDir()
	writeCached(t, dir, time.Now().Add(-time.Hour))
	r := &stubRefresher{outcome: RefreshOutcome{Result: NetUnreachable}}
	cache := newTestCache(dir, r)

	res := cache.Check(context.Background(), "pkg-a")
	assert.Equal(t, StateOfflineGracePeriod, res.State)
	assert.True(t, res.Allowed)
	assert.True(t, res.Offline)
}

func TestCheck_UnreachablePastGrace(t *testing.T) {
	dir := t.TempDir()
	writeCached(t, dir, time.Now().Add(-25*time.Hour))
	r := &stubRefresher{outcome: RefreshOutcome{Result: NetUnreachable}}
	cache := newTestCache(dir, r)

	res := cache.Check(context.Background(), "pkg-a")
	assert.Equal(t, StateExpired, res.State)
	assert.False(t, res.Allowed)
}

func TestCheck_ExplicitRejectionSkipsGrace(t *testing.T) {
	dir := t.TempDir()
	// Expiry only one minute past, well within the grace window.
	writeCached(t, dir, time.Now().Add(-time.Minute))
	r := &stubRefresher{outcome: RefreshOutcome{Result: NetInvalid, Reason: "revoked"}}
	cache := newTestCache(dir, r)

	res := cache.Check(context.Background(), "pkg-a")
	assert.Equal(t, StateExpired, res.State)
	assert.False(t, res.Allowed)
	assert.Equal(t, "revoked", res.Reason)
}

func TestCheck_NilRefresherTreatedAsUnreachable(t *testing.T) {
	dir := t.TempDir()
	writeCached(t, dir, time.Now().Add(-time.Hour))
	cache := NewCache(Config{Dir: dir, Logger: zerolog.Nop()})

	res := cache.Check(context.Background(), "pkg-a")
	assert.Equal(t, StateOfflineGracePeriod, res.State)
	assert.True(t, res.Allowed)
}

func TestQuickCheck_NeverCallsNetwork(t *testing.T) {
	dir := t.TempDir()
	writeCached(t, dir, time.Now().Add(30*time.Minute))
	r := &stubRefresher{outcome: RefreshOutcome{Result: NetValid}}
	cache := newTestCache(dir, r)

	res := cache.QuickCheck("pkg-a")
	assert.Equal(t, StateNearExpiry, res.State)
	assert.True(t, res.Allowed)
	assert.Zero(t, r.calls)
}

func TestQuickCheck_GraceAndExpired(t *testing.T) {
	dir := t.TempDir()
	writeCached(t, dir, time.Now().Add(-time.Hour))
	cache := newTestCache(dir, &stubRefresher{})

	res := cache.QuickCheck("pkg-a")
	assert.Equal(t, StateOfflineGracePeriod, res.State)
	assert.True(t, res.Allowed)

	writeCached(t, dir, time.Now().Add(-25*time.Hour))
	res = cache.QuickCheck("pkg-a")
	assert.Equal(t, StateExpired, res.State)
	assert.False(t, res.Allowed)
}

func TestHTTPRefresher_Valid(t *testing.T) {
	expiry := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/licenses/validate/pkg-a", r.URL.Path)
		assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(validateResponse{Valid: true, ExpiresAt: expiry})
	}))
	defer srv.Close()

	r := NewHTTPRefresher(srv.URL, 0)
	out := r.Refresh(context.Background(), "pkg-a", "tok-1")
	assert.Equal(t, NetValid, out.Result)
	assert.True(t, expiry.Equal(out.ExpiresAt))
}

func TestHTTPRefresher_Invalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(validateResponse{Valid: false, Reason: "revoked"})
	}))
	defer srv.Close()

	out := NewHTTPRefresher(srv.URL, 0).Refresh(context.Background(), "pkg-a", "tok-1")
	assert.Equal(t, NetInvalid, out.Result)
	assert.Equal(t, "revoked", out.Reason)
}

func TestHTTPRefresher_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	out := NewHTTPRefresher(srv.URL, 0).Refresh(context.Background(), "pkg-a", "tok-1")
	assert.Equal(t, NetUnreachable, out.Result)
}

func TestHTTPRefresher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	out := NewHTTPRefresher(srv.URL, 50*time.Millisecond).Refresh(context.Background(), "pkg-a", "tok-1")
	assert.Equal(t, NetUnreachable, out.Result)
}

func TestHTTPRefresher_Unreachable(t *testing.T) {
	out := NewHTTPRefresher("http://127.0.0.1:1", time.Second).Refresh(context.Background(), "pkg-a", "tok-1")
	assert.Equal(t, NetUnreachable, out.Result)
}

func TestGate_BlocksExpired(t *testing.T) {
	dir := t.TempDir()
	writeCached(t, dir, time.Now().Add(-25*time.Hour))
	cache := newTestCache(dir, &stubRefresher{outcome: RefreshOutcome{Result: NetUnreachable}})
	gate := NewGate(cache, zerolog.Nop())

	err := gate.Authorize(context.Background(), "pkg-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "skillgate update pkg-a")
}

func TestGate_AllowsGraceAndValid(t *testing.T) {
	dir := t.TempDir()
	gate := NewGate(newTestCache(dir, &stubRefresher{outcome: RefreshOutcome{Result: NetUnreachable}}), zerolog.Nop())

	// No license file at all.
	assert.NoError(t, gate.Authorize(context.Background(), "pkg-a"))

	// Grace period.
	writeCached(t, dir, time.Now().Add(-time.Hour))
	assert.NoError(t, gate.Authorize(context.Background(), "pkg-a"))

	// Comfortably valid.
	writeCached(t, dir, time.Now().Add(48*time.Hour))
	assert.NoError(t, gate.Authorize(context.Background(), "pkg-a"))
}
