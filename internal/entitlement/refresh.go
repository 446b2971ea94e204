package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultRefreshTimeout bounds the online validation call. A timeout is
// treated the same as any other network failure.
const DefaultRefreshTimeout = 10 * time.Second

// RefreshOutcome is the result of one online validation attempt.
type RefreshOutcome struct {
	Result    NetworkResult
	ExpiresAt time.Time
	Reason    string
}

// Refresher performs the online validation call for a cached credential.
type Refresher interface {
	Refresh(ctx context.Context, pkg, token string) RefreshOutcome
}

// validateResponse mirrors the server's validation endpoint body.
type validateResponse struct {
	Valid     bool      `json:"valid"`
	ExpiresAt time.Time `json:"expires_at"`
	Reason    string    `json:"reason,omitempty"`
}

// HTTPRefresher validates cached credentials against the Skillgate server.
type HTTPRefresher struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRefresher creates a refresher for the given server URL.
func NewHTTPRefresher(baseURL string, timeout time.Duration) *HTTPRefresher {
	if timeout == 0 {
		timeout = DefaultRefreshTimeout
	}
	return &HTTPRefresher{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Refresh calls the server's validation endpoint. Only an explicit
// valid=false response counts as invalid; transport errors, timeouts, and
// unexpected statuses are reported as unreachable so the caller can fall
// through to the grace check.
func (r *HTTPRefresher) Refresh(ctx context.Context, pkg, token string) RefreshOutcome {
	url := fmt.Sprintf("%s/api/v1/licenses/validate/%s", r.baseURL, pkg)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return RefreshOutcome{Result: NetUnreachable}
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.client.Do(req)
	if err != nil {
		return RefreshOutcome{Result: NetUnreachable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RefreshOutcome{Result: NetUnreachable}
	}

	var body validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return RefreshOutcome{Result: NetUnreachable}
	}

	if !body.Valid {
		return RefreshOutcome{Result: NetInvalid, Reason: body.Reason}
	}
	return RefreshOutcome{Result: NetValid, ExpiresAt: body.ExpiresAt}
}
