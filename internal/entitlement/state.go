// Package entitlement decides whether a locally installed package may
// execute, without requiring network access on every invocation.
package entitlement

import "time"

// Defaults for the offline validation windows.
const (
	// DefaultRefreshBuffer is how close to expiry a cached credential gets
	// before an online refresh is attempted.
	DefaultRefreshBuffer = time.Hour
	// DefaultGracePeriod is how long past expiry a cached credential keeps
	// working when the validator is unreachable.
	DefaultGracePeriod = 24 * time.Hour
)

// State is the offline validation state of a cached credential.
type State int

const (
	// StateNoLicense means no license file exists; the package predates
	// licensing or is unmanaged, and execution is always allowed.
	StateNoLicense State = iota
	// StateValid means expiry is comfortably in the future.
	StateValid
	// StateNearExpiry means the credential is within the refresh buffer of
	// expiry but no refresh has been attempted.
	StateNearExpiry
	// StateRefreshedValid means an online refresh succeeded.
	StateRefreshedValid
	// StateOfflineGracePeriod means the validator was unreachable and the
	// credential is inside the grace window.
	StateOfflineGracePeriod
	// StateExpired means the credential is unconditionally invalid.
	StateExpired
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateNoLicense:
		return "no_license"
	case StateValid:
		return "valid"
	case StateNearExpiry:
		return "near_expiry"
	case StateRefreshedValid:
		return "refreshed_valid"
	case StateOfflineGracePeriod:
		return "offline_grace_period"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// Allowed reports whether execution proceeds in this state.
func (s State) Allowed() bool {
	return s != StateExpired
}

// NetworkResult is the outcome of the single online refresh attempt fed
// into the transition function.
type NetworkResult int

const (
	// NetNotAttempted means no refresh call was made.
	NetNotAttempted NetworkResult = iota
	// NetValid means the validator confirmed the license.
	NetValid
	// NetInvalid means the validator explicitly rejected the license
	// (revoked, record expired, record missing).
	NetInvalid
	// NetUnreachable means the call failed or timed out.
	NetUnreachable
)

// Evaluate is the pure transition function over a cached credential.
// A zero expiry means a perpetual license.
func Evaluate(now, expiry time.Time, buffer, grace time.Duration, net NetworkResult) State {
	if expiry.IsZero() {
		return StateValid
	}
	if now.Before(expiry.Add(-buffer)) {
		return StateValid
	}

	switch net {
	case NetValid:
		return StateRefreshedValid
	case NetInvalid:
		return StateExpired
	case NetNotAttempted:
		if now.Before(expiry) {
			return StateNearExpiry
		}
	}

	// Unreachable (or not attempted and already past expiry): the grace
	// window bounds how long a stale credential keeps working.
	if now.Before(expiry.Add(grace)) {
		return StateOfflineGracePeriod
	}
	return StateExpired
}
