package license

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skillgate/skillgate/internal/models"
)

// Validation reasons returned when a credential is rejected.
const (
	// ReasonInvalidToken covers malformed tokens and signature, issuer,
	// or audience failures.
	ReasonInvalidToken = "invalid_token"
	// ReasonExpiredToken means the credential's own exp claim has passed.
	ReasonExpiredToken = "expired_token"
	// ReasonNotFound means no record exists for the embedded license id.
	ReasonNotFound = "not_found"
	// ReasonRevoked means the record has been revoked.
	ReasonRevoked = "revoked"
	// ReasonExpired means the record's stored expiry is in the past,
	// regardless of what the token claims.
	ReasonExpired = "expired"
)

// Result is the structured outcome of validation. Validate never fails
// with an error; every rejection carries a reason.
type Result struct {
	Valid     bool                   `json:"valid"`
	Reason    string                 `json:"reason,omitempty"`
	Payload   *models.LicensePayload `json:"payload,omitempty"`
	ExpiresAt *time.Time             `json:"expires_at,omitempty"`
}

// Validator verifies license credentials against their durable records.
type Validator struct {
	store  Store
	secret []byte
	logger zerolog.Logger
}

// NewValidator creates a new license validator.
func NewValidator(store Store, secret []byte, logger zerolog.Logger) *Validator {
	return &Validator{
		store:  store,
		secret: secret,
		logger: logger.With().Str("component", "license_validator").Logger(),
	}
}

// Validate verifies a credential's signature and claims, then cross-checks
// the backing record for revocation and authoritative expiry.
func (v *Validator) Validate(ctx context.Context, token string) Result {
	claims, err := ParseToken(token, v.secret)
	if err != nil {
		if errors.Is(err, ErrExpiredToken) {
			return Result{Valid: false, Reason: ReasonExpiredToken}
		}
		return Result{Valid: false, Reason: ReasonInvalidToken}
	}

	licenseID, err := uuid.Parse(claims.LicenseID)
	if err != nil {
		return Result{Valid: false, Reason: ReasonInvalidToken}
	}

	lic, err := v.store.GetLicense(ctx, licenseID)
	if err != nil {
		if errors.Is(err, ErrLicenseNotFound) {
			return Result{Valid: false, Reason: ReasonNotFound}
		}
		v.logger.Error().Err(err).Str("license_id", claims.LicenseID).Msg("license lookup failed")
		return Result{Valid: false, Reason: ReasonNotFound}
	}

	if lic.Revoked {
		v.logger.Warn().
			Str("license_id", lic.ID.String()).
			Str("reason", lic.RevokedReason).
			Msg("revoked license presented")
		return Result{Valid: false, Reason: ReasonRevoked}
	}

	// The stored expiry is authoritative. A token with a tampered or stale
	// exp claim does not outlive its record.
	if time.Now().After(lic.ExpiresAt) {
		return Result{Valid: false, Reason: ReasonExpired}
	}

	payload := PayloadFromClaims(claims)
	payload.ExpiresAt = lic.ExpiresAt

	return Result{
		Valid:     true,
		Payload:   &payload,
		ExpiresAt: &lic.ExpiresAt,
	}
}
