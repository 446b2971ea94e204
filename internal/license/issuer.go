package license

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skillgate/skillgate/internal/models"
	"github.com/skillgate/skillgate/internal/tier"
)

const (
	// DefaultLicenseDuration is the expiry window for licenses issued
	// without a backing subscription.
	DefaultLicenseDuration = 30 * 24 * time.Hour
	// SubscriptionExpiryMargin is added to the subscription period end so
	// renewals have room to land before the license lapses.
	SubscriptionExpiryMargin = 7 * 24 * time.Hour
)

// Issuer creates signed license credentials backed by durable records.
type Issuer struct {
	store  Store
	secret []byte
	logger zerolog.Logger
}

// NewIssuer creates a new license issuer.
func NewIssuer(store Store, secret []byte, logger zerolog.Logger) *Issuer {
	return &Issuer{
		store:  store,
		secret: secret,
		logger: logger.With().Str("component", "license_issuer").Logger(),
	}
}

// IssueRequest holds the externally supplied inputs for issuance. All
// fields come from the billing/subscription collaborator.
type IssueRequest struct {
	UserID                uuid.UUID
	PackageSlug           string
	Version               string
	Tier                  tier.Tier
	SubscriptionPeriodEnd *time.Time
}

// IssueResult is the successful outcome of issuance.
type IssueResult struct {
	Token     string                `json:"token"`
	Payload   models.LicensePayload `json:"payload"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// Issue creates a license record and returns a signed credential for it.
// The durable write happens before signing; if the write fails no
// credential is returned.
func (i *Issuer) Issue(ctx context.Context, req IssueRequest) (*IssueResult, error) {
	pkg, err := i.store.GetPackageBySlug(ctx, req.PackageSlug)
	if err != nil {
		return nil, err
	}

	sub, err := i.store.GetActiveSubscription(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	issuedAt := time.Now()
	expiresAt := computeExpiry(issuedAt, req.Tier, req.SubscriptionPeriodEnd)

	watermark, err := NewWatermark(req.UserID.String())
	if err != nil {
		return nil, err
	}

	lic := &models.License{
		ID:        uuid.New(),
		UserID:    req.UserID,
		PackageID: pkg.ID,
		Tier:      req.Tier,
		Watermark: watermark,
		ExpiresAt: expiresAt,
		CreatedAt: issuedAt,
	}
	if sub != nil {
		lic.SubscriptionID = &sub.ID
	}

	if err := i.store.CreateLicense(ctx, lic); err != nil {
		return nil, fmt.Errorf("persist license: %w", err)
	}

	claims := newClaims(lic, req.UserID.String(), pkg.Slug, req.Version, issuedAt)
	token, err := SignToken(claims, i.secret)
	if err != nil {
		return nil, err
	}

	i.logger.Info().
		Str("license_id", lic.ID.String()).
		Str("package", pkg.Slug).
		Str("tier", string(req.Tier)).
		Time("expires_at", expiresAt).
		Msg("license issued")

	return &IssueResult{
		Token:     token,
		Payload:   PayloadFromClaims(claims),
		ExpiresAt: expiresAt,
	}, nil
}

// computeExpiry applies the expiry policy: paid tiers expire a fixed margin
// after the subscription period end; everything else gets the default
// duration from issuance.
func computeExpiry(issuedAt time.Time, t tier.Tier, periodEnd *time.Time) time.Time {
	if periodEnd != nil && t.IsPaid() {
		return periodEnd.Add(SubscriptionExpiryMargin)
	}
	return issuedAt.Add(DefaultLicenseDuration)
}
