// Package models defines the data model for Skillgate licensing.
package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/skillgate/skillgate/internal/tier"
)

// License represents a stored license record. Records are created at
// issuance, mutated only by revocation, and never deleted.
type License struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	PackageID      uuid.UUID  `json:"package_id"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
	Tier           tier.Tier  `json:"tier"`
	Watermark      string     `json:"watermark"`
	ExpiresAt      time.Time  `json:"expires_at"`
	Revoked        bool       `json:"revoked"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	RevokedReason  string     `json:"revoked_reason,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// LicenseClaims are the JWT claims embedded in a license credential.
// The credential is immutable once signed; renewal mints a new credential
// and a new record.
type LicenseClaims struct {
	Package   string    `json:"package"`
	Version   string    `json:"version"`
	Tier      tier.Tier `json:"tier"`
	Watermark string    `json:"watermark"`
	LicenseID string    `json:"license_id"`
	jwt.RegisteredClaims
}

// LicensePayload is the normalized view of a validated credential returned
// to callers.
type LicensePayload struct {
	UserID    string    `json:"user_id"`
	Package   string    `json:"package"`
	Version   string    `json:"version"`
	Tier      tier.Tier `json:"tier"`
	Watermark string    `json:"watermark"`
	LicenseID string    `json:"license_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CachedCredential is the credential portion of a local license file.
type CachedCredential struct {
	Token     string    `json:"token"`
	Tier      tier.Tier `json:"tier"`
	ExpiresAt time.Time `json:"expires_at"`
	Watermark string    `json:"watermark"`
}

// CachedLicense is the local license file written on install and refreshed
// in place on update. It is read before every execution of the governed
// package.
type CachedLicense struct {
	Package     string           `json:"package"`
	Version     string           `json:"version"`
	License     CachedCredential `json:"license"`
	InstalledAt time.Time        `json:"installed_at"`
	UpdatedFrom string           `json:"updated_from,omitempty"`
}
