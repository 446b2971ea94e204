// Package license provides license issuance, credential signing, and
// validation for Skillgate packages.
package license

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/skillgate/skillgate/internal/models"
)

const (
	// TokenIssuer is the fixed iss claim shared by issuer and validator.
	TokenIssuer = "skillgate"
	// TokenAudience is the fixed aud claim shared by issuer and validator.
	TokenAudience = "skillgate-cli"
)

var (
	// ErrInvalidToken indicates the credential is malformed or its
	// signature, issuer, or audience check failed.
	ErrInvalidToken = errors.New("invalid license token")
	// ErrExpiredToken indicates the credential's exp claim has passed.
	ErrExpiredToken = errors.New("license token has expired")
)

// SignToken signs a license credential with the shared HMAC secret.
func SignToken(claims *models.LicenseClaims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign license token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies a credential's signature, issuer, audience, and
// expiration claim, and returns its claims.
func ParseToken(tokenString string, secret []byte) (*models.LicenseClaims, error) {
	claims := &models.LicenseClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		},
		jwt.WithIssuer(TokenIssuer),
		jwt.WithAudience(TokenAudience),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// PayloadFromClaims converts verified claims into the normalized payload
// surfaced to callers.
func PayloadFromClaims(claims *models.LicenseClaims) models.LicensePayload {
	payload := models.LicensePayload{
		UserID:    claims.Subject,
		Package:   claims.Package,
		Version:   claims.Version,
		Tier:      claims.Tier,
		Watermark: claims.Watermark,
		LicenseID: claims.LicenseID,
	}
	if claims.IssuedAt != nil {
		payload.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		payload.ExpiresAt = claims.ExpiresAt.Time
	}
	return payload
}

// newClaims builds the claim set for a freshly issued license.
func newClaims(lic *models.License, userID, pkgSlug, version string, issuedAt time.Time) *models.LicenseClaims {
	return &models.LicenseClaims{
		Package:   pkgSlug,
		Version:   version,
		Tier:      lic.Tier,
		Watermark: lic.Watermark,
		LicenseID: lic.ID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    TokenIssuer,
			Audience:  jwt.ClaimStrings{TokenAudience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(lic.ExpiresAt),
		},
	}
}
