// Package handlers implements the Skillgate API endpoints.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skillgate/skillgate/internal/license"
	"github.com/skillgate/skillgate/internal/metrics"
	"github.com/skillgate/skillgate/internal/tier"
)

// LicenseHandler handles license issuance, validation, and revocation.
type LicenseHandler struct {
	issuer    *license.Issuer
	validator *license.Validator
	store     license.Store
	logger    zerolog.Logger
}

// NewLicenseHandler creates a new LicenseHandler.
func NewLicenseHandler(issuer *license.Issuer, validator *license.Validator, store license.Store, logger zerolog.Logger) *LicenseHandler {
	return &LicenseHandler{
		issuer:    issuer,
		validator: validator,
		store:     store,
		logger:    logger.With().Str("component", "license_handler").Logger(),
	}
}

// RegisterRoutes registers license routes on the given router group.
func (h *LicenseHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/licenses/issue", h.Issue)
	r.GET("/licenses/validate/:package", h.Validate)
	r.POST("/licenses/:id/revoke", h.Revoke)
	r.GET("/licenses", h.List)
}

// IssueRequest is the request body for license issuance. All fields come
// from the billing collaborator.
type IssueRequest struct {
	UserID                string     `json:"user_id" binding:"required"`
	Package               string     `json:"package" binding:"required"`
	Version               string     `json:"version" binding:"required"`
	Tier                  string     `json:"tier" binding:"required"`
	SubscriptionPeriodEnd *time.Time `json:"subscription_period_end,omitempty"`
}

// Issue creates a license record and returns its signed credential.
func (h *LicenseHandler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	res, err := h.issuer.Issue(c.Request.Context(), license.IssueRequest{
		UserID:                userID,
		PackageSlug:           req.Package,
		Version:               req.Version,
		Tier:                  tier.Tier(req.Tier),
		SubscriptionPeriodEnd: req.SubscriptionPeriodEnd,
	})
	if err != nil {
		if errors.Is(err, license.ErrPackageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "package not found"})
			return
		}
		h.logger.Error().Err(err).Str("package", req.Package).Msg("license issuance failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue license"})
		return
	}

	metrics.LicensesIssued.WithLabelValues(req.Tier).Inc()
	c.JSON(http.StatusCreated, res)
}

// ValidateResponse is the response body for license validation.
type ValidateResponse struct {
	Valid     bool       `json:"valid"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// Validate verifies the bearer credential for a package. It always
// returns 200 with a structured result; rejections are data, not errors.
func (h *LicenseHandler) Validate(c *gin.Context) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusOK, ValidateResponse{Valid: false, Reason: license.ReasonInvalidToken})
		return
	}

	result := h.validator.Validate(c.Request.Context(), token)

	reason := result.Reason
	if result.Valid {
		reason = "ok"
		// The token must belong to the package it is presented for.
		if pkg := c.Param("package"); result.Payload != nil && result.Payload.Package != pkg {
			result = license.Result{Valid: false, Reason: license.ReasonInvalidToken}
			reason = license.ReasonInvalidToken
		}
	}
	metrics.Validations.WithLabelValues(reason).Inc()

	c.JSON(http.StatusOK, ValidateResponse{
		Valid:     result.Valid,
		ExpiresAt: result.ExpiresAt,
		Reason:    result.Reason,
	})
}

// RevokeRequest is the request body for revocation.
type RevokeRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Revoke marks a license record as revoked. The record is kept as an
// audit trail.
func (h *LicenseHandler) Revoke(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid license id"})
		return
	}

	var req RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.store.RevokeLicense(c.Request.Context(), id, req.Reason); err != nil {
		if errors.Is(err, license.ErrLicenseNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "license not found"})
			return
		}
		h.logger.Error().Err(err).Str("license_id", id.String()).Msg("revocation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke license"})
		return
	}

	h.logger.Info().Str("license_id", id.String()).Str("reason", req.Reason).Msg("license revoked")
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}

// List returns the license records owned by a user.
func (h *LicenseHandler) List(c *gin.Context) {
	userID, err := uuid.Parse(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
		return
	}

	licenses, err := h.store.ListLicensesByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("list licenses failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list licenses"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"licenses": licenses})
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(c *gin.Context) string {
	const prefix = "Bearer "
	auth := c.GetHeader("Authorization")
	if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
		return auth[len(prefix):]
	}
	return ""
}
