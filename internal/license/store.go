package license

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/skillgate/skillgate/internal/models"
	"github.com/skillgate/skillgate/internal/tier"
)

var (
	// ErrPackageNotFound indicates the package slug does not exist.
	ErrPackageNotFound = errors.New("package not found")
	// ErrLicenseNotFound indicates no license record exists for the id.
	ErrLicenseNotFound = errors.New("license not found")
)

// Store provides persistence for license records and the narrow read
// contracts on packages and subscriptions.
type Store interface {
	GetPackageBySlug(ctx context.Context, slug string) (*models.Package, error)
	GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	CreateLicense(ctx context.Context, lic *models.License) error
	GetLicense(ctx context.Context, id uuid.UUID) (*models.License, error)
	RevokeLicense(ctx context.Context, id uuid.UUID, reason string) error
	ListLicensesByUser(ctx context.Context, userID uuid.UUID) ([]*models.License, error)
}

// PGStore implements Store on PostgreSQL using pgx.
type PGStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults.
func DefaultPoolConfig(url string) PoolConfig {
	return PoolConfig{
		URL:             url,
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: time.Hour,
		MaxConnIdleTime: 30 * time.Minute,
	}
}

// NewPGStore creates a new PostgreSQL-backed store.
func NewPGStore(ctx context.Context, cfg PoolConfig, logger zerolog.Logger) (*PGStore, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	store := &PGStore{
		pool:   pool,
		logger: logger.With().Str("component", "license_store").Logger(),
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store.logger.Info().Msg("database connection pool established")
	return store, nil
}

// Close releases the connection pool.
func (s *PGStore) Close() {
	s.pool.Close()
}

// GetPackageBySlug resolves a package by its slug.
func (s *PGStore) GetPackageBySlug(ctx context.Context, slug string) (*models.Package, error) {
	var pkg models.Package
	err := s.pool.QueryRow(ctx, `
		SELECT id, slug, name, required_tier, created_at
		FROM packages
		WHERE slug = $1
	`, slug).Scan(&pkg.ID, &pkg.Slug, &pkg.Name, &pkg.RequiredTier, &pkg.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPackageNotFound
		}
		return nil, fmt.Errorf("get package by slug: %w", err)
	}
	return &pkg, nil
}

// GetActiveSubscription returns the user's currently active subscription,
// or nil if they have none.
func (s *PGStore) GetActiveSubscription(ctx context.Context, userID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, tier, status, current_period_end
		FROM subscriptions
		WHERE user_id = $1 AND status = 'active'
		ORDER BY current_period_end DESC
		LIMIT 1
	`, userID).Scan(&sub.ID, &sub.UserID, &sub.Tier, &sub.Status, &sub.CurrentPeriodEnd)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get active subscription: %w", err)
	}
	return &sub, nil
}

// CreateLicense inserts a new license record. A single atomic insert;
// concurrent issuance produces distinct records.
func (s *PGStore) CreateLicense(ctx context.Context, lic *models.License) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO licenses (id, user_id, package_id, subscription_id, tier, watermark, expires_at, revoked, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`, lic.ID, lic.UserID, lic.PackageID, lic.SubscriptionID, string(lic.Tier), lic.Watermark, lic.ExpiresAt, lic.CreatedAt)

	if err != nil {
		return fmt.Errorf("create license: %w", err)
	}
	return nil
}

// GetLicense returns the license record for the given id.
func (s *PGStore) GetLicense(ctx context.Context, id uuid.UUID) (*models.License, error) {
	var lic models.License
	var tierStr string
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, package_id, subscription_id, tier, watermark, expires_at, revoked, revoked_at, revoked_reason, created_at
		FROM licenses
		WHERE id = $1
	`, id).Scan(
		&lic.ID, &lic.UserID, &lic.PackageID, &lic.SubscriptionID, &tierStr,
		&lic.Watermark, &lic.ExpiresAt, &lic.Revoked, &lic.RevokedAt, &lic.RevokedReason, &lic.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLicenseNotFound
		}
		return nil, fmt.Errorf("get license: %w", err)
	}

	lic.Tier = tier.Tier(tierStr)
	return &lic, nil
}

// RevokeLicense marks a license as revoked. Records are never deleted.
func (s *PGStore) RevokeLicense(ctx context.Context, id uuid.UUID, reason string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE licenses
		SET revoked = true, revoked_at = $2, revoked_reason = $3
		WHERE id = $1
	`, id, time.Now(), reason)

	if err != nil {
		return fmt.Errorf("revoke license: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLicenseNotFound
	}
	return nil
}

// ListLicensesByUser returns all license records owned by a user, newest
// first.
func (s *PGStore) ListLicensesByUser(ctx context.Context, userID uuid.UUID) ([]*models.License, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, package_id, subscription_id, tier, watermark, expires_at, revoked, revoked_at, revoked_reason, created_at
		FROM licenses
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	defer rows.Close()

	var licenses []*models.License
	for rows.Next() {
		var lic models.License
		var tierStr string
		if err := rows.Scan(
			&lic.ID, &lic.UserID, &lic.PackageID, &lic.SubscriptionID, &tierStr,
			&lic.Watermark, &lic.ExpiresAt, &lic.Revoked, &lic.RevokedAt, &lic.RevokedReason, &lic.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan license: %w", err)
		}
		lic.Tier = tier.Tier(tierStr)
		licenses = append(licenses, &lic)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	return licenses, nil
}
