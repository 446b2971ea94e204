package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/skillgate/skillgate/internal/tier"
)

// Package represents a downloadable package (skill) in the registry.
// Only the fields the licensing core reads are modeled here; manifest
// contents belong to the registry collaborator.
type Package struct {
	ID           uuid.UUID `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	RequiredTier tier.Tier `json:"required_tier"`
	CreatedAt    time.Time `json:"created_at"`
}

// Subscription is the billing collaborator's view of a user's plan.
// Skillgate only links license records to it and reads its period end.
type Subscription struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	Tier             tier.Tier `json:"tier"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
}
