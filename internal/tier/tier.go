// Package tier defines the subscription tier ordering shared by the
// Skillgate server and CLI. Both binaries import this package so that
// access decisions are evaluated against a single rank table.
package tier

// Tier represents a subscription level.
type Tier string

const (
	// TierFree is the default tier with basic access.
	TierFree Tier = "free"
	// TierPro unlocks individual paid packages.
	TierPro Tier = "pro"
	// TierTeam unlocks team-scoped packages.
	TierTeam Tier = "team"
	// TierEnterprise unlocks all packages.
	TierEnterprise Tier = "enterprise"
)

// ranks is the authoritative ordering. Unknown tiers rank as free.
var ranks = map[Tier]int{
	TierFree:       0,
	TierPro:        1,
	TierTeam:       2,
	TierEnterprise: 3,
}

// ValidTiers returns all recognized tiers in ascending order.
func ValidTiers() []Tier {
	return []Tier{TierFree, TierPro, TierTeam, TierEnterprise}
}

// IsValid checks if the tier is a recognized value.
func (t Tier) IsValid() bool {
	_, ok := ranks[t]
	return ok
}

// IsPaid returns true for any tier above free.
func (t Tier) IsPaid() bool {
	return Rank(t) > Rank(TierFree)
}

// Rank maps a tier name to its position in the ordering.
// Unknown tier names rank as free.
func Rank(t Tier) int {
	if r, ok := ranks[t]; ok {
		return r
	}
	return 0
}

// CanAccess reports whether a user at userTier may use a package that
// requires requiredTier.
func CanAccess(userTier, requiredTier Tier) bool {
	return Rank(userTier) >= Rank(requiredTier)
}
