package tier

import "testing"

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		tier Tier
		want int
	}{
		{"free ranks 0", TierFree, 0},
		{"pro ranks 1", TierPro, 1},
		{"team ranks 2", TierTeam, 2},
		{"enterprise ranks 3", TierEnterprise, 3},
		{"unknown ranks as free", Tier("platinum"), 0},
		{"empty ranks as free", Tier(""), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Rank(tt.tier); got != tt.want {
				t.Errorf("Rank(%q) = %d, want %d", tt.tier, got, tt.want)
			}
		})
	}
}

func TestCanAccess(t *testing.T) {
	tests := []struct {
		name     string
		user     Tier
		required Tier
		want     bool
	}{
		{"free can access free", TierFree, TierFree, true},
		{"pro can access pro", TierPro, TierPro, true},
		{"team can access team", TierTeam, TierTeam, true},
		{"enterprise can access enterprise", TierEnterprise, TierEnterprise, true},
		{"enterprise can access free", TierEnterprise, TierFree, true},
		{"enterprise can access team", TierEnterprise, TierTeam, true},
		{"team can access pro", TierTeam, TierPro, true},
		{"free cannot access pro", TierFree, TierPro, false},
		{"pro cannot access team", TierPro, TierTeam, false},
		{"team cannot access enterprise", TierTeam, TierEnterprise, false},
		{"unknown user treated as free", Tier("platinum"), TierPro, false},
		{"unknown requirement treated as free", TierFree, Tier("platinum"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAccess(tt.user, tt.required); got != tt.want {
				t.Errorf("CanAccess(%q, %q) = %v, want %v", tt.user, tt.required, got, tt.want)
			}
		})
	}
}

func TestIsValid(t *testing.T) {
	for _, valid := range ValidTiers() {
		if !valid.IsValid() {
			t.Errorf("IsValid(%q) = false, want true", valid)
		}
	}
	if Tier("platinum").IsValid() {
		t.Error("IsValid(platinum) = true, want false")
	}
}

func TestIsPaid(t *testing.T) {
	if TierFree.IsPaid() {
		t.Error("free tier reported as paid")
	}
	for _, paid := range []Tier{TierPro, TierTeam, TierEnterprise} {
		if !paid.IsPaid() {
			t.Errorf("IsPaid(%q) = false, want true", paid)
		}
	}
}
