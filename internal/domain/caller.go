package domain

// Tier is the account level of the caller.
type Tier string

// Account tiers.
const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Caller identifies who issued a search. Authentication happens upstream;
// this core only reads the resolved identity.
type Caller struct {
	UserID string
	IP     string
	Tier   Tier
}

// IsPremium reports whether the caller searches through the document engine.
func (c Caller) IsPremium() bool { return c.Tier == TierPremium }
