package application

import "time"

// ActivityTier classifies how recently an issue saw activity.
type ActivityTier int

const (
	// TierHot indicates activity within the last hour.
	TierHot ActivityTier = iota
	// TierActive indicates activity within the last day.
	TierActive
	// TierWarm indicates activity within the last 7 days.
	TierWarm
	// TierStale indicates no activity for 7+ days.
	TierStale
)

// String returns a human-readable name for the activity tier.
func (t ActivityTier) String() string {
	switch t {
	case TierHot:
		return "hot"
	case TierActive:
		return "active"
	case TierWarm:
		return "warm"
	case TierStale:
		return "stale"
	default:
		return "unknown"
	}
}

// classifyActivity determines the tier from the time elapsed between
// lastActivity and now. A zero-value time is treated as TierStale.
func classifyActivity(lastActivity, now time.Time) ActivityTier {
	if lastActivity.IsZero() {
		return TierStale
	}

	elapsed := now.Sub(lastActivity)

	switch {
	case elapsed < 1*time.Hour:
		return TierHot
	case elapsed < 24*time.Hour:
		return TierActive
	case elapsed < 7*24*time.Hour:
		return TierWarm
	default:
		return TierStale
	}
}
