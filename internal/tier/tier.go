// Package tier derives a listing's service tier from its asking price.
// The tier is computed once at listing creation and never recomputed, so that
// later price edits cannot silently change what the seller was billed for.
package tier

import (
	"biztech/api/internal/models"
)

// DefaultPremiumThreshold is the asking price (currency-unit-agnostic) at and
// above which a listing is premium.
const DefaultPremiumThreshold = 500000

// Classify returns the tier for the given asking price. A price exactly at the
// threshold is premium.
func Classify(price, premiumThreshold float64) models.Tier {
	if price >= premiumThreshold {
		return models.TierPremium
	}
	return models.TierBasic
}
