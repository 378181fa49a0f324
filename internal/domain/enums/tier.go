package enums

type Tier string

const (
	TierNone      Tier = "none"
	TierMonthly   Tier = "monthly"
	TierQuarterly Tier = "quarterly"
	TierAnnual    Tier = "annual"
	TierGift      Tier = "gift"
)

func ParseTier(raw string) (Tier, bool) {
	switch Tier(raw) {
	case TierMonthly, TierQuarterly, TierAnnual, TierGift:
		return Tier(raw), true
	default:
		return TierNone, false
	}
}
