// Package rank holds the pure dual-track rank math. Both the recalculation
// pass and every read path call these same functions, so a displayed rank
// can never diverge from what a recalculation would produce.
package rank

// Tier is one of the 17 rank tiers
type Tier struct {
	Name    string
	Ordinal int // 1-based, ascending with prestige
}

// tierDef couples a tier with its XP threshold and percentile ceiling
type tierDef struct {
	name string
	// minXP is the lowest total XP that reaches the tier on the base track
	minXP int
	// percentileCeiling is the inclusive upper percentile bound on the
	// competitive track; a user whose percentile is <= ceiling lands here
	percentileCeiling float64
}

// tiers is ordered from the top tier down. Base-track lookup walks it
// top-down picking the first threshold satisfied; competitive lookup walks
// it top-down picking the first ceiling at or above the user's percentile.
// The array type keeps len(tiers) a constant expression.
var tiers = [...]tierDef{
	{"Transcendent", 19000, 0.5},
	{"Immortal", 15500, 1},
	{"Mythic", 12500, 2},
	{"Legend", 10000, 3},
	{"Hero", 8200, 5},
	{"Champion", 6600, 8},
	{"Grandmaster", 5200, 12},
	{"Master", 4000, 17},
	{"Elite", 3000, 23},
	{"Veteran", 2300, 30},
	{"Expert", 1700, 40},
	{"Specialist", 1200, 50},
	{"Adept", 800, 60},
	{"Scholar", 500, 70},
	{"Apprentice", 250, 80},
	{"Recruit", 100, 90},
	{"Cadet", 0, 100},
}

// TierCount is the number of rank tiers
const TierCount = len(tiers)

func tierAt(topDownIndex int) Tier {
	return Tier{
		Name:    tiers[topDownIndex].name,
		Ordinal: len(tiers) - topDownIndex,
	}
}

// TopTier returns the highest tier
func TopTier() Tier {
	return tierAt(0)
}

// BottomTier returns the entry tier
func BottomTier() Tier {
	return tierAt(len(tiers) - 1)
}

// Ordinal returns a tier name's ordinal, or 0 for an unknown name.
// Unknown (including empty) names therefore always lose ratchet comparisons.
func Ordinal(name string) int {
	for i, t := range tiers {
		if t.name == name {
			return len(tiers) - i
		}
	}
	return 0
}

// BaseRankForXP picks the highest tier whose XP threshold is satisfied
func BaseRankForXP(xp int) Tier {
	if xp < 0 {
		xp = 0
	}
	for i, t := range tiers {
		if xp >= t.minXP {
			return tierAt(i)
		}
	}
	return BottomTier()
}

// CompetitiveRankForPosition maps a 1-based leaderboard position within the
// active population to a percentile-band tier. Position 1 is always the top
// tier regardless of population size.
func CompetitiveRankForPosition(position, totalUsers int) Tier {
	if position <= 1 {
		return TopTier()
	}
	if totalUsers < position {
		totalUsers = position
	}

	percentile := float64(position) / float64(totalUsers) * 100

	// scan from the top tier down: the first band whose ceiling covers the
	// percentile is the highest band the user qualifies for
	for i, t := range tiers {
		if percentile <= t.percentileCeiling {
			return tierAt(i)
		}
	}
	return BottomTier()
}

// Progress describes how far into the base-track tier an XP total sits
type Progress struct {
	Current      Tier
	Next         *Tier // nil at the top tier
	XPIntoTier   int
	XPToNextRank int
}

// BaseProgress computes base-track progress for an XP total
func BaseProgress(xp int) Progress {
	if xp < 0 {
		xp = 0
	}
	for i, t := range tiers {
		if xp >= t.minXP {
			p := Progress{
				Current:    tierAt(i),
				XPIntoTier: xp - t.minXP,
			}
			if i > 0 {
				next := tierAt(i - 1)
				p.Next = &next
				p.XPToNextRank = tiers[i-1].minXP - xp
			}
			return p
		}
	}
	return Progress{Current: BottomTier()}
}
