package calculator

// Tier is one difficulty band of the crafting failure model. The band is
// chosen by delta = difficulty - effective level; FailRate is the chance a
// single craft fails inside that band.
type Tier struct {
	Name     string
	FailRate float64
}

// The four failure tiers, easiest first.
var (
	TierVeryEasy = Tier{Name: "Very Easy", FailRate: 0.08}
	TierEasy     = Tier{Name: "Easy", FailRate: 0.15}
	TierModerate = Tier{Name: "Moderate", FailRate: 0.30}
	TierHard     = Tier{Name: "Hard", FailRate: 0.50}
)

// TierFor classifies a recipe difficulty against an effective crafting
// level. Total over all integer inputs.
func TierFor(difficulty, effectiveLevel int) Tier {
	delta := difficulty - effectiveLevel
	switch {
	case delta <= 0:
		return TierVeryEasy
	case delta <= 3:
		return TierEasy
	case delta <= 6:
		return TierModerate
	default:
		return TierHard
	}
}

// FailureMultiplier returns how many crafts must be planned per craft of
// desired output so that expected successes still meet the target:
// 1/(1-failRate) for the tier the inputs fall in.
func FailureMultiplier(difficulty, effectiveLevel int) float64 {
	return 1.0 / (1.0 - TierFor(difficulty, effectiveLevel).FailRate)
}

// Multiplier returns the tier's craft multiplier.
func (t Tier) Multiplier() float64 {
	return 1.0 / (1.0 - t.FailRate)
}
