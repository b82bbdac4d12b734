package director

import "math"

// Reward is the payout every online participant of a completed instance receives.
type Reward struct {
	ZoneMult float64
	XPMult   float64
	Bonus    int
	Points   int
	XP       int
}

// ComputeReward applies the difficulty multipliers and the flat cooperation bonus.
// Payouts are per participant, not a split pool.
func ComputeReward(basePoints, baseXP, difficulty, participants int) Reward {
	z := float64(max(0, difficulty))
	zoneMult := 1 + 0.1*z + 0.5*math.Log10(z+1)
	xpMult := 1 + 0.08*z + 0.4*math.Log10(z+1)
	bonus := min(50, max(0, participants-1)*10)
	return Reward{
		ZoneMult: zoneMult,
		XPMult:   xpMult,
		Bonus:    bonus,
		Points:   int(math.Floor(float64(basePoints)*zoneMult)) + bonus,
		XP:       int(math.Floor(float64(baseXP)*xpMult)) + bonus/2,
	}
}
