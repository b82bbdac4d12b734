package director

import (
	"fmt"
	"math"
	"sort"

	"worldevents.ai/internal/sim/world"
)

var countdownMarks = []uint64{60, 30, 10}

// announceStart sends the two-tier start broadcast: a title, a rich message and a sound inside the
// announcement radius, a one-line ping out to twice that radius.
func (i *Instance) announceStart() {
	r := i.arch.AnnouncementRadius
	subtitle := i.behavior.StartSubtitle()
	for _, p := range i.env.dir.Online() {
		d := p.Loc.Distance(i.loc)
		switch {
		case d <= r:
			i.env.dir.SendTitle(p.ID, fmt.Sprintf("%s %s", i.arch.Icon, i.arch.DisplayName), subtitle)
			i.env.dir.SendMessage(p.ID, fmt.Sprintf("EVENT: %s. %s %dm %s | zone %s | %s",
				i.arch.DisplayName, i.arch.Description, int(math.Round(d)), i.loc.Compass(p.Loc), zoneLabel(i.zone), formatTicks(i.arch.DurationTicks, i.env.tickRateHz)))
			if i.arch.StartSound != "" {
				i.env.dir.PlaySound(p.ID, i.arch.StartSound)
			}
		case d <= 2*r:
			i.env.dir.SendMessage(p.ID, fmt.Sprintf("[Event] %s started %dm to the %s", i.arch.DisplayName, int(math.Round(d)), i.loc.Compass(p.Loc)))
		}
	}
}

func (i *Instance) announceOutcome(success bool, reason string) {
	nearby := playersWithin(i.env.dir.Online(), i.loc, i.arch.AnnouncementRadius)
	for _, p := range nearby {
		if success {
			i.env.dir.SendTitle(p.ID, fmt.Sprintf("%s %s complete", i.arch.Icon, i.arch.DisplayName), "")
			continue
		}
		i.env.dir.SendTitle(p.ID, fmt.Sprintf("%s %s failed", i.arch.Icon, i.arch.DisplayName), reason)
	}
}

// countdown warns viewers once at each mark of remaining time.
func (i *Instance) countdown() {
	remaining := i.RemainingTicks()
	hz := uint64(max(1, i.env.tickRateHz))
	for _, secs := range countdownMarks {
		mark := secs * hz
		if remaining != mark {
			continue
		}
		i.mu.Lock()
		seen := i.warned[mark]
		i.warned[mark] = true
		i.mu.Unlock()
		if seen {
			return
		}
		for _, p := range i.NearbyPlayers() {
			i.env.dir.SendMessage(p.ID, fmt.Sprintf("%s: %d seconds left", i.arch.DisplayName, secs))
		}
		return
	}
}

// distributeRewards pays every online participant the same totals.
func (i *Instance) distributeRewards() Reward {
	online := map[string]world.Player{}
	for _, p := range i.env.dir.Online() {
		online[p.ID] = p
	}
	ids := i.participants.list()
	paid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := online[id]; ok {
			paid = append(paid, id)
		}
	}
	sort.Strings(paid)

	// The bonus counts every participant; only online ones are paid.
	r := ComputeReward(i.arch.BasePoints, i.arch.BaseXP, i.zone.Difficulty, len(ids))
	i.mu.Lock()
	i.reward = r
	i.mu.Unlock()

	for _, id := range paid {
		i.env.rewards.AddPoints(id, r.Points)
		i.env.rewards.AddExperience(id, r.XP)
		msg := fmt.Sprintf("%s complete: +%d points, +%d XP", i.arch.DisplayName, r.Points, r.XP)
		if r.Bonus > 0 {
			msg += fmt.Sprintf(" (co-op bonus +%d with %d players)", r.Bonus, len(ids))
		}
		i.env.dir.SendMessage(id, msg)
	}
	return r
}

func zoneLabel(z world.Zone) string {
	if z.Name == "" {
		return fmt.Sprintf("#%d", z.ID)
	}
	return fmt.Sprintf("%s (difficulty %d)", z.Name, z.Difficulty)
}
