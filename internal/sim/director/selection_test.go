package director

import (
	"math"
	"testing"

	"worldevents.ai/internal/sim/world"
)

func TestDecayReduction_Curve(t *testing.T) {
	cases := []struct {
		since uint64
		want  float64
	}{
		{0, 0.5},
		{300, 0.25},
		{600, 0},
		{900, 0},
	}
	for _, c := range cases {
		if got := DecayReduction(c.since, 600); math.Abs(got-c.want) > 1e-9 {
			t.Fatalf("DecayReduction(%d)=%v want %v", c.since, got, c.want)
		}
	}
}

func TestEffectiveWeight_DecaysAfterUse(t *testing.T) {
	h := newHarness(t, Config{})
	h.s.lastUsed["airdrop"] = 0
	if got := h.s.effectiveWeight("airdrop", 0); math.Abs(got-7.5) > 1e-9 {
		t.Fatalf("t+0 weight=%v want 7.5", got)
	}
	if got := h.s.effectiveWeight("airdrop", 300); math.Abs(got-11.25) > 1e-9 {
		t.Fatalf("t+300 weight=%v want 11.25", got)
	}
	if got := h.s.effectiveWeight("airdrop", 600); got != 15 {
		t.Fatalf("t+600 weight=%v want 15", got)
	}
}

func TestZoneWeight(t *testing.T) {
	if got := zoneWeight(0, 5, 0.15, false); got != 0 {
		t.Fatalf("empty zone weight=%v", got)
	}
	if got := zoneWeight(3, 10, 0.15, false); math.Abs(got-1.3*1.2) > 1e-9 {
		t.Fatalf("weight=%v want %v", got, 1.3*1.2)
	}
	if got := zoneWeight(3, 0, 0.15, true); math.Abs(got-2) > 1e-9 {
		t.Fatalf("inverse weight=%v want 2", got)
	}
}

func TestZoneCandidates_SkipsSafeAndEmptyZones(t *testing.T) {
	h := newHarness(t, Config{})
	online := []world.Player{player("a", -10, 0), player("b", 10, 0), player("c", 20, 0)}
	cands := h.s.zoneCandidates(online, nil)
	if len(cands) != 1 || cands[0].zone.ID != 1 || len(cands[0].players) != 2 {
		t.Fatalf("candidates=%+v", cands)
	}
	for _, c := range cands {
		if len(c.players) == 0 || c.weight <= 0 {
			t.Fatalf("bad candidate %+v", c)
		}
	}
}

func TestZoneCandidates_PerZoneCapAndPenalty(t *testing.T) {
	h := newHarness(t, Config{})
	online := []world.Player{player("a", 10, 0), player("b", 600, 0)}
	full := h.s.zoneCandidates(online, map[zoneKey]int{{world: "overworld", id: 1}: 2})
	if len(full) != 1 || full[0].zone.ID != 2 {
		t.Fatalf("zone at cap should be dropped: %+v", full)
	}
	pen := h.s.zoneCandidates(online, map[zoneKey]int{{world: "overworld", id: 1}: 1})
	if pen[0].zone.ID != 1 || math.Abs(pen[0].weight-0.6) > 1e-9 {
		t.Fatalf("penalized weight=%v want 0.6", pen[0].weight)
	}
}

func TestZoneCandidates_LinearPenaltyWithRaisedCap(t *testing.T) {
	h := newHarness(t, Config{MaxEventsPerZone: 5})
	online := []world.Player{player("a", 10, 0)}
	for active, want := range map[int]float64{0: 1, 1: 0.6, 2: 0.2, 3: 0.1, 4: 0.1} {
		got := h.s.zoneCandidates(online, map[zoneKey]int{{world: "overworld", id: 1}: active})
		if len(got) != 1 || math.Abs(got[0].weight-want) > 1e-9 {
			t.Fatalf("active=%d weight=%+v want %v", active, got, want)
		}
	}
}

func TestPickWeighted(t *testing.T) {
	w := []float64{1, 0, 3}
	if got := pickWeighted(w, 0); got != 0 {
		t.Fatalf("roll 0 -> %d", got)
	}
	if got := pickWeighted(w, 1); got != 2 {
		t.Fatalf("roll 1 -> %d", got)
	}
	if got := pickWeighted(w, 3.999); got != 2 {
		t.Fatalf("roll 3.999 -> %d", got)
	}
	if got := pickWeighted(w, 4); got != 0 {
		t.Fatalf("overflow roll should fall back to first, got %d", got)
	}
	if got := pickWeighted([]float64{0, 0}, 0); got != -1 {
		t.Fatalf("all-zero -> %d", got)
	}
}

func TestSelection_NeverPicksEmptyZone(t *testing.T) {
	h := newHarness(t, Config{}, player("a", -5, 0), player("b", 100, 0))
	for i := 0; i < 200; i++ {
		cands := h.s.zoneCandidates(h.dir.Online(), nil)
		weights := make([]float64, len(cands))
		for j, c := range cands {
			weights[j] = c.weight
		}
		idx := h.s.drawWeighted(weights)
		if idx < 0 || cands[idx].zone.ID != 1 {
			t.Fatalf("picked idx=%d cands=%+v", idx, cands)
		}
	}
}

func TestPickArchetype_RespectsMinPlayers(t *testing.T) {
	h := newHarness(t, Config{})
	for i := 0; i < 300; i++ {
		a, ok := h.s.pickArchetype(uint64(i), 1)
		if !ok {
			t.Fatalf("no archetype for solo player")
		}
		if a.MinRecommended() > 1 {
			t.Fatalf("picked %s needing %d players", a.ID, a.MinRecommended())
		}
	}
}

func TestPickArchetype_SkipsDisabledAndCooling(t *testing.T) {
	h := newHarness(t, Config{})
	for _, id := range []string{"horde_invasion", "wandering_boss", "survivor_convoy"} {
		if err := h.s.SetArchetypeEnabled(id, false); err != nil {
			t.Fatalf("disable %s: %v", id, err)
		}
	}
	h.s.lastUsed["airdrop"] = 100
	for i := 0; i < 50; i++ {
		a, ok := h.s.pickArchetype(150, 5)
		if !ok || a.ID != "zombie_nest" {
			t.Fatalf("picked %q ok=%v, want zombie_nest", a.ID, ok)
		}
	}
}

func TestPickArchetype_CooldownFallbackBypass(t *testing.T) {
	h := newHarness(t, Config{CooldownFallback: CooldownBypass})
	for _, a := range h.catalog.All() {
		h.s.lastUsed[a.ID] = 100
	}
	a, ok := h.s.pickArchetype(120, 1)
	if !ok {
		t.Fatalf("bypass should still pick an archetype")
	}
	if a.MinRecommended() > 1 {
		t.Fatalf("picked %s", a.ID)
	}
	if len(h.s.lastUsed) != h.catalog.Len() {
		t.Fatalf("bypass must keep cooldowns, got %v", h.s.lastUsed)
	}
	if h.s.stats.cooldownFallbacks != 1 {
		t.Fatalf("fallbacks=%d", h.s.stats.cooldownFallbacks)
	}
}

func TestPickArchetype_CooldownFallbackReset(t *testing.T) {
	h := newHarness(t, Config{CooldownFallback: CooldownReset})
	for _, a := range h.catalog.All() {
		h.s.lastUsed[a.ID] = 100
	}
	if _, ok := h.s.pickArchetype(120, 1); !ok {
		t.Fatalf("reset should still pick an archetype")
	}
	if len(h.s.lastUsed) != 0 {
		t.Fatalf("reset must clear cooldowns, got %v", h.s.lastUsed)
	}
}
