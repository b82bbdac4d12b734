package director

import (
	"math"
	"sort"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/world"
)

// Miss reasons reported in Stats. A miss is not an error; the next cycle retries.
const (
	MissNoZone      = "no_zone"
	MissNoArchetype = "no_archetype"
	MissNoLocation  = "no_location"
	MissGated       = "gated"
)

// Rand is the subset of *math/rand.Rand the director draws from.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Int63n(n int64) int64
}

type zoneKey struct {
	world string
	id    int
}

type zoneCandidate struct {
	zone    world.Zone
	world   string
	players []world.Player
	weight  float64
}

// zoneWeight is (1 + (n-1)*mult) * (1 + 0.02*difficulty). With inverse scaling the population term
// grows as log2(n+1) instead, so crowded zones stop dominating.
func zoneWeight(n, difficulty int, mult float64, inverse bool) float64 {
	if n <= 0 {
		return 0
	}
	pop := 1 + float64(n-1)*mult
	if inverse {
		pop = math.Log2(float64(n) + 1)
	}
	return pop * (1 + 0.02*float64(difficulty))
}

// zoneCandidates partitions online players by hazardous zone and weights each zone. Zones without
// players never appear; zones at the per-zone cap are dropped.
func (s *Scheduler) zoneCandidates(online []world.Player, activeByZone map[zoneKey]int) []zoneCandidate {
	byZone := map[zoneKey]*zoneCandidate{}
	for _, p := range online {
		z, ok := s.zones.ZoneAt(p.Loc)
		if !ok || !z.Hazardous() {
			continue
		}
		k := zoneKey{world: p.Loc.World, id: z.ID}
		c := byZone[k]
		if c == nil {
			c = &zoneCandidate{zone: z, world: p.Loc.World}
			byZone[k] = c
		}
		c.players = append(c.players, p)
	}

	out := make([]zoneCandidate, 0, len(byZone))
	for k, c := range byZone {
		active := activeByZone[k]
		if active >= s.cfg.MaxEventsPerZone {
			continue
		}
		w := zoneWeight(len(c.players), c.zone.Difficulty, s.cfg.PlayerCountMult, s.cfg.InverseScaling)
		w *= 1 - 0.4*float64(active)
		c.weight = math.Max(w, 0.1)
		out = append(out, *c)
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].world != out[b].world {
			return out[a].world < out[b].world
		}
		return out[a].zone.ID < out[b].zone.ID
	})
	return out
}

// pickWeighted returns the first index whose cumulative weight exceeds roll, or 0 when rounding
// leaves the roll past the end. It returns -1 for an empty or all-zero set.
func pickWeighted(weights []float64, roll float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	var acc float64
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		acc += w
		if acc > roll {
			return i
		}
	}
	for i, w := range weights {
		if w > 0 {
			return i
		}
	}
	return -1
}

func (s *Scheduler) drawWeighted(weights []float64) int {
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	return pickWeighted(weights, s.rng.Float64()*total)
}

// DecayReduction is the anti-repetition penalty: 50% right after use, fading linearly to 0 at window.
func DecayReduction(since, window uint64) float64 {
	if window == 0 || since >= window {
		return 0
	}
	return 0.5 * (1 - float64(since)/float64(window))
}

func (s *Scheduler) effectiveWeight(id string, now uint64) float64 {
	base := s.catalog.Weight(id)
	last, ok := s.lastUsed[id]
	if !ok || now < last {
		return base
	}
	w := base * (1 - DecayReduction(now-last, s.cfg.DecayWindowTicks))
	return math.Max(w, 0.1*base)
}

func (s *Scheduler) inCooldown(id string, now uint64) bool {
	last, ok := s.lastUsed[id]
	return ok && now >= last && now-last < s.cfg.CooldownTicks
}

// pickArchetype chooses among enabled archetypes whose recommended group size fits n players,
// preferring ones out of cooldown.
func (s *Scheduler) pickArchetype(now uint64, n int) (catalogs.Archetype, bool) {
	var eligible []catalogs.Archetype
	for _, a := range s.catalog.All() {
		if s.catalog.Enabled(a.ID) && a.MinRecommended() <= n {
			eligible = append(eligible, a)
		}
	}
	if len(eligible) == 0 {
		return catalogs.Archetype{}, false
	}

	fresh := make([]catalogs.Archetype, 0, len(eligible))
	for _, a := range eligible {
		if !s.inCooldown(a.ID, now) {
			fresh = append(fresh, a)
		}
	}
	if len(fresh) == 0 {
		s.stats.cooldownFallbacks++
		if s.cfg.CooldownFallback == CooldownReset {
			s.lastUsed = map[string]uint64{}
		}
		fresh = eligible
	}

	weights := make([]float64, len(fresh))
	for i, a := range fresh {
		weights[i] = s.effectiveWeight(a.ID, now)
	}
	idx := s.drawWeighted(weights)
	if idx < 0 {
		return catalogs.Archetype{}, false
	}
	return fresh[idx], true
}
