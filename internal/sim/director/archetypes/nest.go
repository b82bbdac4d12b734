package archetypes

import (
	"fmt"
	"math/rand"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

// zombieNest: the nest breeds zombies faster over time; players in range wear it down.
type zombieNest struct {
	loc     world.Location
	blocks  BlockEditor
	rng     *rand.Rand
	health  int
	maxHP   int
	zombies int
	nest    marker
}

const (
	nestRange        = 16
	nestTouchDamage  = 4
	nestStrikeDamage = 25
)

func newZombieNest(a catalogs.Archetype, loc world.Location, zone world.Zone, deps Deps) *zombieNest {
	hp := max(1, a.IntParam("nest_health", 400)) * (10 + zone.Difficulty) / 10
	return &zombieNest{loc: loc, blocks: deps.Blocks, rng: deps.Rand, health: hp, maxHP: hp}
}

func (b *zombieNest) Begin(inst *director.Instance) {
	b.nest = placeMarker(b.blocks, b.loc)
	inst.SetProgress(1)
}

func (b *zombieNest) Tick(inst *director.Instance) error {
	// Spawn rate ramps up with elapsed time.
	every := max(2, 10-int(inst.Elapsed()/30))
	if inst.Elapsed()%uint64(every) == 0 {
		b.zombies += 1 + b.rng.Intn(2)
	}
	b.damage(inst, enrollNearby(inst, b.loc, nestRange)*nestTouchDamage)
	return nil
}

func (b *zombieNest) Contribute(inst *director.Instance, _ string) {
	b.damage(inst, nestStrikeDamage)
}

func (b *zombieNest) damage(inst *director.Instance, n int) {
	if n <= 0 || !inst.Valid() {
		return
	}
	b.health = max(0, b.health-n)
	inst.SetProgress(float64(b.health) / float64(b.maxHP))
	if b.health == 0 {
		inst.Complete()
	}
}

func (b *zombieNest) Cleanup(*director.Instance) { b.nest.clear(b.blocks) }

func (b *zombieNest) StartSubtitle() string { return "Destroy the nest before it overruns the area" }

func (b *zombieNest) DebugInfo() string {
	return fmt.Sprintf("hp=%d/%d zombies=%d", b.health, b.maxHP, b.zombies)
}
