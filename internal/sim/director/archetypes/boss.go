package archetypes

import (
	"fmt"
	"math/rand"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

// wanderingBoss: a tough mob drifting around its spawn point. It escapes when the timer runs out.
type wanderingBoss struct {
	home   world.Location
	pos    world.Location
	rng    *rand.Rand
	health int
	maxHP  int
	leash  float64
}

const (
	bossMeleeRange   = 8
	bossMeleeDamage  = 6
	bossStrikeDamage = 50
	bossWanderEvery  = 5
)

func newWanderingBoss(a catalogs.Archetype, loc world.Location, zone world.Zone, deps Deps) *wanderingBoss {
	hp := max(1, a.IntParam("boss_health", 2000)) * (10 + zone.Difficulty) / 10
	return &wanderingBoss{home: loc, pos: loc, rng: deps.Rand, health: hp, maxHP: hp, leash: 24}
}

func (b *wanderingBoss) Begin(inst *director.Instance) { inst.SetProgress(1) }

func (b *wanderingBoss) Tick(inst *director.Instance) error {
	if inst.Elapsed()%bossWanderEvery == 0 {
		next := b.pos.Add(float64(b.rng.Intn(7)-3), 0, float64(b.rng.Intn(7)-3))
		if next.HorizontalDistance(b.home) <= b.leash {
			b.pos = next
		}
	}
	b.damage(inst, enrollNearby(inst, b.pos, bossMeleeRange)*bossMeleeDamage)
	return nil
}

func (b *wanderingBoss) Contribute(inst *director.Instance, _ string) {
	b.damage(inst, bossStrikeDamage)
}

func (b *wanderingBoss) damage(inst *director.Instance, n int) {
	if n <= 0 || !inst.Valid() {
		return
	}
	b.health = max(0, b.health-n)
	inst.SetProgress(float64(b.health) / float64(b.maxHP))
	if b.health == 0 {
		inst.Complete()
	}
}

func (b *wanderingBoss) Cleanup(*director.Instance) {}

func (b *wanderingBoss) StartSubtitle() string { return "Bring it down before it escapes" }

func (b *wanderingBoss) DebugInfo() string {
	return fmt.Sprintf("hp=%d/%d at=(%.0f,%.0f)", b.health, b.maxHP, b.pos.X, b.pos.Z)
}
