package archetypes

import (
	"fmt"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

// airdrop: a crate lands and unlocks after defenders hold the area for defend_ticks in total.
type airdrop struct {
	loc        world.Location
	blocks     BlockEditor
	defendNeed int
	held       int
	crate      marker
}

const airdropHoldRadius = 12

func newAirdrop(a catalogs.Archetype, loc world.Location, deps Deps) *airdrop {
	return &airdrop{
		loc:        loc,
		blocks:     deps.Blocks,
		defendNeed: max(1, a.IntParam("defend_ticks", 45)),
	}
}

func (b *airdrop) Begin(inst *director.Instance) {
	b.crate = placeMarker(b.blocks, b.loc)
	inst.SetProgress(0)
}

func (b *airdrop) Tick(inst *director.Instance) error {
	if enrollNearby(inst, b.loc, airdropHoldRadius) > 0 {
		b.held++
	}
	inst.SetProgress(float64(b.held) / float64(b.defendNeed))
	if b.held >= b.defendNeed {
		inst.Complete()
	}
	return nil
}

func (b *airdrop) Contribute(inst *director.Instance, _ string) {
	b.held += 2
}

func (b *airdrop) Cleanup(*director.Instance) { b.crate.clear(b.blocks) }

func (b *airdrop) StartSubtitle() string { return "Secure the supply crate" }

func (b *airdrop) DebugInfo() string { return fmt.Sprintf("held=%d/%d", b.held, b.defendNeed) }
