package archetypes

import (
	"fmt"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

// hordeInvasion: waves arrive on a fixed cadence; each wave needs at least one defender on the
// position when it hits, otherwise the position falls.
type hordeInvasion struct {
	waves     int
	waveTicks int
	wave      int
	defenders int
	kills     int
	size      int
}

const hordeHoldRadius = 20

func newHordeInvasion(a catalogs.Archetype, zone world.Zone) *hordeInvasion {
	return &hordeInvasion{
		waves:     max(1, a.IntParam("waves", 5)),
		waveTicks: max(1, a.IntParam("wave_ticks", 30)),
		size:      8 + 2*zone.Difficulty,
	}
}

func (b *hordeInvasion) Begin(inst *director.Instance) { inst.SetProgress(0) }

func (b *hordeInvasion) Tick(inst *director.Instance) error {
	b.defenders = enrollNearby(inst, inst.Location(), hordeHoldRadius)
	if inst.Elapsed()%uint64(b.waveTicks) != 0 {
		return nil
	}
	b.wave++
	if b.defenders == 0 {
		inst.Fail(fmt.Sprintf("the horde overran the position on wave %d", b.wave))
		return nil
	}
	b.kills += b.size + b.wave*2
	inst.SetProgress(float64(b.wave) / float64(b.waves))
	if b.wave >= b.waves {
		inst.Complete()
	}
	return nil
}

func (b *hordeInvasion) Cleanup(*director.Instance) {}

func (b *hordeInvasion) StartSubtitle() string {
	return fmt.Sprintf("Hold the position for %d waves", b.waves)
}

func (b *hordeInvasion) DebugInfo() string {
	return fmt.Sprintf("wave=%d/%d defenders=%d kills=%d", b.wave, b.waves, b.defenders, b.kills)
}
