package archetypes

import (
	"fmt"
	"math"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

// survivorConvoy: survivors walk a straight route while escorted. Left alone they are picked off
// one at a time; the convoy fails when none are left.
type survivorConvoy struct {
	start     world.Location
	dirX      float64
	dirZ      float64
	route     float64
	travelled float64
	survivors int
	exposed   int
}

const (
	convoyEscortRadius = 15
	convoyExposedTicks = 20
)

func newSurvivorConvoy(a catalogs.Archetype, loc world.Location, deps Deps) *survivorConvoy {
	angle := deps.Rand.Float64() * 2 * math.Pi
	return &survivorConvoy{
		start:     loc,
		dirX:      math.Cos(angle),
		dirZ:      math.Sin(angle),
		route:     float64(max(1, a.IntParam("route_length", 120))),
		survivors: max(1, a.IntParam("survivors", 4)),
	}
}

// Position is where the convoy currently is.
func (b *survivorConvoy) Position() world.Location {
	return b.start.Add(b.dirX*b.travelled, 0, b.dirZ*b.travelled)
}

func (b *survivorConvoy) Begin(inst *director.Instance) { inst.SetProgress(0) }

func (b *survivorConvoy) Tick(inst *director.Instance) error {
	pos := b.Position()
	if enroll(inst, inst.PlayersWithin(pos, convoyEscortRadius), pos, convoyEscortRadius) > 0 {
		b.exposed = 0
		b.travelled = math.Min(b.route, b.travelled+1)
	} else {
		b.exposed++
		if b.exposed >= convoyExposedTicks {
			b.exposed = 0
			b.survivors--
		}
	}
	if b.survivors <= 0 {
		inst.Fail("every survivor was lost")
		return nil
	}
	inst.SetProgress(b.travelled / b.route)
	if b.travelled >= b.route {
		inst.Complete()
	}
	return nil
}

func (b *survivorConvoy) Cleanup(*director.Instance) {}

func (b *survivorConvoy) StartSubtitle() string {
	return fmt.Sprintf("Escort %d survivors to safety", b.survivors)
}

func (b *survivorConvoy) DebugInfo() string {
	p := b.Position()
	return fmt.Sprintf("survivors=%d travelled=%.0f/%.0f at=(%.0f,%.0f)", b.survivors, b.travelled, b.route, p.X, p.Z)
}
