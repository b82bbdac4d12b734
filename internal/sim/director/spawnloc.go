package director

import (
	"math"

	"worldevents.ai/internal/sim/world"
)

// SpawnResolver searches a ring around an anchor for standable ground. The search is bounded;
// running out of attempts means "retry next cycle".
type SpawnResolver struct {
	Zones     world.Zones
	Terrain   world.Terrain
	Rand      Rand
	MinRadius float64
	MaxRadius float64
	Attempts  int
	// MaxRise rejects ground higher than this above the anchor.
	MaxRise float64
}

func (r SpawnResolver) Resolve(anchor world.Location) (world.Location, world.Zone, bool) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 10
	}
	for attempt := 0; attempt < attempts; attempt++ {
		angle := r.Rand.Float64() * 2 * math.Pi
		dist := r.MinRadius + r.Rand.Float64()*(r.MaxRadius-r.MinRadius)
		x := anchor.X + math.Cos(angle)*dist
		z := anchor.Z + math.Sin(angle)*dist
		if loc, zone, ok := r.check(anchor, x, z); ok {
			return loc, zone, true
		}
	}
	return world.Location{}, world.Zone{}, false
}

func (r SpawnResolver) check(anchor world.Location, x, z float64) (world.Location, world.Zone, bool) {
	bx, bz := int(math.Floor(x)), int(math.Floor(z))
	ground := r.Terrain.HighestBlockY(anchor.World, bx, bz)
	loc := world.Location{World: anchor.World, X: x, Y: float64(ground + 1), Z: z}

	if !r.Zones.WithinBounds(loc) {
		return loc, world.Zone{}, false
	}
	zone, ok := r.Zones.ZoneAt(loc)
	if !ok || !zone.Hazardous() {
		return loc, zone, false
	}
	if float64(ground) > anchor.Y+r.MaxRise {
		return loc, zone, false
	}
	if !r.Terrain.Solid(anchor.World, bx, ground, bz) {
		return loc, zone, false
	}
	if r.Terrain.Solid(anchor.World, bx, ground+1, bz) || r.Terrain.Solid(anchor.World, bx, ground+2, bz) {
		return loc, zone, false
	}
	return loc, zone, true
}
