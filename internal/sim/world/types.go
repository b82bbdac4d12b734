package world

import "math"

// DefaultWorld names the world players land in when they do not say otherwise.
const DefaultWorld = "overworld"

// Location is a point in a named world. Coordinates are block units; Y is up.
type Location struct {
	World string  `json:"world"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

func (l Location) ToArray() [3]float64 { return [3]float64{l.X, l.Y, l.Z} }

func (l Location) Add(dx, dy, dz float64) Location {
	return Location{World: l.World, X: l.X + dx, Y: l.Y + dy, Z: l.Z + dz}
}

// BlockX/BlockY/BlockZ return the integer block column containing the point.
func (l Location) BlockX() int { return int(math.Floor(l.X)) }
func (l Location) BlockY() int { return int(math.Floor(l.Y)) }
func (l Location) BlockZ() int { return int(math.Floor(l.Z)) }

// DistanceSq returns the squared 3D distance. ok is false when the points live in different worlds.
func (l Location) DistanceSq(o Location) (d float64, ok bool) {
	if l.World != o.World {
		return 0, false
	}
	dx, dy, dz := l.X-o.X, l.Y-o.Y, l.Z-o.Z
	return dx*dx + dy*dy + dz*dz, true
}

// Distance returns math.MaxFloat64 across worlds so callers can compare against radii directly.
func (l Location) Distance(o Location) float64 {
	d, ok := l.DistanceSq(o)
	if !ok {
		return math.MaxFloat64
	}
	return math.Sqrt(d)
}

// HorizontalDistance ignores elevation.
func (l Location) HorizontalDistance(o Location) float64 {
	if l.World != o.World {
		return math.MaxFloat64
	}
	dx, dz := l.X-o.X, l.Z-o.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// Compass returns the cardinal direction from `from` towards l (north is -Z).
func (l Location) Compass(from Location) string {
	dx := l.X - from.X
	dz := l.Z - from.Z
	if math.Abs(dz) > math.Abs(dx) {
		if dz < 0 {
			return "north"
		}
		return "south"
	}
	if dx > 0 {
		return "east"
	}
	return "west"
}

type Zone struct {
	ID         int    `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Difficulty int    `json:"difficulty" yaml:"difficulty"`
	Safe       bool   `json:"safe" yaml:"safe"`
}

// Hazardous reports whether world events may target the zone.
func (z Zone) Hazardous() bool { return !z.Safe }

type Player struct {
	ID   string
	Name string
	Loc  Location
}
