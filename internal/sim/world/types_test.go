package world

import (
	"math"
	"testing"
)

func TestLocationDistanceAcrossWorlds(t *testing.T) {
	a := Location{World: "overworld", X: 0, Y: 0, Z: 0}
	b := Location{World: "overworld", X: 3, Y: 0, Z: 4}
	if d := a.Distance(b); d != 5 {
		t.Fatalf("expected 5, got %v", d)
	}
	c := Location{World: "nether", X: 3, Y: 0, Z: 4}
	if d := a.Distance(c); d != math.MaxFloat64 {
		t.Fatalf("expected MaxFloat64 across worlds, got %v", d)
	}
	if _, ok := a.DistanceSq(c); ok {
		t.Fatalf("expected ok=false across worlds")
	}
}

func TestCompass(t *testing.T) {
	from := Location{World: "w"}
	cases := map[string]Location{
		"north": {World: "w", Z: -10, X: 1},
		"south": {World: "w", Z: 10, X: -1},
		"east":  {World: "w", X: 10, Z: 2},
		"west":  {World: "w", X: -10, Z: 2},
	}
	for want, to := range cases {
		if got := to.Compass(from); got != want {
			t.Fatalf("compass to %+v: want %s got %s", to, want, got)
		}
	}
}

func TestBlockCoordsFloorNegatives(t *testing.T) {
	l := Location{X: -0.5, Y: 3.9, Z: -10.01}
	if l.BlockX() != -1 || l.BlockY() != 3 || l.BlockZ() != -11 {
		t.Fatalf("unexpected block coords: %d %d %d", l.BlockX(), l.BlockY(), l.BlockZ())
	}
}
