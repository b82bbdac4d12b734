// Package archetypes holds the built-in event behaviors. Each one drives its own win and lose
// conditions and calls back into the director instance when it resolves.
package archetypes

import (
	"fmt"
	"math/rand"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

// BlockEditor places and removes event markers in the world.
type BlockEditor interface {
	SetBlock(worldID string, x, y, z int, b world.Block)
	ClearBlock(worldID string, x, y, z int)
}

type Deps struct {
	Blocks BlockEditor
	Rand   *rand.Rand
}

// Factory returns the director factory for the five built-in archetypes.
func Factory(deps Deps) director.Factory {
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(1))
	}
	return func(a catalogs.Archetype, loc world.Location, zone world.Zone) (director.Behavior, error) {
		switch a.ID {
		case "airdrop":
			return newAirdrop(a, loc, deps), nil
		case "zombie_nest":
			return newZombieNest(a, loc, zone, deps), nil
		case "horde_invasion":
			return newHordeInvasion(a, zone), nil
		case "survivor_convoy":
			return newSurvivorConvoy(a, loc, deps), nil
		case "wandering_boss":
			return newWanderingBoss(a, loc, zone, deps), nil
		default:
			return nil, fmt.Errorf("%w: no behavior for %q", director.ErrUnknownArchetype, a.ID)
		}
	}
}

// enrollNearby credits every visible player within r of center and returns how many are there.
func enrollNearby(inst *director.Instance, center world.Location, r float64) int {
	return enroll(inst, inst.NearbyPlayers(), center, r)
}

func enroll(inst *director.Instance, players []world.Player, center world.Location, r float64) int {
	n := 0
	for _, p := range players {
		if p.Loc.Distance(center) <= r {
			inst.AddParticipant(p.ID)
			n++
		}
	}
	return n
}

type marker struct {
	world   string
	x, y, z int
	placed  bool
}

func placeMarker(blocks BlockEditor, loc world.Location) marker {
	m := marker{world: loc.World, x: loc.BlockX(), y: loc.BlockY(), z: loc.BlockZ()}
	if blocks != nil {
		blocks.SetBlock(m.world, m.x, m.y, m.z, world.BlockPlaced)
		m.placed = true
	}
	return m
}

func (m *marker) clear(blocks BlockEditor) {
	if !m.placed || blocks == nil {
		return
	}
	blocks.ClearBlock(m.world, m.x, m.y, m.z)
	m.placed = false
}
