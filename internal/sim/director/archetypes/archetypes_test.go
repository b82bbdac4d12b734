package archetypes

import (
	"errors"
	"io"
	"log"
	"math/rand"
	"strings"
	"testing"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

type rig struct {
	s       *director.Scheduler
	dir     *world.PlayerDirectory
	terrain *world.ProceduralTerrain
	ledger  *world.Ledger
}

func newRig(t *testing.T) *rig {
	t.Helper()
	cat, err := catalogs.NewEventCatalog(catalogs.Defaults())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	zones, err := world.NewZoneMap(world.DefaultZones())
	if err != nil {
		t.Fatalf("zones: %v", err)
	}
	r := &rig{
		dir:     world.NewPlayerDirectory(),
		terrain: world.NewProceduralTerrain(42),
		ledger:  world.NewLedger(nil),
	}
	r.s, err = director.New(director.Deps{
		Catalog:   cat,
		Zones:     zones,
		Terrain:   r.terrain,
		Directory: r.dir,
		Rewards:   r.ledger,
		Factory:   Factory(Deps{Blocks: r.terrain, Rand: rand.New(rand.NewSource(5))}),
		Rand:      rand.New(rand.NewSource(5)),
		Logger:    log.New(io.Discard, "", 0),
	}, director.Config{})
	if err != nil {
		t.Fatalf("director.New: %v", err)
	}
	return r
}

// surface returns a standable point in the Outskirts (difficulty 1).
func (r *rig) surface(x, z float64) world.Location {
	y := r.terrain.HighestBlockY("overworld", int(x), int(z))
	return world.Location{World: "overworld", X: x, Y: float64(y + 1), Z: z}
}

func (r *rig) join(name string, loc world.Location) string {
	return r.dir.Join(name, loc, make(chan []byte, 256))
}

func (r *rig) steps(n int) {
	for i := 0; i < n; i++ {
		r.s.Step()
	}
}

func TestFactory_UnknownArchetype(t *testing.T) {
	f := Factory(Deps{})
	_, err := f(catalogs.Archetype{ID: "meteor"}, world.Location{}, world.Zone{})
	if !errors.Is(err, director.ErrUnknownArchetype) {
		t.Fatalf("err=%v", err)
	}
	for _, a := range catalogs.Defaults() {
		if _, err := f(a, world.Location{World: "overworld"}, world.Zone{ID: 1}); err != nil {
			t.Fatalf("%s: %v", a.ID, err)
		}
	}
}

func TestAirdrop_CompletesWhenHeldAndClearsCrate(t *testing.T) {
	r := newRig(t)
	loc := r.surface(120, 0)
	p := r.join("guard", loc.Add(2, 0, 0))

	inst, err := r.s.ForceSpawn("airdrop", loc)
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if got := r.terrain.BlockAt("overworld", loc.BlockX(), loc.BlockY(), loc.BlockZ()); got != world.BlockPlaced {
		t.Fatalf("crate not placed: %v", got)
	}
	r.steps(45)
	if inst.State() != director.StateCompleted {
		t.Fatalf("state=%s (%s)", inst.State(), inst.DebugString())
	}
	if got := r.terrain.BlockAt("overworld", loc.BlockX(), loc.BlockY(), loc.BlockZ()); got == world.BlockPlaced {
		t.Fatalf("crate should be removed on cleanup")
	}
	// Outskirts difficulty 1, solo: floor(150 * (1.1 + 0.5*log10(2))) = 187.
	if b := r.ledger.Balance(p); b.Points != 187 || b.Experience <= 100 {
		t.Fatalf("balance=%+v", b)
	}
}

func TestZombieNest_ContributionsDestroyIt(t *testing.T) {
	r := newRig(t)
	loc := r.surface(150, 40)
	p := r.join("striker", loc.Add(40, 0, 0))

	inst, err := r.s.ForceSpawn("zombie_nest", loc)
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	// 400 hp scaled by difficulty 1 is 440; strikes do 25.
	for i := 0; i < 17; i++ {
		if err := r.s.Contribute(inst.ID(), p); err != nil {
			t.Fatalf("Contribute %d: %v", i, err)
		}
	}
	if !inst.Valid() {
		t.Fatalf("nest died too early: %s", inst.DebugString())
	}
	if err := r.s.Contribute(inst.ID(), p); err != nil {
		t.Fatalf("final Contribute: %v", err)
	}
	if inst.State() != director.StateCompleted {
		t.Fatalf("state=%s", inst.State())
	}
	if err := r.s.Contribute(inst.ID(), p); !errors.Is(err, director.ErrEnded) {
		t.Fatalf("contribute after end err=%v", err)
	}
}

func TestHordeInvasion_FailsWithoutDefenders(t *testing.T) {
	r := newRig(t)
	inst, err := r.s.ForceSpawn("horde_invasion", r.surface(-200, 100))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	r.steps(29)
	if !inst.Valid() {
		t.Fatalf("should survive until the first wave")
	}
	r.steps(1)
	if inst.State() != director.StateFailed || !strings.Contains(inst.EndReason(), "wave 1") {
		t.Fatalf("state=%s reason=%q", inst.State(), inst.EndReason())
	}
}

func TestHordeInvasion_HeldForAllWaves(t *testing.T) {
	r := newRig(t)
	loc := r.surface(-200, 100)
	a := r.join("a", loc.Add(3, 0, 0))
	b := r.join("b", loc.Add(-3, 0, 1))
	inst, err := r.s.ForceSpawn("horde_invasion", loc)
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	r.steps(150)
	if inst.State() != director.StateCompleted {
		t.Fatalf("state=%s reason=%q", inst.State(), inst.EndReason())
	}
	if got := inst.Participants(); len(got) != 2 {
		t.Fatalf("participants=%v", got)
	}
	if r.ledger.Balance(a) != r.ledger.Balance(b) {
		t.Fatalf("co-op payouts differ: %+v vs %+v", r.ledger.Balance(a), r.ledger.Balance(b))
	}
}

func TestSurvivorConvoy_EscortedAndAbandoned(t *testing.T) {
	r := newRig(t)
	loc := r.surface(0, 180)
	inst, err := r.s.ForceSpawn("survivor_convoy", loc)
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	r.steps(79)
	if !inst.Valid() {
		t.Fatalf("convoy should still have a survivor")
	}
	r.steps(1)
	if inst.State() != director.StateFailed {
		t.Fatalf("abandoned convoy state=%s", inst.State())
	}

	escorted, err := r.s.ForceSpawn("survivor_convoy", r.surface(0, -180))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	convoy := escorted.Behavior().(*survivorConvoy)
	p := r.join("escort", convoy.Position())
	for i := 0; i < 120 && escorted.Valid(); i++ {
		r.dir.Move(p, convoy.Position())
		r.s.Step()
	}
	if escorted.State() != director.StateCompleted || !escorted.IsParticipant(p) {
		t.Fatalf("escorted state=%s %s", escorted.State(), escorted.DebugString())
	}
}

func TestWanderingBoss_StaysLeashedAndDies(t *testing.T) {
	r := newRig(t)
	loc := r.surface(200, -150)
	p := r.join("hunter", loc.Add(50, 0, 0))
	inst, err := r.s.ForceSpawn("wandering_boss", loc)
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	boss := inst.Behavior().(*wanderingBoss)
	r.steps(100)
	if d := boss.pos.HorizontalDistance(loc); d > boss.leash {
		t.Fatalf("boss wandered %v from home", d)
	}
	for i := 0; i < 44 && inst.Valid(); i++ {
		if err := r.s.Contribute(inst.ID(), p); err != nil {
			t.Fatalf("Contribute: %v", err)
		}
	}
	if inst.State() != director.StateCompleted {
		t.Fatalf("state=%s %s", inst.State(), inst.DebugString())
	}
}
