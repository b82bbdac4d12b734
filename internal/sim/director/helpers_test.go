package director

import (
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/clock"
	"worldevents.ai/internal/sim/world"
)

// testZones: x < 0 is the safe spawn zone 0, x >= 0 is hazardous zone 1 (or zone 2 past x=500).
type testZones struct {
	difficulty int
	boundary   float64
}

func (z testZones) ZoneAt(loc world.Location) (world.Zone, bool) {
	if loc.World != "overworld" {
		return world.Zone{}, false
	}
	switch {
	case loc.X < 0:
		return world.Zone{ID: 0, Name: "Spawn", Safe: true}, true
	case loc.X >= 500:
		return world.Zone{ID: 2, Name: "Far", Difficulty: z.difficulty + 2}, true
	default:
		return world.Zone{ID: 1, Name: "Wilds", Difficulty: z.difficulty}, true
	}
}

func (z testZones) WithinBounds(loc world.Location) bool {
	b := z.boundary
	if b == 0 {
		b = 1000
	}
	return loc.X >= -b && loc.X <= b && loc.Z >= -b && loc.Z <= b
}

// flatTerrain is solid up to groundY everywhere, with optional per-column heights.
type flatTerrain struct {
	groundY int
	columns map[[2]int]int
}

func (t flatTerrain) height(x, z int) int {
	if h, ok := t.columns[[2]int{x, z}]; ok {
		return h
	}
	return t.groundY
}

func (t flatTerrain) HighestBlockY(_ string, x, z int) int { return t.height(x, z) }

func (t flatTerrain) Solid(_ string, x, y, z int) bool { return y <= t.height(x, z) }

type sent struct {
	kind   string
	player string
	text   string
}

type testDirectory struct {
	mu      sync.Mutex
	players map[string]world.Player
	out     []sent
	bars    map[string]map[string]float64

	panicTitles bool
}

func newTestDirectory(players ...world.Player) *testDirectory {
	d := &testDirectory{players: map[string]world.Player{}, bars: map[string]map[string]float64{}}
	for _, p := range players {
		d.players[p.ID] = p
	}
	return d
}

func (d *testDirectory) Online() []world.Player {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]world.Player, 0, len(d.players))
	for _, p := range d.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *testDirectory) Player(id string) (world.Player, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.players[id]
	return p, ok
}

func (d *testDirectory) leave(id string) {
	d.mu.Lock()
	delete(d.players, id)
	d.mu.Unlock()
}

func (d *testDirectory) record(kind, player, text string) {
	d.mu.Lock()
	d.out = append(d.out, sent{kind: kind, player: player, text: text})
	d.mu.Unlock()
}

func (d *testDirectory) SendTitle(playerID, title, subtitle string) {
	if d.panicTitles {
		panic("directory down")
	}
	d.record("title", playerID, title+"|"+subtitle)
}
func (d *testDirectory) SendMessage(playerID, text string) { d.record("message", playerID, text) }
func (d *testDirectory) PlaySound(playerID, sound string)  { d.record("sound", playerID, sound) }

func (d *testDirectory) ShowProgress(playerID, barID, title string, progress float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.bars[barID] == nil {
		d.bars[barID] = map[string]float64{}
	}
	d.bars[barID][playerID] = progress
}

func (d *testDirectory) HideProgress(playerID, barID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.bars[barID], playerID)
}

func (d *testDirectory) sentTo(kind, player string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for _, s := range d.out {
		if s.kind == kind && s.player == player {
			out = append(out, s.text)
		}
	}
	return out
}

func (d *testDirectory) barViewers(barID string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bars[barID])
}

type testRewards struct {
	mu     sync.Mutex
	points map[string]int
	xp     map[string]int
	panics bool
}

func newTestRewards() *testRewards {
	return &testRewards{points: map[string]int{}, xp: map[string]int{}}
}

func (r *testRewards) AddPoints(id string, n int) {
	if r.panics {
		panic("reward sink down")
	}
	r.mu.Lock()
	r.points[id] += n
	r.mu.Unlock()
}

func (r *testRewards) AddExperience(id string, n int) {
	r.mu.Lock()
	r.xp[id] += n
	r.mu.Unlock()
}

type testJournal struct {
	mu      sync.Mutex
	entries []LifecycleEntry
}

func (j *testJournal) Record(e LifecycleEntry) {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
}

func (j *testJournal) transitions(id string) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []string
	for _, e := range j.entries {
		if e.InstanceID == id {
			out = append(out, e.Transition)
		}
	}
	return out
}

// scriptedBehavior resolves or misbehaves on a given tick (0 = never).
type scriptedBehavior struct {
	completeAt int
	failAt     int
	panicAt    int
	errAt      int

	cleanupPanics bool

	ticks    int
	cleanups int
	begun    int
}

func (b *scriptedBehavior) Tick(inst *Instance) error {
	b.ticks++
	switch b.ticks {
	case b.panicAt:
		panic("boom")
	case b.errAt:
		return errors.New("behavior error")
	case b.completeAt:
		inst.Complete()
	case b.failAt:
		inst.Fail("lost")
	}
	return nil
}

func (b *scriptedBehavior) Cleanup(*Instance) {
	b.cleanups++
	if b.cleanupPanics {
		panic("cleanup boom")
	}
}

func (b *scriptedBehavior) Begin(*Instance)       { b.begun++ }
func (b *scriptedBehavior) StartSubtitle() string { return "test subtitle" }
func (b *scriptedBehavior) DebugInfo() string     { return fmt.Sprintf("ticks=%d", b.ticks) }

type harness struct {
	s       *Scheduler
	clock   *clock.Clock
	dir     *testDirectory
	rewards *testRewards
	journal *testJournal
	catalog *catalogs.EventCatalog

	mu        sync.Mutex
	behaviors map[string][]*scriptedBehavior
	script    map[string]scriptedBehavior
}

func newHarness(t *testing.T, cfg Config, players ...world.Player) *harness {
	t.Helper()
	cat, err := catalogs.NewEventCatalog(catalogs.Defaults())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	h := &harness{
		clock:     clock.New(0),
		dir:       newTestDirectory(players...),
		rewards:   newTestRewards(),
		journal:   &testJournal{},
		catalog:   cat,
		behaviors: map[string][]*scriptedBehavior{},
		script:    map[string]scriptedBehavior{},
	}
	factory := func(a catalogs.Archetype, _ world.Location, _ world.Zone) (Behavior, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		b := h.script[a.ID]
		bp := &b
		h.behaviors[a.ID] = append(h.behaviors[a.ID], bp)
		return bp, nil
	}
	s, err := New(Deps{
		Catalog:   cat,
		Zones:     testZones{},
		Terrain:   flatTerrain{groundY: 64},
		Directory: h.dir,
		Rewards:   h.rewards,
		Factory:   factory,
		Clock:     h.clock,
		Rand:      rand.New(rand.NewSource(7)),
		Logger:    log.New(io.Discard, "", 0),
		Journal:   h.journal,
	}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.s = s
	return h
}

func (h *harness) behavior(archetype string) *scriptedBehavior {
	h.mu.Lock()
	defer h.mu.Unlock()
	bs := h.behaviors[archetype]
	if len(bs) == 0 {
		return nil
	}
	return bs[len(bs)-1]
}

func (h *harness) steps(n int) {
	for i := 0; i < n; i++ {
		h.s.Step()
	}
}

func player(id string, x, z float64) world.Player {
	return world.Player{ID: id, Name: id, Loc: world.Location{World: "overworld", X: x, Y: 65, Z: z}}
}

func at(x, z float64) world.Location {
	return world.Location{World: "overworld", X: x, Y: 65, Z: z}
}
