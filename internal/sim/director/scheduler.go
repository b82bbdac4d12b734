package director

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/clock"
	"worldevents.ai/internal/sim/world"
)

// Deps are the collaborators a Scheduler drives. Clock, Rand, Logger and Journal are optional.
type Deps struct {
	Catalog   *catalogs.EventCatalog
	Zones     world.Zones
	Terrain   world.Terrain
	Directory world.Directory
	Rewards   world.Rewards
	Factory   Factory

	Clock   *clock.Clock
	Rand    Rand
	Logger  *log.Logger
	Journal Journal
}

// Scheduler owns the active-instance registry, the selection state and the statistics. Step and
// every admin mutation are serialized by stepMu.
type Scheduler struct {
	cfg Config

	catalog  *catalogs.EventCatalog
	zones    world.Zones
	terrain  world.Terrain
	dir      world.Directory
	factory  Factory
	clock    *clock.Clock
	rng      Rand
	logger   *log.Logger
	env      *instanceEnv
	resolver SpawnResolver

	stepMu        sync.Mutex
	reg           registry
	lastUsed      map[string]uint64
	nextEventTick uint64
	stats         counters
	closed        bool

	stop     chan struct{}
	stopOnce sync.Once
}

type counters struct {
	spawned           uint64
	completed         uint64
	failed            uint64
	stopped           uint64
	faults            uint64
	cooldownFallbacks uint64
	misses            map[string]uint64
	byArchetype       map[string]uint64
}

func New(deps Deps, cfg Config) (*Scheduler, error) {
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("director: catalog is required")
	case deps.Zones == nil:
		return nil, errors.New("director: zones are required")
	case deps.Terrain == nil:
		return nil, errors.New("director: terrain is required")
	case deps.Directory == nil:
		return nil, errors.New("director: directory is required")
	case deps.Rewards == nil:
		return nil, errors.New("director: reward sink is required")
	case deps.Factory == nil:
		return nil, errors.New("director: archetype factory is required")
	}
	cfg.applyDefaults()
	if deps.Clock == nil {
		deps.Clock = clock.New(0)
	}
	if deps.Rand == nil {
		deps.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if deps.Logger == nil {
		deps.Logger = log.New(os.Stdout, "[director] ", log.LstdFlags|log.Lmicroseconds)
	}
	if deps.Journal == nil {
		deps.Journal = nopJournal{}
	}

	s := &Scheduler{
		cfg:      cfg,
		catalog:  deps.Catalog,
		zones:    deps.Zones,
		terrain:  deps.Terrain,
		dir:      deps.Directory,
		factory:  deps.Factory,
		clock:    deps.Clock,
		rng:      deps.Rand,
		logger:   deps.Logger,
		reg:      registry{m: map[string]*Instance{}},
		lastUsed: map[string]uint64{},
		stats: counters{
			misses:      map[string]uint64{},
			byArchetype: map[string]uint64{},
		},
		stop: make(chan struct{}),
	}
	s.env = &instanceEnv{
		dir:            deps.Directory,
		rewards:        deps.Rewards,
		clock:          deps.Clock,
		logger:         deps.Logger,
		journal:        deps.Journal,
		tickRateHz:     cfg.TickRateHz,
		refreshTicks:   cfg.VisibilityRefreshTicks,
		maxVisibilityR: cfg.MaxVisibilityRadius,
	}
	s.resolver = SpawnResolver{
		Zones:     deps.Zones,
		Terrain:   deps.Terrain,
		Rand:      deps.Rand,
		MinRadius: cfg.SpawnRadiusMin,
		MaxRadius: cfg.SpawnRadiusMax,
		Attempts:  cfg.SpawnAttempts,
		MaxRise:   cfg.MaxGroundRise,
	}
	s.scheduleNext(s.clock.Now())
	return s, nil
}

func (s *Scheduler) Config() Config {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	return s.cfg
}

func (s *Scheduler) Clock() *clock.Clock { return s.clock }

// Run steps the director at TickRateHz until ctx is done or Shutdown is called.
func (s *Scheduler) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(s.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			return ctx.Err()
		case <-s.stop:
			return nil
		case <-ticker.C:
			s.Step()
		}
	}
}

// Step advances the clock by one tick: due deferred actions fire, the selection cycle runs on its
// cadence, then every active instance ticks and ended instances are reclaimed.
func (s *Scheduler) Step() uint64 {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	if s.closed {
		return s.clock.Now()
	}
	now := s.clock.Advance()
	if now%s.cfg.SelectEveryTicks == 0 {
		s.selectionCycle(now)
	}
	s.advance(now)
	return now
}

func (s *Scheduler) advance(now uint64) {
	for _, inst := range s.reg.list() {
		// Instances started during this step get their first tick on the next one.
		if inst.Valid() && inst.StartTick() < now {
			s.tickInstance(inst)
		}
		if inst.State().Terminal() {
			s.reclaim(inst)
		}
	}
}

func (s *Scheduler) tickInstance(inst *Instance) {
	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
			}
		}()
		return inst.tick()
	}()
	if err == nil {
		return
	}
	s.stats.faults++
	s.logger.Printf("instance %s (%s): tick fault, stopping: %v", inst.id, inst.arch.ID, err)
	inst.stop("fault: "+err.Error(), TransitionFaulted)
}

func (s *Scheduler) reclaim(inst *Instance) {
	if !s.reg.remove(inst.id) {
		return
	}
	switch inst.State() {
	case StateCompleted:
		s.stats.completed++
	case StateFailed:
		s.stats.failed++
	case StateStopped:
		s.stats.stopped++
	}
	s.logger.Printf("instance %s (%s) ended %s: %s", inst.id, inst.arch.ID, inst.State(), inst.EndReason())
}

func (s *Scheduler) selectionCycle(now uint64) {
	if !s.cfg.Enabled {
		return
	}
	online := s.dir.Online()
	if s.reg.len() >= s.cfg.MaxConcurrent || len(online) < s.cfg.MinOnline || now < s.nextEventTick {
		s.stats.misses[MissGated]++
		return
	}
	if _, reason := s.selectAndSpawn(now, online); reason != "" {
		s.stats.misses[reason]++
		return
	}
	s.scheduleNext(now)
}

// selectAndSpawn runs one full selection: zone, anchor, archetype, location. A non-empty reason
// is a miss.
func (s *Scheduler) selectAndSpawn(now uint64, online []world.Player) (*Instance, string) {
	cands := s.zoneCandidates(online, s.activeByZoneKey())
	weights := make([]float64, len(cands))
	for i, c := range cands {
		weights[i] = c.weight
	}
	idx := s.drawWeighted(weights)
	if idx < 0 {
		return nil, MissNoZone
	}
	zc := cands[idx]
	anchor := zc.players[s.rng.Intn(len(zc.players))]

	arch, ok := s.pickArchetype(now, len(zc.players))
	if !ok {
		return nil, MissNoArchetype
	}
	loc, zone, ok := s.resolver.Resolve(anchor.Loc)
	if !ok {
		return nil, MissNoLocation
	}
	inst, err := s.spawn(arch, loc, zone)
	if err != nil {
		s.logger.Printf("spawn %s near %s: %v", arch.ID, anchor.ID, err)
		return nil, MissNoArchetype
	}
	return inst, ""
}

func (s *Scheduler) spawn(a catalogs.Archetype, loc world.Location, zone world.Zone) (*Instance, error) {
	b, err := s.factory(a, loc, zone)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", a.ID, err)
	}
	inst := newInstance(s.newID(), a, loc, zone, b, s.env)
	s.reg.put(inst)
	s.lastUsed[a.ID] = s.clock.Now()
	s.stats.spawned++
	s.stats.byArchetype[a.ID]++

	func() {
		defer func() {
			if r := recover(); r != nil {
				s.stats.faults++
				s.logger.Printf("instance %s (%s): start panic: %v", inst.id, a.ID, r)
				inst.stop(fmt.Sprintf("fault: panic: %v", r), TransitionFaulted)
			}
		}()
		inst.Start()
	}()
	s.logger.Printf("spawned %s (%s) in zone %d at %s(%.0f,%.0f,%.0f)", inst.id, a.ID, zone.ID, loc.World, loc.X, loc.Y, loc.Z)
	if inst.State().Terminal() {
		s.reclaim(inst)
	}
	return inst, nil
}

func (s *Scheduler) scheduleNext(now uint64) {
	span := s.cfg.MaxIntervalTicks - s.cfg.MinIntervalTicks
	s.nextEventTick = now + s.cfg.MinIntervalTicks + uint64(s.rng.Int63n(int64(span)+1))
}

func (s *Scheduler) newID() string {
	for {
		id := uuid.NewString()[:8]
		if _, ok := s.reg.get(id); !ok {
			return id
		}
	}
}

func (s *Scheduler) activeByZoneKey() map[zoneKey]int {
	out := map[zoneKey]int{}
	for _, inst := range s.reg.list() {
		if inst.Valid() {
			out[zoneKey{world: inst.loc.World, id: inst.zone.ID}]++
		}
	}
	return out
}

type registry struct {
	mu sync.RWMutex
	m  map[string]*Instance
}

func (r *registry) get(id string) (*Instance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.m[id]
	return inst, ok
}

func (r *registry) put(inst *Instance) {
	r.mu.Lock()
	r.m[inst.id] = inst
	r.mu.Unlock()
}

func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[id]; !ok {
		return false
	}
	delete(r.m, id)
	return true
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.m)
}

// list returns instances ordered by start tick, then id.
func (r *registry) list() []*Instance {
	r.mu.RLock()
	out := make([]*Instance, 0, len(r.m))
	for _, inst := range r.m {
		out = append(out, inst)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].StartTick(), out[j].StartTick()
		if si != sj {
			return si < sj
		}
		return out[i].id < out[j].id
	})
	return out
}
