package director

import (
	"fmt"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/world"
)

// ForceSpawn starts an archetype at an explicit location. The location must be inside the
// playable bounds and in a hazardous zone.
func (s *Scheduler) ForceSpawn(archetypeID string, loc world.Location) (*Instance, error) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	if s.closed {
		return nil, ErrShutdown
	}
	a, err := s.adminArchetype(archetypeID)
	if err != nil {
		return nil, err
	}
	if !s.zones.WithinBounds(loc) {
		return nil, fmt.Errorf("force spawn %s: %w", archetypeID, ErrOutOfBounds)
	}
	zone, ok := s.zones.ZoneAt(loc)
	if !ok || !zone.Hazardous() {
		return nil, fmt.Errorf("force spawn %s: %w", archetypeID, ErrSafeZone)
	}
	return s.spawn(a, loc, zone)
}

// ForceSpawnNear resolves a spawn point around a player, exactly like automatic selection does.
func (s *Scheduler) ForceSpawnNear(archetypeID, playerID string) (*Instance, error) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	if s.closed {
		return nil, ErrShutdown
	}
	a, err := s.adminArchetype(archetypeID)
	if err != nil {
		return nil, err
	}
	p, ok := s.dir.Player(playerID)
	if !ok {
		return nil, fmt.Errorf("force spawn near %q: %w", playerID, ErrUnknownPlayer)
	}
	loc, zone, ok := s.resolver.Resolve(p.Loc)
	if !ok {
		return nil, fmt.Errorf("force spawn %s near %s: %w", archetypeID, playerID, ErrNoSpawnLocation)
	}
	return s.spawn(a, loc, zone)
}

// ForceRandomSpawn runs a selection cycle that ignores the gate (interval, concurrency, online minimum).
func (s *Scheduler) ForceRandomSpawn() (*Instance, error) {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	if s.closed {
		return nil, ErrShutdown
	}
	now := s.clock.Now()
	inst, reason := s.selectAndSpawn(now, s.dir.Online())
	switch reason {
	case "":
		return inst, nil
	case MissNoLocation:
		return nil, fmt.Errorf("force random spawn: %w", ErrNoSpawnLocation)
	default:
		return nil, fmt.Errorf("force random spawn: %s: %w", reason, ErrNoCandidate)
	}
}

func (s *Scheduler) adminArchetype(id string) (catalogs.Archetype, error) {
	a, ok := s.catalog.Get(id)
	if !ok {
		return a, fmt.Errorf("%q: %w", id, ErrUnknownArchetype)
	}
	if !s.catalog.Enabled(id) {
		return a, fmt.Errorf("%q: %w", id, ErrDisabled)
	}
	return a, nil
}

// Stop force-stops one instance and removes it from the registry before returning.
func (s *Scheduler) Stop(id string) error {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	inst, ok := s.reg.get(id)
	if !ok {
		return fmt.Errorf("stop %q: %w", id, ErrNotFound)
	}
	inst.ForceStop("stopped by admin")
	s.reclaim(inst)
	return nil
}

// StopAll force-stops every instance and returns how many were running.
func (s *Scheduler) StopAll() int {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	return s.stopAllLocked("stopped by admin")
}

func (s *Scheduler) stopAllLocked(reason string) int {
	n := 0
	for _, inst := range s.reg.list() {
		if inst.ForceStop(reason) {
			n++
		}
		s.reclaim(inst)
	}
	return n
}

// Shutdown stops every instance and makes Run return. Later Steps are no-ops.
func (s *Scheduler) Shutdown() {
	s.stepMu.Lock()
	if !s.closed {
		s.closed = true
		if n := s.stopAllLocked("shutdown"); n > 0 {
			s.logger.Printf("shutdown: stopped %d instances", n)
		}
	}
	s.stepMu.Unlock()
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *Scheduler) SetEnabled(enabled bool) {
	s.stepMu.Lock()
	s.cfg.Enabled = enabled
	s.stepMu.Unlock()
}

func (s *Scheduler) SetArchetypeEnabled(id string, enabled bool) error {
	if _, ok := s.catalog.Get(id); !ok {
		return fmt.Errorf("%q: %w", id, ErrUnknownArchetype)
	}
	return s.catalog.SetEnabled(id, enabled)
}

// SetInterval changes the inter-event bounds and redraws the next event tick.
func (s *Scheduler) SetInterval(minTicks, maxTicks uint64) error {
	if minTicks == 0 || maxTicks < minTicks {
		return fmt.Errorf("invalid interval [%d,%d]", minTicks, maxTicks)
	}
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	s.cfg.MinIntervalTicks = minTicks
	s.cfg.MaxIntervalTicks = maxTicks
	s.scheduleNext(s.clock.Now())
	return nil
}

// SetMaxEventsPerZone changes how many events one zone may host at once.
func (s *Scheduler) SetMaxEventsPerZone(n int) error {
	if n <= 0 {
		return fmt.Errorf("invalid max events per zone %d", n)
	}
	s.stepMu.Lock()
	s.cfg.MaxEventsPerZone = n
	s.stepMu.Unlock()
	return nil
}

// SetInverseScaling switches zone population weighting between linear and log2.
func (s *Scheduler) SetInverseScaling(inverse bool) {
	s.stepMu.Lock()
	s.cfg.InverseScaling = inverse
	s.stepMu.Unlock()
}

// AddParticipant credits a player with contributing to an instance. It may be called from any
// goroutine; crediting the same player twice is not an error.
func (s *Scheduler) AddParticipant(instanceID, playerID string) error {
	inst, ok := s.reg.get(instanceID)
	if !ok {
		return fmt.Errorf("instance %q: %w", instanceID, ErrNotFound)
	}
	if _, ok := s.dir.Player(playerID); !ok {
		return fmt.Errorf("player %q: %w", playerID, ErrUnknownPlayer)
	}
	if !inst.AddParticipant(playerID) && !inst.IsParticipant(playerID) {
		return fmt.Errorf("instance %q: %w", instanceID, ErrEnded)
	}
	return nil
}

func (s *Scheduler) Get(id string) (*Instance, bool) { return s.reg.get(id) }

// Active lists registered instances, oldest first.
func (s *Scheduler) Active() []*Instance { return s.reg.list() }

// ActiveByZone counts running instances per zone id.
func (s *Scheduler) ActiveByZone() map[int]int {
	out := map[int]int{}
	for k, n := range s.activeByZoneKey() {
		out[k.id] += n
	}
	return out
}

// Contributor is implemented by behaviors that react to explicit player contributions.
type Contributor interface {
	Contribute(inst *Instance, playerID string)
}

// Contribute credits a player and forwards the contribution to the behavior. Unlike
// AddParticipant it touches behavior state, so it is serialized with Step.
func (s *Scheduler) Contribute(instanceID, playerID string) error {
	if err := s.AddParticipant(instanceID, playerID); err != nil {
		return err
	}
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	inst, ok := s.reg.get(instanceID)
	if !ok || !inst.Valid() {
		return fmt.Errorf("instance %q: %w", instanceID, ErrEnded)
	}
	if c, ok := inst.behavior.(Contributor); ok {
		c.Contribute(inst, playerID)
	}
	return nil
}
