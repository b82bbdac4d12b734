package director

import (
	"fmt"
	"log"
	"sort"
	"sync"

	"worldevents.ai/internal/sim/catalogs"
	"worldevents.ai/internal/sim/clock"
	"worldevents.ai/internal/sim/world"
)

type State int

const (
	StatePending State = iota
	StateActive
	StateCompleted
	StateFailed
	StateStopped
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateActive:
		return "ACTIVE"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

func (s State) Terminal() bool { return s >= StateCompleted }

// Behavior is the archetype-specific part of an instance. Tick must call inst.Complete or
// inst.Fail once the event resolves; Cleanup releases whatever the behavior placed in the world.
type Behavior interface {
	Tick(inst *Instance) error
	Cleanup(inst *Instance)
	StartSubtitle() string
	DebugInfo() string
}

// Beginner is implemented by behaviors that need a hook right after activation.
type Beginner interface {
	Begin(inst *Instance)
}

// Factory builds the behavior for a freshly selected archetype and anchor.
type Factory func(a catalogs.Archetype, loc world.Location, zone world.Zone) (Behavior, error)

// instanceEnv is the slice of scheduler state an instance needs.
type instanceEnv struct {
	dir     world.Directory
	rewards world.Rewards
	clock   *clock.Clock
	logger  *log.Logger
	journal Journal

	tickRateHz     int
	refreshTicks   uint64
	maxVisibilityR float64
}

type Instance struct {
	id       string
	arch     catalogs.Archetype
	loc      world.Location
	zone     world.Zone
	behavior Behavior
	env      *instanceEnv

	mu        sync.Mutex
	state     State
	startTick uint64
	endTick   uint64
	elapsed   uint64
	reason    string
	timeout   *clock.Handle
	reward    Reward
	progress  *float64
	warned    map[uint64]bool

	participants participantSet
	vis          visibilityCache
	bar          progressBar

	cleanupOnce sync.Once
}

func newInstance(id string, a catalogs.Archetype, loc world.Location, zone world.Zone, b Behavior, env *instanceEnv) *Instance {
	inst := &Instance{
		id:       id,
		arch:     a,
		loc:      loc,
		zone:     zone,
		behavior: b,
		env:      env,
		warned:   map[uint64]bool{},
	}
	inst.vis = visibilityCache{
		center:       loc,
		radius:       min(a.VisibilityRadius, env.maxVisibilityR),
		refreshTicks: env.refreshTicks,
	}
	inst.bar = progressBar{id: "event:" + id, shown: map[string]bool{}}
	return inst
}

func (i *Instance) ID() string                    { return i.id }
func (i *Instance) Archetype() catalogs.Archetype { return i.arch }
func (i *Instance) Location() world.Location      { return i.loc }
func (i *Instance) Zone() world.Zone              { return i.zone }
func (i *Instance) Behavior() Behavior            { return i.behavior }

func (i *Instance) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Valid reports whether the instance is still running.
func (i *Instance) Valid() bool { return i.State() == StateActive }

func (i *Instance) StartTick() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.startTick
}

func (i *Instance) Elapsed() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.elapsed
}

// Now is the global clock tick.
func (i *Instance) Now() uint64 { return i.env.clock.Now() }

// EndReason is set once the instance reaches a terminal state.
func (i *Instance) EndReason() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.reason
}

// LastReward is the per-participant payout of a completed instance.
func (i *Instance) LastReward() Reward {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.reward
}

func (i *Instance) RemainingTicks() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.remainingLocked()
}

func (i *Instance) remainingLocked() uint64 {
	if i.state.Terminal() || i.elapsed >= i.arch.DurationTicks {
		return 0
	}
	return i.arch.DurationTicks - i.elapsed
}

// RemainingFraction is remaining/duration in [0,1].
func (i *Instance) RemainingFraction() float64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state == StatePending {
		return 1
	}
	return float64(i.remainingLocked()) / float64(i.arch.DurationTicks)
}

// SetProgress overrides the progress bar value (0..1). By default the bar shows the remaining time.
func (i *Instance) SetProgress(f float64) {
	f = min(1, max(0, f))
	i.mu.Lock()
	i.progress = &f
	i.mu.Unlock()
}

// AddParticipant credits a player. It is a no-op once the instance has ended.
func (i *Instance) AddParticipant(playerID string) bool {
	if playerID == "" {
		return false
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state.Terminal() {
		return false
	}
	return i.participants.add(playerID)
}

func (i *Instance) Participants() []string { return i.participants.list() }

func (i *Instance) IsParticipant(playerID string) bool { return i.participants.has(playerID) }

// NearbyPlayers returns the cached set of players within the visibility radius.
func (i *Instance) NearbyPlayers() []world.Player {
	return i.vis.get(i.env.clock.Now(), i.env.dir)
}

// PlayersWithin scans the directory directly. Use it for points that move away from the anchor.
func (i *Instance) PlayersWithin(center world.Location, r float64) []world.Player {
	return playersWithin(i.env.dir.Online(), center, r)
}

// Start activates a pending instance, arms its hard timeout and announces it. Calling it again is a no-op.
func (i *Instance) Start() bool {
	now := i.env.clock.Now()
	i.mu.Lock()
	if i.state != StatePending {
		i.mu.Unlock()
		return false
	}
	i.state = StateActive
	i.startTick = now
	i.timeout = i.env.clock.After(i.arch.DurationTicks, func(uint64) {
		i.Fail("timeout")
	})
	i.mu.Unlock()

	i.announceStart()
	i.bar.update(i, i.NearbyPlayers())
	if b, ok := i.behavior.(Beginner); ok {
		b.Begin(i)
	}
	i.record(TransitionSpawned)
	return true
}

// tick advances an active instance by one step. Behavior errors are returned to the scheduler.
func (i *Instance) tick() error {
	i.mu.Lock()
	if i.state != StateActive {
		i.mu.Unlock()
		return nil
	}
	i.elapsed++
	elapsed := i.elapsed
	i.mu.Unlock()

	if err := i.behavior.Tick(i); err != nil {
		return err
	}
	if !i.Valid() {
		return nil
	}
	if elapsed >= i.arch.DurationTicks {
		i.Fail("timeout")
		return nil
	}
	i.countdown()
	i.bar.update(i, i.NearbyPlayers())
	return nil
}

// Complete marks an active instance as won and pays out every online participant.
func (i *Instance) Complete() bool {
	if !i.transition(StateCompleted, "completed") {
		return false
	}
	defer i.cleanup()
	paid := i.distributeRewards()
	i.announceOutcome(true, "")
	i.recordReward(TransitionCompleted, paid)
	return true
}

// Fail marks an active instance as lost.
func (i *Instance) Fail(reason string) bool {
	if reason == "" {
		reason = "failed"
	}
	if !i.transition(StateFailed, reason) {
		return false
	}
	defer i.cleanup()
	i.announceOutcome(false, reason)
	i.record(TransitionFailed)
	return true
}

// ForceStop ends any non-terminal instance without rewards or announcements.
func (i *Instance) ForceStop(reason string) bool {
	return i.stop(reason, TransitionStopped)
}

func (i *Instance) stop(reason, transition string) bool {
	if reason == "" {
		reason = "stopped"
	}
	i.mu.Lock()
	if i.state.Terminal() {
		i.mu.Unlock()
		return false
	}
	i.state = StateStopped
	i.endTick = i.env.clock.Now()
	i.reason = reason
	i.mu.Unlock()

	i.cleanup()
	i.record(transition)
	return true
}

func (i *Instance) transition(to State, reason string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateActive {
		return false
	}
	i.state = to
	i.endTick = i.env.clock.Now()
	i.reason = reason
	return true
}

// cleanup releases the timeout, the progress bar and the behavior's world state. It runs once
// and never lets a teardown panic escape.
func (i *Instance) cleanup() {
	i.cleanupOnce.Do(func() {
		i.mu.Lock()
		h := i.timeout
		i.timeout = nil
		i.mu.Unlock()
		if h != nil {
			h.Cancel()
		}
		i.bar.hide(i.env.dir)

		defer func() {
			if r := recover(); r != nil {
				i.env.logger.Printf("instance %s (%s): cleanup panic: %v", i.id, i.arch.ID, r)
			}
		}()
		i.behavior.Cleanup(i)
	})
}

// TimeoutPending reports whether the hard-timeout handle is still armed.
func (i *Instance) TimeoutPending() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.timeout != nil && i.timeout.Pending()
}

func (i *Instance) record(transition string) {
	i.recordReward(transition, Reward{})
}

func (i *Instance) recordReward(transition string, r Reward) {
	i.mu.Lock()
	reason := i.reason
	i.mu.Unlock()
	if transition == TransitionSpawned {
		reason = ""
	}
	i.env.journal.Record(LifecycleEntry{
		Tick:         i.env.clock.Now(),
		InstanceID:   i.id,
		Archetype:    i.arch.ID,
		Transition:   transition,
		ZoneID:       i.zone.ID,
		World:        i.loc.World,
		Pos:          i.loc.ToArray(),
		Participants: i.participants.list(),
		Reason:       reason,
		PointsEach:   r.Points,
		XPEach:       r.XP,
	})
}

// DebugString is a one-line operator summary.
func (i *Instance) DebugString() string {
	i.mu.Lock()
	state, elapsed, remaining := i.state, i.elapsed, i.remainingLocked()
	i.mu.Unlock()
	return fmt.Sprintf("%s %s [%s] zone=%d at %s(%.0f,%.0f,%.0f) elapsed=%d remaining=%d participants=%d %s",
		i.id, i.arch.ID, state, i.zone.ID, i.loc.World, i.loc.X, i.loc.Y, i.loc.Z,
		elapsed, remaining, i.participants.len(), i.behavior.DebugInfo())
}

type participantSet struct {
	mu sync.Mutex
	m  map[string]struct{}
}

func (p *participantSet) add(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.m == nil {
		p.m = map[string]struct{}{}
	}
	if _, ok := p.m[id]; ok {
		return false
	}
	p.m[id] = struct{}{}
	return true
}

func (p *participantSet) has(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.m[id]
	return ok
}

func (p *participantSet) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.m)
}

func (p *participantSet) list() []string {
	p.mu.Lock()
	out := make([]string, 0, len(p.m))
	for id := range p.m {
		out = append(out, id)
	}
	p.mu.Unlock()
	sort.Strings(out)
	return out
}
