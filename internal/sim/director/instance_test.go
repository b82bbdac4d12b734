package director

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"worldevents.ai/internal/sim/world"
)

func TestInstance_TransitionsAreMonotonic(t *testing.T) {
	h := newHarness(t, Config{}, player("a", 10, 0))
	inst, err := h.s.ForceSpawn("airdrop", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if inst.State() != StateActive {
		t.Fatalf("state=%s want ACTIVE", inst.State())
	}
	if inst.Start() {
		t.Fatalf("second Start should be a no-op")
	}
	if !inst.Complete() {
		t.Fatalf("Complete from ACTIVE should succeed")
	}
	if inst.Complete() || inst.Fail("late") || inst.ForceStop("late") || inst.Start() {
		t.Fatalf("terminal instance accepted a transition")
	}
	if inst.State() != StateCompleted {
		t.Fatalf("state=%s want COMPLETED", inst.State())
	}
	if inst.AddParticipant("a") {
		t.Fatalf("participants must not change after termination")
	}
	got := h.journal.transitions(inst.ID())
	if len(got) != 2 || got[0] != TransitionSpawned || got[1] != TransitionCompleted {
		t.Fatalf("journal=%v", got)
	}
}

func TestInstance_ForceStopCleansUpOnce(t *testing.T) {
	h := newHarness(t, Config{})
	inst, err := h.s.ForceSpawn("zombie_nest", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	b := h.behavior("zombie_nest")
	if !inst.ForceStop("admin") {
		t.Fatalf("first ForceStop should succeed")
	}
	if inst.ForceStop("admin") {
		t.Fatalf("second ForceStop should be a no-op")
	}
	inst.cleanup()
	if inst.State() != StateStopped || b.cleanups != 1 {
		t.Fatalf("state=%s cleanups=%d", inst.State(), b.cleanups)
	}
	if inst.TimeoutPending() {
		t.Fatalf("timeout handle should be cancelled")
	}
}

func TestInstance_ForceStopFromPending(t *testing.T) {
	h := newHarness(t, Config{})
	a, _ := h.catalog.Get("airdrop")
	b := &scriptedBehavior{}
	inst := newInstance("pending1", a, at(50, 0), world.Zone{ID: 1, Name: "Wilds"}, b, h.s.env)
	if !inst.ForceStop("admin") || inst.State() != StateStopped || b.cleanups != 1 {
		t.Fatalf("state=%s cleanups=%d", inst.State(), b.cleanups)
	}
	if inst.Start() {
		t.Fatalf("stopped instance must never become active")
	}
}

func TestInstance_CleanupPanicIsContained(t *testing.T) {
	h := newHarness(t, Config{})
	h.script["airdrop"] = scriptedBehavior{cleanupPanics: true}
	inst, err := h.s.ForceSpawn("airdrop", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if !inst.Fail("lost") {
		t.Fatalf("Fail should succeed")
	}
	if inst.State() != StateFailed {
		t.Fatalf("state=%s", inst.State())
	}
}

func TestInstance_CompletePaysOnlineParticipantsAndCancelsTimeout(t *testing.T) {
	h := newHarness(t, Config{}, player("a", 40, 0), player("b", 45, 0), player("c", 50, 5), player("d", 900, 0))
	h.script["airdrop"] = scriptedBehavior{completeAt: 3}
	inst, err := h.s.ForceSpawn("airdrop", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		if err := h.s.AddParticipant(inst.ID(), id); err != nil {
			t.Fatalf("AddParticipant(%s): %v", id, err)
		}
	}
	if err := h.s.AddParticipant(inst.ID(), "a"); err != nil {
		t.Fatalf("repeat AddParticipant should be idempotent: %v", err)
	}
	h.dir.leave("c")

	h.steps(3)
	if inst.State() != StateCompleted {
		t.Fatalf("state=%s want COMPLETED", inst.State())
	}
	if inst.TimeoutPending() {
		t.Fatalf("timeout should be cancelled on completion")
	}
	// zone 1, difficulty 0, three participants (one offline): 150 + 20 bonus, 100 + 10.
	for _, id := range []string{"a", "b"} {
		if h.rewards.points[id] != 170 || h.rewards.xp[id] != 110 {
			t.Fatalf("%s got %d/%d", id, h.rewards.points[id], h.rewards.xp[id])
		}
	}
	if h.rewards.points["c"] != 0 || h.rewards.points["d"] != 0 {
		t.Fatalf("offline or non-participants must not be paid: %v", h.rewards.points)
	}
	msgs := h.dir.sentTo("message", "a")
	if len(msgs) == 0 || !strings.Contains(msgs[len(msgs)-1], "co-op bonus +20 with 3 players") {
		t.Fatalf("reward message=%v", msgs)
	}
	if _, ok := h.s.Get(inst.ID()); ok {
		t.Fatalf("completed instance should be reclaimed")
	}
	if st := h.s.Stats(); st.Completed != 1 || st.Active != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestInstance_CompleteCleansUpWhenRewardSinkPanics(t *testing.T) {
	h := newHarness(t, Config{}, player("a", 40, 0))
	h.script["airdrop"] = scriptedBehavior{completeAt: 2}
	inst, err := h.s.ForceSpawn("airdrop", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if err := h.s.AddParticipant(inst.ID(), "a"); err != nil {
		t.Fatalf("AddParticipant: %v", err)
	}
	barID := "event:" + inst.ID()
	if h.dir.barViewers(barID) != 1 {
		t.Fatalf("bar not shown before completion")
	}
	h.rewards.panics = true

	h.steps(2)
	if inst.State() != StateCompleted {
		t.Fatalf("state=%s want COMPLETED", inst.State())
	}
	if _, ok := h.s.Get(inst.ID()); ok {
		t.Fatalf("faulted instance still registered")
	}
	if b := h.behavior("airdrop"); b.cleanups != 1 {
		t.Fatalf("cleanups=%d want 1", b.cleanups)
	}
	if inst.TimeoutPending() {
		t.Fatalf("timeout still armed after fault")
	}
	if n := h.dir.barViewers(barID); n != 0 {
		t.Fatalf("bar still shown to %d players", n)
	}
	if st := h.s.Stats(); st.Faults != 1 {
		t.Fatalf("faults=%d want 1", st.Faults)
	}
}

func TestInstance_FailCleansUpWhenAnnouncementPanics(t *testing.T) {
	h := newHarness(t, Config{}, player("a", 40, 0))
	inst, err := h.s.ForceSpawn("airdrop", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	h.dir.panicTitles = true

	func() {
		defer func() { _ = recover() }()
		inst.Fail("lost")
	}()
	if inst.State() != StateFailed {
		t.Fatalf("state=%s want FAILED", inst.State())
	}
	if inst.TimeoutPending() {
		t.Fatalf("timeout still armed")
	}
	if b := h.behavior("airdrop"); b.cleanups != 1 {
		t.Fatalf("cleanups=%d want 1", b.cleanups)
	}
}

func TestInstance_BonusCountsOfflineParticipants(t *testing.T) {
	h := newHarness(t, Config{}, player("a", 40, 0), player("b", 45, 0), player("c", 50, 5))
	inst, err := h.s.ForceSpawn("airdrop", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	for _, id := range []string{"a", "b", "c"} {
		inst.AddParticipant(id)
	}
	h.dir.leave("b")
	if !inst.Complete() {
		t.Fatalf("Complete failed")
	}
	if r := inst.reward; r.Bonus != 20 || r.Points != 170 {
		t.Fatalf("reward=%+v want bonus 20, points 170", r)
	}
	if h.rewards.points["b"] != 0 || h.rewards.points["a"] != 170 || h.rewards.points["c"] != 170 {
		t.Fatalf("payouts=%v", h.rewards.points)
	}
}

func TestInstance_NoParticipantAfterCompletion(t *testing.T) {
	h := newHarness(t, Config{}, player("a", 40, 0))
	inst, err := h.s.ForceSpawn("airdrop", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				inst.AddParticipant(fmt.Sprintf("p%d-%d", g, n))
			}
		}(g)
	}
	inst.Complete()
	wg.Wait()

	var final []string
	h.journal.mu.Lock()
	for _, e := range h.journal.entries {
		if e.InstanceID == inst.ID() && e.Transition == TransitionCompleted {
			final = e.Participants
		}
	}
	h.journal.mu.Unlock()
	if got := inst.Participants(); len(got) != len(final) {
		t.Fatalf("participants grew after completion: %d recorded, %d now", len(final), len(got))
	}
}

func TestInstance_AnnouncementTiers(t *testing.T) {
	h := newHarness(t, Config{}, player("near", 60, 0), player("mid", 200, 0), player("far", 400, 0))
	if _, err := h.s.ForceSpawn("airdrop", at(50, 0)); err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if len(h.dir.sentTo("title", "near")) != 1 || len(h.dir.sentTo("sound", "near")) != 1 {
		t.Fatalf("near player should get title and sound")
	}
	mid := h.dir.sentTo("message", "mid")
	if len(h.dir.sentTo("title", "mid")) != 0 || len(mid) != 1 || !strings.Contains(mid[0], "to the west") {
		t.Fatalf("mid player should get a ping only: %v", mid)
	}
	if len(h.dir.sentTo("message", "far")) != 0 {
		t.Fatalf("far player should hear nothing")
	}
}

func TestInstance_ProgressBarFollowsVisibility(t *testing.T) {
	h := newHarness(t, Config{VisibilityRefreshTicks: 5}, player("a", 55, 0), player("b", 300, 0))
	inst, err := h.s.ForceSpawn("zombie_nest", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	bar := "event:" + inst.ID()
	if h.dir.barViewers(bar) != 1 {
		t.Fatalf("viewers=%d want 1", h.dir.barViewers(bar))
	}
	h.steps(12)
	// refreshes at ticks 0, 5 and 10
	if got := inst.vis.refreshCount(); got != 3 {
		t.Fatalf("visibility refreshes=%d want 3", got)
	}
	inst.ForceStop("admin")
	if h.dir.barViewers(bar) != 0 {
		t.Fatalf("bar should be hidden after stop")
	}
}

func TestInstance_VisibilityRadiusIsCapped(t *testing.T) {
	h := newHarness(t, Config{}, player("a", 50+70, 0))
	inst, err := h.s.ForceSpawn("survivor_convoy", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	if inst.vis.radius != 64 || len(inst.NearbyPlayers()) != 0 {
		t.Fatalf("radius=%v nearby=%v", inst.vis.radius, inst.NearbyPlayers())
	}
}

func TestInstance_CountdownWarnings(t *testing.T) {
	h := newHarness(t, Config{}, player("a", 55, 0))
	inst, err := h.s.ForceSpawn("horde_invasion", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	h.steps(int(inst.Archetype().DurationTicks) - 5)
	var warnings []string
	for _, m := range h.dir.sentTo("message", "a") {
		if strings.Contains(m, "seconds left") {
			warnings = append(warnings, m)
		}
	}
	if len(warnings) != 3 || !strings.Contains(warnings[0], "60") || !strings.Contains(warnings[2], "10") {
		t.Fatalf("warnings=%v", warnings)
	}
}

func TestInstance_RemainingQueries(t *testing.T) {
	h := newHarness(t, Config{})
	inst, err := h.s.ForceSpawn("horde_invasion", at(50, 0))
	if err != nil {
		t.Fatalf("ForceSpawn: %v", err)
	}
	h.steps(45)
	if inst.RemainingTicks() != 135 || inst.RemainingFraction() != 0.75 || !inst.Valid() {
		t.Fatalf("remaining=%d fraction=%v", inst.RemainingTicks(), inst.RemainingFraction())
	}
	if !strings.Contains(inst.DebugString(), "horde_invasion [ACTIVE]") {
		t.Fatalf("debug=%q", inst.DebugString())
	}
}
