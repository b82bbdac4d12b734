package director

import (
	"fmt"
	"sort"
)

// DebugLines is the operator dump: config, counters, cooldowns and one line per instance.
func (s *Scheduler) DebugLines() []string {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	st := s.statsLocked()
	cfg := s.cfg
	now := s.clock.Now()
	cooling := make([]string, 0, len(s.lastUsed))
	for id := range s.lastUsed {
		cooling = append(cooling, id)
	}
	sort.Strings(cooling)
	for i, id := range cooling {
		since := now - s.lastUsed[id]
		state := "ready"
		if s.inCooldown(id, now) {
			state = fmt.Sprintf("cooldown %d", cfg.CooldownTicks-since)
		}
		cooling[i] = fmt.Sprintf("  %s: used %d ticks ago, %s, weight %.2f", id, since, state, s.effectiveWeight(id, now))
	}

	lines := []string{
		fmt.Sprintf("director tick=%d enabled=%v active=%d/%d next_event_in=%d", st.Tick, st.Enabled, st.Active, st.MaxConcurrent, st.NextEventInTicks),
		fmt.Sprintf("interval=[%d,%d] select_every=%d radius=[%.0f,%.0f] per_zone=%d cooldown=%d decay=%d fallback=%s",
			cfg.MinIntervalTicks, cfg.MaxIntervalTicks, cfg.SelectEveryTicks, cfg.SpawnRadiusMin, cfg.SpawnRadiusMax,
			cfg.MaxEventsPerZone, cfg.CooldownTicks, cfg.DecayWindowTicks, cfg.CooldownFallback),
		fmt.Sprintf("spawned=%d completed=%d failed=%d stopped=%d faults=%d fallbacks=%d misses=%v",
			st.Spawned, st.Completed, st.Failed, st.Stopped, st.Faults, st.CooldownFallbacks, st.Misses),
	}
	if len(cooling) > 0 {
		lines = append(lines, "archetypes:")
		lines = append(lines, cooling...)
	}
	for _, inst := range s.reg.list() {
		lines = append(lines, "  "+inst.DebugString())
	}
	return lines
}
