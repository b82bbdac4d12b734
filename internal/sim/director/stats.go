package director

// Stats is a point-in-time snapshot of the director counters.
type Stats struct {
	Tick    uint64 `json:"tick"`
	Enabled bool   `json:"enabled"`

	Spawned           uint64            `json:"spawned"`
	Completed         uint64            `json:"completed"`
	Failed            uint64            `json:"failed"`
	Stopped           uint64            `json:"stopped"`
	Faults            uint64            `json:"faults"`
	CooldownFallbacks uint64            `json:"cooldown_fallbacks"`
	Misses            map[string]uint64 `json:"misses"`
	ByArchetype       map[string]uint64 `json:"by_archetype"`

	Active           int    `json:"active"`
	MaxConcurrent    int    `json:"max_concurrent"`
	NextEventInTicks uint64 `json:"next_event_in_ticks"`
}

func (s *Scheduler) Stats() Stats {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	return s.statsLocked()
}

func (s *Scheduler) statsLocked() Stats {
	now := s.clock.Now()
	st := Stats{
		Tick:              now,
		Enabled:           s.cfg.Enabled,
		Spawned:           s.stats.spawned,
		Completed:         s.stats.completed,
		Failed:            s.stats.failed,
		Stopped:           s.stats.stopped,
		Faults:            s.stats.faults,
		CooldownFallbacks: s.stats.cooldownFallbacks,
		Misses:            make(map[string]uint64, len(s.stats.misses)),
		ByArchetype:       make(map[string]uint64, len(s.stats.byArchetype)),
		Active:            s.reg.len(),
		MaxConcurrent:     s.cfg.MaxConcurrent,
	}
	for k, v := range s.stats.misses {
		st.Misses[k] = v
	}
	for k, v := range s.stats.byArchetype {
		st.ByArchetype[k] = v
	}
	if s.nextEventTick > now {
		st.NextEventInTicks = s.nextEventTick - now
	}
	return st
}
