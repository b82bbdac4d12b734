package main

import (
	"fmt"
	"net/http"
	"sort"

	"worldevents.ai/internal/persistence/indexdb"
	"worldevents.ai/internal/sim/director"
	"worldevents.ai/internal/sim/world"
)

func metricsHandler(serverID string, sched *director.Scheduler, players *world.PlayerDirectory, idx runtimeIndex) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		st := sched.Stats()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP worldevents_director_tick Current director tick.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_director_tick gauge\n")
		fmt.Fprintf(rw, "worldevents_director_tick{server=%q} %d\n", serverID, st.Tick)

		fmt.Fprintf(rw, "# HELP worldevents_players_online Connected players.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_players_online gauge\n")
		fmt.Fprintf(rw, "worldevents_players_online{server=%q} %d\n", serverID, len(players.Online()))

		fmt.Fprintf(rw, "# HELP worldevents_instances_active Running event instances.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_instances_active gauge\n")
		fmt.Fprintf(rw, "worldevents_instances_active{server=%q} %d\n", serverID, st.Active)

		fmt.Fprintf(rw, "# HELP worldevents_next_event_ticks Ticks until the next selection is allowed.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_next_event_ticks gauge\n")
		fmt.Fprintf(rw, "worldevents_next_event_ticks{server=%q} %d\n", serverID, st.NextEventInTicks)

		fmt.Fprintf(rw, "# HELP worldevents_transitions_total Lifecycle transitions by outcome.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_transitions_total counter\n")
		fmt.Fprintf(rw, "worldevents_transitions_total{server=%q,transition=%q} %d\n", serverID, "spawned", st.Spawned)
		fmt.Fprintf(rw, "worldevents_transitions_total{server=%q,transition=%q} %d\n", serverID, "completed", st.Completed)
		fmt.Fprintf(rw, "worldevents_transitions_total{server=%q,transition=%q} %d\n", serverID, "failed", st.Failed)
		fmt.Fprintf(rw, "worldevents_transitions_total{server=%q,transition=%q} %d\n", serverID, "stopped", st.Stopped)
		fmt.Fprintf(rw, "worldevents_transitions_total{server=%q,transition=%q} %d\n", serverID, "faulted", st.Faults)

		fmt.Fprintf(rw, "# HELP worldevents_cooldown_fallbacks_total Selections that had every archetype cooling down.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_cooldown_fallbacks_total counter\n")
		fmt.Fprintf(rw, "worldevents_cooldown_fallbacks_total{server=%q} %d\n", serverID, st.CooldownFallbacks)

		fmt.Fprintf(rw, "# HELP worldevents_selection_misses_total Selection cycles that spawned nothing, by reason.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_selection_misses_total counter\n")
		for _, k := range sortedKeys(st.Misses) {
			fmt.Fprintf(rw, "worldevents_selection_misses_total{server=%q,reason=%q} %d\n", serverID, k, st.Misses[k])
		}

		fmt.Fprintf(rw, "# HELP worldevents_spawned_by_archetype_total Spawns per archetype.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_spawned_by_archetype_total counter\n")
		for _, k := range sortedKeys(st.ByArchetype) {
			fmt.Fprintf(rw, "worldevents_spawned_by_archetype_total{server=%q,archetype=%q} %d\n", serverID, k, st.ByArchetype[k])
		}

		writeIndexMetrics(rw, idx)
	}
}

func writeIndexMetrics(rw http.ResponseWriter, idx runtimeIndex) {
	switch x := idx.(type) {
	case *indexdb.SQLiteIndex:
		s := x.Stats()
		fmt.Fprintf(rw, "# HELP worldevents_index_queue_depth Index write queue depth.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "worldevents_index_queue_depth{backend=%q} %d\n", "sqlite", s.QueueDepth)
		fmt.Fprintf(rw, "# HELP worldevents_index_dropped_total Rows dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_index_dropped_total counter\n")
		fmt.Fprintf(rw, "worldevents_index_dropped_total{backend=%q,kind=%q} %d\n", "sqlite", "lifecycle", s.DropLifecycleTotal)
		fmt.Fprintf(rw, "worldevents_index_dropped_total{backend=%q,kind=%q} %d\n", "sqlite", "grant", s.DropGrantTotal)
	case *indexdb.D1Index:
		s := x.Stats()
		fmt.Fprintf(rw, "# HELP worldevents_index_queue_depth Index write queue depth.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_index_queue_depth gauge\n")
		fmt.Fprintf(rw, "worldevents_index_queue_depth{backend=%q} %d\n", "d1", s.QueueDepth)
		fmt.Fprintf(rw, "# HELP worldevents_index_dropped_total Rows dropped because the queue was full.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_index_dropped_total counter\n")
		fmt.Fprintf(rw, "worldevents_index_dropped_total{backend=%q,kind=%q} %d\n", "d1", "queue", s.QueueDroppedTotal)
		fmt.Fprintf(rw, "worldevents_index_dropped_total{backend=%q,kind=%q} %d\n", "d1", "retained", s.RetainDroppedTotal)
		fmt.Fprintf(rw, "# HELP worldevents_index_flush_total Remote flush attempts by result.\n")
		fmt.Fprintf(rw, "# TYPE worldevents_index_flush_total counter\n")
		fmt.Fprintf(rw, "worldevents_index_flush_total{backend=%q,result=%q} %d\n", "d1", "ok", s.FlushOKTotal)
		fmt.Fprintf(rw, "worldevents_index_flush_total{backend=%q,result=%q} %d\n", "d1", "fail", s.FlushFailTotal)
	}
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
