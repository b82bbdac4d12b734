package catalogs

// Defaults returns the built-in archetypes. Durations are in ticks at 1 Hz.
func Defaults() []Archetype {
	return []Archetype{
		{
			ID:                 "airdrop",
			DisplayName:        "Airdrop",
			Description:        "A supply crate just landed. Hold the area while it unlocks.",
			Icon:               "📦",
			StartSound:         "event.airdrop.start",
			DurationTicks:      300,
			BasePoints:         150,
			BaseXP:             100,
			SpawnWeight:        15,
			MinPlayers:         1,
			AnnouncementRadius: 100,
			VisibilityRadius:   80,
			Params:             map[string]any{"defend_ticks": 45.0},
		},
		{
			ID:                 "zombie_nest",
			DisplayName:        "Zombie Nest",
			Description:        "A nest is spawning the dead faster and faster. Destroy it.",
			Icon:               "🪺",
			StartSound:         "event.nest.start",
			DurationTicks:      240,
			BasePoints:         200,
			BaseXP:             150,
			SpawnWeight:        20,
			MinPlayers:         1,
			AnnouncementRadius: 120,
			VisibilityRadius:   60,
			Params:             map[string]any{"nest_health": 400.0},
		},
		{
			ID:                 "horde_invasion",
			DisplayName:        "Horde Invasion",
			Description:        "A massive horde approaches. Hold your position.",
			Icon:               "💀",
			StartSound:         "event.horde.start",
			DurationTicks:      180,
			BasePoints:         300,
			BaseXP:             200,
			SpawnWeight:        12,
			MinPlayers:         2,
			AnnouncementRadius: 100,
			VisibilityRadius:   70,
			Params:             map[string]any{"waves": 5.0, "wave_ticks": 30.0},
		},
		{
			ID:                 "survivor_convoy",
			DisplayName:        "Survivor Convoy",
			Description:        "Survivors need an escort. Keep them alive until they reach safety.",
			Icon:               "🚶",
			StartSound:         "event.convoy.start",
			DurationTicks:      360,
			BasePoints:         250,
			BaseXP:             175,
			SpawnWeight:        8,
			MinPlayers:         1,
			AnnouncementRadius: 130,
			VisibilityRadius:   100,
			Params:             map[string]any{"route_length": 120.0, "survivors": 4.0},
		},
		{
			ID:                 "wandering_boss",
			DisplayName:        "Wandering Boss",
			Description:        "A powerful boss roams the zone. Kill it before it escapes.",
			Icon:               "👹",
			StartSound:         "event.boss.start",
			DurationTicks:      300,
			BasePoints:         500,
			BaseXP:             300,
			SpawnWeight:        5,
			MinPlayers:         2,
			AnnouncementRadius: 150,
			VisibilityRadius:   100,
			Params:             map[string]any{"boss_health": 2000.0},
		},
	}
}
