package director

import (
	"worldevents.ai/internal/sim/tuning"
)

type CooldownPolicy string

const (
	// CooldownBypass ignores cooldowns for a single selection when every candidate is cooling down.
	CooldownBypass CooldownPolicy = "bypass"
	// CooldownReset clears the whole cooldown map instead.
	CooldownReset CooldownPolicy = "reset"
)

// Config holds the director parameters. Intervals and windows are in ticks.
type Config struct {
	Enabled    bool
	TickRateHz int

	MinIntervalTicks uint64
	MaxIntervalTicks uint64
	SelectEveryTicks uint64
	MaxConcurrent    int
	MinOnline        int

	SpawnRadiusMin float64
	SpawnRadiusMax float64
	SpawnAttempts  int
	MaxGroundRise  float64

	PlayerCountMult  float64
	InverseScaling   bool
	MaxEventsPerZone int

	CooldownTicks    uint64
	DecayWindowTicks uint64
	CooldownFallback CooldownPolicy

	VisibilityRefreshTicks uint64
	// MaxVisibilityRadius caps an archetype's visibility radius for the progress bar.
	MaxVisibilityRadius float64
}

func (c *Config) applyDefaults() {
	if c.TickRateHz <= 0 {
		c.TickRateHz = 1
	}
	if c.MinIntervalTicks == 0 {
		c.MinIntervalTicks = 300
	}
	if c.MaxIntervalTicks < c.MinIntervalTicks {
		c.MaxIntervalTicks = c.MinIntervalTicks
	}
	if c.SelectEveryTicks == 0 {
		c.SelectEveryTicks = 30
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.MinOnline <= 0 {
		c.MinOnline = 1
	}
	if c.SpawnRadiusMin <= 0 {
		c.SpawnRadiusMin = 30
	}
	if c.SpawnRadiusMax < c.SpawnRadiusMin {
		c.SpawnRadiusMax = c.SpawnRadiusMin * 2
	}
	if c.SpawnAttempts <= 0 {
		c.SpawnAttempts = 10
	}
	if c.MaxGroundRise <= 0 {
		c.MaxGroundRise = 5
	}
	if c.PlayerCountMult <= 0 {
		c.PlayerCountMult = 0.15
	}
	if c.MaxEventsPerZone <= 0 {
		c.MaxEventsPerZone = 2
	}
	if c.CooldownTicks == 0 {
		c.CooldownTicks = 300
	}
	if c.DecayWindowTicks == 0 {
		c.DecayWindowTicks = 600
	}
	if c.CooldownFallback == "" {
		c.CooldownFallback = CooldownBypass
	}
	if c.VisibilityRefreshTicks == 0 {
		c.VisibilityRefreshTicks = 1
	}
	if c.MaxVisibilityRadius <= 0 {
		c.MaxVisibilityRadius = 64
	}
}

// ConfigFromTuning maps tuning.yaml onto a Config.
func ConfigFromTuning(t tuning.Tuning) Config {
	d := t.Director
	c := Config{
		Enabled:                d.IsEnabled(),
		TickRateHz:             t.TickRateHz,
		MinIntervalTicks:       uint64(max(0, d.MinIntervalTicks)),
		MaxIntervalTicks:       uint64(max(0, d.MaxIntervalTicks)),
		SelectEveryTicks:       uint64(max(0, d.SelectEveryTicks)),
		MaxConcurrent:          d.MaxConcurrent,
		MinOnline:              d.MinOnline,
		SpawnRadiusMin:         d.SpawnRadiusMin,
		SpawnRadiusMax:         d.SpawnRadiusMax,
		SpawnAttempts:          d.SpawnAttempts,
		MaxGroundRise:          float64(d.MaxGroundRise),
		PlayerCountMult:        d.PlayerCountMult,
		InverseScaling:         d.InverseScaling,
		MaxEventsPerZone:       d.MaxEventsPerZone,
		CooldownTicks:          uint64(max(0, d.CooldownTicks)),
		DecayWindowTicks:       uint64(max(0, d.DecayWindowTicks)),
		CooldownFallback:       CooldownPolicy(d.CooldownFallback),
		VisibilityRefreshTicks: uint64(max(0, d.VisibilityRefresh)),
	}
	c.applyDefaults()
	return c
}
