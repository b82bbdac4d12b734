package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"worldevents.ai/internal/sim/catalogs"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz int   `yaml:"tick_rate_hz"`
	Seed       int64 `yaml:"seed"`

	Director Director `yaml:"director"`
}

// Director mirrors director.Config in YAML form. Zero values mean "use the default".
type Director struct {
	Enabled *bool `yaml:"enabled"`

	MinIntervalTicks int `yaml:"min_interval_ticks"`
	MaxIntervalTicks int `yaml:"max_interval_ticks"`
	SelectEveryTicks int `yaml:"select_every_ticks"`
	MaxConcurrent    int `yaml:"max_concurrent"`
	MinOnline        int `yaml:"min_online"`

	SpawnRadiusMin    float64 `yaml:"spawn_radius_min"`
	SpawnRadiusMax    float64 `yaml:"spawn_radius_max"`
	SpawnAttempts     int     `yaml:"spawn_attempts"`
	MaxGroundRise     int     `yaml:"max_ground_rise"`
	PlayerCountMult   float64 `yaml:"player_count_multiplier"`
	InverseScaling    bool    `yaml:"inverse_scaling"`
	MaxEventsPerZone  int     `yaml:"max_events_per_zone"`
	CooldownTicks     int     `yaml:"cooldown_ticks"`
	DecayWindowTicks  int     `yaml:"decay_window_ticks"`
	CooldownFallback  string  `yaml:"cooldown_fallback"`
	VisibilityRefresh int     `yaml:"visibility_refresh_ticks"`

	Archetypes map[string]catalogs.Override `yaml:"archetypes"`
}

func (d Director) IsEnabled() bool { return d.Enabled == nil || *d.Enabled }

// Defaults returns the tuning used when no file is given.
func Defaults() Tuning {
	t := Tuning{}
	t.applyDefaults()
	return t
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.applyDefaults()
	return t, nil
}

func (t *Tuning) applyDefaults() {
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = "1.0"
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = 1
	}
	d := &t.Director
	if d.MinIntervalTicks <= 0 {
		d.MinIntervalTicks = 300
	}
	if d.MaxIntervalTicks < d.MinIntervalTicks {
		d.MaxIntervalTicks = d.MinIntervalTicks * 3
	}
	if d.SelectEveryTicks <= 0 {
		d.SelectEveryTicks = 30
	}
	if d.MaxConcurrent <= 0 {
		d.MaxConcurrent = 3
	}
	if d.MinOnline <= 0 {
		d.MinOnline = 1
	}
	if d.SpawnRadiusMin <= 0 {
		d.SpawnRadiusMin = 30
	}
	if d.SpawnRadiusMax < d.SpawnRadiusMin {
		d.SpawnRadiusMax = d.SpawnRadiusMin * 2
	}
	if d.SpawnAttempts <= 0 {
		d.SpawnAttempts = 10
	}
	if d.MaxGroundRise <= 0 {
		d.MaxGroundRise = 5
	}
	if d.PlayerCountMult <= 0 {
		d.PlayerCountMult = 0.15
	}
	if d.MaxEventsPerZone <= 0 {
		d.MaxEventsPerZone = 2
	}
	if d.CooldownTicks <= 0 {
		d.CooldownTicks = 300
	}
	if d.DecayWindowTicks <= 0 {
		d.DecayWindowTicks = 600
	}
	if d.CooldownFallback == "" {
		d.CooldownFallback = "bypass"
	}
	if d.VisibilityRefresh <= 0 {
		d.VisibilityRefresh = 1
	}
}

func (t Tuning) validate() error {
	d := t.Director
	switch d.CooldownFallback {
	case "", "bypass", "reset":
	default:
		return fmt.Errorf("director.cooldown_fallback: unknown policy %q", d.CooldownFallback)
	}
	if d.MaxIntervalTicks > 0 && d.MinIntervalTicks > d.MaxIntervalTicks {
		return fmt.Errorf("director: min_interval_ticks %d > max_interval_ticks %d", d.MinIntervalTicks, d.MaxIntervalTicks)
	}
	if d.SpawnRadiusMax > 0 && d.SpawnRadiusMin > d.SpawnRadiusMax {
		return fmt.Errorf("director: spawn_radius_min > spawn_radius_max")
	}
	return nil
}
