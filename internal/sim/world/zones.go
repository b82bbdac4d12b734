package world

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

type ZonesConfig struct {
	Worlds []WorldZones `yaml:"worlds"`
}

type WorldZones struct {
	ID        string     `yaml:"id"`
	BoundaryR int        `yaml:"boundary_r"`
	Zones     []ZoneSpec `yaml:"zones"`
}

// ZoneSpec is an axis-aligned XZ rectangle. Earlier entries win on overlap.
type ZoneSpec struct {
	Zone `yaml:",inline"`
	Min  [2]int `yaml:"min"`
	Max  [2]int `yaml:"max"`
}

func (s ZoneSpec) contains(x, z float64) bool {
	return x >= float64(s.Min[0]) && x < float64(s.Max[0]) &&
		z >= float64(s.Min[1]) && z < float64(s.Max[1])
}

// ZoneMap is the in-process Zones implementation. It is immutable after construction.
type ZoneMap struct {
	worlds map[string]WorldZones
}

var _ Zones = (*ZoneMap)(nil)

func LoadZones(path string) (*ZoneMap, error) {
	cfg := DefaultZones()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = ZonesConfig{}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("zones.yaml: %w", err)
		}
	}
	m, err := NewZoneMap(cfg)
	if err != nil {
		return nil, fmt.Errorf("zones.yaml: %w", err)
	}
	return m, nil
}

func NewZoneMap(cfg ZonesConfig) (*ZoneMap, error) {
	m := &ZoneMap{worlds: map[string]WorldZones{}}
	for _, w := range cfg.Worlds {
		w.ID = strings.TrimSpace(w.ID)
		if w.ID == "" {
			return nil, fmt.Errorf("world with empty id")
		}
		if _, dup := m.worlds[w.ID]; dup {
			return nil, fmt.Errorf("duplicate world %q", w.ID)
		}
		if w.BoundaryR <= 0 {
			w.BoundaryR = 1000
		}
		seen := map[int]bool{}
		for _, z := range w.Zones {
			if seen[z.ID] {
				return nil, fmt.Errorf("world %s: duplicate zone id %d", w.ID, z.ID)
			}
			seen[z.ID] = true
			if z.Max[0] <= z.Min[0] || z.Max[1] <= z.Min[1] {
				return nil, fmt.Errorf("world %s: zone %d has empty extent", w.ID, z.ID)
			}
			if z.Difficulty < 0 {
				return nil, fmt.Errorf("world %s: zone %d has negative difficulty", w.ID, z.ID)
			}
		}
		m.worlds[w.ID] = w
	}
	return m, nil
}

func (m *ZoneMap) ZoneAt(loc Location) (Zone, bool) {
	w, ok := m.worlds[loc.World]
	if !ok {
		return Zone{}, false
	}
	for _, z := range w.Zones {
		if z.contains(loc.X, loc.Z) {
			return z.Zone, true
		}
	}
	return Zone{}, false
}

func (m *ZoneMap) WithinBounds(loc Location) bool {
	w, ok := m.worlds[loc.World]
	if !ok {
		return false
	}
	r := float64(w.BoundaryR)
	return loc.X >= -r && loc.X <= r && loc.Z >= -r && loc.Z <= r
}

// Worlds returns the configured world ids in sorted order.
func (m *ZoneMap) Worlds() []string {
	ids := make([]string, 0, len(m.worlds))
	for id := range m.worlds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DefaultZones is a single overworld with a safe spawn square and four rings of rising difficulty.
func DefaultZones() ZonesConfig {
	mk := func(id int, name string, difficulty int, safe bool, r int) ZoneSpec {
		return ZoneSpec{
			Zone: Zone{ID: id, Name: name, Difficulty: difficulty, Safe: safe},
			Min:  [2]int{-r, -r},
			Max:  [2]int{r, r},
		}
	}
	return ZonesConfig{Worlds: []WorldZones{{
		ID:        DefaultWorld,
		BoundaryR: 1000,
		Zones: []ZoneSpec{
			mk(0, "Spawn", 0, true, 64),
			mk(1, "Outskirts", 1, false, 250),
			mk(2, "Ruined Suburbs", 3, false, 500),
			mk(3, "Dead City", 6, false, 750),
			mk(4, "Wastes", 10, false, 1000),
		},
	}}}
}
