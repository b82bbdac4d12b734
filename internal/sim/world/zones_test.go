package world

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultZonesNesting(t *testing.T) {
	m, err := NewZoneMap(DefaultZones())
	if err != nil {
		t.Fatalf("NewZoneMap: %v", err)
	}
	z, ok := m.ZoneAt(Location{World: "overworld", X: 0, Z: 0})
	if !ok || !z.Safe || z.ID != 0 {
		t.Fatalf("expected safe spawn at origin, got %+v ok=%v", z, ok)
	}
	z, ok = m.ZoneAt(Location{World: "overworld", X: 100, Z: -100})
	if !ok || z.ID != 1 || z.Safe {
		t.Fatalf("expected outskirts, got %+v ok=%v", z, ok)
	}
	z, ok = m.ZoneAt(Location{World: "overworld", X: 900, Z: 0})
	if !ok || z.ID != 4 || z.Difficulty != 10 {
		t.Fatalf("expected wastes, got %+v ok=%v", z, ok)
	}
	if _, ok := m.ZoneAt(Location{World: "nether", X: 0, Z: 0}); ok {
		t.Fatalf("unknown world should have no zone")
	}
}

func TestWithinBounds(t *testing.T) {
	m, _ := NewZoneMap(DefaultZones())
	if !m.WithinBounds(Location{World: "overworld", X: 1000, Z: -1000}) {
		t.Fatalf("edge should be within bounds")
	}
	if m.WithinBounds(Location{World: "overworld", X: 1000.5, Z: 0}) {
		t.Fatalf("beyond boundary should be out of bounds")
	}
	if m.WithinBounds(Location{World: "missing", X: 0, Z: 0}) {
		t.Fatalf("unknown world should be out of bounds")
	}
}

func TestLoadZonesYAML(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "zones.yaml")
	raw := `
worlds:
  - id: arena
    boundary_r: 200
    zones:
      - {id: 0, name: Lobby, difficulty: 0, safe: true, min: [-10, -10], max: [10, 10]}
      - {id: 7, name: Pit, difficulty: 7, min: [-200, -200], max: [200, 200]}
`
	if err := os.WriteFile(p, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m, err := LoadZones(p)
	if err != nil {
		t.Fatalf("LoadZones: %v", err)
	}
	z, ok := m.ZoneAt(Location{World: "arena", X: 50, Z: 50})
	if !ok || z.ID != 7 || z.Name != "Pit" || z.Difficulty != 7 {
		t.Fatalf("unexpected zone: %+v", z)
	}
	if got := m.Worlds(); len(got) != 1 || got[0] != "arena" {
		t.Fatalf("unexpected worlds: %v", got)
	}
}

func TestNewZoneMapRejectsBadConfig(t *testing.T) {
	cfg := ZonesConfig{Worlds: []WorldZones{{
		ID: "w",
		Zones: []ZoneSpec{
			{Zone: Zone{ID: 1}, Min: [2]int{0, 0}, Max: [2]int{10, 10}},
			{Zone: Zone{ID: 1}, Min: [2]int{0, 0}, Max: [2]int{10, 10}},
		},
	}}}
	if _, err := NewZoneMap(cfg); err == nil {
		t.Fatalf("expected duplicate zone id error")
	}
	cfg.Worlds[0].Zones = []ZoneSpec{{Zone: Zone{ID: 1}, Min: [2]int{5, 5}, Max: [2]int{5, 10}}}
	if _, err := NewZoneMap(cfg); err == nil {
		t.Fatalf("expected empty extent error")
	}
}
