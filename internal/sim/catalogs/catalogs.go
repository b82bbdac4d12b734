package catalogs

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed archetype.schema.json
var archetypeSchemaJSON string

// Archetype is the immutable template of one spawnable world event.
type Archetype struct {
	ID                 string         `json:"id"`
	DisplayName        string         `json:"display_name"`
	Description        string         `json:"description,omitempty"`
	Icon               string         `json:"icon,omitempty"`
	StartSound         string         `json:"start_sound,omitempty"`
	DurationTicks      uint64         `json:"duration_ticks"`
	BasePoints         int            `json:"base_points"`
	BaseXP             int            `json:"base_xp"`
	SpawnWeight        float64        `json:"spawn_weight"`
	MinPlayers         int            `json:"min_players,omitempty"`
	AnnouncementRadius float64        `json:"announcement_radius"`
	VisibilityRadius   float64        `json:"visibility_radius"`
	Enabled            *bool          `json:"enabled,omitempty"`
	Params             map[string]any `json:"params,omitempty"`
}

func (a Archetype) MinRecommended() int {
	if a.MinPlayers <= 0 {
		return 1
	}
	return a.MinPlayers
}

// IntParam reads an integer tuning knob from Params, falling back to def.
func (a Archetype) IntParam(key string, def int) int {
	v, ok := a.Params[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	}
	return def
}

// EventCatalog is the archetype registry. Its structure is fixed at load; only the enabled
// flags and weight overrides change at runtime.
type EventCatalog struct {
	Digest string

	order []string
	byID  map[string]Archetype

	mu        sync.RWMutex
	enabled   map[string]bool
	overrides map[string]float64
}

func NewEventCatalog(defs []Archetype) (*EventCatalog, error) {
	c := &EventCatalog{
		byID:      map[string]Archetype{},
		enabled:   map[string]bool{},
		overrides: map[string]float64{},
	}
	for _, a := range defs {
		if a.ID == "" {
			return nil, fmt.Errorf("archetype with empty id")
		}
		if _, dup := c.byID[a.ID]; dup {
			return nil, fmt.Errorf("duplicate archetype %q", a.ID)
		}
		if a.DurationTicks == 0 {
			return nil, fmt.Errorf("archetype %s: duration_ticks must be positive", a.ID)
		}
		c.byID[a.ID] = a
		c.enabled[a.ID] = a.Enabled == nil || *a.Enabled
		c.order = append(c.order, a.ID)
	}
	sort.Strings(c.order)
	if c.Digest == "" {
		b, _ := json.Marshal(c.All())
		c.Digest = sha256Hex(b)
	}
	return c, nil
}

// Load reads every *.json archetype under dir. A missing dir yields the built-in defaults.
func Load(dir string) (*EventCatalog, error) {
	schema, err := jsonschema.CompileString("archetype.schema.json", archetypeSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("archetype schema: %w", err)
	}

	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return NewEventCatalog(Defaults())
		}
		return nil, err
	}

	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".json") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	var concat bytes.Buffer
	defs := make([]Archetype, 0, len(files))
	for _, p := range files {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		concat.Write(b)
		concat.WriteByte('\n')

		var doc any
		if err := json.Unmarshal(b, &doc); err != nil {
			return nil, fmt.Errorf("event %s: %w", filepath.Base(p), err)
		}
		if err := schema.Validate(doc); err != nil {
			return nil, fmt.Errorf("event %s: %w", filepath.Base(p), err)
		}
		var a Archetype
		if err := json.Unmarshal(b, &a); err != nil {
			return nil, fmt.Errorf("event %s: %w", filepath.Base(p), err)
		}
		defs = append(defs, a)
	}
	if len(defs) == 0 {
		return nil, fmt.Errorf("%s: no archetypes", dir)
	}

	c, err := NewEventCatalog(defs)
	if err != nil {
		return nil, err
	}
	c.Digest = sha256Hex(concat.Bytes())
	return c, nil
}

func (c *EventCatalog) Get(id string) (Archetype, bool) {
	a, ok := c.byID[id]
	return a, ok
}

// All returns the archetypes in enumeration order (sorted by id).
func (c *EventCatalog) All() []Archetype {
	out := make([]Archetype, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *EventCatalog) IDs() []string {
	return append([]string(nil), c.order...)
}

func (c *EventCatalog) Len() int { return len(c.order) }

func (c *EventCatalog) Enabled(id string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled[id]
}

func (c *EventCatalog) SetEnabled(id string, enabled bool) error {
	if _, ok := c.byID[id]; !ok {
		return fmt.Errorf("unknown archetype %q", id)
	}
	c.mu.Lock()
	c.enabled[id] = enabled
	c.mu.Unlock()
	return nil
}

// Weight returns the override if one is set, else the nominal spawn weight.
func (c *EventCatalog) Weight(id string) float64 {
	c.mu.RLock()
	w, ok := c.overrides[id]
	c.mu.RUnlock()
	if ok {
		return w
	}
	return c.byID[id].SpawnWeight
}

func (c *EventCatalog) SetWeightOverride(id string, weight float64) error {
	if _, ok := c.byID[id]; !ok {
		return fmt.Errorf("unknown archetype %q", id)
	}
	if weight <= 0 {
		return fmt.Errorf("archetype %s: weight override must be positive", id)
	}
	c.mu.Lock()
	c.overrides[id] = weight
	c.mu.Unlock()
	return nil
}

func (c *EventCatalog) ClearWeightOverride(id string) {
	c.mu.Lock()
	delete(c.overrides, id)
	c.mu.Unlock()
}

// Override is the per-archetype configuration knob set.
type Override struct {
	Enabled        *bool    `yaml:"enabled,omitempty" json:"enabled,omitempty"`
	WeightOverride *float64 `yaml:"weight_override,omitempty" json:"weight_override,omitempty"`
}

// ApplyOverrides applies configuration toggles. Unknown ids are reported, not ignored.
func (c *EventCatalog) ApplyOverrides(in map[string]Override) error {
	ids := make([]string, 0, len(in))
	for id := range in {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		o := in[id]
		if o.Enabled != nil {
			if err := c.SetEnabled(id, *o.Enabled); err != nil {
				return err
			}
		}
		if o.WeightOverride != nil {
			if err := c.SetWeightOverride(id, *o.WeightOverride); err != nil {
				return err
			}
		}
	}
	return nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
