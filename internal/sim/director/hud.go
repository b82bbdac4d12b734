package director

import (
	"fmt"
	"sort"
	"sync"

	"worldevents.ai/internal/sim/world"
)

// visibilityCache bounds the cost of "who can see this event" to one directory scan per refresh window.
type visibilityCache struct {
	mu           sync.Mutex
	center       world.Location
	radius       float64
	refreshTicks uint64

	loaded    bool
	at        uint64
	players   []world.Player
	refreshes int
}

func (c *visibilityCache) get(now uint64, dir world.Directory) []world.Player {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded && now < c.at+c.refreshTicks {
		return c.players
	}
	c.players = playersWithin(dir.Online(), c.center, c.radius)
	c.loaded = true
	c.at = now
	c.refreshes++
	return c.players
}

func (c *visibilityCache) refreshCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

func playersWithin(players []world.Player, center world.Location, radius float64) []world.Player {
	out := make([]world.Player, 0, len(players))
	r2 := radius * radius
	for _, p := range players {
		if d, ok := p.Loc.DistanceSq(center); ok && d <= r2 {
			out = append(out, p)
		}
	}
	return out
}

// progressBar tracks which viewers currently see the instance's bar.
type progressBar struct {
	mu     sync.Mutex
	id     string
	shown  map[string]bool
	hidden bool
}

func (b *progressBar) update(i *Instance, viewers []world.Player) {
	title := i.progressTitle()
	value := i.progressValue()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.hidden {
		return
	}
	keep := make(map[string]bool, len(viewers))
	for _, p := range viewers {
		keep[p.ID] = true
		b.shown[p.ID] = true
		i.env.dir.ShowProgress(p.ID, b.id, title, value)
	}
	gone := make([]string, 0)
	for id := range b.shown {
		if !keep[id] {
			gone = append(gone, id)
		}
	}
	sort.Strings(gone)
	for _, id := range gone {
		delete(b.shown, id)
		i.env.dir.HideProgress(id, b.id)
	}
}

func (b *progressBar) hide(dir world.Directory) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hidden = true
	ids := make([]string, 0, len(b.shown))
	for id := range b.shown {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		dir.HideProgress(id, b.id)
	}
	b.shown = map[string]bool{}
}

func (i *Instance) progressTitle() string {
	return fmt.Sprintf("%s %s | %s", i.arch.Icon, i.arch.DisplayName, formatTicks(i.RemainingTicks(), i.env.tickRateHz))
}

func (i *Instance) progressValue() float64 {
	i.mu.Lock()
	p := i.progress
	i.mu.Unlock()
	if p != nil {
		return *p
	}
	return i.RemainingFraction()
}

// formatTicks renders a tick count as m:ss wall time.
func formatTicks(ticks uint64, hz int) string {
	if hz <= 0 {
		hz = 1
	}
	secs := ticks / uint64(hz)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
