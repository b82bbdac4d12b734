package world

import (
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"worldevents.ai/internal/protocol"
)

// PlayerDirectory tracks connected players and delivers notifications as protocol JSON
// onto each session's outbound queue. Sends never block; a full queue drops its oldest frame.
type PlayerDirectory struct {
	mu      sync.RWMutex
	players map[string]*session
}

type session struct {
	player Player
	out    chan []byte
}

var _ Directory = (*PlayerDirectory)(nil)

func NewPlayerDirectory() *PlayerDirectory {
	return &PlayerDirectory{players: map[string]*session{}}
}

func (d *PlayerDirectory) Join(name string, loc Location, out chan []byte) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "player"
	}
	id := "P" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
	d.mu.Lock()
	d.players[id] = &session{player: Player{ID: id, Name: name, Loc: loc}, out: out}
	d.mu.Unlock()
	return id
}

func (d *PlayerDirectory) Leave(id string) {
	d.mu.Lock()
	delete(d.players, id)
	d.mu.Unlock()
}

func (d *PlayerDirectory) Move(id string, loc Location) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.players[id]
	if !ok {
		return false
	}
	if loc.World == "" {
		loc.World = s.player.Loc.World
	}
	s.player.Loc = loc
	return true
}

func (d *PlayerDirectory) Online() []Player {
	d.mu.RLock()
	out := make([]Player, 0, len(d.players))
	for _, s := range d.players {
		out = append(out, s.player)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *PlayerDirectory) Player(id string) (Player, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.players[id]
	if !ok {
		return Player{}, false
	}
	return s.player, true
}

func (d *PlayerDirectory) SendTitle(playerID, title, subtitle string) {
	d.send(playerID, protocol.TitleMsg{Type: protocol.TypeTitle, Title: title, Subtitle: subtitle})
}

func (d *PlayerDirectory) SendMessage(playerID, text string) {
	d.send(playerID, protocol.TextMsg{Type: protocol.TypeMessage, Text: text})
}

func (d *PlayerDirectory) PlaySound(playerID, sound string) {
	d.send(playerID, protocol.SoundMsg{Type: protocol.TypeSound, Sound: sound})
}

func (d *PlayerDirectory) ShowProgress(playerID, barID, title string, progress float64) {
	d.send(playerID, protocol.ProgressMsg{Type: protocol.TypeProgress, BarID: barID, Title: title, Progress: progress})
}

func (d *PlayerDirectory) HideProgress(playerID, barID string) {
	d.send(playerID, protocol.ProgressHideMsg{Type: protocol.TypeProgressHide, BarID: barID})
}

// SendError is used by the transport to report rejected client requests.
func (d *PlayerDirectory) SendError(playerID, code, message string) {
	d.send(playerID, protocol.ErrorMsg{Type: protocol.TypeError, Code: code, Message: message})
}

func (d *PlayerDirectory) send(playerID string, v any) {
	d.mu.RLock()
	s, ok := d.players[playerID]
	d.mu.RUnlock()
	if !ok || s.out == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	sendLatest(s.out, b)
}

func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
