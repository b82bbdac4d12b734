package world

import "sync"

// GrantRecorder mirrors reward grants into a read model (e.g. the SQLite index).
type GrantRecorder interface {
	RecordGrant(playerID, kind string, amount int)
}

type Balance struct {
	Points     int `json:"points"`
	Experience int `json:"experience"`
}

// Ledger is the in-process reward sink. Totals live for the process lifetime only.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]Balance
	recorder GrantRecorder
}

var _ Rewards = (*Ledger)(nil)

func NewLedger(recorder GrantRecorder) *Ledger {
	return &Ledger{balances: map[string]Balance{}, recorder: recorder}
}

func (l *Ledger) AddPoints(playerID string, amount int) {
	if amount == 0 || playerID == "" {
		return
	}
	l.mu.Lock()
	b := l.balances[playerID]
	b.Points += amount
	l.balances[playerID] = b
	l.mu.Unlock()
	if l.recorder != nil {
		l.recorder.RecordGrant(playerID, "points", amount)
	}
}

func (l *Ledger) AddExperience(playerID string, amount int) {
	if amount == 0 || playerID == "" {
		return
	}
	l.mu.Lock()
	b := l.balances[playerID]
	b.Experience += amount
	l.balances[playerID] = b
	l.mu.Unlock()
	if l.recorder != nil {
		l.recorder.RecordGrant(playerID, "experience", amount)
	}
}

func (l *Ledger) Balance(playerID string) Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[playerID]
}
