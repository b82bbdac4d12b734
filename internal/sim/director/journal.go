package director

// Lifecycle transitions as recorded in the journal.
const (
	TransitionSpawned   = "SPAWNED"
	TransitionCompleted = "COMPLETED"
	TransitionFailed    = "FAILED"
	TransitionStopped   = "STOPPED"
	TransitionFaulted   = "FAULTED"
)

// LifecycleEntry is one instance lifecycle record. Read models consume it; the director never replays it.
type LifecycleEntry struct {
	Tick         uint64     `json:"tick"`
	InstanceID   string     `json:"instance_id"`
	Archetype    string     `json:"archetype"`
	Transition   string     `json:"transition"`
	ZoneID       int        `json:"zone_id"`
	World        string     `json:"world"`
	Pos          [3]float64 `json:"pos"`
	Participants []string   `json:"participants,omitempty"`
	Reason       string     `json:"reason,omitempty"`

	PointsEach int `json:"points_each,omitempty"`
	XPEach     int `json:"xp_each,omitempty"`
}

// Journal receives lifecycle entries. Implementations must not block the tick loop.
type Journal interface {
	Record(e LifecycleEntry)
}

// Journals fans an entry out to every journal in order.
type Journals []Journal

func (js Journals) Record(e LifecycleEntry) {
	for _, j := range js {
		if j != nil {
			j.Record(e)
		}
	}
}

type nopJournal struct{}

func (nopJournal) Record(LifecycleEntry) {}
