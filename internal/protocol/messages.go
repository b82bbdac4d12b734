package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	PlayerName      string     `json:"player_name"`
	World           string     `json:"world"`
	Pos             [3]float64 `json:"pos"`
	MaxQueue        int        `json:"max_queue,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	PlayerID        string `json:"player_id"`
	TickRateHz      int    `json:"tick_rate_hz"`
	EventsDigest    string `json:"events_digest"`
}

// POS (client -> server)
type PosMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	World           string     `json:"world,omitempty"`
	Pos             [3]float64 `json:"pos"`
}

// CONTRIBUTE (client -> server): credit the player as a participant of an active event.
type ContributeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	InstanceID      string `json:"instance_id"`
}

// TITLE (server -> client)
type TitleMsg struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

// MESSAGE (server -> client)
type TextMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SOUND (server -> client)
type SoundMsg struct {
	Type  string `json:"type"`
	Sound string `json:"sound"`
}

// PROGRESS (server -> client)
type ProgressMsg struct {
	Type     string  `json:"type"`
	BarID    string  `json:"bar_id"`
	Title    string  `json:"title"`
	Progress float64 `json:"progress"`
}

// PROGRESS_HIDE (server -> client)
type ProgressHideMsg struct {
	Type  string `json:"type"`
	BarID string `json:"bar_id"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// SUBSCRIBE (observer -> server)
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	// Optional: only stream entries for these archetypes.
	Archetypes []string `json:"archetypes,omitempty"`
}

// LIFECYCLE (server -> observer)
type LifecycleMsg struct {
	Type         string     `json:"type"`
	Tick         uint64     `json:"tick"`
	InstanceID   string     `json:"instance_id"`
	Archetype    string     `json:"archetype"`
	Transition   string     `json:"transition"`
	ZoneID       int        `json:"zone_id"`
	World        string     `json:"world"`
	Pos          [3]float64 `json:"pos"`
	Participants int        `json:"participants"`
	Reason       string     `json:"reason,omitempty"`
}
