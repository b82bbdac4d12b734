package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	// Player session (client <-> server).
	TypeHello        = "HELLO"
	TypeWelcome      = "WELCOME"
	TypePos          = "POS"
	TypeContribute   = "CONTRIBUTE"
	TypeTitle        = "TITLE"
	TypeMessage      = "MESSAGE"
	TypeSound        = "SOUND"
	TypeProgress     = "PROGRESS"
	TypeProgressHide = "PROGRESS_HIDE"
	TypeError        = "ERROR"

	// Observer stream.
	TypeSubscribe = "SUBSCRIBE"
	TypeLifecycle = "LIFECYCLE"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
