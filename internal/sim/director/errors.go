package director

import (
	"errors"

	"worldevents.ai/internal/protocol"
)

var (
	ErrUnknownArchetype = errors.New("unknown archetype")
	ErrSafeZone         = errors.New("location is in a safe zone or outside any zone")
	ErrOutOfBounds      = errors.New("location is outside the playable bounds")
	ErrNoSpawnLocation  = errors.New("no valid spawn location")
	ErrNotFound         = errors.New("event instance not found")
	ErrUnknownPlayer    = errors.New("unknown player")
	ErrDisabled         = errors.New("archetype disabled")
	ErrEnded            = errors.New("event instance already ended")
	ErrShutdown         = errors.New("director shut down")
)

// ErrNoCandidate is returned by ForceRandomSpawn when no zone or archetype qualifies.
var ErrNoCandidate = errors.New("no eligible zone or archetype")

// ErrorCode maps a director error onto its wire error code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnknownArchetype):
		return protocol.ErrUnknownType
	case errors.Is(err, ErrSafeZone), errors.Is(err, ErrOutOfBounds):
		return protocol.ErrSafeZone
	case errors.Is(err, ErrNoSpawnLocation), errors.Is(err, ErrNoCandidate):
		return protocol.ErrNoSpawnLocation
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownPlayer):
		return protocol.ErrNotFound
	case errors.Is(err, ErrDisabled):
		return protocol.ErrDisabled
	case errors.Is(err, ErrEnded), errors.Is(err, ErrShutdown):
		return protocol.ErrConflict
	default:
		return protocol.ErrInternal
	}
}
