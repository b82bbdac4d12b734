package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Director/admin layer.
	ErrBadRequest      = "E_BAD_REQUEST"
	ErrNotFound        = "E_NOT_FOUND"
	ErrUnknownType     = "E_UNKNOWN_ARCHETYPE"
	ErrSafeZone        = "E_SAFE_ZONE"
	ErrNoSpawnLocation = "E_NO_SPAWN_LOCATION"
	ErrDisabled        = "E_DISABLED"
	ErrConflict        = "E_CONFLICT"
	ErrInternal        = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrBadRequest:      {},
	ErrNotFound:        {},
	ErrUnknownType:     {},
	ErrSafeZone:        {},
	ErrNoSpawnLocation: {},
	ErrDisabled:        {},
	ErrConflict:        {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
