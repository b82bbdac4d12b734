package world

// Zones answers geography questions. The director never mutates geography.
type Zones interface {
	ZoneAt(loc Location) (Zone, bool)
	WithinBounds(loc Location) bool
}

// Terrain exposes the block column queries the spawn resolver needs.
type Terrain interface {
	// HighestBlockY returns the y of the topmost non-air block in the column.
	HighestBlockY(world string, x, z int) int
	Solid(world string, x, y, z int) bool
}

// Directory is the online player list plus the notification primitives.
type Directory interface {
	Online() []Player
	Player(id string) (Player, bool)

	SendTitle(playerID, title, subtitle string)
	SendMessage(playerID, text string)
	PlaySound(playerID, sound string)
	ShowProgress(playerID, barID, title string, progress float64)
	HideProgress(playerID, barID string)
}

// Rewards is the sink for event payouts.
type Rewards interface {
	AddPoints(playerID string, amount int)
	AddExperience(playerID string, amount int)
}
