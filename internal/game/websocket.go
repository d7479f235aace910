package game

// =============================================================================
// CONNECTION CONTRACTS
// =============================================================================

// Broadcaster fans server messages out to the connections tagged with a
// room. Implementations must not block and must not call back into the
// Engine: the Engine calls them with a room lock held.
type Broadcaster interface {
	// Broadcast delivers msg to every connection in the room except the
	// excluded players.
	Broadcast(roomCode string, msg any, excludePlayerIDs ...string)
	// SendTo delivers msg to one player's connection, if it is open.
	SendTo(roomCode, playerID string, msg any)
}

// Client is the connection an inbound message arrived on.
type Client interface {
	// Attach tags the connection with a player and room so later
	// broadcasts reach it. It replaces any earlier connection for the
	// same player.
	Attach(playerID, roomCode string)
	// Send queues msg for this connection only.
	Send(msg any)
}
