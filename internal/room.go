package internal

import "slices"

// Methods (Room Struct). Callers hold r.Mu.

func NewRoom(code string, host *Player, mode GameMode) *Room {
	return &Room{
		Code:       code,
		HostID:     host.ID,
		GameMode:   mode,
		Players:    []*Player{host},
		MaxPlayers: mode.MaxPlayers(),
		Phase:      PhaseLobby,
		Messages:   make([]ChatMessage, 0),
	}
}

func (r *Room) PlayerByID(id string) *Player {
	if i := r.IndexOf(id); i >= 0 {
		return r.Players[i]
	}
	return nil
}

func (r *Room) IndexOf(id string) int {
	return slices.IndexFunc(r.Players, func(p *Player) bool { return p.ID == id })
}

func (r *Room) GetPlayerByIndex(index int) *Player {
	if index < 0 || index >= len(r.Players) {
		return nil
	}
	return r.Players[index]
}

// AddPlayer appends p to the turn order. The roster is left untouched
// when the room is at capacity.
func (r *Room) AddPlayer(p *Player) error {
	if len(r.Players) >= r.MaxPlayers {
		return ErrRoomFull
	}
	r.Players = append(r.Players, p)
	return nil
}

// RemovePlayer drops the player and hands the host role to the first
// remaining player if needed. It returns the roster index the player held.
func (r *Room) RemovePlayer(id string) (int, *Player, bool) {
	i := r.IndexOf(id)
	if i < 0 {
		return -1, nil, false
	}
	removed := r.Players[i]
	r.Players = slices.Delete(r.Players, i, i+1)

	if r.HostID == id && len(r.Players) > 0 {
		r.HostID = r.Players[0].ID
	}
	return i, removed, true
}

func (r *Room) GetPlayerCount() int {
	return len(r.Players)
}

func (r *Room) CanStartGame() bool {
	return len(r.Players) >= MinPlayersToStart
}

// IsJoinable reports whether a new player may enter right now.
func (r *Room) IsJoinable() bool {
	return !r.destroyed && !r.IsStarted && len(r.Players) < r.MaxPlayers
}

func (r *Room) IsDrawer(id string) bool {
	return r.Game != nil && r.Game.IsDrawer(id)
}

func (r *Room) ResetPlayerGuessState() {
	for _, p := range r.Players {
		p.ResetRoundState()
	}
}

// HasEveryoneGuessed is true when every non-drawer has guessed the word.
func (r *Room) HasEveryoneGuessed() bool {
	for _, p := range r.Players {
		if !r.IsDrawer(p.ID) && !p.HasGuessed {
			return false
		}
	}
	return true
}

// AnyoneGuessed is true when at least one non-drawer guessed the word.
func (r *Room) AnyoneGuessed() bool {
	for _, p := range r.Players {
		if !r.IsDrawer(p.ID) && p.HasGuessed {
			return true
		}
	}
	return false
}

func (r *Room) Scores() map[string]int {
	scores := make(map[string]int, len(r.Players))
	for _, p := range r.Players {
		scores[p.ID] = p.Score
	}
	return scores
}

func (r *Room) Snapshot() RoomSnapshot {
	players := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		players = append(players, p.ToPublicPlayer())
	}
	return RoomSnapshot{
		Code:       r.Code,
		HostID:     r.HostID,
		GameMode:   r.GameMode,
		Players:    players,
		MaxPlayers: r.MaxPlayers,
		IsStarted:  r.IsStarted,
	}
}

func (r *Room) AppendMessage(msg ChatMessage) {
	r.Messages = append(r.Messages, msg)
}

func (r *Room) History() []ChatMessage {
	return slices.Clone(r.Messages)
}

// Destroy marks the room dead and drops its state. Goroutines that were
// waiting on r.Mu must check Destroyed after acquiring it.
func (r *Room) Destroy() {
	r.destroyed = true
	r.Players = nil
	r.Game = nil
	r.Messages = nil
}

func (r *Room) Destroyed() bool {
	return r.destroyed
}
