package game

import (
	"sync"

	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal"
	"github.com/jeenvibes-dev/scribbleguess/internal/utils"
)

// =============================================================================
// ROOM MANAGEMENT
// =============================================================================

// Registry owns every live room and the player -> room index.
//
// Lock order is room.Mu before r.mu. r.mu is never held while a room lock
// is being acquired.
type Registry struct {
	mu          sync.RWMutex
	rooms       map[string]*internal.Room
	playerRooms map[string]string

	// intn drives room code generation; replaced in tests.
	intn   func(n int) int
	logger *zap.Logger
}

func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		rooms:       make(map[string]*internal.Room),
		playerRooms: make(map[string]string),
		logger:      logger,
	}
}

// CreateRoom registers a new room with host as its only player. init runs
// under the new room's lock before any other goroutine can reach the room.
func (r *Registry) CreateRoom(host *internal.Player, mode internal.GameMode, init func(room *internal.Room)) *internal.Room {
	room := internal.NewRoom("", host, mode)
	room.Mu.Lock()
	defer room.Mu.Unlock()

	r.mu.Lock()
	room.Code = utils.GenerateRoomCode(internal.RoomCodeLength, r.intn, func(code string) bool {
		_, taken := r.rooms[code]
		return taken
	})
	r.rooms[room.Code] = room
	r.playerRooms[host.ID] = room.Code
	total := len(r.rooms)
	r.mu.Unlock()

	r.logger.Info("[CreateRoom] room created",
		zap.String("room", room.Code),
		zap.String("mode", string(mode)),
		zap.String("host", host.ID),
		zap.Int("live_rooms", total))

	if init != nil {
		init(room)
	}
	return room
}

// Get returns the live room for code.
func (r *Registry) Get(code string) (*internal.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	return room, ok
}

// Do runs fn with the room locked. It fails with ErrRoomNotFound if the
// room is unknown or was destroyed while we waited for its lock.
func (r *Registry) Do(code string, fn func(room *internal.Room) error) error {
	room, ok := r.Get(code)
	if !ok {
		return internal.ErrRoomNotFound
	}

	room.Mu.Lock()
	defer room.Mu.Unlock()
	if room.Destroyed() {
		return internal.ErrRoomNotFound
	}
	return fn(room)
}

// Snapshot returns a copy of the room's public state.
func (r *Registry) Snapshot(code string) (internal.RoomSnapshot, error) {
	var snap internal.RoomSnapshot
	err := r.Do(code, func(room *internal.Room) error {
		snap = room.Snapshot()
		return nil
	})
	return snap, err
}

// GetRoomByPlayer is the reverse lookup used on disconnect.
func (r *Registry) GetRoomByPlayer(playerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.playerRooms[playerID]
	return code, ok
}

// AddPlayer appends player to the room's roster.
func (r *Registry) AddPlayer(code string, player *internal.Player) error {
	return r.Do(code, func(room *internal.Room) error {
		return r.addPlayerLocked(room, player)
	})
}

// RemovePlayer drops the player from the room. empty reports that the room
// was destroyed because nobody is left.
func (r *Registry) RemovePlayer(code, playerID string) (removed *internal.Player, empty bool, err error) {
	err = r.Do(code, func(room *internal.Room) error {
		_, p, ok := r.removePlayerLocked(room, playerID)
		if !ok {
			return internal.ErrPlayerNotFound
		}
		removed, empty = p, room.Destroyed()
		return nil
	})
	return removed, empty, err
}

// UpdateRoom applies a partial update to the room under its lock.
func (r *Registry) UpdateRoom(code string, fn func(room *internal.Room)) error {
	return r.Do(code, func(room *internal.Room) error {
		fn(room)
		return nil
	})
}

// UpdateGameState applies a partial update to the running game.
func (r *Registry) UpdateGameState(code string, fn func(state *internal.GameState)) error {
	return r.Do(code, func(room *internal.Room) error {
		if room.Game == nil {
			return internal.ErrGameNotStarted
		}
		fn(room.Game)
		return nil
	})
}

// GetJoinableRoom returns the code of a room that is not started and not
// full.
func (r *Registry) GetJoinableRoom() (string, bool) {
	// 1. Snapshot the room list so no room lock is taken under r.mu
	r.mu.RLock()
	candidates := make([]*internal.Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		candidates = append(candidates, room)
	}
	r.mu.RUnlock()

	// 2. Check each room under its own lock
	for _, room := range candidates {
		room.Mu.Lock()
		joinable := room.IsJoinable()
		code := room.Code
		room.Mu.Unlock()

		if joinable {
			r.logger.Debug("[GetJoinableRoom] found joinable room", zap.String("room", code))
			return code, true
		}
	}

	r.logger.Debug("[GetJoinableRoom] no joinable room found")
	return "", false
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Caller holds room.Mu.
func (r *Registry) addPlayerLocked(room *internal.Room, player *internal.Player) error {
	if err := room.AddPlayer(player); err != nil {
		return err
	}

	r.mu.Lock()
	r.playerRooms[player.ID] = room.Code
	r.mu.Unlock()

	r.logger.Info("[AddPlayer] player joined",
		zap.String("room", room.Code),
		zap.String("player", player.ID),
		zap.Int("players", room.GetPlayerCount()))
	return nil
}

// removePlayerLocked removes the player and destroys the room when it
// empties. It returns the roster index the player held. Caller holds
// room.Mu.
func (r *Registry) removePlayerLocked(room *internal.Room, playerID string) (int, *internal.Player, bool) {
	idx, removed, ok := room.RemovePlayer(playerID)
	if !ok {
		return -1, nil, false
	}

	empty := room.GetPlayerCount() == 0
	code := room.Code
	if empty {
		room.Destroy()
	}

	r.mu.Lock()
	if r.playerRooms[playerID] == code {
		delete(r.playerRooms, playerID)
	}
	if empty && r.rooms[code] == room {
		delete(r.rooms, code)
	}
	r.mu.Unlock()

	r.logger.Info("[RemovePlayer] player removed",
		zap.String("room", code),
		zap.String("player", playerID),
		zap.Int("players_remaining", room.GetPlayerCount()),
		zap.Bool("room_destroyed", empty))
	return idx, removed, true
}
