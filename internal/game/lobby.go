package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal"
	"github.com/jeenvibes-dev/scribbleguess/internal/utils"
)

// =============================================================================
// GAME FLOW - LOBBY & INITIALIZATION
// =============================================================================

// joinRandomAttempts bounds how often JoinRandomRoom retries when the room
// it picked fills up or starts before the join lands.
const joinRandomAttempts = 3

// Options holds the game timing. Zero fields fall back to the defaults.
type Options struct {
	TotalRounds        int
	RoundDuration      time.Duration
	BlitzRoundDuration time.Duration
	RoundEndDelay      time.Duration
	TickInterval       time.Duration
	ModifierInterval   time.Duration
}

func DefaultOptions() Options {
	return Options{
		TotalRounds:        internal.TotalRounds,
		RoundDuration:      internal.RoundDuration,
		BlitzRoundDuration: internal.BlitzRoundDuration,
		RoundEndDelay:      internal.RoundEndDelay,
		TickInterval:       internal.TickInterval,
		ModifierInterval:   internal.ModifierInterval,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TotalRounds <= 0 {
		o.TotalRounds = d.TotalRounds
	}
	if o.RoundDuration <= 0 {
		o.RoundDuration = d.RoundDuration
	}
	if o.BlitzRoundDuration <= 0 {
		o.BlitzRoundDuration = d.BlitzRoundDuration
	}
	if o.RoundEndDelay <= 0 {
		o.RoundEndDelay = d.RoundEndDelay
	}
	if o.TickInterval <= 0 {
		o.TickInterval = d.TickInterval
	}
	if o.ModifierInterval <= 0 {
		o.ModifierInterval = d.ModifierInterval
	}
	return o
}

// Engine is the per-room state machine. Every mutation of a room happens
// under that room's lock, whether it comes from a client message or a
// timer.
type Engine struct {
	registry  *Registry
	scheduler *Scheduler
	words     *WordBank
	out       Broadcaster
	opts      Options
	logger    *zap.Logger

	now  func() time.Time
	intn func(n int) int
}

func NewEngine(registry *Registry, scheduler *Scheduler, words *WordBank, out Broadcaster, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry:  registry,
		scheduler: scheduler,
		words:     words,
		out:       out,
		opts:      opts.withDefaults(),
		logger:    logger,
		now:       time.Now,
		intn:      rand.IntN,
	}
}

// SetBroadcaster wires the connection layer in after construction, since
// the hub itself needs the engine.
func (e *Engine) SetBroadcaster(out Broadcaster) {
	e.out = out
}

func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) Scheduler() *Scheduler { return e.scheduler }

// Shutdown stops every room timer. Rooms stay in memory until their
// players disconnect.
func (e *Engine) Shutdown() {
	e.scheduler.Stop()
}

// CreateRoom makes a new room with the sender as host.
func (e *Engine) CreateRoom(c Client, req *internal.CreateRoomRequest) error {
	mode := req.GameMode
	if mode == "" {
		mode = internal.ModeClassic
	}
	if !mode.Valid() {
		return fmt.Errorf("%w: %q", internal.ErrInvalidGameMode, mode)
	}

	player := internal.NewPlayer(utils.NewID(), req.PlayerName, req.Avatar)
	e.registry.CreateRoom(player, mode, func(room *internal.Room) {
		c.Attach(player.ID, room.Code)
		c.Send(internal.NewRoomCreated(room.Snapshot(), player.ID, room.History()))
	})
	return nil
}

// JoinRoom adds the sender to a room that has not started yet.
func (e *Engine) JoinRoom(c Client, req *internal.JoinRoomRequest) error {
	return e.join(c, req.RoomCode, req.PlayerName, req.Avatar)
}

// JoinRandomRoom joins any open room, creating a Classic room when there
// is none.
func (e *Engine) JoinRandomRoom(c Client, req *internal.JoinRandomRoomRequest) error {
	for range joinRandomAttempts {
		code, ok := e.registry.GetJoinableRoom()
		if !ok {
			break
		}

		err := e.join(c, code, req.PlayerName, req.Avatar)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, internal.ErrRoomFull),
			errors.Is(err, internal.ErrGameAlreadyStarted),
			errors.Is(err, internal.ErrRoomNotFound):
			// Lost a race for that room, pick again.
			continue
		default:
			return err
		}
	}

	e.logger.Info("[JoinRandomRoom] no joinable room, creating one")
	return e.CreateRoom(c, &internal.CreateRoomRequest{
		PlayerName: req.PlayerName,
		Avatar:     req.Avatar,
		GameMode:   internal.ModeClassic,
	})
}

func (e *Engine) join(c Client, code, name, avatar string) error {
	player := internal.NewPlayer(utils.NewID(), name, avatar)

	return e.registry.Do(code, func(room *internal.Room) error {
		// 1. Late joins are refused
		if room.IsStarted {
			return internal.ErrGameAlreadyStarted
		}

		// 2. Capacity check happens inside AddPlayer
		if err := e.registry.addPlayerLocked(room, player); err != nil {
			return err
		}
		c.Attach(player.ID, room.Code)

		// 3. Announce, then hand the joiner the full picture
		joined := e.systemMessage(room, fmt.Sprintf("%s joined the game!", player.Name))
		snapshot := room.Snapshot()
		c.Send(internal.NewRoomJoined(snapshot, player.ID, nil, room.History()))

		e.out.Broadcast(room.Code, internal.NewRoomUpdated(snapshot), player.ID)
		e.out.Broadcast(room.Code, internal.NewChatMessage(joined), player.ID)
		return nil
	})
}

// RejoinRoom reattaches a new connection to an existing player and replays
// the room, the running game and the chat log.
func (e *Engine) RejoinRoom(c Client, req *internal.RejoinRoomRequest) error {
	return e.registry.Do(req.RoomCode, func(room *internal.Room) error {
		player := room.PlayerByID(req.PlayerID)
		if player == nil {
			return internal.ErrPlayerNotFound
		}
		c.Attach(player.ID, room.Code)

		var state *internal.GameState
		if room.Game != nil {
			view := room.Game.View(room.IsDrawer(player.ID))
			state = &view
		}
		c.Send(internal.NewRoomJoined(room.Snapshot(), player.ID, state, room.History()))

		e.logger.Info("[RejoinRoom] player reattached",
			zap.String("room", room.Code), zap.String("player", player.ID))
		return nil
	})
}

// StartGame begins round 1. Host only, at least two players.
func (e *Engine) StartGame(playerID string, req *internal.StartGameRequest) error {
	return e.registry.Do(req.RoomCode, func(room *internal.Room) error {
		if room.PlayerByID(playerID) == nil {
			return internal.ErrPlayerNotFound
		}
		if room.HostID != playerID {
			return internal.ErrNotHost
		}
		if room.IsStarted {
			return internal.ErrGameAlreadyStarted
		}
		if !room.CanStartGame() {
			return internal.ErrInsufficientPlayers
		}

		// Initialize state
		room.IsStarted = true
		room.Phase = internal.PhaseRoundActive
		for _, p := range room.Players {
			p.Score = 0
			p.ResetRoundState()
		}
		room.Game = e.newRound(room, 1, 0)

		e.logger.Info("[StartGame] game started",
			zap.String("room", room.Code),
			zap.String("mode", string(room.GameMode)),
			zap.Int("players", room.GetPlayerCount()),
			zap.Strings("drawers", room.Game.DrawerIDs))

		e.out.Broadcast(room.Code, internal.NewRoomUpdated(room.Snapshot()))
		e.broadcastGameState(room, internal.NewGameStarted)
		e.announce(room, fmt.Sprintf("Round %d started!", room.Game.CurrentRound))
		e.armRound(room)
		return nil
	})
}

// SetGameMode changes the mode of a room still in the lobby.
func (e *Engine) SetGameMode(playerID string, req *internal.SetGameModeRequest) error {
	if !req.GameMode.Valid() {
		return fmt.Errorf("%w: %q", internal.ErrInvalidGameMode, req.GameMode)
	}

	return e.registry.Do(req.RoomCode, func(room *internal.Room) error {
		if room.PlayerByID(playerID) == nil {
			return internal.ErrPlayerNotFound
		}
		if room.HostID != playerID {
			return internal.ErrNotHost
		}
		if room.IsStarted {
			return internal.ErrGameAlreadyStarted
		}
		if room.GetPlayerCount() > req.GameMode.MaxPlayers() {
			return internal.ErrRoomFull
		}

		room.GameMode = req.GameMode
		room.MaxPlayers = req.GameMode.MaxPlayers()
		e.out.Broadcast(room.Code, internal.NewRoomUpdated(room.Snapshot()))
		return nil
	})
}

// UpdateAvatar swaps the sender's avatar descriptor.
func (e *Engine) UpdateAvatar(playerID string, req *internal.UpdateAvatarRequest) error {
	return e.registry.Do(req.RoomCode, func(room *internal.Room) error {
		player := room.PlayerByID(playerID)
		if player == nil {
			return internal.ErrPlayerNotFound
		}
		player.Avatar = req.Avatar
		e.out.Broadcast(room.Code, internal.NewRoomUpdated(room.Snapshot()))
		return nil
	})
}

// Disconnect removes a player whose connection went away. It is not an
// error for the player to be unknown.
func (e *Engine) Disconnect(playerID string) {
	code, ok := e.registry.GetRoomByPlayer(playerID)
	if !ok {
		return
	}

	err := e.registry.Do(code, func(room *internal.Room) error {
		wasDrawer := room.IsDrawer(playerID)
		idx, player, ok := e.registry.removePlayerLocked(room, playerID)
		if !ok {
			return nil
		}

		// 1. Last one out tears everything down
		if room.Destroyed() {
			e.scheduler.CancelAll(code)
			e.logger.Info("[Disconnect] room empty, destroyed", zap.String("room", code))
			return nil
		}

		// 2. Keep the rotation pointing at the same next player
		if g := room.Game; g != nil {
			if idx < g.NextDrawerIndex {
				g.NextDrawerIndex--
			}
			if g.NextDrawerIndex >= room.GetPlayerCount() {
				g.NextDrawerIndex = 0
			}
		}

		e.out.Broadcast(code, internal.NewRoomUpdated(room.Snapshot()))
		e.announce(room, "A player left the game")
		e.logger.Info("[Disconnect] player left",
			zap.String("room", code),
			zap.String("player", player.ID),
			zap.Bool("was_drawer", wasDrawer))

		// 3. A running game may have to end the round or the game
		if !room.IsStarted || room.Phase == internal.PhaseGameEnd {
			return nil
		}
		switch {
		case !room.CanStartGame():
			e.endGameLocked(room)
		case room.Phase == internal.PhaseRoundActive && (wasDrawer || room.HasEveryoneGuessed()):
			e.endRoundLocked(room)
		}
		return nil
	})
	if err != nil && !errors.Is(err, internal.ErrRoomNotFound) {
		e.logger.Warn("[Disconnect] failed", zap.String("room", code), zap.Error(err))
	}
}

// systemMessage appends a system line to the room log and returns it.
// Caller holds room.Mu.
func (e *Engine) systemMessage(room *internal.Room, content string) internal.ChatMessage {
	msg := internal.ChatMessage{
		ID:         utils.NewID(),
		PlayerID:   internal.SystemPlayerID,
		PlayerName: internal.SystemPlayerName,
		Content:    content,
		IsSystem:   true,
		Timestamp:  e.now().UnixMilli(),
	}
	room.AppendMessage(msg)
	return msg
}

// announce records a system line and sends it to the whole room.
func (e *Engine) announce(room *internal.Room, content string) {
	msg := e.systemMessage(room, content)
	e.out.Broadcast(room.Code, internal.NewChatMessage(msg))
}
