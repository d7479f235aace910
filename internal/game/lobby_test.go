package game

import (
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/jeenvibes-dev/scribbleguess/internal"
)

// =============================================================================
// TEST DOUBLES
// =============================================================================

type sent struct {
	room    string
	to      string // empty for a broadcast
	exclude []string
	msg     any
}

// recorder is a Broadcaster that keeps everything it was asked to send.
type recorder struct {
	mu   sync.Mutex
	msgs []sent
}

func (r *recorder) Broadcast(roomCode string, msg any, excludePlayerIDs ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{room: roomCode, exclude: slices.Clone(excludePlayerIDs), msg: msg})
}

func (r *recorder) SendTo(roomCode, playerID string, msg any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, sent{room: roomCode, to: playerID, msg: msg})
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = nil
}

func (r *recorder) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.msgs)
}

// broadcastsOf returns every broadcast message of type T.
func broadcastsOf[T any](r *recorder) []T {
	var out []T
	for _, s := range r.all() {
		if m, ok := s.msg.(T); ok && s.to == "" {
			out = append(out, m)
		}
	}
	return out
}

// sentTo returns every direct message of type T addressed to playerID.
func sentTo[T any](r *recorder, playerID string) []T {
	var out []T
	for _, s := range r.all() {
		if m, ok := s.msg.(T); ok && s.to == playerID {
			out = append(out, m)
		}
	}
	return out
}

type fakeClient struct {
	mu       sync.Mutex
	playerID string
	roomCode string
	inbox    []any
}

func (c *fakeClient) Attach(playerID, roomCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID, c.roomCode = playerID, roomCode
}

func (c *fakeClient) Send(msg any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inbox = append(c.inbox, msg)
}

func (c *fakeClient) id() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playerID
}

func (c *fakeClient) last() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inbox) == 0 {
		return nil
	}
	return c.inbox[len(c.inbox)-1]
}

// =============================================================================
// HELPERS
// =============================================================================

// testOptions never fires a timer unless the test shortens it.
func testOptions() Options {
	return Options{
		TotalRounds:        10,
		RoundDuration:      60 * time.Second,
		BlitzRoundDuration: 15 * time.Second,
		RoundEndDelay:      time.Hour,
		TickInterval:       time.Hour,
		ModifierInterval:   time.Hour,
	}
}

func newTestEngine(t *testing.T, opts Options) (*Engine, *recorder) {
	t.Helper()
	logger := zaptest.NewLogger(t)

	words := NewWordBank()
	require.NoError(t, words.Load([]internal.Word{{Word: "ocean", Count: 1}}))

	out := &recorder{}
	e := NewEngine(NewRegistry(logger), NewScheduler(logger), words, out, opts, logger)
	t.Cleanup(e.Shutdown)
	return e, out
}

func createRoom(t *testing.T, e *Engine, name string, mode internal.GameMode) (*fakeClient, string) {
	t.Helper()
	c := &fakeClient{}
	require.NoError(t, e.CreateRoom(c, &internal.CreateRoomRequest{PlayerName: name, Avatar: "cat", GameMode: mode}))
	require.NotEmpty(t, c.roomCode)
	return c, c.roomCode
}

func joinRoom(t *testing.T, e *Engine, code, name string) *fakeClient {
	t.Helper()
	c := &fakeClient{}
	require.NoError(t, e.JoinRoom(c, &internal.JoinRoomRequest{RoomCode: code, PlayerName: name, Avatar: "dog"}))
	return c
}

// startedRoom creates a room with the named players and starts the game.
// Clients come back in join order; the first is the host.
func startedRoom(t *testing.T, e *Engine, mode internal.GameMode, names ...string) ([]*fakeClient, string) {
	t.Helper()
	host, code := createRoom(t, e, names[0], mode)
	clients := []*fakeClient{host}
	for _, name := range names[1:] {
		clients = append(clients, joinRoom(t, e, code, name))
	}
	require.NoError(t, e.StartGame(host.id(), &internal.StartGameRequest{RoomCode: code}))
	return clients, code
}

// inspect runs fn with the room locked.
func inspect(t *testing.T, e *Engine, code string, fn func(room *internal.Room)) {
	t.Helper()
	require.NoError(t, e.registry.Do(code, func(room *internal.Room) error {
		fn(room)
		return nil
	}))
}

func phaseOf(t *testing.T, e *Engine, code string) internal.GamePhase {
	var phase internal.GamePhase
	inspect(t, e, code, func(room *internal.Room) { phase = room.Phase })
	return phase
}

func drawersOf(t *testing.T, e *Engine, code string) []string {
	var drawers []string
	inspect(t, e, code, func(room *internal.Room) { drawers = slices.Clone(room.Game.DrawerIDs) })
	return drawers
}

func scoreOf(t *testing.T, e *Engine, code, playerID string) int {
	score := -1
	inspect(t, e, code, func(room *internal.Room) {
		if p := room.PlayerByID(playerID); p != nil {
			score = p.Score
		}
	})
	return score
}

// advance closes the current round and opens the next one without waiting
// for timers.
func advance(t *testing.T, e *Engine, code string) {
	inspect(t, e, code, func(room *internal.Room) {
		e.endRoundLocked(room)
		e.nextRoundLocked(room)
	})
}

func chat(t *testing.T, e *Engine, c *fakeClient, code, text string) {
	t.Helper()
	require.NoError(t, e.Chat(c.id(), &internal.ChatRequest{RoomCode: code, Message: text}))
}

// =============================================================================
// LOBBY
// =============================================================================

func TestCreateRoom(t *testing.T) {
	e, _ := newTestEngine(t, testOptions())
	c, code := createRoom(t, e, "Ann", internal.ModeBlitz)

	msg, ok := c.last().(internal.RoomJoinedMessage)
	require.True(t, ok)
	assert.Equal(t, internal.TypeRoomCreated, msg.Type)
	assert.Equal(t, c.id(), msg.PlayerID)
	assert.Equal(t, code, msg.Room.Code)
	assert.Equal(t, c.id(), msg.Room.HostID)
	assert.Equal(t, internal.ModeBlitz, msg.Room.GameMode)
	assert.Nil(t, msg.GameState)
}

func TestJoinRoom(t *testing.T) {
	e, out := newTestEngine(t, testOptions())
	host, code := createRoom(t, e, "Ann", internal.ModeClassic)
	bob := joinRoom(t, e, code, "Bob")

	joined, ok := bob.last().(internal.RoomJoinedMessage)
	require.True(t, ok)
	assert.Equal(t, internal.TypeRoomJoined, joined.Type)
	assert.Equal(t, bob.id(), joined.PlayerID)
	require.Len(t, joined.Room.Players, 2)
	assert.Equal(t, host.id(), joined.Room.Players[0].ID)
	require.Len(t, joined.Messages, 1)
	assert.Equal(t, "Bob joined the game!", joined.Messages[0].Content)
	assert.True(t, joined.Messages[0].IsSystem)

	for _, s := range out.all() {
		assert.Contains(t, s.exclude, bob.id(), "joiner gets the full picture directly")
	}
	require.Len(t, broadcastsOf[internal.RoomUpdatedMessage](out), 1)
	require.Len(t, broadcastsOf[internal.ChatMessageMessage](out), 1)
}

func TestJoinRoom_Errors(t *testing.T) {
	e, _ := newTestEngine(t, testOptions())

	err := e.JoinRoom(&fakeClient{}, &internal.JoinRoomRequest{RoomCode: "NOPE00", PlayerName: "Bob", Avatar: "dog"})
	assert.ErrorIs(t, err, internal.ErrRoomNotFound)

	clients, code := startedRoom(t, e, internal.ModeClassic, "Ann", "Bob")
	late := &fakeClient{}
	err = e.JoinRoom(late, &internal.JoinRoomRequest{RoomCode: code, PlayerName: "Cid", Avatar: "fox"})
	assert.ErrorIs(t, err, internal.ErrGameAlreadyStarted)
	assert.Empty(t, late.id())

	inspect(t, e, code, func(room *internal.Room) {
		assert.Len(t, room.Players, len(clients))
	})
}

func TestJoinRandomRoom(t *testing.T) {
	e, _ := newTestEngine(t, testOptions())

	first := &fakeClient{}
	require.NoError(t, e.JoinRandomRoom(first, &internal.JoinRandomRoomRequest{PlayerName: "Ann", Avatar: "cat"}))
	created, ok := first.last().(internal.RoomJoinedMessage)
	require.True(t, ok)
	assert.Equal(t, internal.TypeRoomCreated, created.Type)
	assert.Equal(t, internal.ModeClassic, created.Room.GameMode)

	second := &fakeClient{}
	require.NoError(t, e.JoinRandomRoom(second, &internal.JoinRandomRoomRequest{PlayerName: "Bob", Avatar: "dog"}))
	joined, ok := second.last().(internal.RoomJoinedMessage)
	require.True(t, ok)
	assert.Equal(t, internal.TypeRoomJoined, joined.Type)
	assert.Equal(t, created.Room.Code, joined.Room.Code)
	assert.Equal(t, 1, e.registry.Count())
}

func TestRejoinRoom(t *testing.T) {
	e, _ := newTestEngine(t, testOptions())
	clients, code := startedRoom(t, e, internal.ModeClassic, "Ann", "Bob")
	drawer, guesser := clients[0], clients[1]

	fresh := &fakeClient{}
	require.NoError(t, e.RejoinRoom(fresh, &internal.RejoinRoomRequest{RoomCode: code, PlayerID: guesser.id()}))
	msg, ok := fresh.last().(internal.RoomJoinedMessage)
	require.True(t, ok)
	assert.Equal(t, guesser.id(), fresh.id())
	require.NotNil(t, msg.GameState)
	assert.Empty(t, msg.GameState.CurrentWord)
	assert.Equal(t, "O _ _ _ N", msg.GameState.WordDisplay)
	assert.NotEmpty(t, msg.Messages, "chat log is replayed")

	again := &fakeClient{}
	require.NoError(t, e.RejoinRoom(again, &internal.RejoinRoomRequest{RoomCode: code, PlayerID: drawer.id()}))
	msg = again.last().(internal.RoomJoinedMessage)
	assert.Equal(t, "OCEAN", msg.GameState.CurrentWord)

	err := e.RejoinRoom(&fakeClient{}, &internal.RejoinRoomRequest{RoomCode: code, PlayerID: "ghost"})
	assert.ErrorIs(t, err, internal.ErrPlayerNotFound)
}

func TestStartGame_Errors(t *testing.T) {
	e, _ := newTestEngine(t, testOptions())
	host, code := createRoom(t, e, "Ann", internal.ModeClassic)

	err := e.StartGame(host.id(), &internal.StartGameRequest{RoomCode: code})
	assert.ErrorIs(t, err, internal.ErrInsufficientPlayers)

	bob := joinRoom(t, e, code, "Bob")
	err = e.StartGame(bob.id(), &internal.StartGameRequest{RoomCode: code})
	assert.ErrorIs(t, err, internal.ErrNotHost)

	err = e.StartGame("ghost", &internal.StartGameRequest{RoomCode: code})
	assert.ErrorIs(t, err, internal.ErrPlayerNotFound)

	err = e.StartGame(host.id(), &internal.StartGameRequest{RoomCode: "NOPE00"})
	assert.ErrorIs(t, err, internal.ErrRoomNotFound)

	require.NoError(t, e.StartGame(host.id(), &internal.StartGameRequest{RoomCode: code}))
	err = e.StartGame(host.id(), &internal.StartGameRequest{RoomCode: code})
	assert.ErrorIs(t, err, internal.ErrGameAlreadyStarted)
}

func TestStartGame_Classic(t *testing.T) {
	e, out := newTestEngine(t, testOptions())
	clients, code := startedRoom(t, e, internal.ModeClassic, "Ann", "Bob")
	ann, bob := clients[0], clients[1]

	assert.Equal(t, []string{ann.id()}, drawersOf(t, e, code))
	assert.Equal(t, internal.PhaseRoundActive, phaseOf(t, e, code))
	assert.True(t, e.scheduler.Active(code, TimerRound))
	assert.False(t, e.scheduler.Active(code, TimerModifier))

	inspect(t, e, code, func(room *internal.Room) {
		g := room.Game
		assert.Equal(t, 1, g.CurrentRound)
		assert.Equal(t, 10, g.TotalRounds)
		assert.Equal(t, 60, g.TimeRemaining)
		assert.Equal(t, 60, g.RoundDuration)
		assert.True(t, g.IsRoundActive)
		assert.Equal(t, "OCEAN", g.CurrentWord)
		assert.Equal(t, "O _ _ _ N", g.WordDisplay)
		assert.True(t, room.IsStarted)
	})

	// Guessers get the mask, the drawer gets the word.
	var masked []internal.GameStateMessage
	for _, s := range out.all() {
		if m, ok := s.msg.(internal.GameStateMessage); ok && s.to == "" && m.Type == internal.TypeGameStarted {
			assert.Contains(t, s.exclude, ann.id())
			masked = append(masked, m)
		}
	}
	require.Len(t, masked, 1)
	assert.Empty(t, masked[0].GameState.CurrentWord)
	assert.NotContains(t, masked[0].GameState.WordDisplay, "OCEAN")

	direct := sentTo[internal.GameStateMessage](out, ann.id())
	require.Len(t, direct, 1)
	assert.Equal(t, "OCEAN", direct[0].GameState.CurrentWord)
	assert.Empty(t, sentTo[internal.GameStateMessage](out, bob.id()))

	announcements := broadcastsOf[internal.ChatMessageMessage](out)
	require.NotEmpty(t, announcements)
	assert.Equal(t, "Round 1 started!", announcements[len(announcements)-1].Message.Content)
}

func TestStartGame_Blitz(t *testing.T) {
	e, _ := newTestEngine(t, testOptions())
	_, code := startedRoom(t, e, internal.ModeBlitz, "Ann", "Bob")

	inspect(t, e, code, func(room *internal.Room) {
		assert.Equal(t, 15, room.Game.RoundDuration)
		assert.Equal(t, 15, room.Game.TimeRemaining)
	})
}

func TestSetGameMode(t *testing.T) {
	e, out := newTestEngine(t, testOptions())
	host, code := createRoom(t, e, "Ann", internal.ModeClassic)
	bob := joinRoom(t, e, code, "Bob")
	out.reset()

	err := e.SetGameMode(bob.id(), &internal.SetGameModeRequest{RoomCode: code, GameMode: internal.ModeMega})
	assert.ErrorIs(t, err, internal.ErrNotHost)

	err = e.SetGameMode(host.id(), &internal.SetGameModeRequest{RoomCode: code, GameMode: "turbo"})
	assert.ErrorIs(t, err, internal.ErrInvalidGameMode)

	require.NoError(t, e.SetGameMode(host.id(), &internal.SetGameModeRequest{RoomCode: code, GameMode: internal.ModeMega}))
	updates := broadcastsOf[internal.RoomUpdatedMessage](out)
	require.Len(t, updates, 1)
	assert.Equal(t, internal.ModeMega, updates[0].Room.GameMode)
	assert.Equal(t, internal.MaxPlayersMegaRoom, updates[0].Room.MaxPlayers)

	// Thirteen players do not fit a Classic room.
	for i := range 11 {
		require.NoError(t, e.registry.AddPlayer(code, internal.NewPlayer(string(rune('c'+i)), "P", "cat")))
	}
	err = e.SetGameMode(host.id(), &internal.SetGameModeRequest{RoomCode: code, GameMode: internal.ModeClassic})
	assert.ErrorIs(t, err, internal.ErrRoomFull)

	require.NoError(t, e.StartGame(host.id(), &internal.StartGameRequest{RoomCode: code}))
	err = e.SetGameMode(host.id(), &internal.SetGameModeRequest{RoomCode: code, GameMode: internal.ModeBlitz})
	assert.ErrorIs(t, err, internal.ErrGameAlreadyStarted)
}

func TestUpdateAvatar(t *testing.T) {
	e, out := newTestEngine(t, testOptions())
	host, code := createRoom(t, e, "Ann", internal.ModeClassic)

	require.NoError(t, e.UpdateAvatar(host.id(), &internal.UpdateAvatarRequest{RoomCode: code, Avatar: "owl"}))
	updates := broadcastsOf[internal.RoomUpdatedMessage](out)
	require.Len(t, updates, 1)
	assert.Equal(t, "owl", updates[0].Room.Players[0].Avatar)

	err := e.UpdateAvatar("ghost", &internal.UpdateAvatarRequest{RoomCode: code, Avatar: "owl"})
	assert.ErrorIs(t, err, internal.ErrPlayerNotFound)
}

// =============================================================================
// DISCONNECTS
// =============================================================================

func TestDisconnect_InLobby(t *testing.T) {
	e, out := newTestEngine(t, testOptions())
	host, code := createRoom(t, e, "Ann", internal.ModeClassic)
	bob := joinRoom(t, e, code, "Bob")
	out.reset()

	e.Disconnect(host.id())

	inspect(t, e, code, func(room *internal.Room) {
		assert.Equal(t, bob.id(), room.HostID)
		assert.Len(t, room.Players, 1)
	})
	chats := broadcastsOf[internal.ChatMessageMessage](out)
	require.Len(t, chats, 1)
	assert.Equal(t, "A player left the game", chats[0].Message.Content)

	e.Disconnect(bob.id())
	assert.Zero(t, e.registry.Count())

	// Unknown players are ignored.
	e.Disconnect("ghost")
}

func TestDisconnect_LastPlayerMidRound(t *testing.T) {
	e, _ := newTestEngine(t, testOptions())
	clients, code := startedRoom(t, e, internal.ModeClassic, "Ann", "Bob")
	require.NotZero(t, e.scheduler.Count(code))

	e.Disconnect(clients[1].id())
	assert.Equal(t, internal.PhaseGameEnd, phaseOf(t, e, code), "one player cannot keep playing")

	e.Disconnect(clients[0].id())
	assert.Zero(t, e.scheduler.Count(code))
	assert.Zero(t, e.registry.Count())

	err := e.RejoinRoom(&fakeClient{}, &internal.RejoinRoomRequest{RoomCode: code, PlayerID: clients[0].id()})
	assert.ErrorIs(t, err, internal.ErrRoomNotFound)
}

func TestDisconnect_EarlyGameEnd(t *testing.T) {
	e, out := newTestEngine(t, testOptions())
	clients, code := startedRoom(t, e, internal.ModeClassic, "Ann", "Bob")

	e.Disconnect(clients[0].id())

	ends := broadcastsOf[internal.GameEndMessage](out)
	require.Len(t, ends, 1)
	assert.Equal(t, clients[1].id(), ends[0].WinnerID)
	assert.Zero(t, e.scheduler.Count(code))
}

func TestDisconnect_DrawerEndsRound(t *testing.T) {
	e, out := newTestEngine(t, testOptions())
	clients, code := startedRoom(t, e, internal.ModeClassic, "Ann", "Bob", "Cid")
	ann, bob := clients[0], clients[1]

	e.Disconnect(ann.id())

	assert.Equal(t, internal.PhaseRoundEnd, phaseOf(t, e, code))
	ends := broadcastsOf[internal.RoundEndMessage](out)
	require.Len(t, ends, 1)
	assert.Equal(t, "OCEAN", ends[0].CorrectWord)
	assert.True(t, e.scheduler.Active(code, TimerRoundEnd))
	assert.False(t, e.scheduler.Active(code, TimerRound))

	inspect(t, e, code, func(room *internal.Room) {
		assert.Equal(t, bob.id(), room.HostID)
		assert.Equal(t, 0, room.Game.NextDrawerIndex)
	})

	inspect(t, e, code, func(room *internal.Room) { e.nextRoundLocked(room) })
	assert.Equal(t, []string{bob.id()}, drawersOf(t, e, code))
}

func TestDisconnect_LastGuesserEndsRound(t *testing.T) {
	e, _ := newTestEngine(t, testOptions())
	clients, code := startedRoom(t, e, internal.ModeClassic, "Ann", "Bob", "Cid")

	chat(t, e, clients[1], code, "ocean")
	assert.Equal(t, internal.PhaseRoundActive, phaseOf(t, e, code))

	e.Disconnect(clients[2].id())
	assert.Equal(t, internal.PhaseRoundEnd, phaseOf(t, e, code))
	assert.Equal(t, ScoreDrawer(), scoreOf(t, e, code, clients[0].id()))
}
