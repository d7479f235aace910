package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoom(mode GameMode, ids ...string) *Room {
	room := NewRoom("ABC123", NewPlayer(ids[0], "p-"+ids[0], "cat"), mode)
	for _, id := range ids[1:] {
		room.Players = append(room.Players, NewPlayer(id, "p-"+id, "cat"))
	}
	return room
}

func TestNewRoom(t *testing.T) {
	room := newTestRoom(ModeMega, "a")
	assert.Equal(t, "a", room.HostID)
	assert.Equal(t, MaxPlayersMegaRoom, room.MaxPlayers)
	assert.Equal(t, PhaseLobby, room.Phase)
	assert.False(t, room.IsStarted)
	assert.Len(t, room.Players, 1)

	assert.Equal(t, MaxPlayersPerRoom, newTestRoom(ModeClassic, "a").MaxPlayers)
}

func TestRoom_AddPlayerAtCapacityLeavesRosterAlone(t *testing.T) {
	room := newTestRoom(ModeClassic, "a")
	room.MaxPlayers = 2

	require.NoError(t, room.AddPlayer(NewPlayer("b", "B", "dog")))
	err := room.AddPlayer(NewPlayer("c", "C", "dog"))

	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Len(t, room.Players, 2)
	assert.Nil(t, room.PlayerByID("c"))
}

func TestRoom_RemovePlayerReassignsHost(t *testing.T) {
	room := newTestRoom(ModeClassic, "a", "b", "c")

	idx, removed, ok := room.RemovePlayer("a")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
	assert.Equal(t, "a", removed.ID)
	assert.Equal(t, "b", room.HostID)

	idx, _, ok = room.RemovePlayer("c")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "b", room.HostID, "non-host removal keeps the host")

	_, _, ok = room.RemovePlayer("zzz")
	assert.False(t, ok)
}

func TestRoom_GuessTracking(t *testing.T) {
	room := newTestRoom(ModeClassic, "a", "b", "c")
	room.Game = &GameState{DrawerIDs: []string{"a"}}

	assert.False(t, room.AnyoneGuessed())
	assert.False(t, room.HasEveryoneGuessed())

	room.PlayerByID("b").HasGuessed = true
	assert.True(t, room.AnyoneGuessed())
	assert.False(t, room.HasEveryoneGuessed())

	room.PlayerByID("c").HasGuessed = true
	assert.True(t, room.HasEveryoneGuessed())

	room.ResetPlayerGuessState()
	assert.False(t, room.AnyoneGuessed())
}

func TestRoom_DrawerGuessFlagIgnored(t *testing.T) {
	room := newTestRoom(ModeClassic, "a", "b")
	room.Game = &GameState{DrawerIDs: []string{"a"}}
	room.PlayerByID("a").HasGuessed = true

	assert.False(t, room.AnyoneGuessed())
}

func TestRoom_IsJoinable(t *testing.T) {
	room := newTestRoom(ModeClassic, "a")
	assert.True(t, room.IsJoinable())

	room.IsStarted = true
	assert.False(t, room.IsJoinable())

	room.IsStarted = false
	room.MaxPlayers = 1
	assert.False(t, room.IsJoinable())

	room.MaxPlayers = 12
	room.Destroy()
	assert.False(t, room.IsJoinable())
	assert.True(t, room.Destroyed())
}

func TestRoom_SnapshotIsDetached(t *testing.T) {
	room := newTestRoom(ModeClassic, "a", "b")
	snap := room.Snapshot()

	room.PlayerByID("a").Score = 500
	room.Players = room.Players[:1]

	require.Len(t, snap.Players, 2)
	assert.Equal(t, 0, snap.Players[0].Score)
}

func TestRoom_HistoryIsCopy(t *testing.T) {
	room := newTestRoom(ModeClassic, "a")
	room.AppendMessage(ChatMessage{ID: "1", Content: "hi"})

	history := room.History()
	history[0].Content = "changed"

	assert.Equal(t, "hi", room.Messages[0].Content)
}

func TestGameState_View(t *testing.T) {
	mirror := true
	g := &GameState{
		CurrentWord:          "OCEAN",
		WordDisplay:          "O _ _ _ N",
		DrawerIDs:            []string{"a"},
		CurrentBrushModifier: &BrushModifier{Mirror: &mirror},
	}

	guesser := g.View(false)
	assert.Empty(t, guesser.CurrentWord)
	assert.Equal(t, "O _ _ _ N", guesser.WordDisplay)

	drawer := g.View(true)
	assert.Equal(t, "OCEAN", drawer.CurrentWord)
	assert.Equal(t, "OCEAN", drawer.WordDisplay)

	drawer.DrawerIDs[0] = "x"
	drawer.CurrentBrushModifier.Size = 99
	assert.Equal(t, "a", g.DrawerIDs[0])
	assert.Zero(t, g.CurrentBrushModifier.Size)
	assert.Equal(t, "OCEAN", g.CurrentWord, "views never touch the live state")
}
