package internal

import (
	"slices"
	"sync"
	"time"
)

const (
	TotalRounds        = 10
	RoundDuration      = 60 * time.Second
	BlitzRoundDuration = 15 * time.Second
	RoundEndDelay      = 3 * time.Second
	TickInterval       = 1 * time.Second
	ModifierInterval   = 10 * time.Second
	MaxPlayersPerRoom  = 12
	MaxPlayersMegaRoom = 50
	MinPlayersToStart  = 2
	RoomCodeLength     = 6
	MaxPlayerNameLen   = 20

	SystemPlayerID   = "system"
	SystemPlayerName = "System"
)

type GameMode string

const (
	ModeClassic    GameMode = "classic"
	ModeDoubleDraw GameMode = "double_draw"
	ModeBlitz      GameMode = "blitz"
	ModeRandomized GameMode = "randomized"
	ModeMega       GameMode = "mega"
)

var GameModes = []GameMode{ModeClassic, ModeDoubleDraw, ModeBlitz, ModeRandomized, ModeMega}

func (m GameMode) Valid() bool {
	return slices.Contains(GameModes, m)
}

// MaxPlayers is the room capacity for the mode.
func (m GameMode) MaxPlayers() int {
	if m == ModeMega {
		return MaxPlayersMegaRoom
	}
	return MaxPlayersPerRoom
}

type GamePhase string

const (
	PhaseLobby       GamePhase = "lobby"
	PhaseRoundActive GamePhase = "round_active"
	PhaseRoundEnd    GamePhase = "round_end"
	PhaseGameEnd     GamePhase = "game_end"
)

// Word is one vocabulary entry. Count weights the entry: a word with
// Count 3 is picked three times as often as one with Count 1.
type Word struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type Response struct {
	StatusCode    int   `json:"status_code"`
	RespStartTime int64 `json:"resp_time_start_ms"`
	RespEndTime   int64 `json:"resp_time_end_ms"`
	NetRespTime   int64 `json:"net_resp_time_ms"`
	Data          any   `json:"data"`
}

type Room struct {
	Code       string    `json:"code"`
	HostID     string    `json:"hostId"`
	GameMode   GameMode  `json:"gameMode"`
	Players    []*Player `json:"players"`
	MaxPlayers int       `json:"maxPlayers"`
	IsStarted  bool      `json:"isStarted"`

	// Game State
	Phase GamePhase  `json:"-"`
	Game  *GameState `json:"-"`

	// Chat log, replayed to (re)joining players
	Messages []ChatMessage `json:"-"`

	// Concurrency control
	Mu        sync.Mutex `json:"-"`
	destroyed bool
}

// RoomSnapshot is the wire form of a Room. It shares nothing with the
// live room so it can be handed to other goroutines.
type RoomSnapshot struct {
	Code       string   `json:"code"`
	HostID     string   `json:"hostId"`
	GameMode   GameMode `json:"gameMode"`
	Players    []Player `json:"players"`
	MaxPlayers int      `json:"maxPlayers"`
	IsStarted  bool     `json:"isStarted"`
}

type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar"`
	Score      int    `json:"score"`
	HasGuessed bool   `json:"hasGuessed"`
}

type GameState struct {
	CurrentRound         int            `json:"currentRound"`
	TotalRounds          int            `json:"totalRounds"`
	CurrentWord          string         `json:"currentWord,omitempty"`
	WordDisplay          string         `json:"wordDisplay"`
	DrawerIDs            []string       `json:"drawerIds"`
	TimeRemaining        int            `json:"timeRemaining"`
	RoundDuration        int            `json:"roundDuration"`
	IsRoundActive        bool           `json:"isRoundActive"`
	CurrentBrushModifier *BrushModifier `json:"currentBrushModifier,omitempty"`

	// NextDrawerIndex is the roster position the next round's first
	// drawer is taken from. It is kept in step with roster removals.
	NextDrawerIndex int `json:"-"`
}

// BrushModifier overrides one drawing tool setting. Exactly one field is set.
type BrushModifier struct {
	Color  string `json:"color,omitempty"`
	Size   int    `json:"size,omitempty"`
	Mirror *bool  `json:"mirror,omitempty"`
}

type ChatMessage struct {
	ID         string `json:"id"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Content    string `json:"content"`
	IsCorrect  bool   `json:"isCorrect"`
	IsSystem   bool   `json:"isSystem"`
	Timestamp  int64  `json:"timestamp"`
}

type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Position int    `json:"position"`
}

type FinalResults struct {
	Leaderboard  []LeaderboardEntry `json:"leaderboard"` // sorted by score
	FinalScores  map[string]int     `json:"finalScores"`
	Winner       *LeaderboardEntry  `json:"winner,omitempty"`
	RoundsPlayed int                `json:"roundsPlayed"`
	TotalPlayers int                `json:"totalPlayers"`
}
