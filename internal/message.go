package internal

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// =============================================================================
// INBOUND (client -> server)
// =============================================================================

// ClientMessage is one decoded inbound message. The set of implementations
// is closed; dispatchers switch over it exhaustively.
type ClientMessage interface {
	clientMessage()
	Validate() error
}

type CreateRoomRequest struct {
	PlayerName string   `json:"playerName"`
	Avatar     string   `json:"avatar"`
	GameMode   GameMode `json:"gameMode"`
}

type JoinRoomRequest struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar"`
}

type JoinRandomRoomRequest struct {
	PlayerName string `json:"playerName"`
	Avatar     string `json:"avatar"`
}

type RejoinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type StartGameRequest struct {
	RoomCode string `json:"roomCode"`
}

type DrawRequest struct {
	RoomCode    string      `json:"roomCode"`
	DrawingData DrawingData `json:"drawingData"`
}

type ChatRequest struct {
	RoomCode string `json:"roomCode"`
	Message  string `json:"message"`
}

type UpdateAvatarRequest struct {
	RoomCode string `json:"roomCode"`
	Avatar   string `json:"avatar"`
}

type SetGameModeRequest struct {
	RoomCode string   `json:"roomCode"`
	GameMode GameMode `json:"gameMode"`
}

func (*CreateRoomRequest) clientMessage()     {}
func (*JoinRoomRequest) clientMessage()       {}
func (*JoinRandomRoomRequest) clientMessage() {}
func (*RejoinRoomRequest) clientMessage()     {}
func (*StartGameRequest) clientMessage()      {}
func (*DrawRequest) clientMessage()           {}
func (*ChatRequest) clientMessage()           {}
func (*UpdateAvatarRequest) clientMessage()   {}
func (*SetGameModeRequest) clientMessage()    {}

func (m *CreateRoomRequest) Validate() error {
	name, err := cleanPlayerName(m.PlayerName)
	if err != nil {
		return err
	}
	m.PlayerName = name
	if m.Avatar == "" {
		return malformed("avatar is required")
	}
	if m.GameMode == "" {
		m.GameMode = ModeClassic
	}
	if !m.GameMode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGameMode, m.GameMode)
	}
	return nil
}

func (m *JoinRoomRequest) Validate() error {
	code, err := cleanRoomCode(m.RoomCode)
	if err != nil {
		return err
	}
	m.RoomCode = code
	name, err := cleanPlayerName(m.PlayerName)
	if err != nil {
		return err
	}
	m.PlayerName = name
	if m.Avatar == "" {
		return malformed("avatar is required")
	}
	return nil
}

func (m *JoinRandomRoomRequest) Validate() error {
	name, err := cleanPlayerName(m.PlayerName)
	if err != nil {
		return err
	}
	m.PlayerName = name
	if m.Avatar == "" {
		return malformed("avatar is required")
	}
	return nil
}

func (m *RejoinRoomRequest) Validate() error {
	code, err := cleanRoomCode(m.RoomCode)
	if err != nil {
		return err
	}
	m.RoomCode = code
	if m.PlayerID == "" {
		return malformed("playerId is required")
	}
	return nil
}

func (m *StartGameRequest) Validate() error {
	code, err := cleanRoomCode(m.RoomCode)
	m.RoomCode = code
	return err
}

func (m *DrawRequest) Validate() error {
	code, err := cleanRoomCode(m.RoomCode)
	if err != nil {
		return err
	}
	m.RoomCode = code
	return m.DrawingData.Validate()
}

func (m *ChatRequest) Validate() error {
	code, err := cleanRoomCode(m.RoomCode)
	if err != nil {
		return err
	}
	m.RoomCode = code
	if strings.TrimSpace(m.Message) == "" {
		return malformed("message is empty")
	}
	return nil
}

func (m *UpdateAvatarRequest) Validate() error {
	code, err := cleanRoomCode(m.RoomCode)
	if err != nil {
		return err
	}
	m.RoomCode = code
	if m.Avatar == "" {
		return malformed("avatar is required")
	}
	return nil
}

func (m *SetGameModeRequest) Validate() error {
	code, err := cleanRoomCode(m.RoomCode)
	if err != nil {
		return err
	}
	m.RoomCode = code
	if !m.GameMode.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidGameMode, m.GameMode)
	}
	return nil
}

// DecodeClientMessage parses one inbound frame and validates it. Every
// failure wraps ErrMalformedMessage, or ErrInvalidGameMode for a bad mode.
func DecodeClientMessage(raw []byte) (ClientMessage, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}

	var msg ClientMessage
	switch envelope.Type {
	case "create_room":
		msg = &CreateRoomRequest{}
	case "join_room":
		msg = &JoinRoomRequest{}
	case "join_random_room":
		msg = &JoinRandomRoomRequest{}
	case "rejoin_room":
		msg = &RejoinRoomRequest{}
	case "start_game":
		msg = &StartGameRequest{}
	case "draw":
		msg = &DrawRequest{}
	case "chat":
		msg = &ChatRequest{}
	case "update_avatar":
		msg = &UpdateAvatarRequest{}
	case "set_game_mode":
		msg = &SetGameModeRequest{}
	default:
		return nil, malformed(fmt.Sprintf("unknown message type %q", envelope.Type))
	}

	if err := json.Unmarshal(raw, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedMessage, envelope.Type, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

func malformed(reason string) error {
	return fmt.Errorf("%w: %s", ErrMalformedMessage, reason)
}

func cleanPlayerName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", malformed("playerName is required")
	}
	if utf8.RuneCountInString(name) > MaxPlayerNameLen {
		return "", malformed(fmt.Sprintf("playerName longer than %d characters", MaxPlayerNameLen))
	}
	return name, nil
}

func cleanRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", malformed("roomCode is required")
	}
	return code, nil
}

// =============================================================================
// OUTBOUND (server -> client)
// =============================================================================

const (
	TypeRoomCreated      = "room_created"
	TypeRoomJoined       = "room_joined"
	TypeRoomUpdated      = "room_updated"
	TypeGameStarted      = "game_started"
	TypeGameStateUpdated = "game_state_updated"
	TypeDrawingUpdate    = "drawing_update"
	TypeChatMessage      = "chat_message"
	TypeRoundEnd         = "round_end"
	TypeGameEnd          = "game_end"
	TypeBrushModified    = "brush_modified"
	TypeError            = "error"
)

// RoomJoinedMessage is sent only to the player who created, joined or
// rejoined. It carries everything needed to render the room from scratch.
type RoomJoinedMessage struct {
	Type      string        `json:"type"`
	Room      RoomSnapshot  `json:"room"`
	PlayerID  string        `json:"playerId"`
	GameState *GameState    `json:"gameState,omitempty"`
	Messages  []ChatMessage `json:"messages"`
}

type RoomUpdatedMessage struct {
	Type string       `json:"type"`
	Room RoomSnapshot `json:"room"`
}

type GameStateMessage struct {
	Type      string    `json:"type"`
	GameState GameState `json:"gameState"`
}

type DrawingUpdateMessage struct {
	Type        string      `json:"type"`
	DrawingData DrawingData `json:"drawingData"`
}

type ChatMessageMessage struct {
	Type    string      `json:"type"`
	Message ChatMessage `json:"message"`
}

type RoundEndMessage struct {
	Type        string         `json:"type"`
	CorrectWord string         `json:"correctWord"`
	Scores      map[string]int `json:"scores"`
}

type GameEndMessage struct {
	Type        string             `json:"type"`
	FinalScores map[string]int     `json:"finalScores"`
	Winner      string             `json:"winner"`
	WinnerID    string             `json:"winnerId"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type BrushModifiedMessage struct {
	Type     string        `json:"type"`
	Modifier BrushModifier `json:"modifier"`
}

type ErrorMessageOut struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func NewRoomCreated(room RoomSnapshot, playerID string, history []ChatMessage) RoomJoinedMessage {
	return RoomJoinedMessage{Type: TypeRoomCreated, Room: room, PlayerID: playerID, Messages: history}
}

func NewRoomJoined(room RoomSnapshot, playerID string, state *GameState, history []ChatMessage) RoomJoinedMessage {
	return RoomJoinedMessage{Type: TypeRoomJoined, Room: room, PlayerID: playerID, GameState: state, Messages: history}
}

func NewRoomUpdated(room RoomSnapshot) RoomUpdatedMessage {
	return RoomUpdatedMessage{Type: TypeRoomUpdated, Room: room}
}

func NewGameStarted(state GameState) GameStateMessage {
	return GameStateMessage{Type: TypeGameStarted, GameState: state}
}

func NewGameStateUpdated(state GameState) GameStateMessage {
	return GameStateMessage{Type: TypeGameStateUpdated, GameState: state}
}

func NewDrawingUpdate(data DrawingData) DrawingUpdateMessage {
	return DrawingUpdateMessage{Type: TypeDrawingUpdate, DrawingData: data}
}

func NewChatMessage(msg ChatMessage) ChatMessageMessage {
	return ChatMessageMessage{Type: TypeChatMessage, Message: msg}
}

func NewRoundEnd(word string, scores map[string]int) RoundEndMessage {
	return RoundEndMessage{Type: TypeRoundEnd, CorrectWord: word, Scores: scores}
}

func NewGameEnd(results FinalResults) GameEndMessage {
	msg := GameEndMessage{
		Type:        TypeGameEnd,
		FinalScores: results.FinalScores,
		Leaderboard: results.Leaderboard,
	}
	if results.Winner != nil {
		msg.Winner = results.Winner.Name
		msg.WinnerID = results.Winner.PlayerID
	}
	return msg
}

func NewBrushModified(m BrushModifier) BrushModifiedMessage {
	return BrushModifiedMessage{Type: TypeBrushModified, Modifier: m}
}

func NewError(err error) ErrorMessageOut {
	return ErrorMessageOut{Type: TypeError, Message: ErrorMessage(err)}
}
