package internal

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrGameAlreadyStarted  = errors.New("game already started")
	ErrNotHost             = errors.New("player is not the host")
	ErrInsufficientPlayers = errors.New("not enough players")
	ErrMalformedMessage    = errors.New("malformed message")
	ErrPlayerNotFound      = errors.New("player not found in room")
	ErrInvalidGameMode     = errors.New("invalid game mode")
	ErrGameNotStarted      = errors.New("game not started")
	ErrNoJoinableRoom      = errors.New("no joinable room")
	ErrRateLimited         = errors.New("rate limited")
)

// ErrorMessage is the text sent to a client in an error message.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrGameAlreadyStarted):
		return "Game already started"
	case errors.Is(err, ErrNotHost):
		return "Only the host can do that"
	case errors.Is(err, ErrInsufficientPlayers):
		return "Need at least 2 players"
	case errors.Is(err, ErrMalformedMessage):
		return "Invalid message format"
	case errors.Is(err, ErrPlayerNotFound):
		return "Player not found in room"
	case errors.Is(err, ErrInvalidGameMode):
		return "Invalid game mode"
	case errors.Is(err, ErrGameNotStarted):
		return "Game has not started"
	case errors.Is(err, ErrNoJoinableRoom):
		return "No joinable room available"
	case errors.Is(err, ErrRateLimited):
		return "Too many messages, slow down"
	default:
		return internalErrorText
	}
}

const internalErrorText = "Internal server error"

// IsClientError reports whether err is one of the refusals above rather
// than a server fault.
func IsClientError(err error) bool {
	return err != nil && ErrorMessage(err) != internalErrorText
}
