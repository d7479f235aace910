package websocket

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal"
)

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// ServeWS upgrades the request and runs the connection until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("[ServeWS] upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	c := newConn(h, ws)
	h.register(c)
	c.logger.Debug("[ServeWS] connection opened")

	go c.writePump()
	go c.readPump()
}

// dispatch routes one decoded message into the engine.
func (h *Hub) dispatch(c *Conn, msg internal.ClientMessage) error {
	switch m := msg.(type) {
	case *internal.CreateRoomRequest:
		h.leaveCurrentRoom(c)
		return h.engine.CreateRoom(c, m)
	case *internal.JoinRoomRequest:
		h.leaveCurrentRoom(c)
		return h.engine.JoinRoom(c, m)
	case *internal.JoinRandomRoomRequest:
		h.leaveCurrentRoom(c)
		return h.engine.JoinRandomRoom(c, m)
	case *internal.RejoinRoomRequest:
		if playerID, _ := c.Tag(); playerID != m.PlayerID {
			h.leaveCurrentRoom(c)
		}
		return h.engine.RejoinRoom(c, m)
	case *internal.StartGameRequest:
		playerID, err := attachedPlayer(c)
		if err != nil {
			return err
		}
		return h.engine.StartGame(playerID, m)
	case *internal.DrawRequest:
		playerID, err := attachedPlayer(c)
		if err != nil {
			return err
		}
		return h.engine.Draw(playerID, m)
	case *internal.ChatRequest:
		playerID, err := attachedPlayer(c)
		if err != nil {
			return err
		}
		return h.engine.Chat(playerID, m)
	case *internal.UpdateAvatarRequest:
		playerID, err := attachedPlayer(c)
		if err != nil {
			return err
		}
		return h.engine.UpdateAvatar(playerID, m)
	case *internal.SetGameModeRequest:
		playerID, err := attachedPlayer(c)
		if err != nil {
			return err
		}
		return h.engine.SetGameMode(playerID, m)
	}
	return fmt.Errorf("%w: unhandled message %T", internal.ErrMalformedMessage, msg)
}

// leaveCurrentRoom removes the player this connection spoke for before it
// enters another room.
func (h *Hub) leaveCurrentRoom(c *Conn) {
	if playerID := h.detach(c); playerID != "" {
		h.engine.Disconnect(playerID)
	}
}

func attachedPlayer(c *Conn) (string, error) {
	playerID, _ := c.Tag()
	if playerID == "" {
		return "", internal.ErrPlayerNotFound
	}
	return playerID, nil
}

func messageType(msg internal.ClientMessage) string {
	switch msg.(type) {
	case *internal.CreateRoomRequest:
		return "create_room"
	case *internal.JoinRoomRequest:
		return "join_room"
	case *internal.JoinRandomRoomRequest:
		return "join_random_room"
	case *internal.RejoinRoomRequest:
		return "rejoin_room"
	case *internal.StartGameRequest:
		return "start_game"
	case *internal.DrawRequest:
		return "draw"
	case *internal.ChatRequest:
		return "chat"
	case *internal.UpdateAvatarRequest:
		return "update_avatar"
	case *internal.SetGameModeRequest:
		return "set_game_mode"
	}
	return "unknown"
}
