package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/jeenvibes-dev/scribbleguess/internal"
)

// Conn is one client connection. Outbound frames go through a bounded
// queue drained by writePump; a full queue drops the frame.
type Conn struct {
	ws      *websocket.Conn
	hub     *Hub
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	limiter *rate.Limiter
	logger  *zap.Logger

	// Guarded by hub.mu.
	playerID string
	roomCode string
}

func newConn(hub *Hub, ws *websocket.Conn) *Conn {
	return &Conn{
		ws:      ws,
		hub:     hub,
		send:    make(chan []byte, hub.opts.SendQueueSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(rate.Limit(hub.opts.RateLimit), hub.opts.RateBurst),
		logger:  hub.logger.With(zap.String("remote", ws.RemoteAddr().String())),
	}
}

// Attach implements game.Client.
func (c *Conn) Attach(playerID, roomCode string) {
	c.hub.attach(c, playerID, roomCode)
}

// Send implements game.Client.
func (c *Conn) Send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.Error("[Send] marshal failed", zap.Error(err))
		return
	}
	c.enqueue(data)
}

// Tag returns the player and room this connection speaks for.
func (c *Conn) Tag() (playerID, roomCode string) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	return c.playerID, c.roomCode
}

func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		c.logger.Warn("[enqueue] send queue full, dropping frame", zap.Int("bytes", len(data)))
		return false
	}
}

// close signals both pumps to stop. writePump closes the socket on its
// way out, which also unblocks readPump.
func (c *Conn) close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// readPump decodes inbound frames and hands them to the engine. It owns
// the connection's lifetime: when it returns the connection is gone.
func (c *Conn) readPump() {
	defer func() {
		c.close()
		c.hub.unregister(c)
	}()

	c.ws.SetReadLimit(c.hub.opts.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.hub.opts.PongWait))
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.Info("[readPump] connection lost", zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			c.Send(internal.NewError(internal.ErrRateLimited))
			continue
		}

		msg, err := internal.DecodeClientMessage(raw)
		if err != nil {
			c.logger.Debug("[readPump] bad message", zap.Error(err))
			c.Send(internal.NewError(err))
			continue
		}

		if err := c.hub.dispatch(c, msg); err != nil {
			c.reportError(msg, err)
		}
	}
}

func (c *Conn) reportError(msg internal.ClientMessage, err error) {
	playerID, roomCode := c.Tag()
	fields := []zap.Field{
		zap.String("player", playerID),
		zap.String("room", roomCode),
		zap.String("message", messageType(msg)),
		zap.Error(err),
	}
	if internal.IsClientError(err) {
		c.logger.Debug("[dispatch] request refused", fields...)
	} else {
		c.logger.Error("[dispatch] handler failed", fields...)
	}
	c.Send(internal.NewError(err))
}

// writePump drains the send queue and keeps the connection alive with
// pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.hub.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Debug("[writePump] write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.hub.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(c.hub.opts.WriteWait))
			return
		}
	}
}
