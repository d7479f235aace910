package websocket

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal/game"
)

// Options tunes the transport. Zero fields fall back to DefaultOptions.
type Options struct {
	ReadBufferSize  int
	WriteBufferSize int
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxMessageSize  int64
	SendQueueSize   int
	RateLimit       float64
	RateBurst       int
	// AllowedOrigins limits the Origin header on upgrade. Empty or "*"
	// accepts any origin.
	AllowedOrigins []string
}

func DefaultOptions() Options {
	return Options{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		WriteWait:       10 * time.Second,
		PongWait:        60 * time.Second,
		PingPeriod:      54 * time.Second,
		MaxMessageSize:  16 * 1024,
		SendQueueSize:   256,
		RateLimit:       60,
		RateBurst:       120,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = d.ReadBufferSize
	}
	if o.WriteBufferSize <= 0 {
		o.WriteBufferSize = d.WriteBufferSize
	}
	if o.WriteWait <= 0 {
		o.WriteWait = d.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = d.PongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = d.MaxMessageSize
	}
	if o.SendQueueSize <= 0 {
		o.SendQueueSize = d.SendQueueSize
	}
	if o.RateLimit <= 0 {
		o.RateLimit = d.RateLimit
	}
	if o.RateBurst <= 0 {
		o.RateBurst = d.RateBurst
	}
	return o
}

// Hub is the connection table. Each connection is tagged with at most one
// (player, room) pair; a player has at most one current connection.
//
// The engine calls Broadcast and SendTo with a room lock held, so the hub
// never calls into the engine while holding mu.
type Hub struct {
	mu       sync.RWMutex
	conns    map[*Conn]struct{}
	byRoom   map[string]map[*Conn]struct{}
	byPlayer map[string]*Conn

	engine   *game.Engine
	upgrader websocket.Upgrader
	opts     Options
	logger   *zap.Logger
}

func NewHub(engine *game.Engine, opts Options, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.withDefaults()
	h := &Hub{
		conns:    make(map[*Conn]struct{}),
		byRoom:   make(map[string]map[*Conn]struct{}),
		byPlayer: make(map[string]*Conn),
		engine:   engine,
		opts:     opts,
		logger:   logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  opts.ReadBufferSize,
		WriteBufferSize: opts.WriteBufferSize,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.opts.AllowedOrigins) == 0 || slices.Contains(h.opts.AllowedOrigins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.ContainsFunc(h.opts.AllowedOrigins, func(o string) bool {
		return strings.EqualFold(strings.TrimSuffix(o, "/"), origin)
	})
}

// Broadcast implements game.Broadcaster.
func (h *Hub) Broadcast(roomCode string, msg any, excludePlayerIDs ...string) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("[Broadcast] marshal failed", zap.String("room", roomCode), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	sent := 0
	for c := range h.byRoom[roomCode] {
		if slices.Contains(excludePlayerIDs, c.playerID) {
			continue
		}
		if c.enqueue(data) {
			sent++
		}
	}
	h.logger.Debug("[Broadcast] queued",
		zap.String("room", roomCode), zap.Int("sent", sent), zap.Int("excluded", len(excludePlayerIDs)))
}

// SendTo implements game.Broadcaster.
func (h *Hub) SendTo(roomCode, playerID string, msg any) {
	h.mu.RLock()
	c, ok := h.byPlayer[playerID]
	if ok && c.roomCode != roomCode {
		ok = false
	}
	h.mu.RUnlock()

	if ok {
		c.Send(msg)
	}
}

// ConnCount returns the number of open connections.
func (h *Hub) ConnCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// RoomConnCount returns the number of connections tagged with the room.
func (h *Hub) RoomConnCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byRoom[roomCode])
}

// Close asks every connection to shut down.
func (h *Hub) Close() {
	h.mu.RLock()
	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		c.close()
	}
	h.logger.Info("[Close] closing connections", zap.Int("count", len(conns)))
}

func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

// attach tags c with the player and room. A previous connection for the
// same player loses its tag, so it neither receives broadcasts nor removes
// the player when it closes.
func (h *Hub) attach(c *Conn, playerID, roomCode string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.untagLocked(c)
	if prev, ok := h.byPlayer[playerID]; ok && prev != c {
		h.untagLocked(prev)
	}

	c.playerID, c.roomCode = playerID, roomCode
	h.byPlayer[playerID] = c
	members, ok := h.byRoom[roomCode]
	if !ok {
		members = make(map[*Conn]struct{})
		h.byRoom[roomCode] = members
	}
	members[c] = struct{}{}
}

// detach clears c's tag and returns the player it spoke for.
func (h *Hub) detach(c *Conn) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	playerID := c.playerID
	h.untagLocked(c)
	return playerID
}

func (h *Hub) untagLocked(c *Conn) {
	if c.roomCode != "" {
		if members := h.byRoom[c.roomCode]; members != nil {
			delete(members, c)
			if len(members) == 0 {
				delete(h.byRoom, c.roomCode)
			}
		}
	}
	if c.playerID != "" && h.byPlayer[c.playerID] == c {
		delete(h.byPlayer, c.playerID)
	}
	c.playerID, c.roomCode = "", ""
}

// unregister drops a closed connection and, if it was still the player's
// current connection, removes the player from the game.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	playerID := c.playerID
	h.untagLocked(c)
	h.mu.Unlock()

	if playerID != "" {
		h.engine.Disconnect(playerID)
	}
}
