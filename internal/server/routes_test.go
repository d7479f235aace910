package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal"
	"github.com/jeenvibes-dev/scribbleguess/internal/config"
	"github.com/jeenvibes-dev/scribbleguess/internal/game"
	"github.com/jeenvibes-dev/scribbleguess/internal/websocket"
)

func newTestServer(t *testing.T, cfg config.ServerConfig) (*Server, *game.Engine) {
	t.Helper()
	logger := zap.NewNop()
	engine := game.NewEngine(game.NewRegistry(logger), game.NewScheduler(logger), game.NewWordBank(), nil, game.Options{}, logger)
	hub := websocket.NewHub(engine, websocket.Options{}, logger)
	engine.SetBroadcaster(hub)
	t.Cleanup(engine.Shutdown)
	return NewServer(cfg, engine, hub, logger), engine
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.RegisterRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHealthHandler(t *testing.T) {
	s, engine := newTestServer(t, config.ServerConfig{})
	engine.Registry().CreateRoom(internal.NewPlayer("a", "Ann", "cat"), internal.ModeClassic, nil)

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.InDelta(t, 1, body["rooms"], 0)
	assert.InDelta(t, 0, body["connections"], 0)
}

func TestGetRoomToJoin(t *testing.T) {
	s, engine := newTestServer(t, config.ServerConfig{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/rooms-available", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var resp internal.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No joinable room available", resp.Data)

	room := engine.Registry().CreateRoom(internal.NewPlayer("a", "Ann", "cat"), internal.ModeClassic, nil)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/rooms-available", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, room.Code, resp.Data)
	assert.GreaterOrEqual(t, resp.RespEndTime, resp.RespStartTime)
}

func TestRoomQRHandler(t *testing.T) {
	s, engine := newTestServer(t, config.ServerConfig{})

	rec := serve(s, httptest.NewRequest(http.MethodGet, "/rooms/NOPE00/qr", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	room := engine.Registry().CreateRoom(internal.NewPlayer("a", "Ann", "cat"), internal.ModeClassic, nil)
	rec = serve(s, httptest.NewRequest(http.MethodGet, "/rooms/"+room.Code+"/qr", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())
}

func TestJoinURL(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{})
	req := httptest.NewRequest(http.MethodGet, "http://play.example/rooms/ABC123/qr", nil)
	assert.Equal(t, "http://play.example/?room=ABC123", s.joinURL(req, "ABC123"))

	req.Header.Set("X-Forwarded-Proto", "https")
	assert.Equal(t, "https://play.example/?room=ABC123", s.joinURL(req, "ABC123"))

	s, _ = newTestServer(t, config.ServerConfig{PublicURL: "https://draw.example/"})
	assert.Equal(t, "https://draw.example/?room=ABC123", s.joinURL(req, "ABC123"))
}

func TestCORS(t *testing.T) {
	s, _ := newTestServer(t, config.ServerConfig{})
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	s, _ = newTestServer(t, config.ServerConfig{AllowedOrigins: []string{"https://draw.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/rooms-available", nil)
	req.Header.Set("Origin", "https://draw.example")
	rec = serve(s, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://draw.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = serve(s, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
