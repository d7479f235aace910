package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jeenvibes-dev/scribbleguess/internal/config"
	"github.com/jeenvibes-dev/scribbleguess/internal/game"
	"github.com/jeenvibes-dev/scribbleguess/internal/websocket"
)

type Server struct {
	cfg    config.ServerConfig
	engine *game.Engine
	hub    *websocket.Hub
	logger *zap.Logger
}

func NewServer(cfg config.ServerConfig, engine *game.Engine, hub *websocket.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{cfg: cfg, engine: engine, hub: hub, logger: logger}
}

// Run serves HTTP until ctx is cancelled, then drains connections, closes
// every websocket and stops all room timers.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.RegisterRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[Run] listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.engine.Shutdown()
			return err
		}
	case <-ctx.Done():
		s.logger.Info("[Run] shutting down")
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.hub.Close()
	s.engine.Shutdown()
	s.logger.Info("[Run] shutdown complete")
	return err
}
