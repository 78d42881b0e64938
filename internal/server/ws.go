package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"goldenbrigade/server/internal/logging"
)

// Gateway exposes the session protocol to browser clients over websockets.
// Upgraded connections share the TCP dispatch path; the only difference is
// that websocket frames replace the length-prefixed framing.
type Gateway struct {
	srv      *Server
	log      *logging.Logger
	upgrader websocket.Upgrader
}

// NewGateway wraps the server with a websocket listener.
func NewGateway(srv *Server) *Gateway {
	return &Gateway{
		srv: srv,
		log: srv.log.With(logging.String("listener", "ws")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ListenAndServe serves the websocket endpoint until the context is cancelled.
func (g *Gateway) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			g.log.Warn("websocket upgrade failed", logging.Error(err))
			return
		}
		g.srv.StartConn(ctx, newWSTransport(conn, g.srv.cfg.MaxPayloadBytes))
	})

	httpServer := &http.Server{
		Addr:              g.srv.cfg.WSAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	g.log.Info("websocket gateway listening", logging.String("addr", g.srv.cfg.WSAddress))
	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
