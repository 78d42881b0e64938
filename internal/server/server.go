// Package server accepts client connections and bridges them onto the lobby
// registry. Each connection gets one reader worker and one writer goroutine;
// the registry never blocks on a socket.
package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"goldenbrigade/server/internal/config"
	"goldenbrigade/server/internal/lobby"
	"goldenbrigade/server/internal/logging"
	"goldenbrigade/server/internal/protocol"
)

// outboxDepth bounds per-connection queued writes before the client is
// considered stalled and dropped.
const outboxDepth = 64

// Server owns the TCP accept loop and the per-connection workers.
type Server struct {
	cfg      *config.Config
	log      *logging.Logger
	registry *lobby.Registry
	wg       sync.WaitGroup
}

// New wires a server onto the given registry.
func New(cfg *config.Config, log *logging.Logger, registry *lobby.Registry) *Server {
	if log == nil {
		log = logging.L()
	}
	return &Server{cfg: cfg, log: log, registry: registry}
}

// ListenAndServe opens the configured TCP address and serves until the
// context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return err
	}
	s.log.Info("session server listening", logging.String("addr", listener.Addr().String()))
	return s.Serve(ctx, listener)
}

// Serve accepts connections on the listener until the context is cancelled,
// then waits for every connection worker to finish.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			s.wg.Wait()
			return err
		}
		s.StartConn(ctx, newTCPTransport(conn, s.cfg.MaxPayloadBytes))
	}
}

// StartConn launches the worker pair for one accepted transport.
func (s *Server) StartConn(ctx context.Context, tr transport) {
	c := &clientConn{
		srv:    s,
		tr:     tr,
		log:    s.log.With(logging.String("remote", tr.RemoteAddr())),
		outbox: make(chan protocol.Message, outboxDepth),
		done:   make(chan struct{}),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.run(ctx)
	}()
}

// clientConn drives one connection through registration, dispatch and teardown.
type clientConn struct {
	srv       *Server
	tr        transport
	log       *logging.Logger
	outbox    chan protocol.Message
	done      chan struct{}
	closeOnce sync.Once
}

// Send queues one message for the writer goroutine. A full outbox means the
// client stopped draining; the connection is cut rather than blocking the lobby.
func (c *clientConn) Send(msg protocol.Message) {
	select {
	case c.outbox <- msg:
	case <-c.done:
	default:
		c.log.Warn("outbox overflow, dropping connection")
		c.teardown()
	}
}

func (c *clientConn) teardown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.tr.Close()
	})
}

func (c *clientConn) run(ctx context.Context) {
	defer c.teardown()

	clientID, ok := c.register(ctx)
	if !ok {
		return
	}
	defer c.srv.registry.Unregister(clientID)

	c.log = c.log.With(logging.String("client_id", clientID))
	go c.writeLoop()
	c.serve(ctx, clientID)
}

// register runs the handshake: the first frame must be a valid register
// message within the registration window. The acknowledgement is written
// synchronously so it always precedes queued broadcasts.
func (c *clientConn) register(ctx context.Context) (string, bool) {
	payload, err := c.tr.ReadMessage(time.Now().Add(c.srv.cfg.RegistrationTimeout))
	if err != nil {
		c.log.Debug("registration read failed", logging.Error(err))
		return "", false
	}
	msg, err := protocol.Decode(payload)
	if err != nil {
		c.log.Warn("malformed registration", logging.Error(err))
		c.writeNow(protocol.NewRegisterAck("", protocol.StatusFailed))
		return "", false
	}
	reg, ok := msg.(protocol.Register)
	if !ok {
		c.log.Warn("first message was not register", logging.String("kind", string(msg.Kind())))
		c.writeNow(protocol.NewRegisterAck("", protocol.StatusFailed))
		return "", false
	}
	if ctx.Err() != nil {
		return "", false
	}

	clientID := c.srv.registry.Register(reg.Name, c)
	if !c.writeNow(protocol.NewRegisterAck(clientID, protocol.StatusSuccess)) {
		c.srv.registry.Unregister(clientID)
		return "", false
	}
	return clientID, true
}

// serve is the post-registration read loop. Deadline expiries are not
// failures; they exist so the loop can observe shutdown and teardown.
func (c *clientConn) serve(ctx context.Context, clientID string) {
	registry := c.srv.registry
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		default:
		}

		payload, err := c.tr.ReadMessage(time.Now().Add(c.srv.cfg.ReadTimeout))
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.Debug("read failed", logging.Error(err))
			}
			return
		}
		registry.Touch(clientID)

		msg, err := protocol.Decode(payload)
		if err != nil {
			//1.- A peer speaking garbage cannot be trusted with the stream.
			c.log.Warn("closing client after malformed message", logging.Error(err))
			return
		}

		switch m := msg.(type) {
		case protocol.CreateGame:
			if _, err := registry.CreateGame(clientID); err != nil {
				c.Send(protocol.ActionResponse{
					Type:    protocol.TypeActionResponse,
					Status:  protocol.StatusFailed,
					Message: err.Error(),
				})
			}
		case protocol.JoinGame:
			//2.- Join rejections already travel as join_response messages.
			_ = registry.JoinGame(clientID, m.GameID)
		case protocol.ListGames:
			registry.ListGames(clientID)
		case protocol.GameAction:
			registry.HandleAction(clientID, m)
		case protocol.Chat:
			registry.Chat(clientID, m.Text)
		case protocol.Disconnect:
			return
		default:
			c.log.Warn("unexpected message from client", logging.String("kind", string(msg.Kind())))
		}
	}
}

func (c *clientConn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.outbox:
			payload, err := protocol.Encode(msg)
			if err != nil {
				c.log.Error("encode failed", logging.Error(err))
				continue
			}
			if err := c.tr.WriteMessage(payload); err != nil {
				c.log.Debug("write failed", logging.Error(err))
				c.teardown()
				return
			}
		}
	}
}

// writeNow encodes and writes synchronously, bypassing the outbox. Used only
// during the handshake, before the writer goroutine starts.
func (c *clientConn) writeNow(msg protocol.Message) bool {
	payload, err := protocol.Encode(msg)
	if err != nil {
		c.log.Error("encode failed", logging.Error(err))
		return false
	}
	if err := c.tr.WriteMessage(payload); err != nil {
		c.log.Debug("write failed", logging.Error(err))
		return false
	}
	return true
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
