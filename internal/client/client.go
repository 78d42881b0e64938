// Package client implements the player-side session agent: one connection,
// one background receive loop, and a cached view of the lobby and the current
// game that is safe to read from the driving goroutine.
package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"goldenbrigade/server/internal/game"
	"goldenbrigade/server/internal/logging"
	"goldenbrigade/server/internal/protocol"
)

const (
	defaultMaxPayload   = 1 << 20
	defaultAckTimeout   = 10 * time.Second
	defaultEventBacklog = 128
)

// Handler consumes decoded server messages. It is invoked from a single
// dispatch goroutine, never concurrently with itself.
type Handler func(protocol.Message)

// Agent is a connected player. All exported methods are safe for use from the
// driving goroutine while the receive loop runs in the background.
type Agent struct {
	log        *logging.Logger
	handler    Handler
	onDrop     func()
	maxPayload int
	ackTimeout time.Duration

	writeMu sync.Mutex
	conn    net.Conn

	mu        sync.Mutex
	connected bool
	clientID  string
	name      string
	gameID    string
	faction   game.Faction
	lastState *protocol.GameState
	available []protocol.GameSummary

	events   chan protocol.Message
	dropOnce sync.Once
	closed   chan struct{}
}

// Option configures an Agent.
type Option func(*Agent)

// WithLogger overrides the agent logger.
func WithLogger(log *logging.Logger) Option {
	return func(a *Agent) {
		if log != nil {
			a.log = log
		}
	}
}

// WithHandler installs the message sink invoked for every server message.
func WithHandler(handler Handler) Option {
	return func(a *Agent) { a.handler = handler }
}

// WithDisconnectFunc installs a callback fired exactly once when the
// connection is lost or closed.
func WithDisconnectFunc(fn func()) Option {
	return func(a *Agent) { a.onDrop = fn }
}

// WithMaxPayload overrides the inbound frame size limit.
func WithMaxPayload(limit int) Option {
	return func(a *Agent) {
		if limit > 0 {
			a.maxPayload = limit
		}
	}
}

// New builds an unconnected agent.
func New(opts ...Option) *Agent {
	agent := &Agent{
		log:        logging.L(),
		maxPayload: defaultMaxPayload,
		ackTimeout: defaultAckTimeout,
		events:     make(chan protocol.Message, defaultEventBacklog),
		closed:     make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(agent)
		}
	}
	return agent
}

// Connect dials the server, registers under the given name and starts the
// receive loop. It returns once the server has acknowledged registration.
func (a *Agent) Connect(ctx context.Context, name, addr string) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if err := a.start(conn, name); err != nil {
		_ = conn.Close()
		return err
	}
	return nil
}

// start performs the register handshake on an established connection and
// launches the background loops.
func (a *Agent) start(conn net.Conn, name string) error {
	a.writeMu.Lock()
	a.conn = conn
	a.writeMu.Unlock()

	if err := a.Send(protocol.NewRegister(name)); err != nil {
		return err
	}

	if err := conn.SetReadDeadline(time.Now().Add(a.ackTimeout)); err != nil {
		return err
	}
	reader := bufio.NewReader(conn)
	payload, err := protocol.ReadFrame(reader, a.maxPayload)
	if err != nil {
		return fmt.Errorf("awaiting register ack: %w", err)
	}
	msg, err := protocol.Decode(payload)
	if err != nil {
		return fmt.Errorf("awaiting register ack: %w", err)
	}
	ack, ok := msg.(protocol.RegisterAck)
	if !ok {
		return fmt.Errorf("expected register_ack, got %s", msg.Kind())
	}
	if ack.Status != protocol.StatusSuccess {
		return errors.New("registration rejected")
	}
	_ = conn.SetReadDeadline(time.Time{})

	a.mu.Lock()
	a.connected = true
	a.clientID = ack.ClientID
	a.name = name
	a.mu.Unlock()

	go a.receiveLoop(reader)
	go a.dispatchLoop()
	return nil
}

// Send encodes and writes one message. Writes are serialized so helpers may
// be called from any goroutine.
func (a *Agent) Send(msg protocol.Message) error {
	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	a.writeMu.Lock()
	defer a.writeMu.Unlock()
	if a.conn == nil {
		return errors.New("not connected")
	}
	return protocol.WriteFrame(a.conn, payload)
}

// Typed helpers for every client-originated message.

func (a *Agent) CreateGame() error { return a.Send(protocol.NewCreateGame()) }

func (a *Agent) JoinGame(gameID string) error { return a.Send(protocol.NewJoinGame(gameID)) }

func (a *Agent) ListGames() error { return a.Send(protocol.NewListGames()) }

func (a *Agent) StartGame(mapType string) error { return a.Send(protocol.NewStartGame(mapType)) }

func (a *Agent) MoveUnit(from, to game.Coord) error { return a.Send(protocol.NewMoveUnit(from, to)) }

func (a *Agent) Attack(attacker, defender game.Coord) error {
	return a.Send(protocol.NewAttack(attacker, defender))
}

func (a *Agent) EndTurn() error { return a.Send(protocol.NewEndTurn()) }

func (a *Agent) Chat(text string) error {
	a.mu.Lock()
	sender := a.name
	a.mu.Unlock()
	return a.Send(protocol.NewChat(sender, text, time.Now().Unix()))
}

// Close sends a best-effort disconnect and tears the connection down.
func (a *Agent) Close() error {
	_ = a.Send(protocol.NewDisconnect())
	a.writeMu.Lock()
	conn := a.conn
	a.writeMu.Unlock()
	var err error
	if conn != nil {
		err = conn.Close()
	}
	a.drop()
	return err
}

// receiveLoop reads frames until the connection dies, updating the cached
// view before queueing each message for the dispatcher.
func (a *Agent) receiveLoop(reader *bufio.Reader) {
	defer close(a.events)
	defer a.drop()
	for {
		payload, err := protocol.ReadFrame(reader, a.maxPayload)
		if err != nil {
			select {
			case <-a.closed:
			default:
				a.log.Debug("connection lost", logging.Error(err))
			}
			return
		}
		msg, err := protocol.Decode(payload)
		if err != nil {
			a.log.Warn("ignoring malformed server message", logging.Error(err))
			continue
		}
		a.apply(msg)
		a.events <- msg
	}
}

// dispatchLoop drains queued messages into the handler on one goroutine.
func (a *Agent) dispatchLoop() {
	for msg := range a.events {
		if a.handler != nil {
			a.handler(msg)
		}
	}
}

// drop marks the agent disconnected and fires the callback exactly once.
func (a *Agent) drop() {
	a.dropOnce.Do(func() {
		close(a.closed)
		a.mu.Lock()
		a.connected = false
		a.mu.Unlock()
		if a.onDrop != nil {
			a.onDrop()
		}
	})
}

// apply folds one server message into the cached view.
func (a *Agent) apply(msg protocol.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch m := msg.(type) {
	case protocol.GameCreated:
		a.gameID = m.GameID
		a.faction = game.FactionCzech
	case protocol.JoinResponse:
		if m.Status == protocol.StatusSuccess {
			a.gameID = m.GameID
			a.faction = m.Faction
		}
	case protocol.GameList:
		a.available = append([]protocol.GameSummary(nil), m.Games...)
	case protocol.GameState:
		state := m
		a.lastState = &state
		a.gameID = m.GameID
	case protocol.GameEnded:
		a.gameID = ""
		a.faction = ""
	}
}

// Connected reports whether the agent still holds a live connection.
func (a *Agent) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.connected
}

// ClientID returns the server-assigned identity.
func (a *Agent) ClientID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.clientID
}

// GameID returns the current session id, empty when not in a game.
func (a *Agent) GameID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gameID
}

// Faction returns the side assigned for the current game.
func (a *Agent) Faction() game.Faction {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.faction
}

// LastState returns a copy of the most recent full-state broadcast.
func (a *Agent) LastState() (protocol.GameState, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastState == nil {
		return protocol.GameState{}, false
	}
	return *a.lastState, true
}

// AvailableGames returns the most recent lobby listing.
func (a *Agent) AvailableGames() []protocol.GameSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]protocol.GameSummary(nil), a.available...)
}
