// Package lobby owns the authoritative registry of connected clients and game
// sessions. Every read or write of registry contents happens under one mutex;
// outbound messages are assembled under the lock and delivered after it is
// released so slow sockets never stall the registry.
package lobby

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"goldenbrigade/server/internal/game"
	"goldenbrigade/server/internal/journal"
	"goldenbrigade/server/internal/logging"
	"goldenbrigade/server/internal/protocol"
)

// Session lifecycle states.
const (
	StateWaiting = "waiting"
	StateActive  = "active"
)

const maxPlayersPerGame = 2

var (
	// ErrUnknownClient is returned for operations on an unregistered client id.
	ErrUnknownClient = errors.New("unknown client")
	// ErrAlreadyInSession rejects creating or joining while still in a session.
	ErrAlreadyInSession = errors.New("already in a game")
	// ErrSessionNotFound is returned when the requested game id does not exist.
	ErrSessionNotFound = errors.New("game not found")
	// ErrSessionFull rejects joins beyond the two-player capacity.
	ErrSessionFull = errors.New("game is full")
	// ErrSessionNotJoinable rejects joins once a game has left the waiting state.
	ErrSessionNotJoinable = errors.New("game is no longer joinable")
)

// Sender delivers one message to a client. Implementations must not block;
// the connection layer buffers writes and tears down clients that fall behind.
type Sender interface {
	Send(msg protocol.Message)
}

// Client is the registry record for one connected player.
type Client struct {
	ID           string
	Name         string
	GameID       string
	LastActivity time.Time
	sender       Sender
}

// member is one session participant in join order.
type member struct {
	id      string
	name    string
	faction game.Faction
	ready   bool
}

// session is the registry record for one game.
type session struct {
	id        string
	hostID    string
	state     string
	members   []*member
	turn      int
	currentID string
	board     *game.Board
	createdAt time.Time
	journal   *journal.Writer
}

func (s *session) memberByID(id string) *member {
	for _, m := range s.members {
		if m.id == id {
			return m
		}
	}
	return nil
}

// Registry is the shared, mutex-guarded store of clients and sessions.
type Registry struct {
	mu       sync.Mutex
	log      *logging.Logger
	clients  map[string]*Client
	sessions map[string]*session

	maxTurns       int
	waitingTimeout time.Duration
	journalRoot    string

	now     func() time.Time
	newID   func() string
	dice    game.Dice
	mapRand *rand.Rand
}

// Option configures optional Registry behaviour at construction time.
type Option func(*Registry)

// WithClock overrides the default wall-clock time source.
func WithClock(clock func() time.Time) Option {
	return func(r *Registry) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithIDGenerator overrides the identifier source, primarily for tests.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithDice injects a deterministic dice roller for combat resolution.
func WithDice(dice game.Dice) Option {
	return func(r *Registry) {
		if dice != nil {
			r.dice = dice
		}
	}
}

// WithMapRand injects the randomness source used for terrain generation.
func WithMapRand(rng *rand.Rand) Option {
	return func(r *Registry) {
		if rng != nil {
			r.mapRand = rng
		}
	}
}

// WithMaxTurns overrides the turn cap after which sessions are scored and ended.
func WithMaxTurns(maxTurns int) Option {
	return func(r *Registry) {
		if maxTurns > 0 {
			r.maxTurns = maxTurns
		}
	}
}

// WithWaitingTimeout overrides how long a session may idle in the waiting state.
func WithWaitingTimeout(timeout time.Duration) Option {
	return func(r *Registry) {
		if timeout > 0 {
			r.waitingTimeout = timeout
		}
	}
}

// WithJournalRoot enables per-session broadcast journals under the directory.
func WithJournalRoot(root string) Option {
	return func(r *Registry) {
		r.journalRoot = root
	}
}

// New constructs an empty registry.
func New(log *logging.Logger, opts ...Option) *Registry {
	if log == nil {
		log = logging.L()
	}
	seed := rand.New(rand.NewSource(time.Now().UnixNano()))
	registry := &Registry{
		log:            log,
		clients:        make(map[string]*Client),
		sessions:       make(map[string]*session),
		maxTurns:       20,
		waitingTimeout: time.Hour,
		now:            time.Now,
		newID:          uuid.NewString,
		dice:           game.NewDice(seed),
		mapRand:        seed,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(registry)
		}
	}
	return registry
}

// Register allocates a client record and returns its id.
func (r *Registry) Register(name string, sender Sender) string {
	r.mu.Lock()
	client := &Client{
		ID:           r.newID(),
		Name:         name,
		LastActivity: r.now(),
		sender:       sender,
	}
	r.clients[client.ID] = client
	r.mu.Unlock()

	r.log.Info("client registered",
		logging.String("client_id", client.ID),
		logging.String("player", name))
	return client.ID
}

// Touch refreshes the client's last-activity timestamp.
func (r *Registry) Touch(clientID string) {
	r.mu.Lock()
	if client, ok := r.clients[clientID]; ok {
		client.LastActivity = r.now()
	}
	r.mu.Unlock()
}

// Unregister removes a client, running the session leave protocol first when
// the client is a member of one.
func (r *Registry) Unregister(clientID string) {
	var out outbox

	r.mu.Lock()
	client, ok := r.clients[clientID]
	if ok {
		if client.GameID != "" {
			r.leaveLocked(client, &out)
		}
		delete(r.clients, clientID)
	}
	r.mu.Unlock()
	out.flush()

	if ok {
		r.log.Info("client unregistered", logging.String("client_id", clientID))
	}
}

// ClientName reports the display name registered for the client id.
func (r *Registry) ClientName(clientID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.clients[clientID]
	if !ok {
		return "", false
	}
	return client.Name, true
}

// sessionID derives a short, human-shareable game identifier.
func (r *Registry) sessionID() string {
	id := r.newID()
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// delivery pairs a queued message with its destination.
type delivery struct {
	sender Sender
	msg    protocol.Message
}

// outbox accumulates work under the registry lock for execution after release.
type outbox struct {
	deliveries []delivery
	after      []func()
}

func (o *outbox) sendTo(client *Client, msg protocol.Message) {
	if client == nil || client.sender == nil {
		return
	}
	o.deliveries = append(o.deliveries, delivery{sender: client.sender, msg: msg})
}

func (o *outbox) later(fn func()) {
	if fn != nil {
		o.after = append(o.after, fn)
	}
}

// flush delivers queued messages and runs deferred work. Must be called with
// the registry lock released.
func (o *outbox) flush() {
	for _, item := range o.deliveries {
		item.sender.Send(item.msg)
	}
	for _, fn := range o.after {
		fn()
	}
}
