package core

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/pawsit-server/internal/auth"
	"github.com/vovakirdan/pawsit-server/internal/presence"
	"github.com/vovakirdan/pawsit-server/internal/store"
)

// unknownSender labels messages whose connection lost its user.
const unknownSender = "inconnu"

const defaultStoreTimeout = 5 * time.Second

// TokenVerifier validates handshake credentials and mints replacement access tokens.
type TokenVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
	VerifyRefresh(token string) (*auth.Claims, error)
	IssueAccess(userID string) (string, error)
}

type handlerFunc func(ctx context.Context, c *Conn, cmd *Command)

// Router authenticates connections, keeps presence and routes private messages.
type Router struct {
	users    store.UserStore
	messages store.MessageStore
	tokens   TokenVerifier
	presence *presence.Registry
	log      *zerolog.Logger

	storeTimeout time.Duration
	now          func() time.Time

	mu    sync.RWMutex
	conns map[string]*Conn
	rooms map[string]*Room

	// presenceMu orders presence mutations with the broadcasts that follow them.
	presenceMu sync.Mutex

	handlers map[CommandKind]handlerFunc
}

// Option configures a Router.
type Option func(*Router)

// WithStoreTimeout bounds each message store append.
func WithStoreTimeout(d time.Duration) Option {
	return func(r *Router) {
		if d > 0 {
			r.storeTimeout = d
		}
	}
}

// WithClock overrides the time source used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		r.now = now
	}
}

// NewRouter wires a router to its collaborators. The registry is owned by the caller.
func NewRouter(users store.UserStore, messages store.MessageStore, tokens TokenVerifier, registry *presence.Registry, logger *zerolog.Logger, opts ...Option) *Router {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	r := &Router{
		users:        users,
		messages:     messages,
		tokens:       tokens,
		presence:     registry,
		log:          logger,
		storeTimeout: defaultStoreTimeout,
		now:          time.Now,
		conns:        make(map[string]*Conn),
		rooms:        make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.handlers = map[CommandKind]handlerFunc{
		CommandJoin:           r.handleJoin,
		CommandMessage:        r.handleMessage,
		CommandPrivateMessage: r.handlePrivateMessage,
	}
	return r
}

// Attach registers a freshly opened connection so it receives broadcasts.
func (r *Router) Attach(c *Conn) {
	c.setState(StateConnecting)
	r.mu.Lock()
	r.conns[c.ID] = c
	r.mu.Unlock()
}

// Disconnect tears down a connection. It is safe to call more than once and on
// connections that never authenticated.
func (r *Router) Disconnect(c *Conn) {
	r.mu.Lock()
	delete(r.conns, c.ID)
	for name := range c.rooms {
		if room, ok := r.rooms[name]; ok {
			room.RemoveClient(c)
			if room.Empty() {
				delete(r.rooms, name)
			}
		}
		delete(c.rooms, name)
	}
	r.mu.Unlock()

	c.setState(StateDisconnected)

	r.presenceMu.Lock()
	defer r.presenceMu.Unlock()

	userID, ok := r.presence.Unregister(c.ID)
	if !ok {
		return
	}
	r.log.Info().Str("conn_id", c.ID).Str("user_id", userID).Msg("user went offline")
	r.broadcastOnline()
}

// Dispatch runs the handler for cmd. Only authenticated connections may dispatch.
func (r *Router) Dispatch(ctx context.Context, c *Conn, cmd *Command) error {
	if c.State() != StateAuthenticated {
		return ErrNotAuthenticated
	}
	handler, ok := r.handlers[cmd.Kind]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCommand, cmd.Kind)
	}
	handler(ctx, c, cmd)
	return nil
}

// Online returns the ids of connected users.
func (r *Router) Online() []string {
	return r.presence.Online()
}

// IsOnline reports whether userID holds a live authenticated connection.
func (r *Router) IsOnline(userID string) bool {
	return r.presence.IsOnline(userID)
}

// RoomMembers returns the connection ids that joined name.
func (r *Router) RoomMembers(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[name]
	if !ok {
		return nil
	}
	return room.Members()
}

func (r *Router) handleJoin(_ context.Context, c *Conn, cmd *Command) {
	if cmd.Room == "" {
		r.log.Debug().Str("conn_id", c.ID).Msg("join without room ignored")
		return
	}

	r.mu.Lock()
	room, ok := r.rooms[cmd.Room]
	if !ok {
		room = NewRoom(cmd.Room)
		r.rooms[cmd.Room] = room
	}
	room.AddClient(c)
	c.rooms[cmd.Room] = struct{}{}
	r.mu.Unlock()

	r.log.Debug().Str("conn_id", c.ID).Str("room", cmd.Room).Msg("joined room")
}

func (r *Router) handleMessage(ctx context.Context, c *Conn, cmd *Command) {
	if cmd.To == "" || cmd.Text == "" {
		r.log.Warn().Str("conn_id", c.ID).Msg("message without recipient or body ignored")
		return
	}
	if _, err := strconv.ParseInt(cmd.To, 10, 64); err != nil {
		r.log.Warn().Str("conn_id", c.ID).Str("recipient_id", cmd.To).Msg("message to malformed user id ignored")
		return
	}
	r.route(ctx, c, cmd.To, cmd.Text, true)
}

func (r *Router) handlePrivateMessage(ctx context.Context, c *Conn, cmd *Command) {
	if cmd.To == "" || cmd.Text == "" {
		r.log.Warn().Str("conn_id", c.ID).Msg("private message without recipient or body ignored")
		return
	}
	if !r.route(ctx, c, cmd.To, cmd.Text, false) {
		c.send(&Event{Kind: EventError, Reason: fmt.Sprintf("user %s is not connected", cmd.To)})
	}
}

// route is the single delivery primitive behind both message paths. With persist
// set the message is appended to the store before delivery; a store failure is
// logged and delivery still goes ahead. It reports whether a live recipient was found.
func (r *Router) route(ctx context.Context, from *Conn, to, text string, persist bool) bool {
	now := r.now()

	senderID, senderName := int64(0), unknownSender
	if u := from.User(); u != nil {
		senderID, senderName = u.ID, u.Username
	}

	if persist {
		r.persist(ctx, senderID, to, text, now)
	}

	target := r.lookup(to)
	if target == nil {
		r.log.Debug().Str("conn_id", from.ID).Str("recipient_id", to).Bool("persist", persist).Msg("recipient offline")
		return false
	}

	ev := &Event{Kind: EventReceiveMessage, Message: &DirectMessage{Sender: from.ID, To: to, Text: text, CreatedAt: now}}
	if persist {
		ev = &Event{Kind: EventMessage, Message: &DirectMessage{From: senderName, To: to, Text: text, CreatedAt: now}}
	}
	if !target.send(ev) {
		r.log.Warn().Str("conn_id", target.ID).Str("recipient_id", to).Msg("recipient queue full, message dropped")
	}
	return true
}

func (r *Router) persist(ctx context.Context, senderID int64, to, text string, now time.Time) {
	recipientID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		r.log.Warn().Str("recipient_id", to).Msg("cannot persist message to malformed user id")
		return
	}

	// The append outlives the sender's connection.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.storeTimeout)
	defer cancel()

	msg := &store.Message{
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        text,
		IsRead:      false,
		CreatedAt:   now,
	}
	if err := r.messages.SaveMessage(storeCtx, msg); err != nil {
		r.log.Error().Err(err).Int64("sender_id", senderID).Str("recipient_id", to).Msg("failed to persist message")
		return
	}
	r.log.Debug().Int64("message_id", msg.ID).Int64("sender_id", senderID).Str("recipient_id", to).Msg("message persisted")
}

func (r *Router) lookup(userID string) *Conn {
	connID, ok := r.presence.ConnectionFor(userID)
	if !ok {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[connID]
}

// broadcastOnline sends the presence snapshot to every attached connection.
// Callers hold presenceMu.
func (r *Router) broadcastOnline() {
	users := r.presence.Online()

	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.conns {
		snapshot := make([]string, len(users))
		copy(snapshot, users)
		if !c.send(&Event{Kind: EventOnlineUsers, Users: snapshot}) {
			r.log.Warn().Str("conn_id", c.ID).Msg("dropping online-users for slow connection")
		}
	}
}
