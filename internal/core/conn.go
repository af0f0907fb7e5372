package core

import (
	"sync"

	"github.com/vovakirdan/pawsit-server/internal/store"
)

const eventBuffer = 32

// State is the lifecycle position of a connection.
type State int

const (
	StateConnecting State = iota
	StateAuthenticating
	// StateRefreshing is the sub-state of authentication entered when the access token failed.
	StateRefreshing
	StateAuthenticated
	StateRejected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateAuthenticating:
		return "authenticating"
	case StateRefreshing:
		return "refreshing"
	case StateAuthenticated:
		return "authenticated"
	case StateRejected:
		return "rejected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Handshake carries the credentials presented when the connection was opened.
type Handshake struct {
	AccessToken  string
	RefreshToken string
}

// Conn is one live real-time link as seen by the core layer.
type Conn struct {
	ID     string
	Events chan *Event

	mu    sync.RWMutex
	state State
	user  *store.User

	// rooms is guarded by the router lock.
	rooms map[string]struct{}
}

// NewConn constructs a connection with an initialized event channel.
func NewConn(id string) *Conn {
	return &Conn{
		ID:     id,
		Events: make(chan *Event, eventBuffer),
		rooms:  make(map[string]struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Conn) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// User returns the authenticated user, or nil before authentication.
func (c *Conn) User() *store.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// UserID returns the authenticated user's wire id, or "" before authentication.
func (c *Conn) UserID() string {
	if u := c.User(); u != nil {
		return u.IDString()
	}
	return ""
}

func (c *Conn) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Conn) authenticate(u *store.User) {
	c.mu.Lock()
	c.user = u
	c.state = StateAuthenticated
	c.mu.Unlock()
}

// send queues an event without blocking. Slow consumers drop events.
func (c *Conn) send(ev *Event) bool {
	select {
	case c.Events <- ev:
		return true
	default:
		return false
	}
}
