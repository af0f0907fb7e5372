// Package presence tracks which user holds which live connection.
//
// The registry keeps two indexes, user -> connection for routing and
// connection -> user for disconnect cleanup, and updates them together.
// A user holds at most one entry at a time.
package presence

import (
	"sort"
	"sync"
)

// Registry is the in-memory presence table. The zero value is not usable; call NewRegistry.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]string
	byConn map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]string),
		byConn: make(map[string]string),
	}
}

// TryRegister binds userID to connID unless the user already has a connection.
// The check and insert happen under one lock, so concurrent callers for the
// same user cannot both succeed.
func (r *Registry) TryRegister(userID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUser[userID]; exists {
		return false
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
	return true
}

// Unregister removes the entry owned by connID and returns the user it belonged to.
// Calling it for an unknown or already removed connection is a no-op.
func (r *Registry) Unregister(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
	return userID, true
}

// ConnectionFor returns the live connection of userID.
func (r *Registry) ConnectionFor(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	connID, ok := r.byUser[userID]
	return connID, ok
}

// UserFor returns the user bound to connID.
func (r *Registry) UserFor(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.byConn[connID]
	return userID, ok
}

// IsOnline reports whether userID currently holds a connection.
func (r *Registry) IsOnline(userID string) bool {
	_, ok := r.ConnectionFor(userID)
	return ok
}

// Online returns the connected user ids in ascending order.
func (r *Registry) Online() []string {
	r.mu.RLock()
	users := make([]string, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Len returns the number of connected users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
