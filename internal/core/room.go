package core

import "sort"

// Room groups connections that joined the same name.
type Room struct {
	Name    string
	clients map[*Conn]struct{}
}

// NewRoom constructs a room with no clients.
func NewRoom(name string) *Room {
	return &Room{
		Name:    name,
		clients: make(map[*Conn]struct{}),
	}
}

// AddClient inserts a connection into the room. Returns true if newly added.
func (r *Room) AddClient(c *Conn) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// RemoveClient deletes a connection from the room. Returns true if removed.
func (r *Room) RemoveClient(c *Conn) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

// Members returns the connection ids in the room, sorted.
func (r *Room) Members() []string {
	ids := make([]string, 0, len(r.clients))
	for c := range r.clients {
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)
	return ids
}

// Empty returns true if no clients are in the room.
func (r *Room) Empty() bool {
	return len(r.clients) == 0
}
