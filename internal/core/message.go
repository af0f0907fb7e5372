package core

import "time"

// DirectMessage is a private message as delivered to a live connection.
type DirectMessage struct {
	From      string // sender username, durable path
	Sender    string // sender connection id, notification path
	To        string
	Text      string
	CreatedAt time.Time
}
