package proto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope frames every WebSocket text message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Client to server events.
const (
	EventJoin           = "join"
	EventMessage        = "message"
	EventPrivateMessage = "private_message"
)

// Server to client events.
const (
	EventInvalidToken     = "invalid-token"
	EventNewAccessToken   = "new-access-token"
	EventInvalidUser      = "invalid-user"
	EventAlreadyConnected = "already-connected"
	EventServerError      = "server-error"
	EventOnlineUsers      = "online-users"
	EventReceiveMessage   = "receive_message"
	EventError            = "error"
)

// Ref is an identifier that clients may send either as a JSON string or a number.
// Room ids and user ids both use it.
type Ref string

// UnmarshalJSON accepts "42", 42 and plain strings.
func (r *Ref) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = Ref(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("ref must be a string or number: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("ref must be an integer: %w", err)
	}
	*r = Ref(n.String())
	return nil
}

// JoinData is the payload of join. Clients send the room id directly.
type JoinData = Ref

// MessageData is the payload of a durable message.
type MessageData struct {
	To      Ref    `json:"to"`
	Message string `json:"message"`
}

// PrivateMessageData is the payload of a non-persisted private_message.
type PrivateMessageData struct {
	RecipientID Ref    `json:"recipientId"`
	Message     string `json:"message"`
}

// OutMessage is delivered to the recipient of a durable message.
type OutMessage struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Message string `json:"message"`
	TS      int64  `json:"ts,omitempty"`
}

// ReceiveMessage is delivered to the recipient of a private_message.
type ReceiveMessage struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
}
