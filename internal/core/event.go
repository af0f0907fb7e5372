package core

// EventKind is a notification the core emits to connections.
type EventKind int

const (
	// EventInvalidToken rejects a connection with missing or unusable credentials.
	EventInvalidToken EventKind = iota
	// EventNewAccessToken hands a freshly minted access token to the client.
	EventNewAccessToken
	// EventInvalidUser rejects a token whose user does not exist.
	EventInvalidUser
	// EventAlreadyConnected rejects a second connection for the same user.
	EventAlreadyConnected
	// EventServerError reports an unexpected failure during authentication.
	EventServerError
	// EventOnlineUsers carries the full set of connected user ids.
	EventOnlineUsers
	// EventMessage delivers a durable private message.
	EventMessage
	// EventReceiveMessage delivers a non-persisted private message.
	EventReceiveMessage
	// EventError tells the sender that a private message could not be delivered.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventInvalidToken:
		return "invalid-token"
	case EventNewAccessToken:
		return "new-access-token"
	case EventInvalidUser:
		return "invalid-user"
	case EventAlreadyConnected:
		return "already-connected"
	case EventServerError:
		return "server-error"
	case EventOnlineUsers:
		return "online-users"
	case EventMessage:
		return "message"
	case EventReceiveMessage:
		return "receive_message"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is sent to connections to describe what happened in the system.
type Event struct {
	Kind    EventKind
	Reason  string         // rejection and error text
	Token   string         // EventNewAccessToken
	Users   []string       // EventOnlineUsers
	Message *DirectMessage // EventMessage, EventReceiveMessage
}
