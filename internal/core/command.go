package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandJoin subscribes the connection to a named group.
	CommandJoin CommandKind = iota
	// CommandMessage sends a durable private message to a user.
	CommandMessage
	// CommandPrivateMessage sends a non-persisted notification to a user.
	CommandPrivateMessage
)

func (k CommandKind) String() string {
	switch k {
	case CommandJoin:
		return "join"
	case CommandMessage:
		return "message"
	case CommandPrivateMessage:
		return "private_message"
	default:
		return "unknown"
	}
}

// Command represents an action requested by an authenticated connection.
type Command struct {
	Kind CommandKind
	Room string
	To   string
	Text string
}
