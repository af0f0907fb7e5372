package store

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Role is the marketplace role of a user.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleSitter Role = "sitter"
)

// User represents a user in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// IDString returns the user id in the form used on the wire and in tokens.
func (u *User) IDString() string {
	return strconv.FormatInt(u.ID, 10)
}

// Message represents a persisted private message.
type Message struct {
	ID          int64
	SenderID    int64
	RecipientID int64
	Body        string
	IsRead      bool
	CreatedAt   time.Time
}

// RequestStatus defines the state of a sitting request.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
)

// SittingRequest is a contact request between a pet owner and a sitter.
type SittingRequest struct {
	ID         int64
	FromUserID int64
	ToUserID   int64
	Status     RequestStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with hashed password.
	CreateUser(ctx context.Context, username, passwordHash string, role Role) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByUsername retrieves a user by username.
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage appends a message and fills in its ID.
	SaveMessage(ctx context.Context, msg *Message) error

	// ListConversation returns messages exchanged between two users, oldest first.
	// If beforeID is provided, only messages older than that ID are considered.
	ListConversation(ctx context.Context, userID, otherID int64, limit int, beforeID *int64) ([]*Message, error)

	// MarkRead flags every unread message from senderID to recipientID as read.
	MarkRead(ctx context.Context, recipientID, senderID int64) (int64, error)
}

// RequestStore handles sitting request persistence.
type RequestStore interface {
	// CreateRequest creates a new pending request.
	CreateRequest(ctx context.Context, fromUserID, toUserID int64) (*SittingRequest, error)

	// GetRequest retrieves a request between two users (in either direction).
	GetRequest(ctx context.Context, userID, otherID int64) (*SittingRequest, error)

	// UpdateRequestStatus updates the status of the request from fromUserID to toUserID.
	UpdateRequestStatus(ctx context.Context, fromUserID, toUserID int64, status RequestStatus) error

	// DeleteRequest removes the request from fromUserID to toUserID.
	DeleteRequest(ctx context.Context, fromUserID, toUserID int64) error

	// ListRequests lists requests involving a user, optionally filtered by status.
	ListRequests(ctx context.Context, userID int64, status *RequestStatus) ([]*SittingRequest, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	MessageStore
	RequestStore

	// Migrate applies the schema. It is safe to run repeatedly.
	Migrate(ctx context.Context) error

	// Close closes the underlying database connection.
	Close() error
}
