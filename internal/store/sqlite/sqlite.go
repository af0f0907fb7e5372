package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vovakirdan/pawsit-server/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, nil)
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests to seed data right after the connection is opened.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; it also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string, role store.Role) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, role)
		VALUES (?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, passwordHash, string(role))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE id = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = ?
	`
	return s.scanUser(s.db.QueryRowContext(ctx, query, username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	var role string
	err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	user.Role = store.Role(role)
	return &user, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (sender_id, recipient_id, body, is_read, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.SenderID, msg.RecipientID, msg.Body, msg.IsRead, msg.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	msg.ID = id
	return nil
}

// ListConversation retrieves messages between two users with pagination.
func (s *SQLiteStore) ListConversation(ctx context.Context, userID, otherID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, body, is_read, created_at
		FROM messages
		WHERE ((sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?))
	`
	args := []interface{}{userID, otherID, otherID, userID}
	if beforeID != nil {
		query += ` AND id < ?`
		args = append(args, *beforeID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Body, &msg.IsRead, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}

	// Reverse to get chronological order
	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}

	return messages, rows.Err()
}

// MarkRead flags unread messages from senderID to recipientID as read.
func (s *SQLiteStore) MarkRead(ctx context.Context, recipientID, senderID int64) (int64, error) {
	query := `
		UPDATE messages
		SET is_read = 1
		WHERE recipient_id = ? AND sender_id = ? AND is_read = 0
	`
	result, err := s.db.ExecContext(ctx, query, recipientID, senderID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return n, nil
}

// ==== RequestStore implementation ====

// CreateRequest creates a new pending sitting request.
func (s *SQLiteStore) CreateRequest(ctx context.Context, fromUserID, toUserID int64) (*store.SittingRequest, error) {
	query := `
		INSERT INTO sitting_requests (from_user_id, to_user_id, status)
		VALUES (?, ?, 'pending')
	`
	result, err := s.db.ExecContext(ctx, query, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("insert sitting request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getRequestByID(ctx, id)
}

func (s *SQLiteStore) getRequestByID(ctx context.Context, id int64) (*store.SittingRequest, error) {
	query := `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM sitting_requests
		WHERE id = ?
	`
	return scanRequest(s.db.QueryRowContext(ctx, query, id))
}

// GetRequest retrieves a request between two users (in either direction).
func (s *SQLiteStore) GetRequest(ctx context.Context, userID, otherID int64) (*store.SittingRequest, error) {
	query := `
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM sitting_requests
		WHERE (from_user_id = ? AND to_user_id = ?) OR (from_user_id = ? AND to_user_id = ?)
	`
	return scanRequest(s.db.QueryRowContext(ctx, query, userID, otherID, otherID, userID))
}

// UpdateRequestStatus updates the status of a request.
func (s *SQLiteStore) UpdateRequestStatus(ctx context.Context, fromUserID, toUserID int64, status store.RequestStatus) error {
	query := `
		UPDATE sitting_requests
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE from_user_id = ? AND to_user_id = ?
	`
	result, err := s.db.ExecContext(ctx, query, string(status), fromUserID, toUserID)
	if err != nil {
		return fmt.Errorf("update sitting request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sitting request: %w", store.ErrNotFound)
	}
	return nil
}

// DeleteRequest removes a request record.
func (s *SQLiteStore) DeleteRequest(ctx context.Context, fromUserID, toUserID int64) error {
	query := `DELETE FROM sitting_requests WHERE from_user_id = ? AND to_user_id = ?`
	if _, err := s.db.ExecContext(ctx, query, fromUserID, toUserID); err != nil {
		return fmt.Errorf("delete sitting request: %w", err)
	}
	return nil
}

// ListRequests lists requests for a user, optionally filtered by status.
func (s *SQLiteStore) ListRequests(ctx context.Context, userID int64, status *store.RequestStatus) ([]*store.SittingRequest, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, from_user_id, to_user_id, status, created_at, updated_at
		FROM sitting_requests
		WHERE (from_user_id = ? OR to_user_id = ?)`)
	args := []interface{}{userID, userID}
	if status != nil {
		sb.WriteString(` AND status = ?`)
		args = append(args, string(*status))
	}
	sb.WriteString(` ORDER BY updated_at DESC, id DESC`)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query sitting requests: %w", err)
	}
	defer rows.Close()

	var requests []*store.SittingRequest
	for rows.Next() {
		var req store.SittingRequest
		var statusStr string
		if err := rows.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &statusStr, &req.CreatedAt, &req.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sitting request: %w", err)
		}
		req.Status = store.RequestStatus(statusStr)
		requests = append(requests, &req)
	}

	return requests, rows.Err()
}

func scanRequest(row *sql.Row) (*store.SittingRequest, error) {
	var req store.SittingRequest
	var status string
	err := row.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &status, &req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sitting request: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query sitting request: %w", err)
	}
	req.Status = store.RequestStatus(status)
	return &req, nil
}

var _ store.Store = (*SQLiteStore)(nil)
