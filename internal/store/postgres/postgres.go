// Package postgres implements store.Store on PostgreSQL through the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/vovakirdan/pawsit-server/internal/store"
)

// PostgresStore implements store.Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// New opens a PostgreSQL store. Call Migrate before first use.
func New(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		role          TEXT NOT NULL DEFAULT 'owner',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id           BIGSERIAL PRIMARY KEY,
		sender_id    BIGINT NOT NULL,
		recipient_id BIGINT NOT NULL,
		body         TEXT NOT NULL,
		is_read      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, recipient_id, id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_recipient_unread ON messages(recipient_id, is_read)`,
	`CREATE TABLE IF NOT EXISTS sitting_requests (
		id           BIGSERIAL PRIMARY KEY,
		from_user_id BIGINT NOT NULL REFERENCES users(id),
		to_user_id   BIGINT NOT NULL REFERENCES users(id),
		status       TEXT NOT NULL DEFAULT 'pending',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (from_user_id, to_user_id)
	)`,
}

// Migrate applies the schema. Statements are idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser creates a new user with hashed password.
func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash string, role store.Role) (*store.User, error) {
	query := `
		INSERT INTO users (username, password_hash, role)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, role, created_at
	`
	return scanUser(s.db.QueryRowContext(ctx, query, username, passwordHash, string(role)))
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE id = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, id))
}

// GetUserByUsername retrieves a user by username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`
	return scanUser(s.db.QueryRowContext(ctx, query, username))
}

func scanUser(row *sql.Row) (*store.User, error) {
	var user store.User
	var role string
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &role, &user.CreatedAt); err != nil {
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
func (s *PostgresStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	query := `
		INSERT INTO messages (sender_id, recipient_id, body, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := s.db.QueryRowContext(ctx, query, msg.SenderID, msg.RecipientID, msg.Body, msg.IsRead, msg.CreatedAt).Scan(&msg.ID)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// ListConversation retrieves messages between two users, oldest first.
func (s *PostgresStore) ListConversation(ctx context.Context, userID, otherID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	query := `
		SELECT id, sender_id, recipient_id, body, is_read, created_at
		FROM messages
		WHERE ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
	`
	args := []any{userID, otherID}
	if beforeID != nil {
		args = append(args, *beforeID)
		query += fmt.Sprintf(" AND id < $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d", len(args))

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
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range len(messages) / 2 {
		messages[i], messages[len(messages)-1-i] = messages[len(messages)-1-i], messages[i]
	}
	return messages, nil
}

// MarkRead flags unread messages from senderID to recipientID as read.
func (s *PostgresStore) MarkRead(ctx context.Context, recipientID, senderID int64) (int64, error) {
	query := `UPDATE messages SET is_read = TRUE WHERE recipient_id = $1 AND sender_id = $2 AND NOT is_read`
	result, err := s.db.ExecContext(ctx, query, recipientID, senderID)
	if err != nil {
		return 0, fmt.Errorf("mark read: %w", err)
	}
	return result.RowsAffected()
}

// ==== RequestStore implementation ====

const requestColumns = `id, from_user_id, to_user_id, status, created_at, updated_at`

// CreateRequest creates a new pending sitting request.
func (s *PostgresStore) CreateRequest(ctx context.Context, fromUserID, toUserID int64) (*store.SittingRequest, error) {
	query := `
		INSERT INTO sitting_requests (from_user_id, to_user_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING ` + requestColumns
	return scanRequest(s.db.QueryRowContext(ctx, query, fromUserID, toUserID))
}

// GetRequest retrieves a request between two users (in either direction).
func (s *PostgresStore) GetRequest(ctx context.Context, userID, otherID int64) (*store.SittingRequest, error) {
	query := `SELECT ` + requestColumns + `
		FROM sitting_requests
		WHERE (from_user_id = $1 AND to_user_id = $2) OR (from_user_id = $2 AND to_user_id = $1)`
	return scanRequest(s.db.QueryRowContext(ctx, query, userID, otherID))
}

// UpdateRequestStatus updates the status of a request.
func (s *PostgresStore) UpdateRequestStatus(ctx context.Context, fromUserID, toUserID int64, status store.RequestStatus) error {
	query := `
		UPDATE sitting_requests
		SET status = $1, updated_at = NOW()
		WHERE from_user_id = $2 AND to_user_id = $3
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
func (s *PostgresStore) DeleteRequest(ctx context.Context, fromUserID, toUserID int64) error {
	query := `DELETE FROM sitting_requests WHERE from_user_id = $1 AND to_user_id = $2`
	if _, err := s.db.ExecContext(ctx, query, fromUserID, toUserID); err != nil {
		return fmt.Errorf("delete sitting request: %w", err)
	}
	return nil
}

// ListRequests lists requests for a user, optionally filtered by status.
func (s *PostgresStore) ListRequests(ctx context.Context, userID int64, status *store.RequestStatus) ([]*store.SittingRequest, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + requestColumns + ` FROM sitting_requests WHERE (from_user_id = $1 OR to_user_id = $1)`)
	args := []any{userID}
	if status != nil {
		args = append(args, string(*status))
		sb.WriteString(` AND status = $2`)
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
	if err := row.Scan(&req.ID, &req.FromUserID, &req.ToUserID, &status, &req.CreatedAt, &req.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sitting request: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query sitting request: %w", err)
	}
	req.Status = store.RequestStatus(status)
	return &req, nil
}

var _ store.Store = (*PostgresStore)(nil)
