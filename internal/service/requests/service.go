package requests

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/pawsit-server/internal/store"
)

// Common errors for sitting request operations.
var (
	ErrCannotRequestSelf    = errors.New("cannot send a sitting request to yourself")
	ErrAlreadyContacts      = errors.New("already in contact")
	ErrRequestAlreadyExists = errors.New("sitting request already exists")
	ErrRequestNotFound      = errors.New("sitting request not found")
	ErrUserNotFound         = errors.New("user not found")
)

// Contact is the other side of an accepted request.
type Contact struct {
	User    *store.User
	Request *store.SittingRequest
}

// Service implements the owner/sitter contact workflow.
type Service struct {
	users    store.UserStore
	requests store.RequestStore
}

// New creates a new request service.
func New(users store.UserStore, requests store.RequestStore) *Service {
	return &Service{
		users:    users,
		requests: requests,
	}
}

// SendRequest creates a pending request from one user to another.
func (s *Service) SendRequest(ctx context.Context, fromUserID, toUserID int64) (*store.SittingRequest, error) {
	if fromUserID == toUserID {
		return nil, ErrCannotRequestSelf
	}

	if _, err := s.users.GetUserByID(ctx, toUserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	existing, err := s.requests.GetRequest(ctx, fromUserID, toUserID)
	switch {
	case err == nil:
		if existing.Status == store.RequestStatusAccepted {
			return nil, ErrAlreadyContacts
		}
		return nil, ErrRequestAlreadyExists
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("lookup request: %w", err)
	}

	req, err := s.requests.CreateRequest(ctx, fromUserID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("create sitting request: %w", err)
	}
	return req, nil
}

// pendingTo returns the pending request sent by fromUserID to userID.
func (s *Service) pendingTo(ctx context.Context, userID, fromUserID int64) (*store.SittingRequest, error) {
	existing, err := s.requests.GetRequest(ctx, fromUserID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("lookup request: %w", err)
	}
	if existing.Status != store.RequestStatusPending || existing.ToUserID != userID {
		return nil, ErrRequestNotFound
	}
	return existing, nil
}

// AcceptRequest accepts a pending request addressed to userID.
func (s *Service) AcceptRequest(ctx context.Context, userID, fromUserID int64) error {
	existing, err := s.pendingTo(ctx, userID, fromUserID)
	if err != nil {
		return err
	}
	if err := s.requests.UpdateRequestStatus(ctx, existing.FromUserID, existing.ToUserID, store.RequestStatusAccepted); err != nil {
		return fmt.Errorf("accept request: %w", err)
	}
	return nil
}

// RejectRequest deletes a pending request addressed to userID.
func (s *Service) RejectRequest(ctx context.Context, userID, fromUserID int64) error {
	existing, err := s.pendingTo(ctx, userID, fromUserID)
	if err != nil {
		return err
	}
	if err := s.requests.DeleteRequest(ctx, existing.FromUserID, existing.ToUserID); err != nil {
		return fmt.Errorf("reject request: %w", err)
	}
	return nil
}

// ListIncoming returns pending requests addressed to userID.
func (s *Service) ListIncoming(ctx context.Context, userID int64) ([]*store.SittingRequest, error) {
	status := store.RequestStatusPending
	all, err := s.requests.ListRequests(ctx, userID, &status)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}

	incoming := make([]*store.SittingRequest, 0, len(all))
	for _, r := range all {
		if r.ToUserID == userID {
			incoming = append(incoming, r)
		}
	}
	return incoming, nil
}

// ListContacts returns the users userID has an accepted request with.
func (s *Service) ListContacts(ctx context.Context, userID int64) ([]Contact, error) {
	status := store.RequestStatusAccepted
	accepted, err := s.requests.ListRequests(ctx, userID, &status)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	contacts := make([]Contact, 0, len(accepted))
	for _, r := range accepted {
		otherID := r.ToUserID
		if otherID == userID {
			otherID = r.FromUserID
		}
		u, err := s.users.GetUserByID(ctx, otherID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("lookup contact %d: %w", otherID, err)
		}
		contacts = append(contacts, Contact{User: u, Request: r})
	}
	return contacts, nil
}
