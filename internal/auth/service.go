package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/vovakirdan/pawsit-server/internal/store"
)

var (
	// ErrInvalidCredentials is returned when username/password don't match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserExists is returned when trying to register with existing username.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidUsername is returned when username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
	// ErrInvalidPassword is returned when password doesn't meet constraints.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrInvalidRole is returned for an unknown marketplace role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrSessionExpired is returned when a refresh token can no longer be used.
	ErrSessionExpired = errors.New("session expired")
)

// TokenPair is returned on register and login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	User         *store.User
}

// Service provides account operations on top of the user store.
type Service struct {
	store  store.UserStore
	tokens *TokenIssuer
}

// NewService creates a new authentication service.
func NewService(userStore store.UserStore, tokens *TokenIssuer) *Service {
	return &Service{
		store:  userStore,
		tokens: tokens,
	}
}

// Tokens exposes the issuer for transports that verify tokens themselves.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates a new user with hashed password and returns a token pair.
func (s *Service) Register(ctx context.Context, username, password string, role store.Role) (*TokenPair, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 32 {
		return nil, ErrInvalidUsername
	}
	if len(password) < 6 {
		return nil, ErrInvalidPassword
	}
	if role == "" {
		role = store.RoleOwner
	}
	if role != store.RoleOwner && role != store.RoleSitter {
		return nil, ErrInvalidRole
	}

	existing, err := s.store.GetUserByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, ErrUserExists
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, username, hashedPassword, role)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.issuePair(user)
}

// Login validates credentials and returns a token pair.
func (s *Service) Login(ctx context.Context, username, password string) (*TokenPair, error) {
	user, err := s.store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if errPwd := ComparePassword(user.PasswordHash, password); errPwd != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issuePair(user)
}

// Refresh exchanges a refresh token for a new access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	id, err := strconv.ParseInt(claims.UserID(), 10, 64)
	if err != nil {
		return "", fmt.Errorf("%w: bad subject", ErrSessionExpired)
	}
	if _, err := s.store.GetUserByID(ctx, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", fmt.Errorf("%w: user gone", ErrSessionExpired)
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	return s.tokens.IssueAccess(claims.UserID())
}

// ValidateToken validates an access token and returns the claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return s.tokens.VerifyAccess(tokenString)
}

func (s *Service) issuePair(user *store.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccess(user.IDString())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	refresh, err := s.tokens.IssueRefresh(user.IDString())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, User: user}, nil
}
