package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired is returned when a token is well-formed but past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid is returned for bad signatures, malformed tokens or wrong token type.
	ErrTokenInvalid = errors.New("invalid token")
)

// TokenType separates access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims represents JWT claims for pawsit authentication. The user id travels in Subject.
type Claims struct {
	Type TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject claim.
func (c *Claims) UserID() string {
	return c.Subject
}

// JWTConfig holds JWT configuration. Access and refresh tokens are signed with different secrets.
type JWTConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenIssuer mints and verifies access and refresh tokens.
type TokenIssuer struct {
	cfg JWTConfig
	now func() time.Time
}

// NewTokenIssuer creates a token issuer from the given config.
func NewTokenIssuer(cfg JWTConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

// IssueAccess creates a short-lived access token for the user.
func (t *TokenIssuer) IssueAccess(userID string) (string, error) {
	return t.issue(userID, TokenTypeAccess, t.cfg.AccessSecret, t.cfg.AccessTTL)
}

// IssueRefresh creates a long-lived refresh token for the user.
func (t *TokenIssuer) IssueRefresh(userID string) (string, error) {
	return t.issue(userID, TokenTypeRefresh, t.cfg.RefreshSecret, t.cfg.RefreshTTL)
}

// VerifyAccess validates an access token and returns its claims.
func (t *TokenIssuer) VerifyAccess(token string) (*Claims, error) {
	return t.verify(token, TokenTypeAccess, t.cfg.AccessSecret)
}

// VerifyRefresh validates a refresh token and returns its claims.
func (t *TokenIssuer) VerifyRefresh(token string) (*Claims, error) {
	return t.verify(token, TokenTypeRefresh, t.cfg.RefreshSecret)
}

func (t *TokenIssuer) issue(userID string, typ TokenType, secret []byte, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("issue %s token: empty user id", typ)
	}
	now := t.now()
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    t.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (t *TokenIssuer) verify(tokenString string, typ TokenType, secret []byte) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("%w: empty", ErrTokenInvalid)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.cfg.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: unexpected claims", ErrTokenInvalid)
	}
	if claims.Type != typ {
		return nil, fmt.Errorf("%w: expected %s token, got %q", ErrTokenInvalid, typ, claims.Type)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}

	return claims, nil
}
