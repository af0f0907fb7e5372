package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/vovakirdan/pawsit-server/internal/auth"
	"github.com/vovakirdan/pawsit-server/internal/store"
)

// Authenticate runs the handshake state machine for a newly attached connection.
// On success the connection is Authenticated, present in the registry and every
// connection has been sent the new online set. Any non-nil error means the
// connection did not authenticate; the matching event is already queued on it
// and the transport should flush and close.
func (r *Router) Authenticate(ctx context.Context, c *Conn, hs Handshake) error {
	c.setState(StateAuthenticating)

	if hs.AccessToken == "" {
		return r.reject(c, EventInvalidToken, "missing access token")
	}

	userID, err := r.resolveUserID(c, hs)
	if err != nil {
		return err
	}
	return r.admit(ctx, c, userID)
}

// resolveUserID verifies the access token and falls back to the refresh token.
func (r *Router) resolveUserID(c *Conn, hs Handshake) (string, error) {
	claims, err := r.tokens.VerifyAccess(hs.AccessToken)
	if err == nil {
		return claims.UserID(), nil
	}
	r.log.Debug().Err(err).Str("conn_id", c.ID).Msg("access token rejected, trying refresh token")

	c.setState(StateRefreshing)
	if hs.RefreshToken == "" {
		return "", r.reject(c, EventInvalidToken, "invalid access token and no refresh token")
	}

	refreshClaims, err := r.tokens.VerifyRefresh(hs.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) || errors.Is(err, auth.ErrTokenInvalid) {
			return "", r.reject(c, EventInvalidToken, "session expired, please log in again")
		}
		r.log.Warn().Err(err).Str("conn_id", c.ID).Msg("unknown jwt error")
		return "", r.reject(c, EventInvalidToken, "unknown token error")
	}

	fresh, err := r.tokens.IssueAccess(refreshClaims.UserID())
	if err != nil {
		return "", r.fail(c, "could not issue access token", err)
	}
	c.send(&Event{Kind: EventNewAccessToken, Token: fresh})

	decoded, err := r.tokens.VerifyAccess(fresh)
	if err != nil {
		return "", r.fail(c, "could not decode refreshed token", err)
	}
	return decoded.UserID(), nil
}

// admit validates the user and claims the presence slot.
func (r *Router) admit(ctx context.Context, c *Conn, userID string) error {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return r.reject(c, EventInvalidUser, "user not found")
	}

	user, err := r.users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return r.reject(c, EventInvalidUser, "user not found")
		}
		return r.fail(c, "user lookup failed", err)
	}

	r.presenceMu.Lock()
	defer r.presenceMu.Unlock()

	if !r.presence.TryRegister(userID, c.ID) {
		return r.reject(c, EventAlreadyConnected, fmt.Sprintf("user %s is already connected", userID))
	}
	c.authenticate(user)

	r.log.Info().Str("conn_id", c.ID).Str("user_id", userID).Str("username", user.Username).Msg("user authenticated")
	r.broadcastOnline()
	return nil
}

func (r *Router) reject(c *Conn, kind EventKind, reason string) error {
	c.setState(StateRejected)
	c.send(&Event{Kind: kind, Reason: reason})
	r.log.Info().Str("conn_id", c.ID).Str("event", kind.String()).Str("reason", reason).Msg("connection rejected")
	return &RejectError{Kind: kind, Reason: reason}
}

// fail reports an infrastructure error. The connection keeps its current state.
func (r *Router) fail(c *Conn, reason string, err error) error {
	c.send(&Event{Kind: EventServerError, Reason: "internal server error"})
	r.log.Error().Err(err).Str("conn_id", c.ID).Msg(reason)
	return &RejectError{Kind: EventServerError, Reason: reason, Err: err}
}
