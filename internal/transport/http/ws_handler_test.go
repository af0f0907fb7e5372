package http

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/pawsit-server/internal/auth"
	"github.com/vovakirdan/pawsit-server/internal/config"
	"github.com/vovakirdan/pawsit-server/internal/proto"
	"github.com/vovakirdan/pawsit-server/internal/store"
)

func TestHealthEndpoint(t *testing.T) {
	srv := startTestServer(t)

	resp, err := srv.ts.Client().Get(srv.ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebSocketRejectsMissingToken(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, srv.wsURL(""), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ev := readEvent(t, ctx, conn)
	assert.Equal(t, proto.EventInvalidToken, ev.Event)
	var reason string
	require.NoError(t, json.Unmarshal(ev.Data, &reason))
	assert.Equal(t, "missing access token", reason)

	var next wireEvent
	err = wsjson.Read(ctx, conn, &next)
	require.Error(t, err)
	assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
	assert.Equal(t, 0, srv.registry.Len())
}

func TestWebSocketRejectsUnknownUser(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := srv.auth.Tokens().IssueAccess("404")
	require.NoError(t, err)

	conn := srv.dial(t, ctx, token)
	ev := readEvent(t, ctx, conn)
	assert.Equal(t, proto.EventInvalidUser, ev.Event)
	assert.Equal(t, 0, srv.registry.Len())
}

func TestWebSocketMessageFlow(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := srv.register(t, "alice", store.RoleOwner)
	bob := srv.register(t, "bob", store.RoleSitter)

	connA := srv.dial(t, ctx, alice.AccessToken)
	readUntil(t, ctx, connA, proto.EventOnlineUsers, onlineEquals("1"))

	connB := srv.dial(t, ctx, bob.AccessToken)
	readUntil(t, ctx, connA, proto.EventOnlineUsers, onlineEquals("1", "2"))
	readUntil(t, ctx, connB, proto.EventOnlineUsers, onlineEquals("1", "2"))

	send(t, ctx, connB, proto.EventMessage, map[string]any{"to": "1", "message": "hi"})

	raw := readUntil(t, ctx, connA, proto.EventMessage, nil)
	var msg proto.OutMessage
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "bob", msg.From)
	assert.Equal(t, "1", msg.To)
	assert.Equal(t, "hi", msg.Message)

	history, err := srv.store.ListConversation(ctx, 1, 2, 10, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(2), history[0].SenderID)
	assert.Equal(t, int64(1), history[0].RecipientID)
	assert.Equal(t, "hi", history[0].Body)
	assert.False(t, history[0].IsRead)

	// Numeric recipient ids are accepted too.
	send(t, ctx, connA, proto.EventMessage, map[string]any{"to": 2, "message": "hello back"})
	raw = readUntil(t, ctx, connB, proto.EventMessage, nil)
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "alice", msg.From)

	connB.Close(websocket.StatusNormalClosure, "bye")
	readUntil(t, ctx, connA, proto.EventOnlineUsers, onlineEquals("1"))
}

func TestWebSocketMessageToOfflineUserIsStored(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := srv.register(t, "alice", store.RoleOwner)
	srv.register(t, "bob", store.RoleSitter)

	connA := srv.dial(t, ctx, alice.AccessToken)
	readUntil(t, ctx, connA, proto.EventOnlineUsers, onlineEquals("1"))

	send(t, ctx, connA, proto.EventMessage, map[string]any{"to": "2", "message": "are you free saturday?"})

	// Round-trip an unknown event so the message has been handled before checking the store.
	send(t, ctx, connA, "ping", nil)
	raw := readUntil(t, ctx, connA, proto.EventError, nil)
	var reason string
	require.NoError(t, json.Unmarshal(raw, &reason))
	assert.Equal(t, "unknown event", reason)

	history, err := srv.store.ListConversation(ctx, 1, 2, 10, nil)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "are you free saturday?", history[0].Body)
}

func TestWebSocketAlreadyConnected(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := srv.register(t, "alice", store.RoleOwner)
	bob := srv.register(t, "bob", store.RoleSitter)

	first := srv.dial(t, ctx, alice.AccessToken)
	readUntil(t, ctx, first, proto.EventOnlineUsers, onlineEquals("1"))

	second := srv.dial(t, ctx, alice.AccessToken)
	raw := readUntil(t, ctx, second, proto.EventAlreadyConnected, nil)
	var reason string
	require.NoError(t, json.Unmarshal(raw, &reason))
	assert.Contains(t, reason, "1")

	// The original connection still receives messages.
	connB := srv.dial(t, ctx, bob.AccessToken)
	readUntil(t, ctx, connB, proto.EventOnlineUsers, onlineEquals("1", "2"))
	send(t, ctx, connB, proto.EventMessage, map[string]any{"to": "1", "message": "still there?"})
	readUntil(t, ctx, first, proto.EventMessage, nil)
}

func TestWebSocketRefreshesExpiredAccessToken(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := srv.register(t, "alice", store.RoleOwner)

	expiredCfg := testJWT
	expiredCfg.AccessTTL = -time.Minute
	expired, err := auth.NewTokenIssuer(expiredCfg).IssueAccess("1")
	require.NoError(t, err)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+expired)
	header.Set("X-Refresh-Token", alice.RefreshToken)
	conn, _, err := websocket.Dial(ctx, srv.wsURL(""), &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ev := readEvent(t, ctx, conn)
	require.Equal(t, proto.EventNewAccessToken, ev.Event)
	var fresh string
	require.NoError(t, json.Unmarshal(ev.Data, &fresh))

	claims, err := srv.auth.ValidateToken(fresh)
	require.NoError(t, err)
	assert.Equal(t, "1", claims.UserID())

	readUntil(t, ctx, conn, proto.EventOnlineUsers, onlineEquals("1"))
}

func TestWebSocketExpiredSessionRejected(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	srv.register(t, "alice", store.RoleOwner)

	conn, _, err := websocket.Dial(ctx, srv.wsURL("accessToken=garbage&refreshToken=garbage"), nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ev := readEvent(t, ctx, conn)
	assert.Equal(t, proto.EventInvalidToken, ev.Event)
	var reason string
	require.NoError(t, json.Unmarshal(ev.Data, &reason))
	assert.Contains(t, reason, "session expired")
}

func TestWebSocketPrivateMessage(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := srv.register(t, "alice", store.RoleOwner)
	bob := srv.register(t, "bob", store.RoleSitter)

	connA := srv.dial(t, ctx, alice.AccessToken)
	connB := srv.dial(t, ctx, bob.AccessToken)
	readUntil(t, ctx, connA, proto.EventOnlineUsers, onlineEquals("1", "2"))
	readUntil(t, ctx, connB, proto.EventOnlineUsers, onlineEquals("1", "2"))

	send(t, ctx, connA, proto.EventPrivateMessage, map[string]any{"recipientId": "2", "message": "knock knock"})
	raw := readUntil(t, ctx, connB, proto.EventReceiveMessage, nil)
	var received proto.ReceiveMessage
	require.NoError(t, json.Unmarshal(raw, &received))
	assert.Equal(t, "knock knock", received.Message)
	assert.NotEmpty(t, received.Sender)

	send(t, ctx, connA, proto.EventPrivateMessage, map[string]any{"recipientId": "3", "message": "anyone?"})
	raw = readUntil(t, ctx, connA, proto.EventError, nil)
	var reason string
	require.NoError(t, json.Unmarshal(raw, &reason))
	assert.Contains(t, reason, "3")

	history, err := srv.store.ListConversation(ctx, 1, 2, 10, nil)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestWebSocketRateLimit(t *testing.T) {
	srv := startTestServer(t, func(cfg *config.Config) { cfg.RateLimitPerMinute = 1 })
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	alice := srv.register(t, "alice", store.RoleOwner)
	conn := srv.dial(t, ctx, alice.AccessToken)
	readUntil(t, ctx, conn, proto.EventOnlineUsers, onlineEquals("1"))

	send(t, ctx, conn, proto.EventJoin, "walks")
	send(t, ctx, conn, proto.EventJoin, "walks")

	raw := readUntil(t, ctx, conn, proto.EventError, nil)
	var reason string
	require.NoError(t, json.Unmarshal(raw, &reason))
	assert.Equal(t, "rate limit exceeded", reason)
}

func TestHandlerServesRESTAndWebSocketOnOneListener(t *testing.T) {
	srv := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var registered AuthResponse
	status := doJSON(t, srv, http.MethodPost, "/api/register", "", map[string]string{
		"username": "alice", "password": "password123",
	}, &registered)
	require.Equal(t, http.StatusCreated, status)

	resp, err := srv.ts.Client().Get(srv.ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	conn, _, err := websocket.Dial(ctx, srv.wsURL("accessToken="+registered.AccessToken), nil)
	require.NoError(t, err, "websocket upgrade must succeed through the server handler")
	defer conn.Close(websocket.StatusNormalClosure, "done")

	ev := readEvent(t, ctx, conn)
	assert.Equal(t, proto.EventOnlineUsers, ev.Event)
	assert.JSONEq(t, `["1"]`, string(ev.Data))
}
