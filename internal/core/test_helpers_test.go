package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/vovakirdan/pawsit-server/internal/auth"
	"github.com/vovakirdan/pawsit-server/internal/presence"
	"github.com/vovakirdan/pawsit-server/internal/store"
)

var testJWT = auth.JWTConfig{
	AccessSecret:  []byte("access-secret"),
	RefreshSecret: []byte("refresh-secret"),
	Issuer:        "pawsit-test",
	AccessTTL:     time.Hour,
	RefreshTTL:    24 * time.Hour,
}

// expiredIssuer shares secrets with testJWT but mints tokens that are already expired.
func expiredIssuer() *auth.TokenIssuer {
	cfg := testJWT
	cfg.AccessTTL = -time.Minute
	cfg.RefreshTTL = -time.Minute
	return auth.NewTokenIssuer(cfg)
}

type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*store.User
	err   error
}

func newFakeUsers(names ...string) *fakeUsers {
	f := &fakeUsers{users: make(map[int64]*store.User)}
	for i, name := range names {
		id := int64(i + 1)
		f.users[id] = &store.User{ID: id, Username: name, Role: store.RoleOwner}
	}
	return f
}

func (f *fakeUsers) CreateUser(_ context.Context, username, passwordHash string, role store.Role) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := int64(len(f.users) + 1)
	u := &store.User{ID: id, Username: username, PasswordHash: passwordHash, Role: role}
	f.users[id] = u
	return u, nil
}

func (f *fakeUsers) GetUserByID(_ context.Context, id int64) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetUserByUsername(_ context.Context, username string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

var errStoreDown = errors.New("store down")

type fakeMessages struct {
	mu    sync.Mutex
	saved []*store.Message
	fail  bool
}

func (f *fakeMessages) SaveMessage(ctx context.Context, msg *store.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errStoreDown
	}
	msg.ID = int64(len(f.saved) + 1)
	cp := *msg
	f.saved = append(f.saved, &cp)
	return nil
}

func (f *fakeMessages) ListConversation(context.Context, int64, int64, int, *int64) ([]*store.Message, error) {
	return nil, nil
}

func (f *fakeMessages) MarkRead(context.Context, int64, int64) (int64, error) {
	return 0, nil
}

func (f *fakeMessages) Saved() []*store.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*store.Message, len(f.saved))
	copy(out, f.saved)
	return out
}

// stubTokens lets a test force the refresh verification error.
type stubTokens struct {
	*auth.TokenIssuer
	refreshErr error
}

func (s *stubTokens) VerifyRefresh(token string) (*auth.Claims, error) {
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.TokenIssuer.VerifyRefresh(token)
}

type testEnv struct {
	router   *Router
	users    *fakeUsers
	messages *fakeMessages
	registry *presence.Registry
	tokens   *auth.TokenIssuer
}

func newTestEnv(t *testing.T, names ...string) *testEnv {
	t.Helper()
	return newTestEnvWithVerifier(t, nil, names...)
}

func newTestEnvWithVerifier(t *testing.T, verifier TokenVerifier, names ...string) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	env := &testEnv{
		users:    newFakeUsers(names...),
		messages: &fakeMessages{},
		registry: presence.NewRegistry(),
		tokens:   auth.NewTokenIssuer(testJWT),
	}
	if verifier == nil {
		verifier = env.tokens
	}
	env.router = NewRouter(env.users, env.messages, verifier, env.registry, &logger)
	return env
}

func (e *testEnv) accessFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.tokens.IssueAccess(userID)
	if err != nil {
		t.Fatalf("issue access: %v", err)
	}
	return token
}

// connect attaches a connection and authenticates it with a valid access token.
func (e *testEnv) connect(t *testing.T, connID, userID string) *Conn {
	t.Helper()
	c := NewConn(connID)
	e.router.Attach(c)
	if err := e.router.Authenticate(context.Background(), c, Handshake{AccessToken: e.accessFor(t, userID)}); err != nil {
		t.Fatalf("authenticate %s: %v", userID, err)
	}
	return c
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// drain empties the queued events of c and returns them in order.
func drain(c *Conn) []*Event {
	var out []*Event
	for {
		select {
		case ev := <-c.Events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(events []*Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}
