package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pawsit-server/internal/auth"
	"github.com/vovakirdan/pawsit-server/internal/config"
	"github.com/vovakirdan/pawsit-server/internal/core"
	"github.com/vovakirdan/pawsit-server/internal/presence"
	"github.com/vovakirdan/pawsit-server/internal/service/requests"
	"github.com/vovakirdan/pawsit-server/internal/store"
	"github.com/vovakirdan/pawsit-server/internal/store/sqlite"
)

var testJWT = auth.JWTConfig{
	AccessSecret:  []byte("test-access"),
	RefreshSecret: []byte("test-refresh"),
	Issuer:        "test",
	AccessTTL:     time.Hour,
	RefreshTTL:    24 * time.Hour,
}

type testServer struct {
	ts       *httptest.Server
	store    store.Store
	auth     *auth.Service
	registry *presence.Registry
}

// createTestStore creates an in-memory SQLite store with schema applied.
func createTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}
	return st
}

func startTestServer(t *testing.T, mutate ...func(*config.Config)) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.RateLimitPerMinute = 0
	for _, m := range mutate {
		m(&cfg)
	}

	logger := zerolog.Nop()
	st := createTestStore(t)
	issuer := auth.NewTokenIssuer(testJWT)
	authService := auth.NewService(st, issuer)
	registry := presence.NewRegistry()
	router := core.NewRouter(st, st, issuer, registry, &logger)

	handler := NewHandler(Deps{
		Auth:     authService,
		Router:   router,
		Store:    st,
		Requests: requests.New(st, st),
	}, &cfg, &logger)

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &testServer{ts: ts, store: st, auth: authService, registry: registry}
}

func (s *testServer) register(t *testing.T, username string, role store.Role) *auth.TokenPair {
	t.Helper()
	pair, err := s.auth.Register(context.Background(), username, "password123", role)
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return pair
}

func (s *testServer) wsURL(query string) string {
	u := strings.Replace(s.ts.URL, "http", "ws", 1) + "/ws"
	if query != "" {
		u += "?" + query
	}
	return u
}

func (s *testServer) dial(t *testing.T, ctx context.Context, accessToken string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, s.wsURL("accessToken="+accessToken), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

type wireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func readEvent(t *testing.T, ctx context.Context, conn *websocket.Conn) wireEvent {
	t.Helper()
	var ev wireEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

// readUntil skips events until one named event satisfies match.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	for {
		ev := readEvent(t, ctx, conn)
		if ev.Event != event {
			continue
		}
		if match == nil || match(ev.Data) {
			return ev.Data
		}
	}
}

func onlineEquals(want ...string) func(json.RawMessage) bool {
	return func(raw json.RawMessage) bool {
		var users []string
		if err := json.Unmarshal(raw, &users); err != nil {
			return false
		}
		if len(users) != len(want) {
			return false
		}
		for i := range users {
			if users[i] != want[i] {
				return false
			}
		}
		return true
	}
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := wsjson.Write(ctx, conn, wireEvent{Event: event, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", event, err)
	}
}
