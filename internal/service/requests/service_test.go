package requests

import (
	"context"
	"errors"
	"testing"

	"github.com/vovakirdan/pawsit-server/internal/store"
	"github.com/vovakirdan/pawsit-server/internal/store/sqlite"
)

func setup(t *testing.T) (*Service, *sqlite.SQLiteStore, []*store.User) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	owner, err := st.CreateUser(ctx, "owner", "hash", store.RoleOwner)
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	sitter, err := st.CreateUser(ctx, "sitter", "hash", store.RoleSitter)
	if err != nil {
		t.Fatalf("create sitter: %v", err)
	}
	other, err := st.CreateUser(ctx, "other", "hash", store.RoleSitter)
	if err != nil {
		t.Fatalf("create other: %v", err)
	}

	return New(st, st), st, []*store.User{owner, sitter, other}
}

func TestSendRequestRules(t *testing.T) {
	svc, _, users := setup(t)
	ctx := context.Background()
	owner, sitter := users[0], users[1]

	if _, err := svc.SendRequest(ctx, owner.ID, owner.ID); !errors.Is(err, ErrCannotRequestSelf) {
		t.Fatalf("expected ErrCannotRequestSelf, got %v", err)
	}
	if _, err := svc.SendRequest(ctx, owner.ID, 999); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}

	req, err := svc.SendRequest(ctx, owner.ID, sitter.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if req.Status != store.RequestStatusPending || req.FromUserID != owner.ID || req.ToUserID != sitter.ID {
		t.Fatalf("unexpected request: %+v", req)
	}

	if _, err := svc.SendRequest(ctx, owner.ID, sitter.ID); !errors.Is(err, ErrRequestAlreadyExists) {
		t.Fatalf("expected ErrRequestAlreadyExists, got %v", err)
	}
	if _, err := svc.SendRequest(ctx, sitter.ID, owner.ID); !errors.Is(err, ErrRequestAlreadyExists) {
		t.Fatalf("expected ErrRequestAlreadyExists for reverse direction, got %v", err)
	}
}

func TestAcceptRequestCreatesContacts(t *testing.T) {
	svc, _, users := setup(t)
	ctx := context.Background()
	owner, sitter := users[0], users[1]

	if _, err := svc.SendRequest(ctx, owner.ID, sitter.ID); err != nil {
		t.Fatalf("send request: %v", err)
	}

	// Only the recipient may accept.
	if err := svc.AcceptRequest(ctx, owner.ID, sitter.ID); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound for sender accepting, got %v", err)
	}

	incoming, err := svc.ListIncoming(ctx, sitter.ID)
	if err != nil {
		t.Fatalf("list incoming: %v", err)
	}
	if len(incoming) != 1 || incoming[0].FromUserID != owner.ID {
		t.Fatalf("unexpected incoming: %+v", incoming)
	}
	if out, _ := svc.ListIncoming(ctx, owner.ID); len(out) != 0 {
		t.Fatalf("sender should have no incoming requests, got %d", len(out))
	}

	if err := svc.AcceptRequest(ctx, sitter.ID, owner.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	for _, u := range []*store.User{owner, sitter} {
		contacts, err := svc.ListContacts(ctx, u.ID)
		if err != nil {
			t.Fatalf("list contacts: %v", err)
		}
		if len(contacts) != 1 {
			t.Fatalf("expected 1 contact for %s, got %d", u.Username, len(contacts))
		}
		if contacts[0].User.ID == u.ID {
			t.Fatalf("contact for %s points at self", u.Username)
		}
	}

	if _, err := svc.SendRequest(ctx, owner.ID, sitter.ID); !errors.Is(err, ErrAlreadyContacts) {
		t.Fatalf("expected ErrAlreadyContacts, got %v", err)
	}
}

func TestRejectRequestDeletes(t *testing.T) {
	svc, _, users := setup(t)
	ctx := context.Background()
	owner, other := users[0], users[2]

	if _, err := svc.SendRequest(ctx, owner.ID, other.ID); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := svc.RejectRequest(ctx, other.ID, owner.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if err := svc.RejectRequest(ctx, other.ID, owner.ID); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound on second reject, got %v", err)
	}

	// A rejected request can be sent again.
	if _, err := svc.SendRequest(ctx, owner.ID, other.ID); err != nil {
		t.Fatalf("resend: %v", err)
	}
}
