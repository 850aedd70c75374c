package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nooperation/slutils/internal/storage"
	"github.com/nooperation/slutils/pkg/logger"
)

func newTestAuthService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	return NewService(storage.NewMemoryStore(), NewMemorySessionStore(), ttl, logger.New())
}

func TestLogin(t *testing.T) {
	service := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	if _, err := service.CreateUser(ctx, "alice", "hunter2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	t.Run("valid credentials", func(t *testing.T) {
		session, err := service.Login(ctx, "alice", "hunter2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if session.Token == "" {
			t.Error("expected a session token")
		}
		if session.UserName != "alice" {
			t.Errorf("expected session for alice, got %q", session.UserName)
		}

		resolved, err := service.Resolve(ctx, session.Token)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resolved.UserID != session.UserID {
			t.Errorf("expected user %d, got %d", session.UserID, resolved.UserID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		if _, err := service.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if _, err := service.Login(ctx, "nobody", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestLogout(t *testing.T) {
	service := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	if _, err := service.CreateUser(ctx, "alice", "hunter2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session, err := service.Login(ctx, "alice", "hunter2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := service.Logout(ctx, session.Token); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.Resolve(ctx, session.Token); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after logout, got %v", err)
	}
}

func TestResolve_EmptyToken(t *testing.T) {
	service := newTestAuthService(t, time.Hour)

	if _, err := service.Resolve(context.Background(), ""); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestCreateUser_Duplicate(t *testing.T) {
	service := newTestAuthService(t, time.Hour)
	ctx := context.Background()

	if _, err := service.CreateUser(ctx, "alice", "hunter2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := service.CreateUser(ctx, "alice", "other"); err == nil {
		t.Error("expected error for duplicate username, got none")
	}
}

func TestMemorySessionStore_TTL(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()

	session := &Session{Token: "tok", UserID: 1, UserName: "alice"}
	if err := store.Put(ctx, session, time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := store.Get(ctx, "tok"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession for expired session, got %v", err)
	}
}
