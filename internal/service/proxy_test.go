package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nooperation/slutils/internal/config"
	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/storage"
	"github.com/nooperation/slutils/pkg/logger"
)

func newTestProxyService(t *testing.T) (*ProxyService, *RegistryService, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	log := logger.New()
	prober := NewProber(config.ProbeConfig{Timeout: 2 * time.Second}, log)
	registry := NewRegistryService(store, NewTokenGenerator(store), prober, log)
	proxies := NewProxyService(store, config.ProbeConfig{Timeout: 2 * time.Second}, log)
	return proxies, registry, store
}

func TestCreateProxy(t *testing.T) {
	proxies, registry, store := newTestProxyService(t)
	ctx := context.Background()
	server := confirmedServer(t, registry, store, 1)

	t.Run("successful creation", func(t *testing.T) {
		proxy, err := proxies.CreateProxy(ctx, 1, models.CreateProxyRequest{
			PublicToken: server.PublicToken,
			ProxyName:   "my-proxy",
			ForcedPath:  "/api",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if proxy.ServerID != server.ID {
			t.Errorf("expected proxy bound to server %d, got %d", server.ID, proxy.ServerID)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		_, err := proxies.CreateProxy(ctx, 1, models.CreateProxyRequest{
			PublicToken: server.PublicToken,
			ProxyName:   "my-proxy",
		})
		if !errors.Is(err, ErrDuplicateProxyName) {
			t.Errorf("expected ErrDuplicateProxyName, got %v", err)
		}
	})

	t.Run("non-owner", func(t *testing.T) {
		_, err := proxies.CreateProxy(ctx, 99, models.CreateProxyRequest{
			PublicToken: server.PublicToken,
			ProxyName:   "other-proxy",
		})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for non-owner, got %v", err)
		}
	})

	t.Run("missing arguments", func(t *testing.T) {
		_, err := proxies.CreateProxy(ctx, 1, models.CreateProxyRequest{ProxyName: "p"})
		if !errors.Is(err, ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		_, err = proxies.CreateProxy(ctx, 1, models.CreateProxyRequest{PublicToken: server.PublicToken})
		if !errors.Is(err, ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestForward(t *testing.T) {
	var gotURL string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("brewing"))
	}))
	defer upstream.Close()

	proxies, registry, store := newTestProxyService(t)
	ctx := context.Background()
	server := confirmedServer(t, registry, store, 1)

	server.Address = upstream.URL
	if err := store.UpdateServer(ctx, server); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mustCreate := func(name, forcedPath string, allowQuery bool) {
		t.Helper()
		_, err := proxies.CreateProxy(ctx, 1, models.CreateProxyRequest{
			PublicToken:    server.PublicToken,
			ProxyName:      name,
			ForcedPath:     forcedPath,
			AllowUserQuery: allowQuery,
		})
		if err != nil {
			t.Fatalf("unexpected error creating proxy: %v", err)
		}
	}
	mustCreate("open", "/forced", true)
	mustCreate("closed", "/forced", false)

	t.Run("relays upstream response verbatim", func(t *testing.T) {
		resp, err := proxies.Forward(ctx, "open", "/extra?a=1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusTeapot {
			t.Errorf("expected upstream status %d, got %d", http.StatusTeapot, resp.StatusCode)
		}
		if string(resp.Body) != "brewing" {
			t.Errorf("expected upstream body, got %q", resp.Body)
		}
		if resp.ContentType != "text/plain" {
			t.Errorf("expected upstream content type, got %q", resp.ContentType)
		}
		if gotURL != "/forced/extra?a=1" {
			t.Errorf("expected forced path plus user query, got %q", gotURL)
		}
	})

	t.Run("drops user query when not allowed", func(t *testing.T) {
		if _, err := proxies.Forward(ctx, "closed", "/extra?a=1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotURL != "/forced" {
			t.Errorf("expected forced path only, got %q", gotURL)
		}
	})

	t.Run("unknown alias", func(t *testing.T) {
		_, err := proxies.Forward(ctx, "nope", "")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("unreachable upstream", func(t *testing.T) {
		server.Address = "http://127.0.0.1:1"
		if err := store.UpdateServer(ctx, server); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err := proxies.Forward(ctx, "open", "")
		if !errors.Is(err, ErrUnreachable) {
			t.Errorf("expected ErrUnreachable, got %v", err)
		}
	})
}

func TestForward_BodyCap(t *testing.T) {
	oversized := bytes.Repeat([]byte("a"), maxProxyBody+1024)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(oversized)
	}))
	defer upstream.Close()

	proxies, registry, store := newTestProxyService(t)
	ctx := context.Background()
	server := confirmedServer(t, registry, store, 1)

	server.Address = upstream.URL
	if err := store.UpdateServer(ctx, server); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := proxies.CreateProxy(ctx, 1, models.CreateProxyRequest{
		PublicToken: server.PublicToken,
		ProxyName:   "big",
	})
	if err != nil {
		t.Fatalf("unexpected error creating proxy: %v", err)
	}

	resp, err := proxies.Forward(ctx, "big", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Body) != maxProxyBody {
		t.Errorf("expected body capped at %d bytes, got %d", maxProxyBody, len(resp.Body))
	}
}
