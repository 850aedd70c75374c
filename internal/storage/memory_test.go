package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nooperation/slutils/internal/models"
)

func TestGetOrCreateShard(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first, created, err := store.GetOrCreateShard(ctx, "Shard A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created {
		t.Errorf("expected first sight to create the shard")
	}

	second, created, err := store.GetOrCreateShard(ctx, "Shard A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Errorf("expected lookup, not creation")
	}
	if second.ID != first.ID {
		t.Errorf("expected the same shard row, got %d and %d", first.ID, second.ID)
	}
}

func TestGetOrCreateRegion_UniquePerShard(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	shardA, _, _ := store.GetOrCreateShard(ctx, "Shard A")
	shardB, _, _ := store.GetOrCreateShard(ctx, "Shard B")

	regionA, created, _ := store.GetOrCreateRegion(ctx, shardA.ID, "First Region")
	if !created {
		t.Errorf("expected creation on first sight")
	}

	// The same name on another shard is a distinct region.
	regionB, created, _ := store.GetOrCreateRegion(ctx, shardB.ID, "First Region")
	if !created {
		t.Errorf("expected a distinct region per shard")
	}
	if regionA.ID == regionB.ID {
		t.Errorf("regions on different shards must be distinct rows")
	}

	again, created, _ := store.GetOrCreateRegion(ctx, shardA.ID, "First Region")
	if created || again.ID != regionA.ID {
		t.Errorf("expected lookup of the existing region")
	}
}

func TestGetOrCreateAgent_KeepsStoredName(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	shard, _, _ := store.GetOrCreateShard(ctx, "Shard A")

	first, _, err := store.GetOrCreateAgent(ctx, shard.ID, "41f94400-2a3e-408a-9b80-1774724f62af", "Original Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second, created, err := store.GetOrCreateAgent(ctx, shard.ID, "41f94400-2a3e-408a-9b80-1774724f62af", "Different Name")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Errorf("expected lookup of the existing agent")
	}
	if second.ID != first.ID {
		t.Errorf("expected the same agent row")
	}
	if second.Name != "Original Name" {
		t.Errorf("lookup must not overwrite the stored name, got %q", second.Name)
	}
}

func testServer(objectKey, privateToken, publicToken string) *models.Server {
	return &models.Server{
		ObjectKey:    objectKey,
		ObjectName:   "Test",
		ShardID:      1,
		RegionID:     1,
		OwnerID:      1,
		Address:      "http://localhost/x",
		PrivateToken: privateToken,
		PublicToken:  publicToken,
	}
}

func TestCreateServer_UniqueConstraints(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	base := testServer("00000000-0000-0000-0000-000000000001",
		"11111111111111111111111111111111", "10101010101010101010101010101010")
	if err := store.CreateServer(ctx, base); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name   string
		server *models.Server
	}{
		{"duplicate object key", testServer(base.ObjectKey,
			"22222222222222222222222222222222", "20202020202020202020202020202020")},
		{"duplicate private token", testServer("00000000-0000-0000-0000-000000000002",
			base.PrivateToken, "30303030303030303030303030303030")},
		{"duplicate public token", testServer("00000000-0000-0000-0000-000000000003",
			"33333333333333333333333333333333", base.PublicToken)},
		{"token colliding across columns", testServer("00000000-0000-0000-0000-000000000004",
			base.PublicToken, "40404040404040404040404040404040")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.CreateServer(ctx, tt.server); !errors.Is(err, ErrDuplicate) {
				t.Errorf("expected ErrDuplicate, got %v", err)
			}
		})
	}

	servers, _ := store.ListServers(ctx, 0)
	if len(servers) != 1 {
		t.Errorf("expected a single server row, got %d", len(servers))
	}
}

func TestListServers_Limit(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	keys := []string{
		"00000000-0000-0000-0000-000000000001",
		"00000000-0000-0000-0000-000000000002",
		"00000000-0000-0000-0000-000000000003",
	}
	for i, key := range keys {
		tokenByte := byte('1' + i)
		server := testServer(key,
			strings.Repeat(string(tokenByte), 32),
			strings.Repeat(string(tokenByte+3), 32))
		if err := store.CreateServer(ctx, server); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// Zero or negative means no limit, on every implementation.
	all, err := store.ListServers(ctx, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != len(keys) {
		t.Errorf("expected all %d servers with limit 0, got %d", len(keys), len(all))
	}

	limited, err := store.ListServers(ctx, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("expected 2 servers with limit 2, got %d", len(limited))
	}
}

func TestGetServerForUser_ScopedToOwner(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	server := testServer("00000000-0000-0000-0000-000000000001",
		"11111111111111111111111111111111", "10101010101010101010101010101010")
	server.UserID = 7
	if err := store.CreateServer(ctx, server); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.GetServerForUser(ctx, 7, server.PublicToken); err != nil {
		t.Errorf("expected owner lookup to succeed, got %v", err)
	}
	if _, err := store.GetServerForUser(ctx, 8, server.PublicToken); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for another user, got %v", err)
	}
}

func TestCreateProxy_DuplicateName(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.CreateProxy(ctx, &models.ServerProxy{Name: "alias", ServerID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.CreateProxy(ctx, &models.ServerProxy{Name: "alias", ServerID: 2}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	proxy, err := store.GetProxyByName(ctx, "alias")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if proxy.ServerID != 1 {
		t.Errorf("duplicate creation must not overwrite the existing alias")
	}
}
