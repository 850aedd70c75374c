package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/nooperation/slutils/internal/storage"
)

func TestTokenGenerator_Generate(t *testing.T) {
	store := storage.NewMemoryStore()
	generator := NewTokenGenerator(store)
	ctx := context.Background()

	hexPattern := regexp.MustCompile(`^[a-f0-9]{32}$`)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		token, err := generator.Generate(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !hexPattern.MatchString(token) {
			t.Fatalf("expected 32 lowercase hex chars, got %q", token)
		}
		if seen[token] {
			t.Fatalf("generator repeated token %q", token)
		}
		seen[token] = true
	}
}

// alwaysUsedStore reports every candidate token as taken.
type alwaysUsedStore struct {
	*storage.MemoryStore
}

func (s *alwaysUsedStore) TokenInUse(ctx context.Context, token string) (bool, error) {
	return true, nil
}

func TestTokenGenerator_Exhaustion(t *testing.T) {
	generator := NewTokenGenerator(&alwaysUsedStore{storage.NewMemoryStore()})

	_, err := generator.Generate(context.Background())
	if err == nil {
		t.Fatal("expected error when every candidate collides, got none")
	}
	if err != ErrTokenExhausted {
		t.Errorf("expected ErrTokenExhausted, got %v", err)
	}
}
