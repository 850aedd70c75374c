package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nooperation/slutils/internal/storage"
)

// TokenLength is the length of generated tokens in hex characters.
const TokenLength = 32

// tokenAttempts bounds the collision-retry loop. Exhausting it fails the
// whole request; the caller does not retry further.
const tokenAttempts = 10

// TokenGenerator produces collision-checked random hex tokens. Tokens are
// opaque bearer credentials for scripted objects, not cryptographic
// secrets, so a seeded math/rand source is sufficient.
type TokenGenerator struct {
	store storage.ServerStore
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewTokenGenerator creates a token generator backed by the given store's
// token columns.
func NewTokenGenerator(store storage.ServerStore) *TokenGenerator {
	return &TokenGenerator{
		store: store,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Generate returns a fresh token not present in either token column of any
// server row. Returns ErrTokenExhausted after ten colliding draws.
func (g *TokenGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < tokenAttempts; attempt++ {
		candidate := g.draw()

		inUse, err := g.store.TokenInUse(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check token uniqueness: %w", err)
		}
		if !inUse {
			return candidate, nil
		}
	}
	return "", ErrTokenExhausted
}

func (g *TokenGenerator) draw() string {
	buf := make([]byte, TokenLength/2)

	g.mu.Lock()
	g.rng.Read(buf)
	g.mu.Unlock()

	return hex.EncodeToString(buf)
}
