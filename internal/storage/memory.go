package storage

import (
	"context"
	"sync"
	"time"

	"github.com/nooperation/slutils/internal/models"
)

// MemoryStore provides in-memory storage for every record type. It backs
// tests and small single-process deployments; the sqlite store is the
// durable implementation.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	shards  map[int64]*models.Shard
	regions map[int64]*models.Region
	agents  map[int64]*models.Agent
	servers map[int64]*models.Server
	proxies map[int64]*models.ServerProxy
	sounds  map[int64]*models.Sound
	users   map[int64]*models.User
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		shards:  make(map[int64]*models.Shard),
		regions: make(map[int64]*models.Region),
		agents:  make(map[int64]*models.Agent),
		servers: make(map[int64]*models.Server),
		proxies: make(map[int64]*models.ServerProxy),
		sounds:  make(map[int64]*models.Sound),
		users:   make(map[int64]*models.User),
	}
}

func (s *MemoryStore) allocID() int64 {
	s.nextID++
	return s.nextID
}

// GetOrCreateShard returns the shard with the given name, creating it on
// first sight. The bool reports whether a new record was created.
func (s *MemoryStore) GetOrCreateShard(ctx context.Context, name string) (*models.Shard, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, shard := range s.shards {
		if shard.Name == name {
			copied := *shard
			return &copied, false, nil
		}
	}

	shard := &models.Shard{ID: s.allocID(), Name: name}
	s.shards[shard.ID] = shard
	copied := *shard
	return &copied, true, nil
}

// GetOrCreateRegion returns the region with the given (shard, name) pair,
// creating it on first sight.
func (s *MemoryStore) GetOrCreateRegion(ctx context.Context, shardID int64, name string) (*models.Region, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, region := range s.regions {
		if region.ShardID == shardID && region.Name == name {
			copied := *region
			return &copied, false, nil
		}
	}

	region := &models.Region{ID: s.allocID(), Name: name, ShardID: shardID}
	s.regions[region.ID] = region
	copied := *region
	return &copied, true, nil
}

// GetOrCreateAgent returns the agent with the given (shard, uuid) pair,
// creating it on first sight. The stored name is not overwritten on lookup;
// identity is keyed by uuid and shard only.
func (s *MemoryStore) GetOrCreateAgent(ctx context.Context, shardID int64, agentUUID, name string) (*models.Agent, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, agent := range s.agents {
		if agent.ShardID == shardID && agent.UUID == agentUUID {
			copied := *agent
			return &copied, false, nil
		}
	}

	agent := &models.Agent{ID: s.allocID(), Name: name, UUID: agentUUID, ShardID: shardID}
	s.agents[agent.ID] = agent
	copied := *agent
	return &copied, true, nil
}

// CreateServer inserts a new server row. Object key and both tokens must be
// unique across all servers.
func (s *MemoryStore) CreateServer(ctx context.Context, server *models.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.servers {
		if existing.ObjectKey == server.ObjectKey {
			return ErrDuplicate
		}
		if s.tokenClash(existing, server.PrivateToken) || s.tokenClash(existing, server.PublicToken) {
			return ErrDuplicate
		}
	}

	now := time.Now()
	server.ID = s.allocID()
	server.CreatedOn = now
	server.UpdatedOn = now
	copied := *server
	s.servers[server.ID] = &copied
	return nil
}

// UpdateServer overwrites the stored row with the given server's fields.
func (s *MemoryStore) UpdateServer(ctx context.Context, server *models.Server) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.servers[server.ID]
	if !ok {
		return ErrNotFound
	}

	for id, other := range s.servers {
		if id == server.ID {
			continue
		}
		if other.ObjectKey == server.ObjectKey {
			return ErrDuplicate
		}
		if s.tokenClash(other, server.PrivateToken) || s.tokenClash(other, server.PublicToken) {
			return ErrDuplicate
		}
	}

	copied := *server
	copied.CreatedOn = existing.CreatedOn
	copied.UpdatedOn = time.Now()
	s.servers[server.ID] = &copied
	server.UpdatedOn = copied.UpdatedOn
	return nil
}

func (s *MemoryStore) tokenClash(server *models.Server, token string) bool {
	return server.PrivateToken == token || server.PublicToken == token
}

// GetServerByObjectKey retrieves a server by its object key.
func (s *MemoryStore) GetServerByObjectKey(ctx context.Context, objectKey string) (*models.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, server := range s.servers {
		if server.ObjectKey == objectKey {
			copied := *server
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// GetServersByPrivateToken retrieves every server matching the private
// token. More than one match means the uniqueness invariant was violated.
func (s *MemoryStore) GetServersByPrivateToken(ctx context.Context, token string) ([]*models.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*models.Server
	for _, server := range s.servers {
		if server.PrivateToken == token {
			copied := *server
			matches = append(matches, &copied)
		}
	}
	return matches, nil
}

// GetServersByPublicToken retrieves every server matching the public token.
func (s *MemoryStore) GetServersByPublicToken(ctx context.Context, token string) ([]*models.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []*models.Server
	for _, server := range s.servers {
		if server.PublicToken == token {
			copied := *server
			matches = append(matches, &copied)
		}
	}
	return matches, nil
}

// GetServerForUser retrieves a server by public token, scoped to its
// confirming user. Rows owned by other users are indistinguishable from
// absent rows.
func (s *MemoryStore) GetServerForUser(ctx context.Context, userID int64, publicToken string) (*models.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, server := range s.servers {
		if server.UserID == userID && server.PublicToken == publicToken {
			copied := *server
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// GetServerByID retrieves a server by row ID.
func (s *MemoryStore) GetServerByID(ctx context.Context, id int64) (*models.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	server, ok := s.servers[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *server
	return &copied, nil
}

// ListServers returns up to limit servers.
func (s *MemoryStore) ListServers(ctx context.Context, limit int) ([]*models.Server, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	servers := make([]*models.Server, 0, len(s.servers))
	for _, server := range s.servers {
		if limit > 0 && len(servers) >= limit {
			break
		}
		copied := *server
		servers = append(servers, &copied)
	}
	return servers, nil
}

// TokenInUse reports whether the token appears in either token column of
// any server row.
func (s *MemoryStore) TokenInUse(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, server := range s.servers {
		if s.tokenClash(server, token) {
			return true, nil
		}
	}
	return false, nil
}

// CreateProxy inserts a new proxy alias. Names are unique.
func (s *MemoryStore) CreateProxy(ctx context.Context, proxy *models.ServerProxy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.proxies {
		if existing.Name == proxy.Name {
			return ErrDuplicate
		}
	}

	proxy.ID = s.allocID()
	copied := *proxy
	s.proxies[proxy.ID] = &copied
	return nil
}

// GetProxyByName retrieves a proxy alias by name.
func (s *MemoryStore) GetProxyByName(ctx context.Context, name string) (*models.ServerProxy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, proxy := range s.proxies {
		if proxy.Name == name {
			copied := *proxy
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

// CreateSound inserts sound metadata. UUIDs are unique.
func (s *MemoryStore) CreateSound(ctx context.Context, sound *models.Sound) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sounds {
		if existing.UUID == sound.UUID {
			return ErrDuplicate
		}
	}

	sound.ID = s.allocID()
	copied := *sound
	s.sounds[sound.ID] = &copied
	return nil
}

// ListSounds returns sounds whose duration falls inside the optional
// inclusive bounds.
func (s *MemoryStore) ListSounds(ctx context.Context, minDuration, maxDuration *float64) ([]*models.Sound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sounds []*models.Sound
	for _, sound := range s.sounds {
		if minDuration != nil && sound.Duration < *minDuration {
			continue
		}
		if maxDuration != nil && sound.Duration > *maxDuration {
			continue
		}
		copied := *sound
		sounds = append(sounds, &copied)
	}
	return sounds, nil
}

// CreateUser inserts a web-login account. Names are unique.
func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Name == user.Name {
			return ErrDuplicate
		}
	}

	user.ID = s.allocID()
	copied := *user
	s.users[user.ID] = &copied
	return nil
}

// GetUserByName retrieves a web-login account by name.
func (s *MemoryStore) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, user := range s.users {
		if user.Name == name {
			copied := *user
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}
