package storage

import (
	"context"

	"github.com/nooperation/slutils/internal/models"
)

// ServerStore defines the record-store operations the registration core
// depends on. Implemented by the in-memory store and the sqlite store.
//
// Lookups that key on a unique column return ErrNotFound for zero matches.
// Token lookups return every matching row so callers can detect a violated
// uniqueness invariant (more than one match) and raise an integrity fault.
// Creates and updates surface unique-constraint violations as ErrDuplicate;
// under concurrent registration the constraint is the final arbiter.
type ServerStore interface {
	GetOrCreateShard(ctx context.Context, name string) (*models.Shard, bool, error)
	GetOrCreateRegion(ctx context.Context, shardID int64, name string) (*models.Region, bool, error)
	GetOrCreateAgent(ctx context.Context, shardID int64, agentUUID, name string) (*models.Agent, bool, error)

	CreateServer(ctx context.Context, server *models.Server) error
	UpdateServer(ctx context.Context, server *models.Server) error
	GetServerByObjectKey(ctx context.Context, objectKey string) (*models.Server, error)
	GetServersByPrivateToken(ctx context.Context, token string) ([]*models.Server, error)
	GetServersByPublicToken(ctx context.Context, token string) ([]*models.Server, error)
	GetServerForUser(ctx context.Context, userID int64, publicToken string) (*models.Server, error)
	GetServerByID(ctx context.Context, id int64) (*models.Server, error)
	// ListServers returns up to limit servers; limit <= 0 means no limit.
	ListServers(ctx context.Context, limit int) ([]*models.Server, error)
	TokenInUse(ctx context.Context, token string) (bool, error)

	CreateProxy(ctx context.Context, proxy *models.ServerProxy) error
	GetProxyByName(ctx context.Context, name string) (*models.ServerProxy, error)
}

// SoundStore defines operations on sound metadata.
type SoundStore interface {
	CreateSound(ctx context.Context, sound *models.Sound) error
	ListSounds(ctx context.Context, minDuration, maxDuration *float64) ([]*models.Sound, error)
}

// UserStore defines operations on web-login accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByName(ctx context.Context, name string) (*models.User, error)
}

// Errors
var (
	ErrNotFound  = &StorageError{Message: "record not found"}
	ErrDuplicate = &StorageError{Message: "record already exists"}
)

// StorageError represents a storage error
type StorageError struct {
	Message string
}

func (e *StorageError) Error() string {
	return e.Message
}
