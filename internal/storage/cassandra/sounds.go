package cassandra

import (
	"context"
	"fmt"

	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/storage"
	"github.com/nooperation/slutils/pkg/logger"
)

// SoundRepository implements storage.SoundStore on Cassandra. Import
// deduplication rides on lightweight transactions (IF NOT EXISTS), so
// concurrent imports of the same UUID resolve to a single row.
type SoundRepository struct {
	client *Client
	logger *logger.Logger
}

// NewSoundRepository creates a new Cassandra-backed sound store
func NewSoundRepository(client *Client, log *logger.Logger) *SoundRepository {
	return &SoundRepository{
		client: client,
		logger: log,
	}
}

// CreateSound inserts sound metadata; storage.ErrDuplicate when the UUID is
// already present.
func (r *SoundRepository) CreateSound(ctx context.Context, sound *models.Sound) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.sounds (uuid, duration, created_on)
		VALUES (?, ?, ?)
		IF NOT EXISTS`, r.client.Keyspace())

	applied, err := r.client.Session().Query(query,
		sound.UUID,
		sound.Duration,
		sound.CreatedOn,
	).WithContext(ctx).ScanCAS(nil)

	if err != nil {
		r.logger.Error("Failed to create sound in Cassandra",
			logger.F("uuid", sound.UUID),
			logger.F("error", err.Error()))
		return fmt.Errorf("failed to create sound: %w", err)
	}

	if !applied {
		return storage.ErrDuplicate
	}
	return nil
}

// ListSounds returns sounds whose duration falls inside the optional
// inclusive bounds.
func (r *SoundRepository) ListSounds(ctx context.Context, minDuration, maxDuration *float64) ([]*models.Sound, error) {
	query := fmt.Sprintf(`SELECT uuid, duration, created_on FROM %s.sounds`, r.client.Keyspace())
	var args []interface{}

	switch {
	case minDuration != nil && maxDuration != nil:
		query += ` WHERE duration >= ? AND duration <= ? ALLOW FILTERING`
		args = append(args, *minDuration, *maxDuration)
	case minDuration != nil:
		query += ` WHERE duration >= ? ALLOW FILTERING`
		args = append(args, *minDuration)
	case maxDuration != nil:
		query += ` WHERE duration <= ? ALLOW FILTERING`
		args = append(args, *maxDuration)
	}

	iter := r.client.Session().Query(query, args...).WithContext(ctx).Iter()

	var sounds []*models.Sound
	var sound models.Sound
	for iter.Scan(&sound.UUID, &sound.Duration, &sound.CreatedOn) {
		s := sound
		sounds = append(sounds, &s)
	}

	if err := iter.Close(); err != nil {
		r.logger.Error("Failed to list sounds from Cassandra", logger.F("error", err.Error()))
		return nil, fmt.Errorf("failed to list sounds: %w", err)
	}

	return sounds, nil
}
