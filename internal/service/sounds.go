package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/storage"
	"github.com/nooperation/slutils/pkg/logger"
)

// SoundService tracks short audio-clip metadata: bulk import from grid
// scans plus randomized and filtered retrieval.
type SoundService struct {
	store  storage.SoundStore
	logger *logger.Logger
	mu     sync.Mutex
	rng    *rand.Rand
}

// NewSoundService creates a new sound service
func NewSoundService(store storage.SoundStore, log *logger.Logger) *SoundService {
	return &SoundService{
		store:  store,
		logger: log,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Random returns a uniformly random sound whose duration falls inside the
// optional inclusive bounds. ErrNotFound when nothing matches.
func (s *SoundService) Random(ctx context.Context, minDuration, maxDuration *float64) (*models.Sound, error) {
	sounds, err := s.store.ListSounds(ctx, minDuration, maxDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to list sounds: %w", err)
	}
	if len(sounds) == 0 {
		return nil, ErrNotFound
	}

	s.mu.Lock()
	index := s.rng.Intn(len(sounds))
	s.mu.Unlock()

	return sounds[index], nil
}

// All returns every known sound.
func (s *SoundService) All(ctx context.Context) ([]*models.Sound, error) {
	sounds, err := s.store.ListSounds(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list sounds: %w", err)
	}
	return sounds, nil
}

// Import stores every sound in the batch whose UUID is not already known
// and reports how many were added. A malformed entry fails the whole batch.
func (s *SoundService) Import(ctx context.Context, sounds []models.Sound) (int, error) {
	for _, sound := range sounds {
		if !uuidPattern.MatchString(sound.UUID) {
			return 0, fmt.Errorf("%w: uuid %q", ErrInvalidFormat, sound.UUID)
		}
		if sound.Duration < 0 {
			return 0, fmt.Errorf("%w: duration", ErrInvalidFormat)
		}
	}

	imported := 0
	for _, sound := range sounds {
		sound := sound
		err := s.store.CreateSound(ctx, &sound)
		if err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				continue
			}
			return imported, fmt.Errorf("failed to import sound %s: %w", sound.UUID, err)
		}
		imported++
	}

	s.logger.Info("Sounds imported",
		logger.F("imported", fmt.Sprintf("%d", imported)),
		logger.F("batch", fmt.Sprintf("%d", len(sounds))))
	return imported, nil
}
