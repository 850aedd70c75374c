package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nooperation/slutils/internal/models"
	"github.com/nooperation/slutils/internal/storage"
	"github.com/nooperation/slutils/pkg/logger"
)

func newTestSoundService() (*SoundService, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	return NewSoundService(store, logger.New()), store
}

func soundBatch(durations map[string]float64) []models.Sound {
	sounds := make([]models.Sound, 0, len(durations))
	for uuid, duration := range durations {
		sounds = append(sounds, models.Sound{
			UUID:      uuid,
			Duration:  duration,
			CreatedOn: time.Now(),
		})
	}
	return sounds
}

func TestImport(t *testing.T) {
	service, _ := newTestSoundService()
	ctx := context.Background()

	batch := soundBatch(map[string]float64{
		"01234567-89ab-cdef-0123-456789abcdef": 1.5,
		"11234567-89ab-cdef-0123-456789abcdef": 10,
	})

	imported, err := service.Import(ctx, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imported != 2 {
		t.Errorf("expected 2 imported, got %d", imported)
	}

	// Re-importing the same batch skips every known UUID.
	imported, err = service.Import(ctx, batch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if imported != 0 {
		t.Errorf("expected 0 imported on duplicate batch, got %d", imported)
	}
}

func TestImport_InvalidEntries(t *testing.T) {
	service, store := newTestSoundService()
	ctx := context.Background()

	tests := []struct {
		name  string
		sound models.Sound
	}{
		{"bad uuid", models.Sound{UUID: "01234567-ZZZZ-ZZZZ-0123-456789abcdeZ", Duration: 1}},
		{"empty uuid", models.Sound{Duration: 1}},
		{"negative duration", models.Sound{UUID: "01234567-89ab-cdef-0123-456789abcdef", Duration: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Import(ctx, []models.Sound{tt.sound})
			if !errors.Is(err, ErrInvalidFormat) {
				t.Errorf("expected ErrInvalidFormat, got %v", err)
			}
		})
	}

	sounds, _ := store.ListSounds(ctx, nil, nil)
	if len(sounds) != 0 {
		t.Errorf("invalid imports must not create rows, found %d", len(sounds))
	}
}

func TestRandom(t *testing.T) {
	service, _ := newTestSoundService()
	ctx := context.Background()

	if _, err := service.Random(ctx, nil, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound with no sounds, got %v", err)
	}

	_, err := service.Import(ctx, soundBatch(map[string]float64{
		"01234567-89ab-cdef-0123-456789abcdef": 1,
		"11234567-89ab-cdef-0123-456789abcdef": 5,
		"21234567-89ab-cdef-0123-456789abcdef": 30,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	minDur, maxDur := 2.0, 10.0

	tests := []struct {
		name     string
		min, max *float64
		wantUUID string
		wantErr  error
	}{
		{name: "bounded both sides", min: &minDur, max: &maxDur, wantUUID: "11234567-89ab-cdef-0123-456789abcdef"},
		{name: "min only", min: &maxDur, wantUUID: "21234567-89ab-cdef-0123-456789abcdef"},
		{name: "impossible range", min: &maxDur, max: &minDur, wantErr: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sound, err := service.Random(ctx, tt.min, tt.max)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if sound.UUID != tt.wantUUID {
				t.Errorf("expected sound %s, got %s", tt.wantUUID, sound.UUID)
			}
		})
	}

	t.Run("unbounded returns any sound", func(t *testing.T) {
		sound, err := service.Random(ctx, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sound == nil {
			t.Fatal("expected a sound, got nil")
		}
	})
}
