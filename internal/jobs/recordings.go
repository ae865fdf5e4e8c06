package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/calebmorris/debrief/internal/backend"
	"github.com/calebmorris/debrief/internal/cache"
	"github.com/calebmorris/debrief/pkg/models"
	"github.com/google/uuid"
)

// RecordingSource supplies the parent artifact a session is scoped to.
type RecordingSource interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Recording, error)
}

const recordingCacheTTL = 5 * time.Minute

// CachedRecordingSource reads recordings through the redis cache. Cache
// failures degrade to a backend fetch; they are never surfaced.
type CachedRecordingSource struct {
	backend backend.Client
	cache   cache.Cache
}

// NewCachedRecordingSource creates a read-through recording source.
func NewCachedRecordingSource(be backend.Client, ca cache.Cache) *CachedRecordingSource {
	return &CachedRecordingSource{backend: be, cache: ca}
}

func (s *CachedRecordingSource) Get(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	key := cache.RecordingKey(id)

	if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		var rec models.Recording
		if err := json.Unmarshal(data, &rec); err == nil {
			return &rec, nil
		}
		// Corrupt entry; drop it and fall through to the backend.
		_ = s.cache.Delete(ctx, key)
	}

	rec, err := s.backend.GetRecording(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching recording: %w", err)
	}

	if data, err := json.Marshal(rec); err == nil {
		if err := s.cache.Set(ctx, key, data, recordingCacheTTL); err != nil {
			slog.Warn("caching recording failed", "recording_id", id, "error", err)
		}
	}
	return rec, nil
}

// Compile-time check that CachedRecordingSource implements RecordingSource.
var _ RecordingSource = (*CachedRecordingSource)(nil)
