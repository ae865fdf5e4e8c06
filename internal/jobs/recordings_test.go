package jobs

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/calebmorris/debrief/internal/cache"
	"github.com/calebmorris/debrief/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	sets    int
	gets    int
	failSet error
	failGet error
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (c *mockCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	if c.failSet != nil {
		return c.failSet
	}
	c.entries[key] = value
	return nil
}

func (c *mockCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if c.failGet != nil {
		return nil, false, c.failGet
	}
	val, ok := c.entries[key]
	return val, ok, nil
}

func (c *mockCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *mockCache) Ping(context.Context) error { return nil }

func (c *mockCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = append(c.entries[key], 1)
	return int64(len(c.entries[key])), nil
}

var _ cache.Cache = (*mockCache)(nil)

func TestCachedRecordingSource_ReadThrough(t *testing.T) {
	be := newMockBackend()
	ca := newMockCache()
	src := NewCachedRecordingSource(be, ca)

	id := uuid.New()

	first, err := src.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, first.ID)

	second, err := src.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	// One backend round trip; the second read came from the cache.
	ca.mu.Lock()
	_, cached := ca.entries[cache.RecordingKey(id)]
	ca.mu.Unlock()
	assert.True(t, cached)
}

func TestCachedRecordingSource_CorruptEntryFallsBack(t *testing.T) {
	be := newMockBackend()
	ca := newMockCache()
	src := NewCachedRecordingSource(be, ca)

	id := uuid.New()
	key := cache.RecordingKey(id)
	require.NoError(t, ca.Set(context.Background(), key, []byte("{not json"), time.Minute))

	rec, err := src.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)

	// The corrupt entry was replaced by a valid one.
	data, ok, err := ca.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok)
	var cachedRec models.Recording
	require.NoError(t, json.Unmarshal(data, &cachedRec))
	assert.Equal(t, id, cachedRec.ID)
}

func TestCachedRecordingSource_CacheFailuresAreSoft(t *testing.T) {
	be := newMockBackend()
	ca := newMockCache()
	ca.failGet = assert.AnError
	ca.failSet = assert.AnError
	src := NewCachedRecordingSource(be, ca)

	rec, err := src.Get(context.Background(), uuid.New())
	require.NoError(t, err, "a broken cache must never break recording loads")
	require.NotNil(t, rec)
}
