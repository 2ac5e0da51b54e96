package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/Parhamrhh/course-registration-performance-testing/pkg/errors"
)

type memoryCacheRepo struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	deleted []string
}

func newMemoryCacheRepo() *memoryCacheRepo {
	return &memoryCacheRepo{entries: map[string][]byte{}}
}

func (m *memoryCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
		m.deleted = append(m.deleted, key)
	}
	return nil
}

func (m *memoryCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string][]byte{}
	m.deleted = append(m.deleted, pattern)
	return nil
}

func (m *memoryCacheRepo) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var value int64
	if raw, ok := m.entries[key]; ok {
		if err := json.Unmarshal(raw, &value); err != nil {
			return 0, err
		}
	}
	value++
	raw, err := json.Marshal(value)
	if err != nil {
		return 0, err
	}
	m.entries[key] = raw
	return value, nil
}

func (m *memoryCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

func TestRememberLoadsOnceAndCaches(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, NewMetricsService(), time.Minute, nil, true)
	var loads int32
	load := func(context.Context) ([]string, error) {
		atomic.AddInt32(&loads, 1)
		return []string{"a", "b"}, nil
	}

	value, hit, err := Remember(context.Background(), cache, "k", 0, load)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"a", "b"}, value)

	value, hit, err = Remember(context.Background(), cache, "k", 0, load)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"a", "b"}, value)
	assert.EqualValues(t, 1, atomic.LoadInt32(&loads))
}

func TestRememberDisabledAlwaysLoads(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, false)
	var loads int32
	for i := 0; i < 2; i++ {
		_, hit, err := Remember(context.Background(), cache, "k", 0, func(context.Context) (int, error) {
			atomic.AddInt32(&loads, 1)
			return 7, nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
	}
	assert.EqualValues(t, 2, loads)
	assert.False(t, repo.has("k"))
}

func TestRememberDoesNotCacheErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	boom := errors.New("boom")

	_, _, err := Remember(context.Background(), cache, "k", 0, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, repo.has("k"))
}

func TestRememberFallsBackWhenCacheErrors(t *testing.T) {
	repo := newMemoryCacheRepo()
	repo.getErr = errors.New("redis down")
	cache := NewCacheService(repo, nil, time.Minute, nil, true)

	value, hit, err := Remember(context.Background(), cache, "k", 0, func(context.Context) (int, error) { return 3, nil })
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 3, value)
}

func TestCacheServiceInvalidate(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	require.NoError(t, cache.Set(context.Background(), "a", 1, 0))
	require.NoError(t, cache.Invalidate(context.Background(), "a"))
	assert.False(t, repo.has("a"))
	assert.Equal(t, []string{"a"}, repo.deleted)

	var nilCache *CacheService
	assert.False(t, nilCache.Enabled())
	assert.NoError(t, nilCache.Invalidate(context.Background(), "a"))
}

func TestCacheServiceVersionAndBump(t *testing.T) {
	repo := newMemoryCacheRepo()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	assert.Zero(t, cache.Version(ctx, "v"))
	version, err := cache.Bump(ctx, "v")
	require.NoError(t, err)
	assert.EqualValues(t, 1, version)
	version, err = cache.Bump(ctx, "v")
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
	assert.EqualValues(t, 2, cache.Version(ctx, "v"))

	repo.getErr = errors.New("redis down")
	assert.Zero(t, cache.Version(ctx, "v"))

	var nilCache *CacheService
	assert.Zero(t, nilCache.Version(ctx, "v"))
	version, err = nilCache.Bump(ctx, "v")
	require.NoError(t, err)
	assert.Zero(t, version)
}
