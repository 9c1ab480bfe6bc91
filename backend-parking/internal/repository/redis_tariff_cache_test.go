package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV is an in-memory stand-in for Redis
type fakeKV struct {
	mu   sync.Mutex
	data map[string]string
	err  error
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string]string)}
}

func (f *fakeKV) Get(ctx context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	v, ok := f.data[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewStatusCmd(ctx, "set", key)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeKV) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	cmd := redis.NewIntCmd(ctx, "del")
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

// countingTariffRepository counts ListActive calls on the inner store
type countingTariffRepository struct {
	TariffRepository
	listActiveCalls int
}

func (c *countingTariffRepository) ListActive(ctx context.Context) ([]*domain.Tariff, error) {
	c.listActiveCalls++
	return c.TariffRepository.ListActive(ctx)
}

func TestCachedTariffRepository_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingTariffRepository{TariffRepository: NewMemoryTariffRepository(NewMemoryStore())}
	kv := newFakeKV()
	repo := NewCachedTariffRepository(inner, kv, time.Minute, logger.NewNop())

	require.NoError(t, repo.Create(ctx, &domain.Tariff{Name: "Day", StartTime: domain.MustParseTimeOfDay("08:00"), EndTime: domain.MustParseTimeOfDay("20:00"), PricePerHour: 10, Active: true}))

	first, err := repo.ListActive(ctx)
	require.NoError(t, err)
	second, err := repo.ListActive(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.listActiveCalls)
	assert.Equal(t, first, second)
	assert.Equal(t, domain.MustParseTimeOfDay("20:00"), second[0].EndTime)
}

func TestCachedTariffRepository_MutationsInvalidate(t *testing.T) {
	ctx := context.Background()
	inner := &countingTariffRepository{TariffRepository: NewMemoryTariffRepository(NewMemoryStore())}
	kv := newFakeKV()
	repo := NewCachedTariffRepository(inner, kv, time.Minute, logger.NewNop())

	day := &domain.Tariff{Name: "Day", StartTime: 0, EndTime: domain.MustParseTimeOfDay("12:00"), PricePerHour: 10, Active: true}
	require.NoError(t, repo.Create(ctx, day))
	_, err := repo.ListActive(ctx)
	require.NoError(t, err)

	day.Active = false
	require.NoError(t, repo.Update(ctx, day))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, 2, inner.listActiveCalls)
}

func TestCachedTariffRepository_RedisDownFallsThrough(t *testing.T) {
	ctx := context.Background()
	inner := &countingTariffRepository{TariffRepository: NewMemoryTariffRepository(NewMemoryStore())}
	kv := newFakeKV()
	kv.err = assert.AnError
	repo := NewCachedTariffRepository(inner, kv, time.Minute, logger.NewNop())

	require.NoError(t, repo.Create(ctx, &domain.Tariff{Name: "Day", EndTime: domain.MustParseTimeOfDay("12:00"), Active: true}))

	active, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRedisCursorStore(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	cursor := NewRedisCursorStore(kv, AuditRelayCursorKey)

	pos, err := cursor.Load(ctx)
	require.NoError(t, err)
	assert.Zero(t, pos)

	require.NoError(t, cursor.Save(ctx, 42))
	pos, err = cursor.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(42), pos)

	kv.data[AuditRelayCursorKey] = "not-a-number"
	_, err = cursor.Load(ctx)
	assert.ErrorIs(t, err, domain.ErrStorage)
}
