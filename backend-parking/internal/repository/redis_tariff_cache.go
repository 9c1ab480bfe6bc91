package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/logger"
	pkgredis "github.com/carlosaltan18/Parkingit4-Data/pkg/redis"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ActiveTariffsCacheKey holds the JSON list of active tariffs
const ActiveTariffsCacheKey = "parking:tariffs:active"

// RedisKV is the subset of the Redis client used by repositories
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedTariffRepository caches the active tariff list in Redis in front of
// another TariffRepository. Redis failures fall through to the inner store.
type CachedTariffRepository struct {
	TariffRepository
	cache RedisKV
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedTariffRepository wraps inner with a Redis cache of ttl
func NewCachedTariffRepository(inner TariffRepository, cache RedisKV, ttl time.Duration, log *logger.Logger) *CachedTariffRepository {
	if log == nil {
		log = logger.Get()
	}
	return &CachedTariffRepository{TariffRepository: inner, cache: cache, ttl: ttl, log: log}
}

// ListActive serves the active tariffs from Redis when present
func (r *CachedTariffRepository) ListActive(ctx context.Context) ([]*domain.Tariff, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.tariff.list_active")
	defer span.End()

	raw, err := r.cache.Get(ctx, ActiveTariffsCacheKey).Bytes()
	switch {
	case err == nil:
		var tariffs []*domain.Tariff
		if jsonErr := json.Unmarshal(raw, &tariffs); jsonErr == nil {
			span.SetAttributes(attribute.Bool("cache_hit", true))
			return tariffs, nil
		}
		r.log.Warn("Discarding unreadable tariff cache entry", zap.String("key", ActiveTariffsCacheKey))
	case !pkgredis.IsNil(err):
		r.log.Warn("Tariff cache read failed", zap.Error(err))
	}
	span.SetAttributes(attribute.Bool("cache_hit", false))

	tariffs, err := r.TariffRepository.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(tariffs); err == nil {
		if err := r.cache.Set(ctx, ActiveTariffsCacheKey, data, r.ttl).Err(); err != nil {
			r.log.Warn("Tariff cache write failed", zap.Error(err))
		}
	}
	return tariffs, nil
}

func (r *CachedTariffRepository) Create(ctx context.Context, t *domain.Tariff) error {
	if err := r.TariffRepository.Create(ctx, t); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedTariffRepository) Update(ctx context.Context, t *domain.Tariff) error {
	if err := r.TariffRepository.Update(ctx, t); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedTariffRepository) Delete(ctx context.Context, id int64) error {
	if err := r.TariffRepository.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx)
	return nil
}

func (r *CachedTariffRepository) invalidate(ctx context.Context) {
	if err := r.cache.Del(ctx, ActiveTariffsCacheKey).Err(); err != nil {
		r.log.Warn("Tariff cache invalidation failed", zap.Error(err))
	}
}

var _ TariffRepository = (*CachedTariffRepository)(nil)
