package foodRepository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"foodlens/internal/api/food"
	"foodlens/internal/entity"
	redisPkg "foodlens/pkg/redis"
)

const cacheKeyPrefix = "food:calories:"

// redisCache keeps the same last-write-wins, no-TTL semantics as the memory
// backend but survives restarts and is shared across replicas.
type redisCache struct {
	redis redisPkg.IRedis
	log   *logrus.Logger
}

func NewRedis(redis redisPkg.IRedis, log *logrus.Logger) ICalorieCache {
	return &redisCache{
		redis: redis,
		log:   log,
	}
}

func (r *redisCache) Record(ctx context.Context, label string, estimate entity.FoodEstimate) error {
	entry := entity.CacheEntry{
		Label:       label,
		WeightGrams: estimate.WeightGrams,
		Calories:    estimate.Calories,
		RecordedAt:  time.Now(),
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	return r.redis.Set(ctx, cacheKeyPrefix+label, string(payload))
}

func (r *redisCache) Lookup(ctx context.Context, label string) (entity.CacheEntry, error) {
	payload, err := r.redis.Get(ctx, cacheKeyPrefix+label)
	if err != nil {
		if errors.Is(err, redisPkg.ErrNil) {
			return entity.CacheEntry{}, food.ErrFoodNotFound
		}
		r.log.Errorf("redis lookup for %q failed: %v", label, err)
		return entity.CacheEntry{}, err
	}

	var entry entity.CacheEntry
	if err := json.Unmarshal([]byte(payload), &entry); err != nil {
		return entity.CacheEntry{}, err
	}
	return entry, nil
}
