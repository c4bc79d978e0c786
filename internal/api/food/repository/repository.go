package foodRepository

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"

	"foodlens/internal/entity"
	redisPkg "foodlens/pkg/redis"
)

// ICalorieCache maps a food label to its last recorded estimate.
// Last write wins, entries never expire.
type ICalorieCache interface {
	Record(ctx context.Context, label string, estimate entity.FoodEstimate) error
	Lookup(ctx context.Context, label string) (entity.CacheEntry, error)
}

// New picks the cache backend from CACHE_BACKEND: "redis" for shared state
// across replicas, anything else for the in-process map.
func New(log *logrus.Logger) ICalorieCache {
	if os.Getenv("CACHE_BACKEND") == "redis" {
		log.Info("Using redis calorie cache backend")
		return NewRedis(redisPkg.New(), log)
	}

	log.Info("Using in-memory calorie cache backend")
	return NewMemory()
}
