package foodRepository

import (
	"context"
	"sync"
	"time"

	"foodlens/internal/api/food"
	"foodlens/internal/entity"
)

// memoryCache is the process-lifetime backend. No TTL and no eviction; the
// working set is one entry per distinct label ever identified.
type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]entity.CacheEntry
}

func NewMemory() ICalorieCache {
	return &memoryCache{
		entries: make(map[string]entity.CacheEntry),
	}
}

func (m *memoryCache) Record(_ context.Context, label string, estimate entity.FoodEstimate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[label] = entity.CacheEntry{
		Label:       label,
		WeightGrams: estimate.WeightGrams,
		Calories:    estimate.Calories,
		RecordedAt:  time.Now(),
	}
	return nil
}

func (m *memoryCache) Lookup(_ context.Context, label string) (entity.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[label]
	if !ok {
		return entity.CacheEntry{}, food.ErrFoodNotFound
	}
	return entry, nil
}
