package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusudc/asesorias-api/internal/models"
)

const catalogKey = "asesorias:catalog"

// CatalogCache keeps a redis snapshot of the course catalog so a cold process
// (or a backend outage) can still serve the last known list. Admin mutations
// invalidate it; the store rewrites it after every successful fetch.
type CatalogCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalogCache constructs the cache. A nil client disables it.
func NewCatalogCache(client *redis.Client, ttl time.Duration) *CatalogCache {
	if client == nil {
		return nil
	}
	return &CatalogCache{client: client, ttl: ttl}
}

// Get returns the cached catalog snapshot, if any.
func (c *CatalogCache) Get(ctx context.Context) ([]models.Course, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, catalogKey).Bytes()
	if err != nil {
		return nil, false
	}
	var courses []models.Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		return nil, false
	}
	return courses, true
}

// Set stores the catalog snapshot.
func (c *CatalogCache) Set(ctx context.Context, courses []models.Course) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(courses)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, catalogKey, raw, c.ttl).Err()
}

// Invalidate drops the snapshot after an admin mutation.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, catalogKey).Err()
}
