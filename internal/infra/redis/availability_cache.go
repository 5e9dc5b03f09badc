package redis

import (
	"context"
	"time"
)

// AvailabilityCache remembers the last probe result per model so that
// request handling can answer "is this model reachable" without hitting
// the provider on every call.
type AvailabilityCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewAvailabilityCache(client RedisClient, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

func (c *AvailabilityCache) Set(ctx context.Context, modelName string, available bool) error {
	val := "0"
	if available {
		val = "1"
	}
	return c.client.Set(ctx, "model_avail:"+modelName, val, c.ttl)
}

// Get returns (available, known). A missing key means no probe has run
// yet; callers should treat unknown as available.
func (c *AvailabilityCache) Get(ctx context.Context, modelName string) (bool, bool) {
	val, err := c.client.Get(ctx, "model_avail:"+modelName)
	if err != nil {
		return false, false
	}
	return val == "1", true
}
