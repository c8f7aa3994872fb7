package webhook

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis key prefix for seen delivery IDs.
const deliveryKeyPrefix = "wh:delivery:"

// RedisDeliveryLog is a Redis-backed delivery log. This is the recommended
// implementation for distributed deployments where multiple instances
// receive deliveries from the same provider endpoint.
type RedisDeliveryLog struct {
	client *redis.Client
}

// NewRedisDeliveryLog constructs a Redis-backed delivery log.
func NewRedisDeliveryLog(client *redis.Client) *RedisDeliveryLog {
	return &RedisDeliveryLog{client: client}
}

// MarkSeen uses SET NX EX so record-and-check is one atomic round trip.
func (l *RedisDeliveryLog) MarkSeen(ctx context.Context, deliveryID string, ttl time.Duration) (bool, error) {
	key := deliveryKeyPrefix + deliveryID
	// Store "1" as a simple marker; the key existence is what matters.
	created, err := l.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return !created, nil
}
