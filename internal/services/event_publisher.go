package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/ruralpay/ledger/internal/models"
)

// EventPublisher receives committed postings. Implementations must not block for long:
// publishing happens after commit on the request path.
type EventPublisher interface {
	Publish(ctx context.Context, event models.LedgerEvent) error
}

// RedisEventPublisher appends events to a Redis list consumed by downstream settlement.
type RedisEventPublisher struct {
	redis *redis.Client
	queue string
}

func NewRedisEventPublisher(client *redis.Client, queue string) *RedisEventPublisher {
	return &RedisEventPublisher{
		redis: client,
		queue: queue,
	}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, event models.LedgerEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode ledger event: %w", err)
	}
	return p.redis.RPush(ctx, p.queue, data).Err()
}
