package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const idempotencyKeyPrefix = "ledger:idempotency:"

var ErrRequestInProgress = errors.New("a request with this idempotency key is still in progress")

// StoredResponse is the record kept per idempotency key. A zero StatusCode
// marks a reservation whose request has not finished yet.
type StoredResponse struct {
	Fingerprint string          `json:"fingerprint"`
	StatusCode  int             `json:"status_code,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

func (r *StoredResponse) Pending() bool {
	return r.StatusCode == 0
}

// IdempotencyService remembers completed money-moving responses in Redis.
type IdempotencyService struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewIdempotencyService(client *redis.Client, ttl time.Duration) *IdempotencyService {
	return &IdempotencyService{
		redis: client,
		ttl:   ttl,
	}
}

func idempotencyKey(key string) string {
	return idempotencyKeyPrefix + key
}

// Reserve claims key for the request identified by fingerprint. It returns
// false when the key was already claimed.
func (s *IdempotencyService) Reserve(ctx context.Context, key, fingerprint string) (bool, error) {
	data, err := json.Marshal(StoredResponse{Fingerprint: fingerprint})
	if err != nil {
		return false, fmt.Errorf("failed to encode idempotency reservation: %w", err)
	}

	ok, err := s.redis.SetNX(ctx, idempotencyKey(key), string(data), s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve idempotency key: %w", err)
	}
	return ok, nil
}

// Lookup returns the record for key. Callers compare its fingerprint before
// trusting it; a pending record means the first request is still running.
func (s *IdempotencyService) Lookup(ctx context.Context, key string) (*StoredResponse, error) {
	value, err := s.redis.Get(ctx, idempotencyKey(key)).Result()
	if err == redis.Nil {
		return nil, ErrRequestInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var stored StoredResponse
	if err := json.Unmarshal([]byte(value), &stored); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	return &stored, nil
}

func (s *IdempotencyService) Complete(ctx context.Context, key, fingerprint string, statusCode int, body []byte) error {
	data, err := json.Marshal(StoredResponse{Fingerprint: fingerprint, StatusCode: statusCode, Body: body})
	if err != nil {
		return fmt.Errorf("failed to encode idempotency record: %w", err)
	}
	return s.redis.Set(ctx, idempotencyKey(key), data, s.ttl).Err()
}

// Release drops a reservation so the client can retry after a server-side failure.
func (s *IdempotencyService) Release(ctx context.Context, key string) error {
	return s.redis.Del(ctx, idempotencyKey(key)).Err()
}
