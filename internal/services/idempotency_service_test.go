package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyService(t *testing.T) {
	ctx := context.Background()
	ttl := time.Hour
	key := "req-42"
	redisKey := "ledger:idempotency:req-42"
	fingerprint := "9f86d081884c7d65"
	reservation := `{"fingerprint":"9f86d081884c7d65"}`

	t.Run("first reservation wins", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		service := NewIdempotencyService(client, ttl)

		redisMock.ExpectSetNX(redisKey, reservation, ttl).SetVal(true)
		redisMock.ExpectSetNX(redisKey, reservation, ttl).SetVal(false)

		ok, err := service.Reserve(ctx, key, fingerprint)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = service.Reserve(ctx, key, fingerprint)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("reserve surfaces redis errors", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		service := NewIdempotencyService(client, ttl)

		redisMock.ExpectSetNX(redisKey, reservation, ttl).SetErr(errors.New("connection refused"))

		_, err := service.Reserve(ctx, key, fingerprint)
		assert.Error(t, err)
	})

	t.Run("reservation is pending and keeps its fingerprint", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		service := NewIdempotencyService(client, ttl)

		redisMock.ExpectGet(redisKey).SetVal(reservation)

		stored, err := service.Lookup(ctx, key)
		require.NoError(t, err)
		assert.True(t, stored.Pending())
		assert.Equal(t, fingerprint, stored.Fingerprint)
	})

	t.Run("vanished key is in progress", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		service := NewIdempotencyService(client, ttl)

		redisMock.ExpectGet(redisKey).RedisNil()

		_, err := service.Lookup(ctx, key)
		assert.ErrorIs(t, err, ErrRequestInProgress)
	})

	t.Run("completed response is replayed", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		service := NewIdempotencyService(client, ttl)

		body := []byte(`{"transactionId":"t1","status":"completed"}`)
		record, err := json.Marshal(StoredResponse{Fingerprint: fingerprint, StatusCode: 201, Body: body})
		require.NoError(t, err)

		redisMock.ExpectSet(redisKey, record, ttl).SetVal("OK")
		redisMock.ExpectGet(redisKey).SetVal(string(record))

		require.NoError(t, service.Complete(ctx, key, fingerprint, 201, body))

		stored, err := service.Lookup(ctx, key)
		require.NoError(t, err)
		assert.False(t, stored.Pending())
		assert.Equal(t, fingerprint, stored.Fingerprint)
		assert.Equal(t, 201, stored.StatusCode)
		assert.JSONEq(t, string(body), string(stored.Body))
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})

	t.Run("release deletes the reservation", func(t *testing.T) {
		client, redisMock := redismock.NewClientMock()
		service := NewIdempotencyService(client, ttl)

		redisMock.ExpectDel(redisKey).SetVal(1)

		assert.NoError(t, service.Release(ctx, key))
		assert.NoError(t, redisMock.ExpectationsWereMet())
	})
}
