package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// IdempotencyHeader is the request header clients set to make a POST safe to retry
const IdempotencyHeader = "Idempotency-Key"

// KeyStore remembers idempotency keys
type KeyStore interface {
	// Seen claims key and reports whether it had already been claimed.
	Seen(ctx context.Context, key string) (bool, error)
	// Release forgets key so the request can be retried.
	Release(ctx context.Context, key string) error
}

// RedisKeyStore keeps idempotency keys in Redis with a TTL
type RedisKeyStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

// NewRedisKeyStore creates a RedisKeyStore
func NewRedisKeyStore(rdb redis.Cmdable, ttl time.Duration) *RedisKeyStore {
	return &RedisKeyStore{rdb: rdb, ttl: ttl}
}

// Seen claims key with SET NX
func (s *RedisKeyStore) Seen(ctx context.Context, key string) (bool, error) {
	ok, err := s.rdb.SetNX(ctx, key, "1", s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Release deletes key
func (s *RedisKeyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}

// Idempotency rejects a replayed Idempotency-Key with 409. Requests without
// the header pass through. If the store is unreachable the request is served
// anyway. Only a 2xx response keeps the key; after any other status it is
// released so a corrected request can reuse it.
func Idempotency(store KeyStore, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get(IdempotencyHeader)
			if header == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("idem:%s:%s:%s", r.Method, r.URL.Path, header)
			seen, err := store.Seen(r.Context(), key)
			if err != nil {
				log.Warn("idempotency store unavailable", zap.String("key", key), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}
			if seen {
				writeMessage(w, http.StatusConflict, "Duplicate request")
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			if rec.status < http.StatusOK || rec.status >= http.StatusMultipleChoices {
				if err := store.Release(context.WithoutCancel(r.Context()), key); err != nil {
					log.Warn("failed to release idempotency key", zap.String("key", key), zap.Error(err))
				}
			}
		})
	}
}
