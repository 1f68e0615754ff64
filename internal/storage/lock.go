package storage

import (
	"context"
	"errors"
	"log"

	"grievance/backend/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLocked is returned when another request is already mutating the complaint.
var ErrLocked = errors.New("complaint is locked by another request")

// Locker serializes mutations of a single complaint across processes.
type Locker interface {
	Lock(ctx context.Context, complaintID string) (unlock func(), err error)
}

// NopLocker never blocks. Optimistic versioning still protects writes.
type NopLocker struct{}

func (NopLocker) Lock(context.Context, string) (func(), error) { return func() {}, nil }

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker takes a short-lived SET NX lock per complaint.
type RedisLocker struct {
	Redis *redis.Client
}

// Lock acquires complaint-lock:<id> or fails with ErrLocked.
func (l *RedisLocker) Lock(ctx context.Context, complaintID string) (func(), error) {
	key := config.ComplaintLockKeyPrefix + complaintID
	token := uuid.New().String()

	ok, err := l.Redis.SetNX(ctx, key, token, config.ComplaintLockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// the request context may already be cancelled
		if err := releaseScript.Run(context.Background(), l.Redis, []string{key}, token).Err(); err != nil {
			log.Printf("WARN: Failed to release lock %s: %v", key, err)
		}
	}, nil
}

// Locker returns a Redis locker when Redis is configured.
func (s *Service) Locker() Locker {
	if s.Redis == nil {
		return NopLocker{}
	}
	return &RedisLocker{Redis: s.Redis}
}
