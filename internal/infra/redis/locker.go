package redis

import (
	"context"
	"fmt"
	"time"

	"rest-polls/internal/app"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the lock only if it is still owned by the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a Redis-backed app.SubmissionLocker so that instances behind a load
// balancer serialize submissions for the same user. The TTL bounds how long a crashed
// holder can block others.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
	retry  time.Duration
}

var _ app.SubmissionLocker = (*Locker)(nil)

func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl, retry: 10 * time.Millisecond}
}

func (l *Locker) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := l.key(key)
	token := uuid.NewString()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()
	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("set lock %s: %w", lockKey, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// best-effort; the TTL reclaims the key if this fails
		if err := releaseScript.Run(context.Background(), l.client, []string{lockKey}, token).Err(); err != nil {
			logrus.WithError(err).WithField("lock", lockKey).Warn("release lock failed")
		}
	}, nil
}

func (l *Locker) key(key string) string {
	return "polls:lock:" + key
}
