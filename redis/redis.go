package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var Client *redis.Client

func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	Client = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   0,
	})

	if _, err := Client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return Client, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrLockHeld = errors.New("lock is held by another worker")

// Locker hands out per-key leases so a job runs on at most one replica at a time.
type Locker struct {
	client *redis.Client
	prefix string
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client, prefix: "vetcare:lock:"}
}

// Acquire takes the lease for ttl and returns a release func. ErrLockHeld means someone else has it.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func() {
		_ = releaseScript.Run(context.Background(), l.client, []string{l.prefix + key}, token).Err()
	}
	return release, nil
}

// Pinger adapts the client to the health check interface.
type Pinger struct {
	Client *redis.Client
}

func (p Pinger) PingContext(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}
