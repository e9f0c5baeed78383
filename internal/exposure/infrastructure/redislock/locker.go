package redislock

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const releaseTimeout = 5 * time.Second

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Locker takes per-key locks with SET NX PX so that several service instances
// never group the same wearable at once.
type Locker struct {
	client redis.UniversalClient
	logger *log.Logger
}

// New constructs a locker on an existing client.
func New(client redis.UniversalClient, logger *log.Logger) (*Locker, error) {
	if client == nil {
		return nil, errors.New("redis locker: nil client")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Locker{client: client, logger: logger}, nil
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, logger *log.Logger) (*Locker, *redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis locker: ping %s: %w", addr, err)
	}
	locker, err := New(client, logger)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return locker, client, nil
}

// Acquire sets key to a random token when it does not exist. The returned release
// deletes the key only while it still holds that token.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	if l == nil || l.client == nil {
		return nil, false, errors.New("redis locker: nil client")
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := releaseScript.Run(releaseCtx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Printf("redis locker: release %s: %v", key, err)
		}
	}
	return release, true, nil
}
