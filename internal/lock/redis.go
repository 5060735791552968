package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gaiazov/PrintService/internal/observability"
)

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another instance is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript extends the key's expiry only while it still holds our token.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisConfig holds Redis lock settings.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	Prefix    string
	TTL       time.Duration
	RetryWait time.Duration
}

// RedisLocker implements Locker with SET NX PX, a token-checked release and a
// watchdog that keeps the key alive every TTL/3 while the lock is held.
type RedisLocker struct {
	client *redis.Client
	cfg    RedisConfig
	logger *observability.Logger
}

// NewRedisLocker connects to Redis and verifies the connection.
func NewRedisLocker(cfg RedisConfig, logger *observability.Logger) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if cfg.Prefix == "" {
		cfg.Prefix = "pdf-printer:lock:"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 10 * time.Minute
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = 100 * time.Millisecond
	}
	if logger == nil {
		logger = observability.Nop()
	}

	return &RedisLocker{client: client, cfg: cfg, logger: logger.WithOperation("lock")}, nil
}

func (l *RedisLocker) Acquire(ctx context.Context, name string) (func(), error) {
	key := l.cfg.Prefix + name
	token := uuid.NewString()

	ticker := time.NewTicker(l.cfg.RetryWait)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.cfg.TTL).Result()
		if err != nil {
			return nil, busy(name, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, busy(name, ctx.Err())
		case <-ticker.C:
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(key, token, stop, done)

	var once sync.Once
	release := func() {
		once.Do(func() {
			close(stop)
			<-done

			// The caller's context may already be done.
			rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
				l.logger.Warn().Err(err).Str("key", key).Msg("Failed to release device lock")
			}
		})
	}
	return release, nil
}

// keepAlive renews the key until stop is closed or the key is no longer ours.
func (l *RedisLocker) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	interval := max(l.cfg.TTL/3, time.Millisecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), interval)
		n, err := renewScript.Run(ctx, l.client, []string{key}, token, l.cfg.TTL.Milliseconds()).Int()
		cancel()

		switch {
		case err != nil:
			l.logger.Warn().Err(err).Str("key", key).Msg("Failed to renew device lock")
		case n == 0:
			l.logger.Error().Str("key", key).Msg("Device lock lost before release")
			return
		}
	}
}

// Close closes the Redis connection.
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
