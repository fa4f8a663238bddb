// Copyright © 2026 ソニーレベル <C7kali3@gmail.com>
// Redis-backed slot registry for multi-process deployments

package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRedisURL = "redis://localhost:6379"
	defaultTTL      = 30 * time.Second
	releaseTimeout  = 2 * time.Second
)

// Redis stores slots as `wsimport:slot:<workspace>:<name>` keys holding an owner token.
// Held slots are renewed in the background until released.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis connects to Redis and returns a registry
func NewRedis(url string, ttl time.Duration, logger *zap.Logger) (*Redis, error) {
	if url == "" {
		url = defaultRedisURL
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, ttl: ttl, logger: logger}, nil
}

// Close shuts down the Redis client
func (r *Redis) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

// Acquire sets the slot key with NX so only one owner can win
func (r *Redis) Acquire(ctx context.Context, workspace, name string) (Slot, error) {
	key := slotKey(workspace, name)
	owner := uuid.NewString()

	ok, err := r.client.SetNX(ctx, key, owner, r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire slot: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}

	renewCtx, stop := context.WithCancel(context.Background())
	s := &redisSlot{registry: r, key: key, owner: owner, stop: stop, done: make(chan struct{})}
	go s.renew(renewCtx)
	return s, nil
}

func slotKey(workspace, name string) string {
	return fmt.Sprintf("wsimport:slot:%s:%s", workspace, name)
}

type redisSlot struct {
	registry *Redis
	key      string
	owner    string
	stop     context.CancelFunc
	done     chan struct{}
	once     sync.Once
}

func (s *redisSlot) renew(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.registry.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.registry.client.Eval(ctx, renewScript, []string{s.key}, s.owner, s.registry.ttl.Milliseconds()).Int()
			if err != nil && ctx.Err() == nil {
				s.registry.logger.Warn("slot renew failed", zap.String("key", s.key), zap.Error(err))
				continue
			}
			if err == nil && n == 0 {
				s.registry.logger.Warn("slot lost before release", zap.String("key", s.key))
				return
			}
		}
	}
}

func (s *redisSlot) Release() {
	s.once.Do(func() {
		s.stop()
		<-s.done

		ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
		if err := s.registry.client.Eval(ctx, releaseScript, []string{s.key}, s.owner).Err(); err != nil {
			s.registry.logger.Warn("slot release failed", zap.String("key", s.key), zap.Error(err))
		}
	})
}

// Only the owner may delete or extend its slot
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const renewScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`
