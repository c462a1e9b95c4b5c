package grants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "grant:"

// RedisStore keeps the grant table in Redis so several instances can share
// it. GETDEL provides the atomic take-and-remove.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies connectivity.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{client: client}, nil
}

// Close releases the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Put stores a grant with a TTL matching its expiry, so abandoned grants
// evict themselves.
func (s *RedisStore) Put(ctx context.Context, grant Grant) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return fmt.Errorf("marshal grant: %w", err)
	}
	ttl := time.Until(grant.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	if err := s.client.Set(ctx, redisKeyPrefix+grant.ID, data, ttl).Err(); err != nil {
		return fmt.Errorf("store grant: %w", err)
	}
	return nil
}

// Take removes and returns the grant atomically via GETDEL.
func (s *RedisStore) Take(ctx context.Context, id string) (Grant, error) {
	data, err := s.client.GetDel(ctx, redisKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return Grant{}, ErrGrantNotFound
	}
	if err != nil {
		return Grant{}, fmt.Errorf("take grant: %w", err)
	}
	var grant Grant
	if err := json.Unmarshal([]byte(data), &grant); err != nil {
		return Grant{}, fmt.Errorf("unmarshal grant: %w", err)
	}
	return grant, nil
}

// Clear drops all grants.
func (s *RedisStore) Clear(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("clear grant %s: %w", iter.Val(), err)
		}
	}
	return iter.Err()
}

var _ Store = (*RedisStore)(nil)
