package postalcode

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "postalcode:"

// Cache stores resolved addresses.
type Cache interface {
	Get(ctx context.Context, cep string) (Address, bool, error)
	Set(ctx context.Context, cep string, addr Address) error
}

// RedisCache keeps addresses in Redis as JSON with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache wraps client. A zero ttl keeps entries forever.
func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opt), nil
}

func (c *RedisCache) Get(ctx context.Context, cep string) (Address, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+cep).Bytes()
	if errors.Is(err, redis.Nil) {
		return Address{}, false, nil
	}
	if err != nil {
		return Address{}, false, err
	}

	var addr Address
	if err := json.Unmarshal(raw, &addr); err != nil {
		return Address{}, false, err
	}
	return addr, true, nil
}

func (c *RedisCache) Set(ctx context.Context, cep string, addr Address) error {
	raw, err := json.Marshal(addr)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyPrefix+cep, raw, c.ttl).Err()
}
