package cachesvc

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	"github.com/classbook/classbook/core"
)

// scanCount is the number of keys requested per SCAN round trip.
const scanCount = 100

type redisCache struct {
	client *redis.Client
}

var _ core.Cache = (*redisCache)(nil)

func NewRedisCache(client *redis.Client) core.Cache {
	return &redisCache{client: client}
}

// NewRedisClient connects to the Redis server at url ("redis://[user:pass@]host:port/db").
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis URL")
	}
	client := redis.NewClient(opts)
	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

// New returns the Redis cache when conf.Cache.RedisURL is set, the in-memory cache otherwise.
// The returned func releases the underlying connection.
func New(ctx context.Context, conf *core.Config) (core.Cache, func() error, error) {
	if conf.Cache.RedisURL == "" {
		return NewMemoryCache(), func() error { return nil }, nil
	}
	client, err := NewRedisClient(ctx, conf.Cache.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return NewRedisCache(client), client.Close, nil
}

func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, errors.Wrap(err, "reading from redis")
	}
	if err = json.Unmarshal(data, dest); err != nil {
		return false, errors.Wrap(err, "decoding cached value")
	}
	return true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(err, "encoding value to cache")
	}
	if err = c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "writing to redis")
	}
	return nil
}

func (c *redisCache) DeletePrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", scanCount).Iterator()
	keys := make([]string, 0, scanCount)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) == scanCount {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Wrap(err, "deleting redis keys")
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return errors.Wrap(err, "scanning redis keys")
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			return errors.Wrap(err, "deleting redis keys")
		}
	}
	return nil
}
