package session

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the token under a single Redis key, for fleet deployments
// where agents are ephemeral and local disk is not durable.
type RedisStore struct {
	client *redis.Client
	key    string
	ctx    context.Context
}

func NewRedisStore(addr, password, key string) *RedisStore {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &RedisStore{client: c, key: key, ctx: context.Background()}
}

func (r *RedisStore) Load() (string, error) {
	v, err := r.client.Get(r.ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *RedisStore) Save(token string) error {
	return r.client.Set(r.ctx, r.key, token, 0).Err()
}

func (r *RedisStore) Clear() error {
	return r.client.Del(r.ctx, r.key).Err()
}
