package sietch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a Cache stored in Redis. Rows are encoded by db column, so
// they come back exactly as the store holds them. Keys embed a generation
// number kept under "<prefix>:gen"; Flush bumps the generation so every older
// key becomes unreachable and ages out through its TTL.
type RedisCache[T any, ID comparable] struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisCache[T any, ID comparable](client *redis.Client, prefix string, ttl time.Duration) *RedisCache[T, ID] {
	return &RedisCache[T, ID]{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisCache[T, ID]) generationKey() string {
	return r.prefix + ":gen"
}

func (r *RedisCache[T, ID]) key(ctx context.Context, id ID) (string, error) {
	gen, err := r.client.Get(ctx, r.generationKey()).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return "", err
	}
	return fmt.Sprintf("%s:%d:%v", r.prefix, gen, id), nil
}

func (r *RedisCache[T, ID]) Get(ctx context.Context, id ID) (*T, error) {
	key, err := r.key(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrItemNotFound
		}
		return nil, err
	}

	return decodeRow[T](data)
}

func (r *RedisCache[T, ID]) Set(ctx context.Context, id ID, item *T) error {
	if item == nil {
		return errors.New("item cannot be nil")
	}
	key, err := r.key(ctx, id)
	if err != nil {
		return err
	}
	data, err := encodeRow(item)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisCache[T, ID]) Delete(ctx context.Context, id ID) error {
	key, err := r.key(ctx, id)
	if err != nil {
		return err
	}
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCache[T, ID]) Flush(ctx context.Context) error {
	return r.client.Incr(ctx, r.generationKey()).Err()
}
