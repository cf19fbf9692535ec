package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/rocket_cart/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisStorage(client *redis.Client, key string) *RedisStorage {
	if key == "" {
		key = DefaultKey
	}
	return &RedisStorage{
		client: client,
		key:    key,
	}
}

// RedisStorage keeps the snapshot as a plain string value without expiry.
type RedisStorage struct {
	client *redis.Client
	key    string
}

func (r RedisStorage) Load(ctx context.Context) (domain.Cart, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{}, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("redis get failed: %w", err)
	}

	return decode(data)
}

func (r RedisStorage) Save(ctx context.Context, cart domain.Cart) error {
	data, err := encode(cart)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key, string(data), 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

