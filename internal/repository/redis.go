package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/set-night/vitrine/internal/domain"
)

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     4,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// RedisBackend keeps the document as a JSON string under <prefix>:state.
type RedisBackend struct {
	client *redis.Client
	key    string
}

func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	key := "state"
	if prefix != "" {
		key = prefix + ":" + key
	}
	return &RedisBackend{client: client, key: key}
}

func (b *RedisBackend) Read(ctx context.Context) ([]byte, error) {
	data, err := b.client.Get(ctx, b.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNoDocument
		}
		return nil, fmt.Errorf("get state document: %w", err)
	}
	return data, nil
}

func (b *RedisBackend) Write(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set state document: %w", err)
	}
	return nil
}
