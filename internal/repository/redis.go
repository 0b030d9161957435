package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pmconsole/internal/config"
	"pmconsole/internal/models"

	"github.com/redis/go-redis/v9"
)

const markerKeyPrefix = "pmconsole:marker:"

type RedisMarkerStore struct {
	client *redis.Client
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisMarkerStore(client *redis.Client) *RedisMarkerStore {
	return &RedisMarkerStore{client: client}
}

func markerKey(owner string) string {
	return markerKeyPrefix + owner
}

func (r *RedisMarkerStore) PutMarker(ctx context.Context, owner string, marker models.NewBookingMarker, ttl time.Duration) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("failed to marshal marker: %w", err)
	}

	if err := r.client.Set(ctx, markerKey(owner), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set marker in redis: %w", err)
	}
	return nil
}

// TakeMarker reads and deletes the marker atomically, so two concurrent
// listings never both see it. A missing marker is (nil, nil).
func (r *RedisMarkerStore) TakeMarker(ctx context.Context, owner string) (*models.NewBookingMarker, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.GetDel(ctx, markerKey(owner)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to take marker from redis: %w", err)
	}

	var marker models.NewBookingMarker
	if err := json.Unmarshal([]byte(val), &marker); err != nil {
		return nil, fmt.Errorf("failed to unmarshal marker: %w", err)
	}
	return &marker, nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
