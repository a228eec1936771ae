package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultGenerationKey задаёт ключ счётчика поколений кэша.
const DefaultGenerationKey = "licitaciones:cache:generation"

// Redis реализует кэш поверх go-redis, общий для нескольких экземпляров сервиса.
type Redis struct {
	client        *redis.Client
	generationKey string
}

// NewRedis подключается к Redis по URL и проверяет соединение.
func NewRedis(ctx context.Context, redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Redis{client: client, generationKey: DefaultGenerationKey}, nil
}

// Get возвращает значение по ключу; отсутствие ключа не считается ошибкой.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set сохраняет значение с TTL.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Generation возвращает текущее поколение кэша; до первой инвалидации оно равно нулю.
func (r *Redis) Generation(ctx context.Context) (int64, error) {
	gen, err := r.client.Get(ctx, r.generationKey).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis get generation: %w", err)
	}
	return gen, nil
}

// Invalidate увеличивает поколение атомарным INCR. Записи прежних поколений
// больше не читаются и удаляются Redis по истечении TTL.
func (r *Redis) Invalidate(ctx context.Context) error {
	if err := r.client.Incr(ctx, r.generationKey).Err(); err != nil {
		return fmt.Errorf("redis incr generation: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis.
func (r *Redis) Close() error {
	return r.client.Close()
}
