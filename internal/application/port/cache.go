package port

import (
	"context"
	"errors"
)

// ErrCacheMiss ключ отсутствует в кеше
var ErrCacheMiss = errors.New("cache miss")

// Cache кеш JSON значений (Port)
type Cache interface {
	// Get читает значение в dest; ErrCacheMiss если ключа нет
	Get(ctx context.Context, key string, dest interface{}) error

	// Set сохраняет значение с TTL по умолчанию
	Set(ctx context.Context, key string, value interface{}) error

	Delete(ctx context.Context, key string) error

	// DeletePattern удаляет все ключи по шаблону
	DeletePattern(ctx context.Context, pattern string) error

	Close() error
}
