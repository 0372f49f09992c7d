package repository

import (
	"context"
	"time"
)

// CacheRepository определяет методы для работы с кешем
type CacheRepository interface {
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	// Increment атомарно увеличивает счетчик и возвращает новое значение (отсутствующий ключ - 0)
	Increment(ctx context.Context, key string) (int64, error)
}
