package cache

import (
	"context"
	"time"
)

// Cache - эфемерное хранилище ключ-значение с временем жизни записей.
// Операции атомарны в пределах одного ключа.
type Cache interface {
	// Get возвращает значение и признак его наличия.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set сохраняет значение. ttl <= 0 - без ограничения времени жизни.
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	Del(ctx context.Context, key string) error
}
