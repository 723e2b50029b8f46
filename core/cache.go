package core

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values by key.
type Cache interface {
	// Get decodes the value stored at key into dest, reporting whether it was found.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
}
