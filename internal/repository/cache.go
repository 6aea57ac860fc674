package repository

import (
	"context"
	"time"
)

// Cache abstracts the read-side cache. It is never authoritative: any
// error may be treated as a miss.
// Implementations: Redis (production) or in-memory (local dev / single instance).
type Cache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
	InvalidateByPrefix(ctx context.Context, prefix string) error
}
