package domain

import (
	"context"
	"io"
	"time"
)

// ThroneCache provides fast reads of the current throne for the quote path.
// The store remains the source of truth; the cache is invalidated after every
// coronation.
type ThroneCache interface {
	Set(ctx context.Context, t Throne) error
	Get(ctx context.Context) (Throne, error)
	Invalidate(ctx context.Context) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// BlobWriter uploads an object to blob storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
