// Package cache stores rendered read API responses.
package cache

import (
	"context"
	"time"
)

// Store holds response bodies by key until they expire or are purged.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Purge drops every entry written by this store.
	Purge(ctx context.Context) error
}
