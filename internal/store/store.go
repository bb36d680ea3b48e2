// Package store provides the durable key/value persistence used to carry an
// open escalation session across host restarts and page reloads.
package store

import (
	"context"
	"time"
)

// Store is a small TTL'd key/value surface. Get reports presence explicitly
// so callers can tell an absent key from an empty value.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
